// Package reconcile merges candidate records into the store. Every
// candidate lands in exactly one outcome: inserted when its key is new,
// skipped when an identical record already exists, updated or conflicted
// when the key exists with different content, and missing-reference when
// a foreign key cannot be satisfied yet. Re-importing the same
// spreadsheet is therefore always safe.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/pkg/config"
	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
)

// Outcome classifies what happened to one candidate record.
type Outcome int

const (
	// Inserted means the key was new and the record was persisted.
	Inserted Outcome = iota
	// Skipped means an identical record already exists.
	Skipped
	// Updated means the key existed with different content and the
	// overwrite was approved.
	Updated
	// Conflict means the key existed with different content and the
	// overwrite was refused.
	Conflict
	// MissingReference means a record this one depends on is not
	// persisted yet. Retriable: a later pass may succeed.
	MissingReference
)

// String returns a readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Skipped:
		return "skipped"
	case Updated:
		return "updated"
	case Conflict:
		return "conflict"
	case MissingReference:
		return "missing reference"
	default:
		return "unknown"
	}
}

// Result carries the outcome of one candidate plus a human-readable
// detail for the report.
type Result struct {
	Outcome Outcome
	Detail  string
}

type animalStore interface {
	FindByKey(ctx context.Context, ref models.AnimalRef) (*models.Animal, error)
	Create(ctx context.Context, animal *models.Animal) error
	Update(ctx context.Context, animal *models.Animal) error
}

type estrusStore interface {
	FindByKey(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.EstrusEvent, error)
	FindNear(ctx context.Context, sow models.AnimalRef, at time.Time, span time.Duration) ([]models.EstrusEvent, error)
	FindLatestBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.EstrusEvent, error)
	Create(ctx context.Context, event *models.EstrusEvent) error
	Update(ctx context.Context, event *models.EstrusEvent) error
	SetPregnancy(ctx context.Context, sow models.AnimalRef, estrusAt time.Time, status models.PregnancyStatus) error
}

type matingStore interface {
	FindByKey(ctx context.Context, sow models.AnimalRef, estrusAt, matingAt time.Time) (*models.MatingEvent, error)
	FindByEstrus(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) ([]models.MatingEvent, error)
	Create(ctx context.Context, event *models.MatingEvent) error
	Update(ctx context.Context, event *models.MatingEvent) error
}

type farrowingStore interface {
	FindByEstrus(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.FarrowingEvent, error)
	FindBySowOn(ctx context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.FarrowingEvent, error)
	Create(ctx context.Context, event *models.FarrowingEvent) error
	Update(ctx context.Context, event *models.FarrowingEvent) error
}

type weaningStore interface {
	FindByFarrowing(ctx context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.WeaningEvent, error)
	Create(ctx context.Context, event *models.WeaningEvent) error
	Update(ctx context.Context, event *models.WeaningEvent) error
}

type individualStore interface {
	FindByKey(ctx context.Context, birthSow models.AnimalRef, farrowedOn time.Time, inLitterID int) (*models.Individual, error)
	Create(ctx context.Context, piglet *models.Individual) error
	Update(ctx context.Context, piglet *models.Individual) error
}

// Stores bundles the persistence surface the engine writes through.
type Stores struct {
	Animals     animalStore
	Estrus      estrusStore
	Matings     matingStore
	Farrowings  farrowingStore
	Weanings    weaningStore
	Individuals individualStore
}

// NewStores wires concrete repositories into the engine's store bundle.
func NewStores(animals animalStore, estrus estrusStore, matings matingStore,
	farrowings farrowingStore, weanings weaningStore, individuals individualStore) Stores {
	return Stores{
		Animals:     animals,
		Estrus:      estrus,
		Matings:     matings,
		Farrowings:  farrowings,
		Weanings:    weanings,
		Individuals: individuals,
	}
}

// Engine reconciles candidate records against the store. Overwrite
// decisions on conflicting keys go through the decider, so batch runs
// report conflicts while interactive runs may resolve them on the spot.
type Engine struct {
	stores  Stores
	decider resolver.Decider
	policy  config.PolicyConfig
	logger  *zap.Logger
}

// New constructs an Engine.
func New(stores Stores, decider resolver.Decider, policy config.PolicyConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{stores: stores, decider: decider, policy: policy, logger: logger}
}

// insertResult folds the store's integrity sentinels into outcomes.
// Anything else is a real failure and aborts the batch.
func insertResult(err error) (Result, error) {
	switch {
	case err == nil:
		return Result{Outcome: Inserted}, nil
	case errors.Is(err, apperrors.ErrMissingReference):
		return Result{Outcome: MissingReference, Detail: err.Error()}, nil
	case errors.Is(err, apperrors.ErrDuplicateKey):
		return Result{Outcome: Conflict, Detail: err.Error()}, nil
	default:
		return Result{}, err
	}
}

// overwrite asks the decider whether the persisted record may be
// replaced. Refusal is a Conflict, never an error.
func (e *Engine) overwrite(ctx context.Context, change string, update func() error) (Result, error) {
	ok, err := e.decider.Confirm(ctx, change)
	if err != nil {
		return Result{}, fmt.Errorf("confirm overwrite: %w", err)
	}
	if !ok {
		return Result{Outcome: Conflict, Detail: change}, nil
	}
	if err := update(); err != nil {
		return Result{}, err
	}
	return Result{Outcome: Updated, Detail: change}, nil
}

// Animal reconciles one animal candidate.
func (e *Engine) Animal(ctx context.Context, animal *models.Animal) (Result, error) {
	existing, err := e.stores.Animals.FindByKey(ctx, animal.Ref())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("find animal: %w", err)
		}
		return insertResult(e.stores.Animals.Create(ctx, animal))
	}
	if existing.EqualContent(animal) {
		return Result{Outcome: Skipped}, nil
	}
	change := fmt.Sprintf("animal %s already exists with different content", animal.Ref())
	e.logger.Debug("animal content differs", zap.String("key", animal.Ref().String()))
	return e.overwrite(ctx, change, func() error {
		return e.stores.Animals.Update(ctx, animal)
	})
}

// Estrus reconciles one estrus candidate. Two observations of the same
// cycle within the duplicate span collapse into the persisted one. A new
// cycle starting before the repeat gap has elapsed is a return to heat:
// if the previous cycle was mated the mating evidently failed and that
// cycle is marked not pregnant; if it was never mated the row looks like
// a duplicate observation and only goes in when the decider approves.
func (e *Engine) Estrus(ctx context.Context, event *models.EstrusEvent) (Result, error) {
	existing, err := e.stores.Estrus.FindByKey(ctx, event.Sow(), event.EstrusAt)
	if err == nil {
		if existing.EqualContent(event) {
			return Result{Outcome: Skipped}, nil
		}
		change := fmt.Sprintf("estrus of sow %s at %s already exists with different content",
			event.SowTag, event.EstrusAt.Format(time.DateTime))
		return e.overwrite(ctx, change, func() error {
			return e.stores.Estrus.Update(ctx, event)
		})
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Result{}, fmt.Errorf("find estrus: %w", err)
	}

	near, err := e.stores.Estrus.FindNear(ctx, event.Sow(), event.EstrusAt, e.policy.EstrusDuplicateSpan)
	if err != nil {
		return Result{}, err
	}
	if len(near) > 0 {
		detail := fmt.Sprintf("estrus at %s folded into observation at %s",
			event.EstrusAt.Format(time.DateTime), near[0].EstrusAt.Format(time.DateTime))
		return Result{Outcome: Skipped, Detail: detail}, nil
	}

	if result, done, err := e.checkRepeatCycle(ctx, event); done || err != nil {
		return result, err
	}

	return insertResult(e.stores.Estrus.Create(ctx, event))
}

// checkRepeatCycle inspects the sow's previous cycle when the new estrus
// falls inside the repeat gap. done reports that the candidate was
// settled without an insert.
func (e *Engine) checkRepeatCycle(ctx context.Context, event *models.EstrusEvent) (Result, bool, error) {
	if e.policy.RepeatCycleGap <= 0 {
		return Result{}, false, nil
	}
	prev, err := e.stores.Estrus.FindLatestBefore(ctx, event.Sow(), event.EstrusAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("find previous estrus: %w", err)
	}
	if event.EstrusAt.Sub(prev.EstrusAt) >= e.policy.RepeatCycleGap {
		return Result{}, false, nil
	}

	matings, err := e.stores.Matings.FindByEstrus(ctx, prev.Sow(), prev.EstrusAt)
	if err != nil {
		return Result{}, false, fmt.Errorf("find matings of previous cycle: %w", err)
	}
	if len(matings) > 0 {
		e.logger.Debug("sow returned to heat after mating",
			zap.String("sow", event.SowTag),
			zap.Time("previous_cycle", prev.EstrusAt),
		)
		if err := e.stores.Estrus.SetPregnancy(ctx, prev.Sow(), prev.EstrusAt, models.PregnancyNo); err != nil {
			return Result{}, false, fmt.Errorf("mark cycle open: %w", err)
		}
		return Result{}, false, nil
	}

	change := fmt.Sprintf("estrus of sow %s at %s follows the unmated cycle at %s too closely, record as a new cycle",
		event.SowTag, event.EstrusAt.Format(time.DateTime), prev.EstrusAt.Format(time.DateTime))
	ok, err := e.decider.Confirm(ctx, change)
	if err != nil {
		return Result{}, false, fmt.Errorf("confirm repeat cycle: %w", err)
	}
	if !ok {
		return Result{Outcome: Conflict, Detail: change}, true, nil
	}
	return Result{}, false, nil
}

// Mating reconciles one mating candidate.
func (e *Engine) Mating(ctx context.Context, event *models.MatingEvent) (Result, error) {
	existing, err := e.stores.Matings.FindByKey(ctx, event.Sow(), event.EstrusAt, event.MatingAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("find mating: %w", err)
		}
		return insertResult(e.stores.Matings.Create(ctx, event))
	}
	if existing.EqualContent(event) {
		return Result{Outcome: Skipped}, nil
	}
	change := fmt.Sprintf("mating of sow %s at %s already exists with a different boar",
		event.SowTag, event.MatingAt.Format(time.DateTime))
	return e.overwrite(ctx, change, func() error {
		return e.stores.Matings.Update(ctx, event)
	})
}

// Farrowing reconciles one farrowing candidate. Persisting a litter with
// live-born piglets retroactively marks its estrus cycle pregnant.
func (e *Engine) Farrowing(ctx context.Context, event *models.FarrowingEvent) (Result, error) {
	result, err := e.reconcileFarrowing(ctx, event)
	if err != nil {
		return Result{}, err
	}
	if (result.Outcome == Inserted || result.Outcome == Updated) && event.BornAlive() > 0 {
		if err := e.stores.Estrus.SetPregnancy(ctx, event.Sow(), event.EstrusAt, models.PregnancyYes); err != nil {
			return Result{}, fmt.Errorf("mark cycle pregnant: %w", err)
		}
	}
	return result, nil
}

func (e *Engine) reconcileFarrowing(ctx context.Context, event *models.FarrowingEvent) (Result, error) {
	existing, err := e.stores.Farrowings.FindByEstrus(ctx, event.Sow(), event.EstrusAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("find farrowing: %w", err)
		}
		// A sow delivers at most once a day, so a persisted farrowing on
		// the same date under another cycle means one of the rows pinned
		// the wrong estrus.
		other, err := e.stores.Farrowings.FindBySowOn(ctx, event.Sow(), event.FarrowedOn)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("find farrowing by date: %w", err)
		}
		if other != nil {
			detail := fmt.Sprintf("sow %s already farrowed on %s under the cycle at %s",
				event.SowTag, event.FarrowedOn.Format(time.DateOnly), other.EstrusAt.Format(time.DateTime))
			return Result{Outcome: Conflict, Detail: detail}, nil
		}
		return insertResult(e.stores.Farrowings.Create(ctx, event))
	}
	if !models.SameDay(existing.FarrowedOn, event.FarrowedOn) {
		detail := fmt.Sprintf("cycle of sow %s at %s already farrowed on %s, row says %s",
			event.SowTag, event.EstrusAt.Format(time.DateTime),
			existing.FarrowedOn.Format(time.DateOnly), event.FarrowedOn.Format(time.DateOnly))
		return Result{Outcome: Conflict, Detail: detail}, nil
	}
	if existing.EqualContent(event) {
		return Result{Outcome: Skipped}, nil
	}
	change := fmt.Sprintf("farrowing of sow %s on %s already exists with different counts",
		event.SowTag, event.FarrowedOn.Format(time.DateOnly))
	return e.overwrite(ctx, change, func() error {
		return e.stores.Farrowings.Update(ctx, event)
	})
}

// Weaning reconciles one weaning candidate.
func (e *Engine) Weaning(ctx context.Context, event *models.WeaningEvent) (Result, error) {
	existing, err := e.stores.Weanings.FindByFarrowing(ctx, event.Sow(), event.FarrowedOn)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("find weaning: %w", err)
		}
		return insertResult(e.stores.Weanings.Create(ctx, event))
	}
	if existing.EqualContent(event) {
		return Result{Outcome: Skipped}, nil
	}
	change := fmt.Sprintf("weaning of sow %s for litter farrowed %s already exists with different content",
		event.SowTag, event.FarrowedOn.Format(time.DateOnly))
	return e.overwrite(ctx, change, func() error {
		return e.stores.Weanings.Update(ctx, event)
	})
}

// Individual reconciles one piglet candidate.
func (e *Engine) Individual(ctx context.Context, piglet *models.Individual) (Result, error) {
	existing, err := e.stores.Individuals.FindByKey(ctx, piglet.BirthSow(), piglet.BirthFarrowedOn, piglet.InLitterID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("find individual: %w", err)
		}
		return insertResult(e.stores.Individuals.Create(ctx, piglet))
	}
	if existing.EqualContent(piglet) {
		return Result{Outcome: Skipped}, nil
	}
	change := fmt.Sprintf("piglet %d of litter farrowed %s by sow %s already exists with different content",
		piglet.InLitterID, piglet.BirthFarrowedOn.Format(time.DateOnly), piglet.BirthSowTag)
	return e.overwrite(ctx, change, func() error {
		return e.stores.Individuals.Update(ctx, piglet)
	})
}
