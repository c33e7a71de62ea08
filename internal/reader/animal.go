package reader

import (
	"context"

	"github.com/jack2012aa/breeding-db-sub000/internal/factory"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/reconcile"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/internal/sheet"
)

type animalMerger interface {
	Animal(ctx context.Context, animal *models.Animal) (reconcile.Result, error)
}

type animalChecker interface {
	ExistsByRegNumber(ctx context.Context, regNumber, excludeID string) (bool, error)
}

// AnimalReader imports the animal registry sheet. Expected columns:
// breed, tag, birth_date, gender, nickname, reg_number, sire, dam.
type AnimalReader struct {
	cfg      factory.Config
	resolver *resolver.Resolver
	animals  animalChecker
	engine   animalMerger
	decider  resolver.Decider
	runner   runner
}

// NewAnimalReader constructs an AnimalReader.
func NewAnimalReader(cfg factory.Config, res *resolver.Resolver, animals animalChecker,
	engine animalMerger, decider resolver.Decider, opts Options) *AnimalReader {
	return &AnimalReader{
		cfg: cfg, resolver: res, animals: animals, engine: engine, decider: decider,
		runner: opts.runner("animals"),
	}
}

// Read imports every row, oldest animals first so parents are persisted
// before the offspring rows that reference them.
func (r *AnimalReader) Read(ctx context.Context, table *sheet.Table) (Tally, error) {
	rows := sortByDate(r.cfg, table.Rows, "birth_date")
	return r.runner.run(ctx, rows, func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		b := factory.NewAnimalBuilder(r.cfg, r.resolver, r.animals, r.decider)
		b.SetBreed(rec.Get("breed"))
		b.SetTag(rec.Get("tag"))
		b.SetBirthDate(rec.Get("birth_date"))
		b.SetGender(rec.Get("gender"))
		b.SetNickname(rec.Get("nickname"))
		if err := b.SetRegNumber(ctx, rec.Get("reg_number")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetSire(ctx, rec.Get("sire")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetDam(ctx, rec.Get("dam")); err != nil {
			return reconcile.Result{}, nil, err
		}
		animal, findings, err := b.Build()
		if err != nil || findings.HasAny() {
			return reconcile.Result{}, findings, err
		}
		result, err := r.engine.Animal(ctx, animal)
		return result, nil, err
	})
}
