package reader

import (
	"context"
	"time"

	"github.com/jack2012aa/breeding-db-sub000/internal/factory"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/reconcile"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/internal/sheet"
)

type individualMerger interface {
	Individual(ctx context.Context, piglet *models.Individual) (reconcile.Result, error)
}

type individualFarrowingFinder interface {
	FindBySowLitter(ctx context.Context, sow models.AnimalRef, litterID int) (*models.FarrowingEvent, error)
}

type individualWeaningFinder interface {
	FindByFarrowing(ctx context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.WeaningEvent, error)
}

// IndividualReader imports the piglet sheet. Expected columns:
// birth_sow, birth_litter, nurse_sow, nurse_litter, in_litter_id,
// gender, birth_weight, weaning_weight.
type IndividualReader struct {
	cfg       factory.Config
	resolver  *resolver.Resolver
	farrowing individualFarrowingFinder
	weaning   individualWeaningFinder
	engine    individualMerger
	decider   resolver.Decider
	runner    runner
}

// NewIndividualReader constructs an IndividualReader.
func NewIndividualReader(cfg factory.Config, res *resolver.Resolver, farrowing individualFarrowingFinder,
	weaning individualWeaningFinder, engine individualMerger, decider resolver.Decider, opts Options) *IndividualReader {
	return &IndividualReader{
		cfg: cfg, resolver: res, farrowing: farrowing, weaning: weaning, engine: engine, decider: decider,
		runner: opts.runner("individuals"),
	}
}

// Read imports every row in sheet order. Piglet rows carry no date of
// their own, and fostering can point at any weaned litter, so the retry
// passes do the ordering work here.
func (r *IndividualReader) Read(ctx context.Context, table *sheet.Table) (Tally, error) {
	return r.runner.run(ctx, table.Rows, func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		b := factory.NewIndividualBuilder(r.cfg, r.resolver, r.farrowing, r.weaning, r.decider)
		if err := b.SetBirthLitter(ctx, rec.Get("birth_sow"), rec.Get("birth_litter")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetNurseLitter(ctx, rec.Get("nurse_sow"), rec.Get("nurse_litter")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetInLitterID(ctx, rec.Get("in_litter_id")); err != nil {
			return reconcile.Result{}, nil, err
		}
		b.SetGender(rec.Get("gender"))
		b.SetBirthWeight(rec.Get("birth_weight"))
		b.SetWeaningWeight(rec.Get("weaning_weight"))
		piglet, findings, err := b.Build()
		if err != nil || findings.HasAny() {
			return reconcile.Result{}, findings, err
		}
		result, err := r.engine.Individual(ctx, piglet)
		return result, nil, err
	})
}
