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

type weaningMerger interface {
	Weaning(ctx context.Context, event *models.WeaningEvent) (reconcile.Result, error)
}

type weaningFarrowingFinder interface {
	FindLatestBySowBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.FarrowingEvent, error)
}

// WeaningReader imports the weaning sheet. Expected columns: sow_id,
// weaning_date, nursed, weaned.
type WeaningReader struct {
	cfg       factory.Config
	resolver  *resolver.Resolver
	farrowing weaningFarrowingFinder
	engine    weaningMerger
	decider   resolver.Decider
	runner    runner
}

// NewWeaningReader constructs a WeaningReader.
func NewWeaningReader(cfg factory.Config, res *resolver.Resolver, farrowing weaningFarrowingFinder,
	engine weaningMerger, decider resolver.Decider, opts Options) *WeaningReader {
	return &WeaningReader{
		cfg: cfg, resolver: res, farrowing: farrowing, engine: engine, decider: decider,
		runner: opts.runner("weanings"),
	}
}

// Read imports every row in weaning order.
func (r *WeaningReader) Read(ctx context.Context, table *sheet.Table) (Tally, error) {
	rows := sortByDate(r.cfg, table.Rows, "weaning_date")
	return r.runner.run(ctx, rows, func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		b := factory.NewWeaningBuilder(r.cfg, r.resolver, r.farrowing, r.decider)
		b.SetWeanedOn(rec.Get("weaning_date"))
		if err := b.SetSow(ctx, rec.Get("sow_id")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetNursed(ctx, rec.Get("nursed")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetWeaned(ctx, rec.Get("weaned")); err != nil {
			return reconcile.Result{}, nil, err
		}
		event, findings, err := b.Build()
		if err != nil || findings.HasAny() {
			return reconcile.Result{}, findings, err
		}
		result, err := r.engine.Weaning(ctx, event)
		return result, nil, err
	})
}
