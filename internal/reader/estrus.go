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

type estrusMerger interface {
	Estrus(ctx context.Context, event *models.EstrusEvent) (reconcile.Result, error)
}

// EstrusReader imports the estrus observation sheet. Expected columns:
// sow_id, estrus_date, estrus_time, parity, pregnant, aborted.
type EstrusReader struct {
	cfg      factory.Config
	resolver *resolver.Resolver
	engine   estrusMerger
	decider  resolver.Decider
	runner   runner
}

// NewEstrusReader constructs an EstrusReader.
func NewEstrusReader(cfg factory.Config, res *resolver.Resolver, engine estrusMerger,
	decider resolver.Decider, opts Options) *EstrusReader {
	return &EstrusReader{
		cfg: cfg, resolver: res, engine: engine, decider: decider,
		runner: opts.runner("estrus"),
	}
}

// Read imports every row in chronological order, so the duplicate window
// always compares a new sighting against the cycle's first record.
func (r *EstrusReader) Read(ctx context.Context, table *sheet.Table) (Tally, error) {
	rows := sortByDate(r.cfg, table.Rows, "estrus_date")
	return r.runner.run(ctx, rows, func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		b := factory.NewEstrusBuilder(r.cfg, r.resolver, r.decider)
		b.SetEstrusAt(rec.Get("estrus_date"), rec.Get("estrus_time"))
		if err := b.SetSow(ctx, rec.Get("sow_id")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetParity(ctx, rec.Get("parity")); err != nil {
			return reconcile.Result{}, nil, err
		}
		b.SetPregnancy(rec.Get("pregnant"), rec.Get("aborted"))
		event, findings, err := b.Build()
		if err != nil || findings.HasAny() {
			return reconcile.Result{}, findings, err
		}
		result, err := r.engine.Estrus(ctx, event)
		return result, nil, err
	})
}
