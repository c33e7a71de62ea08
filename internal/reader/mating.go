package reader

import (
	"context"
	"strings"
	"time"

	"github.com/jack2012aa/breeding-db-sub000/internal/factory"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/reconcile"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/internal/sheet"
)

type matingMerger interface {
	Mating(ctx context.Context, event *models.MatingEvent) (reconcile.Result, error)
}

type matingEstrusFinder interface {
	FindByKey(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.EstrusEvent, error)
}

// MatingReader imports the breeding sheet. Expected columns: sow_id,
// estrus_date, estrus_time, mating_date, mating_time, boar_id. A blank
// mating date means the sow was bred on the day the heat was observed.
type MatingReader struct {
	cfg      factory.Config
	resolver *resolver.Resolver
	estrus   matingEstrusFinder
	engine   matingMerger
	decider  resolver.Decider
	runner   runner
}

// NewMatingReader constructs a MatingReader.
func NewMatingReader(cfg factory.Config, res *resolver.Resolver, estrus matingEstrusFinder,
	engine matingMerger, decider resolver.Decider, opts Options) *MatingReader {
	return &MatingReader{
		cfg: cfg, resolver: res, estrus: estrus, engine: engine, decider: decider,
		runner: opts.runner("matings"),
	}
}

// Read imports every row in estrus order.
func (r *MatingReader) Read(ctx context.Context, table *sheet.Table) (Tally, error) {
	rows := sortByDate(r.cfg, table.Rows, "estrus_date")
	return r.runner.run(ctx, rows, func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		b := factory.NewMatingBuilder(r.cfg, r.resolver, r.estrus, r.decider)

		matingDate, matingTime := rec.Get("mating_date"), rec.Get("mating_time")
		if strings.TrimSpace(matingDate) == "" {
			matingDate, matingTime = rec.Get("estrus_date"), rec.Get("estrus_time")
		}
		b.SetMatingAt(matingDate, matingTime)

		if err := b.SetEstrus(ctx, rec.Get("sow_id"), rec.Get("estrus_date"), rec.Get("estrus_time")); err != nil {
			return reconcile.Result{}, nil, err
		}
		if err := b.SetBoar(ctx, rec.Get("boar_id")); err != nil {
			return reconcile.Result{}, nil, err
		}
		event, findings, err := b.Build()
		if err != nil || findings.HasAny() {
			return reconcile.Result{}, findings, err
		}
		result, err := r.engine.Mating(ctx, event)
		return result, nil, err
	})
}
