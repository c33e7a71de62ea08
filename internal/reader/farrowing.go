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

type farrowingMerger interface {
	Farrowing(ctx context.Context, event *models.FarrowingEvent) (reconcile.Result, error)
}

type farrowingEstrusFinder interface {
	FindLatestBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.EstrusEvent, error)
}

// FarrowingReader imports the farrowing sheet. Expected columns: sow_id,
// farrowing_date, litter_id, crushed, black, weak, malformed, dead,
// born_male, born_female, born_alive, total_weight, note.
type FarrowingReader struct {
	cfg      factory.Config
	resolver *resolver.Resolver
	estrus   farrowingEstrusFinder
	engine   farrowingMerger
	decider  resolver.Decider
	runner   runner
}

// NewFarrowingReader constructs a FarrowingReader.
func NewFarrowingReader(cfg factory.Config, res *resolver.Resolver, estrus farrowingEstrusFinder,
	engine farrowingMerger, decider resolver.Decider, opts Options) *FarrowingReader {
	return &FarrowingReader{
		cfg: cfg, resolver: res, estrus: estrus, engine: engine, decider: decider,
		runner: opts.runner("farrowings"),
	}
}

// Read imports every row in farrowing order, so a sow's earlier litters
// exist before later weaning rows walk her history.
func (r *FarrowingReader) Read(ctx context.Context, table *sheet.Table) (Tally, error) {
	rows := sortByDate(r.cfg, table.Rows, "farrowing_date")
	return r.runner.run(ctx, rows, func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		b := factory.NewFarrowingBuilder(r.cfg, r.resolver, r.estrus, r.decider)
		b.SetFarrowedOn(rec.Get("farrowing_date"))
		if err := b.SetSow(ctx, rec.Get("sow_id")); err != nil {
			return reconcile.Result{}, nil, err
		}
		setters := []struct {
			set func(context.Context, string) error
			col string
		}{
			{b.SetLitterID, "litter_id"},
			{b.SetCrushed, "crushed"},
			{b.SetBlack, "black"},
			{b.SetWeak, "weak"},
			{b.SetMalformed, "malformed"},
			{b.SetDead, "dead"},
			{b.SetBornMale, "born_male"},
			{b.SetBornFemale, "born_female"},
			{b.SetBornAliveSummary, "born_alive"},
		}
		for _, s := range setters {
			if err := s.set(ctx, rec.Get(s.col)); err != nil {
				return reconcile.Result{}, nil, err
			}
		}
		b.SetTotalWeight(rec.Get("total_weight"))
		b.SetNote(rec.Get("note"))
		event, findings, err := b.Build()
		if err != nil || findings.HasAny() {
			return reconcile.Result{}, findings, err
		}
		result, err := r.engine.Farrowing(ctx, event)
		return result, nil, err
	})
}
