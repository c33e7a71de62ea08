// Package reader drives spreadsheets through the import pipeline. One
// reader per record type: it maps sheet columns onto the factory's
// setters, hands clean candidates to the reconciliation engine, routes
// rejected rows to the report sink, and tallies the outcomes. Rows that
// fail only on references are retried in later passes, since the record
// they point at may be persisted by a row further down the same batch.
package reader

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jack2012aa/breeding-db-sub000/internal/factory"
	"github.com/jack2012aa/breeding-db-sub000/internal/reconcile"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/sheet"
)

// Tally summarizes one sheet's run.
type Tally struct {
	Sheet             string
	Rows              int
	Inserted          int
	Updated           int
	Skipped           int
	Rejected          int
	Conflicts         int
	MissingReferences int
	Retried           int
}

func (t *Tally) record(result reconcile.Result) {
	switch result.Outcome {
	case reconcile.Inserted:
		t.Inserted++
	case reconcile.Updated:
		t.Updated++
	case reconcile.Skipped:
		t.Skipped++
	case reconcile.Conflict:
		t.Conflicts++
	case reconcile.MissingReference:
		t.MissingReferences++
	}
}

// Options carries the batch context shared by every reader.
type Options struct {
	Sink        report.Sink
	Logger      *zap.Logger
	RetryPasses int
}

func (o Options) runner(name string) runner {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	passes := o.RetryPasses
	if passes < 1 {
		passes = 1
	}
	return runner{name: name, sink: o.Sink, logger: logger, passes: passes}
}

// processFunc handles one row end to end. Findings mean the row was
// rejected; an error aborts the batch.
type processFunc func(ctx context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error)

type runner struct {
	name   string
	sink   report.Sink
	logger *zap.Logger
	passes int
}

func (r runner) run(ctx context.Context, rows []sheet.Record, process processFunc) (Tally, error) {
	tally := Tally{Sheet: r.name, Rows: len(rows)}
	pending := rows
	for pass := 1; len(pending) > 0; pass++ {
		last := pass >= r.passes
		var retry []sheet.Record

		for _, rec := range pending {
			result, findings, err := process(ctx, rec)
			if err != nil {
				return tally, err
			}

			if findings.HasAny() {
				if !last && onlyReference(findings) {
					retry = append(retry, rec)
					continue
				}
				tally.Rejected++
				r.sink.Reject(report.Entry{Sheet: r.name, RowIndex: rec.Index, Row: rec.Cells(), Findings: findings})
				continue
			}

			if result.Outcome == reconcile.MissingReference && !last {
				retry = append(retry, rec)
				continue
			}

			tally.record(result)
			switch result.Outcome {
			case reconcile.Conflict:
				var f report.Findings
				f.Add("record", report.KindConflict, result.Detail)
				r.sink.Reject(report.Entry{Sheet: r.name, RowIndex: rec.Index, Row: rec.Cells(), Findings: f})
			case reconcile.MissingReference:
				var f report.Findings
				f.Add("record", report.KindReference, result.Detail)
				r.sink.Reject(report.Entry{Sheet: r.name, RowIndex: rec.Index, Row: rec.Cells(), Findings: f})
			}
		}

		r.logger.Debug("sheet pass complete",
			zap.String("sheet", r.name),
			zap.Int("pass", pass),
			zap.Int("deferred", len(retry)),
		)
		tally.Retried += len(retry)
		pending = retry
	}
	return tally, nil
}

// onlyReference reports whether every finding is a reference failure.
// Those are the only retriable rows: the missing record may still arrive
// later in the batch.
func onlyReference(f report.Findings) bool {
	for _, finding := range f {
		if finding.Kind != report.KindReference {
			return false
		}
	}
	return f.HasAny()
}

// sortByDate orders rows chronologically by the given column so records
// are persisted before the rows that reference them. Rows whose date
// does not parse keep their relative order at the end; the builder will
// flag them anyway.
func sortByDate(cfg factory.Config, rows []sheet.Record, column string) []sheet.Record {
	type keyed struct {
		rec sheet.Record
		at  time.Time
		ok  bool
	}
	keys := make([]keyed, len(rows))
	for i, rec := range rows {
		t, err := cfg.ParseDate(rec.Get(column))
		keys[i] = keyed{rec: rec, at: t, ok: err == nil}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].ok != keys[j].ok {
			return keys[i].ok
		}
		return keys[i].ok && keys[i].at.Before(keys[j].at)
	})
	out := make([]sheet.Record, len(keys))
	for i, k := range keys {
		out[i] = k.rec
	}
	return out
}
