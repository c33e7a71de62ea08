package factory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jack2012aa/breeding-db-sub000/internal/ident"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
)

type farrowingHistoryFinder interface {
	FindLatestBySowBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.FarrowingEvent, error)
}

// WeaningBuilder assembles one WeaningEvent from a weaning row. The
// sheet names only the sow and the weaning date; the weaned litter is
// the sow's most recent farrowing at or before that date. Call
// SetWeanedOn before SetSow.
type WeaningBuilder struct {
	cfg       Config
	resolver  *resolver.Resolver
	farrowing farrowingHistoryFinder
	decider   resolver.Decider

	findings report.Findings
	event    models.WeaningEvent
}

// NewWeaningBuilder constructs a builder for one row.
func NewWeaningBuilder(cfg Config, res *resolver.Resolver, farrowing farrowingHistoryFinder, decider resolver.Decider) *WeaningBuilder {
	return &WeaningBuilder{cfg: cfg, resolver: res, farrowing: farrowing, decider: decider}
}

// SetWeanedOn parses the weaning date column.
func (b *WeaningBuilder) SetWeanedOn(raw string) {
	if strings.TrimSpace(raw) == "" {
		b.findings.Add("weaning_date", report.KindEmpty, "must not be empty")
		return
	}
	t, err := b.cfg.ParseDate(raw)
	if err != nil {
		b.findings.Addf("weaning_date", report.KindFormat, "%v", err)
		return
	}
	b.event.WeanedOn = models.DateOnly(t)
}

// SetSow resolves the sow composite identifier and infers the weaned
// litter from the sow's farrowing history.
func (b *WeaningBuilder) SetSow(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		b.findings.Add("sow", report.KindEmpty, "must not be empty")
		return nil
	}
	year, breed, _ := ident.SplitYearBreedID(raw)
	gender := models.GenderFemale
	q := resolver.Query{
		Tag:       raw,
		Farm:      b.cfg.Farm,
		Gender:    &gender,
		Breed:     breed,
		BirthYear: year,
	}
	if !b.event.WeanedOn.IsZero() {
		asOf := b.event.WeanedOn
		q.AsOf = &asOf
	}
	result, err := b.resolver.ResolveWith(ctx, q, b.decider)
	if err != nil {
		return err
	}
	if result.Status != resolver.Unique {
		b.findings.Addf("sow", report.KindReference, "identifier %q is %s", raw, result.Status)
		return nil
	}
	if b.event.WeanedOn.IsZero() {
		return nil
	}

	farrowing, err := b.farrowing.FindLatestBySowBefore(ctx, result.Animal.Ref(), b.event.WeanedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b.findings.Addf("sow", report.KindReference,
				"no farrowing recorded for sow %s before %s", result.Animal.Tag, b.event.WeanedOn.Format(time.DateOnly))
			return nil
		}
		return fmt.Errorf("find farrowing: %w", err)
	}
	return b.event.SetFarrowing(farrowing)
}

// SetNursed parses the nursed-piglet count.
func (b *WeaningBuilder) SetNursed(ctx context.Context, raw string) error {
	v, ok, err := numericField(ctx, raw, "nursed", b.cfg.Policy.CountCeiling, false, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if ok {
		b.event.Nursed = v
	}
	return nil
}

// SetWeaned parses the weaned-piglet count.
func (b *WeaningBuilder) SetWeaned(ctx context.Context, raw string) error {
	v, ok, err := numericField(ctx, raw, "weaned", b.cfg.Policy.CountCeiling, false, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if ok {
		b.event.Weaned = v
	}
	return nil
}

// Build finalizes the row. The nursing window and the weaned-vs-nursed
// relation are data checks, so violations become findings.
func (b *WeaningBuilder) Build() (*models.WeaningEvent, report.Findings, error) {
	if !b.event.WeanedOn.IsZero() && !b.event.FarrowedOn.IsZero() {
		if span := b.event.NursingSpan(); span < b.cfg.Policy.WeaningWindowMin {
			b.findings.Addf("weaning_date", report.KindRange,
				"weaning only %s after farrowing, window starts at %s", span, b.cfg.Policy.WeaningWindowMin)
		} else if span > b.cfg.Policy.WeaningWindowMax {
			b.findings.Addf("weaning_date", report.KindRange,
				"weaning %s after farrowing, window ends at %s", span, b.cfg.Policy.WeaningWindowMax)
		}
	}
	if b.event.Weaned > b.event.Nursed {
		b.findings.Addf("weaned", report.KindConsistency,
			"weaned count %d exceeds nursed count %d", b.event.Weaned, b.event.Nursed)
	}
	if b.findings.HasAny() {
		return nil, b.findings, nil
	}
	if err := b.event.Validate(b.cfg.Policy.WeaningWindowMin, b.cfg.Policy.WeaningWindowMax, b.cfg.Policy.CountCeiling); err != nil {
		return nil, nil, contractErr("weaning", err)
	}
	event := b.event
	return &event, nil, nil
}
