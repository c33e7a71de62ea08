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

type estrusHistoryFinder interface {
	FindLatestBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.EstrusEvent, error)
}

// FarrowingBuilder assembles one FarrowingEvent from a farrowing row.
// The sheet does not repeat the estrus date, so the parent estrus is
// inferred: the sow's most recent recorded estrus at or before the
// farrowing date. Call SetFarrowedOn before SetSow.
type FarrowingBuilder struct {
	cfg      Config
	resolver *resolver.Resolver
	estrus   estrusHistoryFinder
	decider  resolver.Decider

	findings   report.Findings
	event      models.FarrowingEvent
	summary    int
	hasSummary bool
}

// NewFarrowingBuilder constructs a builder for one row.
func NewFarrowingBuilder(cfg Config, res *resolver.Resolver, estrus estrusHistoryFinder, decider resolver.Decider) *FarrowingBuilder {
	return &FarrowingBuilder{cfg: cfg, resolver: res, estrus: estrus, decider: decider}
}

// SetFarrowedOn parses the farrowing date column.
func (b *FarrowingBuilder) SetFarrowedOn(raw string) {
	if strings.TrimSpace(raw) == "" {
		b.findings.Add("farrowing_date", report.KindEmpty, "must not be empty")
		return
	}
	t, err := b.cfg.ParseDate(raw)
	if err != nil {
		b.findings.Addf("farrowing_date", report.KindFormat, "%v", err)
		return
	}
	b.event.FarrowedOn = models.DateOnly(t)
}

// SetSow resolves the sow composite identifier and infers the parent
// estrus from the sow's history.
func (b *FarrowingBuilder) SetSow(ctx context.Context, raw string) error {
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
	if !b.event.FarrowedOn.IsZero() {
		asOf := b.event.FarrowedOn
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
	if b.event.FarrowedOn.IsZero() {
		return nil
	}

	estrus, err := b.estrus.FindLatestBefore(ctx, result.Animal.Ref(), b.event.FarrowedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b.findings.Addf("sow", report.KindReference,
				"no estrus recorded for sow %s before %s", result.Animal.Tag, b.event.FarrowedOn.Format(time.DateOnly))
			return nil
		}
		return fmt.Errorf("find estrus: %w", err)
	}
	return b.event.SetEstrus(estrus)
}

// SetLitterID parses the farm's running litter sequence for the sow.
func (b *FarrowingBuilder) SetLitterID(ctx context.Context, raw string) error {
	v, ok, err := numericField(ctx, raw, "litter_id", models.MaxInLitterID, true, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if ok {
		b.event.LitterID = v
	}
	return nil
}

// SetCrushed parses the crushed-piglet count.
func (b *FarrowingBuilder) SetCrushed(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "crushed", &b.event.Crushed)
}

// SetBlack parses the stillborn (black) count.
func (b *FarrowingBuilder) SetBlack(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "black", &b.event.Black)
}

// SetWeak parses the weak-piglet count.
func (b *FarrowingBuilder) SetWeak(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "weak", &b.event.Weak)
}

// SetMalformed parses the malformed-piglet count.
func (b *FarrowingBuilder) SetMalformed(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "malformed", &b.event.Malformed)
}

// SetDead parses the dead-on-arrival count.
func (b *FarrowingBuilder) SetDead(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "dead", &b.event.Dead)
}

// SetBornMale parses the live-born male count.
func (b *FarrowingBuilder) SetBornMale(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "born_male", &b.event.BornMale)
}

// SetBornFemale parses the live-born female count.
func (b *FarrowingBuilder) SetBornFemale(ctx context.Context, raw string) error {
	return b.count(ctx, raw, "born_female", &b.event.BornFemale)
}

func (b *FarrowingBuilder) count(ctx context.Context, raw, field string, dst *int) error {
	v, ok, err := numericField(ctx, raw, field, b.cfg.Policy.CountCeiling, true, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if ok {
		*dst = v
	}
	return nil
}

// SetBornAliveSummary records the sheet's own live-born total for
// cross-checking against the per-gender counts at Build time.
func (b *FarrowingBuilder) SetBornAliveSummary(ctx context.Context, raw string) error {
	v, ok, err := numericField(ctx, raw, "born_alive", 2*b.cfg.Policy.CountCeiling, true, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if ok {
		b.summary, b.hasSummary = v, true
	}
	return nil
}

// SetTotalWeight parses the optional litter weight column.
func (b *FarrowingBuilder) SetTotalWeight(raw string) {
	if v, ok := floatField(raw, "total_weight", true, &b.findings); ok {
		b.event.TotalWeight = &v
	}
}

// SetNote stores the free-text remark column.
func (b *FarrowingBuilder) SetNote(raw string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return
	}
	b.event.Note = &s
}

// Build finalizes the row. A summary column that disagrees with the
// per-gender counts marks all three fields inconsistent.
func (b *FarrowingBuilder) Build() (*models.FarrowingEvent, report.Findings, error) {
	if b.hasSummary && b.summary != b.event.BornAlive() {
		msg := fmt.Sprintf("born alive summary %d does not equal male %d + female %d",
			b.summary, b.event.BornMale, b.event.BornFemale)
		b.findings.Add("born_alive", report.KindConsistency, msg)
		b.findings.Add("born_male", report.KindConsistency, msg)
		b.findings.Add("born_female", report.KindConsistency, msg)
	}
	if b.findings.HasAny() {
		return nil, b.findings, nil
	}
	if err := b.event.Validate(b.cfg.Policy.CountCeiling); err != nil {
		return nil, nil, contractErr("farrowing", err)
	}
	event := b.event
	return &event, nil, nil
}
