package factory

import (
	"context"
	"strings"

	"github.com/jack2012aa/breeding-db-sub000/internal/ident"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
)

// EstrusBuilder assembles one EstrusEvent from an estrus observation row.
// Call SetEstrusAt before SetSow: the sow lookup uses the estrus date as
// its as-of cutoff.
type EstrusBuilder struct {
	cfg      Config
	resolver *resolver.Resolver
	decider  resolver.Decider

	findings report.Findings
	event    models.EstrusEvent
}

// NewEstrusBuilder constructs a builder for one row.
func NewEstrusBuilder(cfg Config, res *resolver.Resolver, decider resolver.Decider) *EstrusBuilder {
	b := &EstrusBuilder{cfg: cfg, resolver: res, decider: decider}
	b.event.Pregnant = models.PregnancyUnknown
	return b
}

// SetEstrusAt parses the observation date and optional clock columns.
func (b *EstrusBuilder) SetEstrusAt(rawDate, rawClock string) {
	if strings.TrimSpace(rawDate) == "" {
		b.findings.Add("estrus_date", report.KindEmpty, "must not be empty")
		return
	}
	t, err := b.cfg.ParseDateTime(rawDate, rawClock)
	if err != nil {
		b.findings.Addf("estrus_date", report.KindFormat, "%v", err)
		return
	}
	b.event.EstrusAt = t
}

// SetSow resolves the composite sow identifier (year + breed + tag).
func (b *EstrusBuilder) SetSow(ctx context.Context, raw string) error {
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
	if !b.event.EstrusAt.IsZero() {
		asOf := b.event.EstrusAt
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
	return b.event.SetSow(result.Animal)
}

// SetParity validates the parity column.
func (b *EstrusBuilder) SetParity(ctx context.Context, raw string) error {
	v, ok, err := numericField(ctx, raw, "parity", models.MaxParity, true, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if ok {
		b.event.Parity = v
	}
	return nil
}

// SetPregnancy derives the cycle outcome from the two test-flag columns:
// a positive pregnancy check and an abortion mark. Abortion wins; a bare
// positive check means Yes; neither leaves the outcome Unknown until a
// farrowing proves it.
func (b *EstrusBuilder) SetPregnancy(rawPositive, rawAborted string) {
	switch {
	case truthy(rawAborted):
		b.event.Pregnant = models.PregnancyAbortion
	case truthy(rawPositive):
		b.event.Pregnant = models.PregnancyYes
	default:
		b.event.Pregnant = models.PregnancyUnknown
	}
}

// Build finalizes the row.
func (b *EstrusBuilder) Build() (*models.EstrusEvent, report.Findings, error) {
	if b.findings.HasAny() {
		return nil, b.findings, nil
	}
	if err := b.event.Validate(); err != nil {
		return nil, nil, contractErr("estrus", err)
	}
	event := b.event
	return &event, nil, nil
}
