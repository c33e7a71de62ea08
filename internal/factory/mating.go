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

type estrusKeyFinder interface {
	FindByKey(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.EstrusEvent, error)
}

// MatingBuilder assembles one MatingEvent from a breeding row. Call
// SetMatingAt before SetEstrus and SetBoar so lookups can use the mating
// date as their as-of cutoff.
type MatingBuilder struct {
	cfg      Config
	resolver *resolver.Resolver
	estrus   estrusKeyFinder
	decider  resolver.Decider

	findings report.Findings
	event    models.MatingEvent
}

// NewMatingBuilder constructs a builder for one row.
func NewMatingBuilder(cfg Config, res *resolver.Resolver, estrus estrusKeyFinder, decider resolver.Decider) *MatingBuilder {
	return &MatingBuilder{cfg: cfg, resolver: res, estrus: estrus, decider: decider}
}

// SetMatingAt parses the mating date and optional clock columns. An
// empty mating date falls back to the estrus date on many farm sheets,
// so the caller may pass the estrus columns here when the mating ones
// are blank.
func (b *MatingBuilder) SetMatingAt(rawDate, rawClock string) {
	if strings.TrimSpace(rawDate) == "" {
		b.findings.Add("mating_date", report.KindEmpty, "must not be empty")
		return
	}
	t, err := b.cfg.ParseDateTime(rawDate, rawClock)
	if err != nil {
		b.findings.Addf("mating_date", report.KindFormat, "%v", err)
		return
	}
	b.event.MatingAt = t
}

// SetEstrus resolves the sow composite identifier and looks up the
// referenced estrus event, which must already be persisted.
func (b *MatingBuilder) SetEstrus(ctx context.Context, rawSow, rawEstrusDate, rawEstrusClock string) error {
	if strings.TrimSpace(rawSow) == "" {
		b.findings.Add("sow", report.KindEmpty, "must not be empty")
		return nil
	}
	estrusAt, err := b.cfg.ParseDateTime(rawEstrusDate, rawEstrusClock)
	if err != nil {
		b.findings.Addf("estrus_date", report.KindFormat, "%v", err)
		return nil
	}

	year, breed, _ := ident.SplitYearBreedID(rawSow)
	gender := models.GenderFemale
	q := resolver.Query{
		Tag:       rawSow,
		Farm:      b.cfg.Farm,
		Gender:    &gender,
		Breed:     breed,
		BirthYear: year,
		AsOf:      &estrusAt,
	}
	result, err := b.resolver.ResolveWith(ctx, q, b.decider)
	if err != nil {
		return err
	}
	if result.Status != resolver.Unique {
		b.findings.Addf("sow", report.KindReference, "identifier %q is %s", rawSow, result.Status)
		return nil
	}

	estrus, err := b.estrus.FindByKey(ctx, result.Animal.Ref(), estrusAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b.findings.Addf("estrus_date", report.KindReference,
				"no estrus recorded for sow %s at %s", result.Animal.Tag, estrusAt.Format(time.DateTime))
			return nil
		}
		return fmt.Errorf("find estrus: %w", err)
	}
	return b.event.SetEstrus(estrus)
}

// SetBoar resolves the boar composite identifier. Ambiguity defaults to
// the decider; with a NearestBirth decider the candidate born closest to
// the mating date wins.
func (b *MatingBuilder) SetBoar(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		b.findings.Add("boar", report.KindEmpty, "must not be empty")
		return nil
	}
	year, breed, _ := ident.SplitYearBreedID(raw)
	gender := models.GenderMale
	q := resolver.Query{
		Tag:       raw,
		Farm:      b.cfg.Farm,
		Gender:    &gender,
		Breed:     breed,
		BirthYear: year,
	}
	if !b.event.MatingAt.IsZero() {
		asOf := b.event.MatingAt
		q.AsOf = &asOf
	}
	result, err := b.resolver.ResolveWith(ctx, q, b.decider)
	if err != nil {
		return err
	}
	if result.Status != resolver.Unique {
		b.findings.Addf("boar", report.KindReference, "identifier %q is %s", raw, result.Status)
		return nil
	}
	return b.event.SetBoar(result.Animal)
}

// Build finalizes the row. The estrus-to-mating gap window is a data
// check, so violations become findings rather than errors.
func (b *MatingBuilder) Build() (*models.MatingEvent, report.Findings, error) {
	if !b.event.MatingAt.IsZero() && !b.event.EstrusAt.IsZero() {
		if gap := b.event.Gap(); gap < 0 {
			b.findings.Add("mating_date", report.KindRange, "mating precedes its estrus")
		} else if gap > b.cfg.Policy.MatingGapMax {
			b.findings.Addf("mating_date", report.KindRange,
				"gap of %s between estrus and mating exceeds %s", gap, b.cfg.Policy.MatingGapMax)
		}
	}
	if b.findings.HasAny() {
		return nil, b.findings, nil
	}
	if err := b.event.Validate(b.cfg.Policy.MatingGapMax); err != nil {
		return nil, nil, contractErr("mating", err)
	}
	event := b.event
	return &event, nil, nil
}
