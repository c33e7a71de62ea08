package factory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jack2012aa/breeding-db-sub000/internal/ident"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
)

type farrowingLitterFinder interface {
	FindBySowLitter(ctx context.Context, sow models.AnimalRef, litterID int) (*models.FarrowingEvent, error)
}

type weaningFinder interface {
	FindByFarrowing(ctx context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.WeaningEvent, error)
}

// IndividualBuilder assembles one Individual from a piglet row. Litters
// are referenced by sow plus the farm's running litter sequence, so both
// litter setters go through the farrowing history.
type IndividualBuilder struct {
	cfg       Config
	resolver  *resolver.Resolver
	farrowing farrowingLitterFinder
	weaning   weaningFinder
	decider   resolver.Decider

	findings report.Findings
	piglet   models.Individual
}

// NewIndividualBuilder constructs a builder for one row.
func NewIndividualBuilder(cfg Config, res *resolver.Resolver, farrowing farrowingLitterFinder,
	weaning weaningFinder, decider resolver.Decider) *IndividualBuilder {
	return &IndividualBuilder{cfg: cfg, resolver: res, farrowing: farrowing, weaning: weaning, decider: decider}
}

// SetBirthLitter resolves the birth sow and litter sequence into the
// birth farrowing key.
func (b *IndividualBuilder) SetBirthLitter(ctx context.Context, rawSow, rawLitter string) error {
	farrowing, err := b.findLitter(ctx, rawSow, rawLitter, "birth_sow", "birth_litter")
	if err != nil || farrowing == nil {
		return err
	}
	return b.piglet.SetBirthLitter(farrowing)
}

// SetNurseLitter resolves the optional foster litter. The litter must
// already be weaned: the nurse reference is keyed through the weaning
// record so a piglet cannot be fostered into a litter still nursing.
// Call after SetBirthLitter so the ordering check has both dates.
func (b *IndividualBuilder) SetNurseLitter(ctx context.Context, rawSow, rawLitter string) error {
	if strings.TrimSpace(rawSow) == "" && strings.TrimSpace(rawLitter) == "" {
		return nil
	}
	farrowing, err := b.findLitter(ctx, rawSow, rawLitter, "nurse_sow", "nurse_litter")
	if err != nil || farrowing == nil {
		return err
	}
	weaning, err := b.weaning.FindByFarrowing(ctx, farrowing.Sow(), farrowing.FarrowedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b.findings.Addf("nurse_litter", report.KindReference,
				"litter %d of sow %s has no weaning record", farrowing.LitterID, farrowing.SowTag)
			return nil
		}
		return fmt.Errorf("find weaning: %w", err)
	}
	if err := b.piglet.SetNurseLitter(weaning); err != nil {
		b.findings.Addf("nurse_litter", report.KindConsistency, "%v", err)
	}
	return nil
}

func (b *IndividualBuilder) findLitter(ctx context.Context, rawSow, rawLitter, sowField, litterField string) (*models.FarrowingEvent, error) {
	if strings.TrimSpace(rawSow) == "" {
		b.findings.Add(sowField, report.KindEmpty, "must not be empty")
		return nil, nil
	}
	litterID, err := strconv.Atoi(strings.TrimSpace(rawLitter))
	if err != nil || litterID < 1 || litterID > models.MaxInLitterID {
		b.findings.Addf(litterField, report.KindFormat, "litter sequence %q is not in [1, %d]", rawLitter, models.MaxInLitterID)
		return nil, nil
	}

	year, breed, _ := ident.SplitYearBreedID(rawSow)
	gender := models.GenderFemale
	q := resolver.Query{
		Tag:       rawSow,
		Farm:      b.cfg.Farm,
		Gender:    &gender,
		Breed:     breed,
		BirthYear: year,
	}
	result, err := b.resolver.ResolveWith(ctx, q, b.decider)
	if err != nil {
		return nil, err
	}
	if result.Status != resolver.Unique {
		b.findings.Addf(sowField, report.KindReference, "identifier %q is %s", rawSow, result.Status)
		return nil, nil
	}

	farrowing, err := b.farrowing.FindBySowLitter(ctx, result.Animal.Ref(), litterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			b.findings.Addf(litterField, report.KindReference,
				"sow %s has no recorded litter %d", result.Animal.Tag, litterID)
			return nil, nil
		}
		return nil, fmt.Errorf("find litter: %w", err)
	}
	return farrowing, nil
}

// SetInLitterID parses the piglet's sequence number within its litter.
func (b *IndividualBuilder) SetInLitterID(ctx context.Context, raw string) error {
	v, ok, err := numericField(ctx, raw, "in_litter_id", models.MaxInLitterID, false, b.decider, &b.findings)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if v < 1 {
		b.findings.Addf("in_litter_id", report.KindRange, "value %d out of [1, %d]", v, models.MaxInLitterID)
		return nil
	}
	b.piglet.InLitterID = v
	return nil
}

// SetGender parses the optional gender column.
func (b *IndividualBuilder) SetGender(raw string) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return
	}
	gender := models.Gender(s)
	if !gender.IsValid() {
		b.findings.Addf("gender", report.KindFormat, "gender %q is not one of M, F", raw)
		return
	}
	b.piglet.Gender = &gender
}

// SetBirthWeight parses the optional birth weight column.
func (b *IndividualBuilder) SetBirthWeight(raw string) {
	if v, ok := floatField(raw, "birth_weight", true, &b.findings); ok {
		b.piglet.BirthWeight = &v
	}
}

// SetWeaningWeight parses the optional weaning weight column.
func (b *IndividualBuilder) SetWeaningWeight(raw string) {
	if v, ok := floatField(raw, "weaning_weight", true, &b.findings); ok {
		b.piglet.WeaningWeight = &v
	}
}

// Build finalizes the row.
func (b *IndividualBuilder) Build() (*models.Individual, report.Findings, error) {
	if b.findings.HasAny() {
		return nil, b.findings, nil
	}
	if err := b.piglet.Validate(); err != nil {
		return nil, nil, contractErr("individual", err)
	}
	piglet := b.piglet
	return &piglet, nil, nil
}
