package factory

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jack2012aa/breeding-db-sub000/internal/ident"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
)

type regNumberChecker interface {
	ExistsByRegNumber(ctx context.Context, regNumber string, excludeID string) (bool, error)
}

// AnimalBuilder assembles one Animal from a registry row.
type AnimalBuilder struct {
	cfg      Config
	resolver *resolver.Resolver
	animals  regNumberChecker
	decider  resolver.Decider

	findings report.Findings
	animal   models.Animal
}

// NewAnimalBuilder constructs a builder for one row. The farm is batch
// context, not a spreadsheet column.
func NewAnimalBuilder(cfg Config, res *resolver.Resolver, animals regNumberChecker, decider resolver.Decider) *AnimalBuilder {
	b := &AnimalBuilder{cfg: cfg, resolver: res, animals: animals, decider: decider}
	b.animal.Farm = cfg.Farm
	return b
}

// SetBreed parses the breed column.
func (b *AnimalBuilder) SetBreed(raw string) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		s = strings.ToUpper(strings.TrimSpace(b.cfg.DefaultBreed))
	}
	breed := models.Breed(s)
	if !breed.IsValid() {
		b.findings.Addf("breed", report.KindFormat, "breed %q is not one of L, Y, D", raw)
		return
	}
	b.animal.Breed = breed
}

// SetTag normalizes and stores the ear tag.
func (b *AnimalBuilder) SetTag(raw string) {
	tag := ident.Normalize(raw)
	if tag == "" {
		b.findings.Addf("tag", report.KindFormat, "no usable identifier in %q", raw)
		return
	}
	if len(tag) > models.MaxTagLength {
		b.findings.Addf("tag", report.KindRange, "tag longer than %d characters", models.MaxTagLength)
		return
	}
	b.animal.Tag = tag
}

// SetBirthDate parses the birth date column.
func (b *AnimalBuilder) SetBirthDate(raw string) {
	if strings.TrimSpace(raw) == "" {
		b.findings.Add("birth_date", report.KindEmpty, "must not be empty")
		return
	}
	t, err := b.cfg.ParseDate(raw)
	if err != nil {
		b.findings.Addf("birth_date", report.KindFormat, "%v", err)
		return
	}
	b.animal.BirthDate = models.DateOnly(t)
}

// SetGender parses the optional gender column.
func (b *AnimalBuilder) SetGender(raw string) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return
	}
	gender := models.Gender(s)
	if !gender.IsValid() {
		b.findings.Addf("gender", report.KindFormat, "gender %q is not one of M, F", raw)
		return
	}
	b.animal.Gender = &gender
}

// SetNickname parses the optional display name column.
func (b *AnimalBuilder) SetNickname(raw string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return
	}
	if len([]rune(s)) > models.MaxNicknameLength {
		b.findings.Addf("nickname", report.KindRange, "longer than %d characters", models.MaxNicknameLength)
		return
	}
	b.animal.Nickname = &s
}

// SetRegNumber parses the optional registration number and enforces its
// global uniqueness against the store.
func (b *AnimalBuilder) SetRegNumber(ctx context.Context, raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if len(s) != models.RegNumberLength || !allDigits(s) {
		b.findings.Addf("reg_number", report.KindFormat, "must be exactly %d digits", models.RegNumberLength)
		return nil
	}
	taken, err := b.animals.ExistsByRegNumber(ctx, s, "")
	if err != nil {
		return fmt.Errorf("check reg number: %w", err)
	}
	if taken {
		b.findings.Addf("reg_number", report.KindConflict, "registration number %s already registered", s)
		return nil
	}
	b.animal.RegNumber = &s
	return nil
}

// SetSire resolves the optional sire identifier. Call after SetBreed and
// SetBirthDate so the lookup can use breed and age hints.
func (b *AnimalBuilder) SetSire(ctx context.Context, raw string) error {
	ref, err := b.resolveParent(ctx, raw, "sire", models.GenderMale)
	if err != nil || ref == nil {
		return err
	}
	b.animal.SireTag, b.animal.SireBirthDate, b.animal.SireFarm = &ref.Tag, &ref.BirthDate, &ref.Farm
	return nil
}

// SetDam resolves the optional dam identifier.
func (b *AnimalBuilder) SetDam(ctx context.Context, raw string) error {
	ref, err := b.resolveParent(ctx, raw, "dam", models.GenderFemale)
	if err != nil || ref == nil {
		return err
	}
	b.animal.DamTag, b.animal.DamBirthDate, b.animal.DamFarm = &ref.Tag, &ref.BirthDate, &ref.Farm
	return nil
}

func (b *AnimalBuilder) resolveParent(ctx context.Context, raw, field string, gender models.Gender) (*models.AnimalRef, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	year, breed, _ := ident.SplitYearBreedID(raw)
	q := resolver.Query{
		Tag:       raw,
		Farm:      b.cfg.Farm,
		Gender:    &gender,
		Breed:     breed,
		BirthYear: year,
	}
	if !b.animal.BirthDate.IsZero() {
		asOf := b.animal.BirthDate
		q.AsOf = &asOf
	}
	result, err := b.resolver.ResolveWith(ctx, q, b.decider)
	if err != nil {
		return nil, err
	}
	if result.Status != resolver.Unique {
		b.findings.Addf(field, report.KindReference, "identifier %q is %s", raw, result.Status)
		return nil, nil
	}
	ref := result.Animal.Ref()
	return &ref, nil
}

// Build finalizes the row. A clean row yields the candidate animal; any
// finding yields nil and the finding set.
func (b *AnimalBuilder) Build() (*models.Animal, report.Findings, error) {
	if b.findings.HasAny() {
		return nil, b.findings, nil
	}
	if err := b.animal.Validate(); err != nil {
		return nil, nil, contractErr("animal", err)
	}
	animal := b.animal
	return &animal, nil, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
