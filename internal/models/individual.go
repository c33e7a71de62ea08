package models

import (
	"fmt"
	"time"
)

// MaxInLitterID bounds the piglet's sequence number within its litter.
const MaxInLitterID = 30

// Individual is a single piglet. It belongs to the litter it was born in
// and, when fostered, may be nursed in a different litter. Uniqueness key:
// (birth litter key, in-litter id).
type Individual struct {
	ID string `db:"id" json:"id"`

	BirthSowTag       string    `db:"birth_sow_tag" json:"birth_sow_tag"`
	BirthSowBirthDate time.Time `db:"birth_sow_birth_date" json:"birth_sow_birth_date"`
	BirthSowFarm      string    `db:"birth_sow_farm" json:"birth_sow_farm"`
	BirthFarrowedOn   time.Time `db:"birth_farrowed_on" json:"birth_farrowed_on"`

	NurseSowTag       *string    `db:"nurse_sow_tag" json:"nurse_sow_tag,omitempty"`
	NurseSowBirthDate *time.Time `db:"nurse_sow_birth_date" json:"nurse_sow_birth_date,omitempty"`
	NurseSowFarm      *string    `db:"nurse_sow_farm" json:"nurse_sow_farm,omitempty"`
	NurseFarrowedOn   *time.Time `db:"nurse_farrowed_on" json:"nurse_farrowed_on,omitempty"`

	InLitterID    int      `db:"in_litter_id" json:"in_litter_id"`
	Gender        *Gender  `db:"gender" json:"gender,omitempty"`
	BirthWeight   *float64 `db:"birth_weight" json:"birth_weight,omitempty"`
	WeaningWeight *float64 `db:"weaning_weight" json:"weaning_weight,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BirthSow returns the identifying snapshot of the birth litter's sow.
func (i *Individual) BirthSow() AnimalRef {
	return AnimalRef{Tag: i.BirthSowTag, BirthDate: i.BirthSowBirthDate, Farm: i.BirthSowFarm}
}

// NurseSow returns the nurse litter sow snapshot, or nil when the piglet
// was never fostered out.
func (i *Individual) NurseSow() *AnimalRef {
	if i.NurseSowTag == nil || i.NurseSowBirthDate == nil || i.NurseSowFarm == nil {
		return nil
	}
	return &AnimalRef{Tag: *i.NurseSowTag, BirthDate: *i.NurseSowBirthDate, Farm: *i.NurseSowFarm}
}

// SetBirthLitter stores the birth farrowing key.
func (i *Individual) SetBirthLitter(farrowing *FarrowingEvent) error {
	if farrowing == nil || !farrowing.Sow().IsComplete() || farrowing.FarrowedOn.IsZero() {
		return fmt.Errorf("birth litter is not unique")
	}
	sow := farrowing.Sow()
	i.BirthSowTag, i.BirthSowBirthDate, i.BirthSowFarm = sow.Tag, sow.BirthDate, sow.Farm
	i.BirthFarrowedOn = farrowing.FarrowedOn
	return nil
}

// SetNurseLitter stores the nurse litter key via its weaning record. A
// piglet cannot be nursed in a litter farrowed before its own birth
// litter.
func (i *Individual) SetNurseLitter(weaning *WeaningEvent) error {
	if weaning == nil || !weaning.Sow().IsComplete() || weaning.FarrowedOn.IsZero() {
		return fmt.Errorf("nurse litter is not unique")
	}
	if !i.BirthFarrowedOn.IsZero() && weaning.FarrowedOn.Before(DateOnly(i.BirthFarrowedOn)) {
		return fmt.Errorf("nurse litter farrowed before the birth litter")
	}
	sow := weaning.Sow()
	i.NurseSowTag, i.NurseSowBirthDate, i.NurseSowFarm = &sow.Tag, &sow.BirthDate, &sow.Farm
	farrowedOn := weaning.FarrowedOn
	i.NurseFarrowedOn = &farrowedOn
	return nil
}

// Validate checks the intrinsic invariants of a fully built individual.
func (i *Individual) Validate() error {
	if !i.BirthSow().IsComplete() || i.BirthFarrowedOn.IsZero() {
		return fmt.Errorf("birth litter reference is incomplete")
	}
	if i.InLitterID < 1 || i.InLitterID > MaxInLitterID {
		return fmt.Errorf("in-litter id must be between 1 and %d", MaxInLitterID)
	}
	if i.Gender != nil && !i.Gender.IsValid() {
		return fmt.Errorf("gender %q is not one of M, F", *i.Gender)
	}
	if i.BirthWeight != nil && *i.BirthWeight < 0 {
		return fmt.Errorf("birth weight must not be negative")
	}
	if i.WeaningWeight != nil && *i.WeaningWeight < 0 {
		return fmt.Errorf("weaning weight must not be negative")
	}
	if i.NurseFarrowedOn != nil && i.NurseFarrowedOn.Before(DateOnly(i.BirthFarrowedOn)) {
		return fmt.Errorf("nurse litter farrowed before the birth litter")
	}
	return nil
}

// EqualContent compares non-key fields.
func (i *Individual) EqualContent(o *Individual) bool {
	if !equalRefPtr(i.NurseSow(), o.NurseSow()) {
		return false
	}
	if !equalTimePtr(i.NurseFarrowedOn, o.NurseFarrowedOn) {
		return false
	}
	if !equalGenderPtr(i.Gender, o.Gender) {
		return false
	}
	if !equalFloatPtr(i.BirthWeight, o.BirthWeight) {
		return false
	}
	return equalFloatPtr(i.WeaningWeight, o.WeaningWeight)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return SameDay(*a, *b)
}
