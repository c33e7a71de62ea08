package models

import (
	"fmt"
	"time"
)

// MaxParity is the largest plausible pregnancy count for a sow.
const MaxParity = 12

// EstrusEvent records one fertile cycle of a sow.
// Uniqueness key: (sow ref, estrus timestamp).
type EstrusEvent struct {
	ID           string          `db:"id" json:"id"`
	SowTag       string          `db:"sow_tag" json:"sow_tag"`
	SowBirthDate time.Time       `db:"sow_birth_date" json:"sow_birth_date"`
	SowFarm      string          `db:"sow_farm" json:"sow_farm"`
	EstrusAt     time.Time       `db:"estrus_at" json:"estrus_at"`
	Pregnant     PregnancyStatus `db:"pregnant" json:"pregnant"`
	Parity       int             `db:"parity" json:"parity"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Sow returns the identifying snapshot of the sow.
func (e *EstrusEvent) Sow() AnimalRef {
	return AnimalRef{Tag: e.SowTag, BirthDate: e.SowBirthDate, Farm: e.SowFarm}
}

// SetSow stores the sow snapshot. The sow must be a unique animal.
func (e *EstrusEvent) SetSow(sow *Animal) error {
	if sow == nil || !sow.IsUnique() {
		return fmt.Errorf("sow is not a unique animal")
	}
	ref := sow.Ref()
	e.SowTag, e.SowBirthDate, e.SowFarm = ref.Tag, ref.BirthDate, ref.Farm
	return nil
}

// IsUnique reports whether the event carries its full key.
func (e *EstrusEvent) IsUnique() bool {
	return e.Sow().IsComplete() && !e.EstrusAt.IsZero()
}

// Validate checks the intrinsic invariants of a fully built event.
func (e *EstrusEvent) Validate() error {
	if !e.Sow().IsComplete() {
		return fmt.Errorf("sow reference is incomplete")
	}
	if e.EstrusAt.IsZero() {
		return fmt.Errorf("estrus timestamp is required")
	}
	if !e.Pregnant.IsValid() {
		return fmt.Errorf("pregnancy status %q is not recognized", e.Pregnant)
	}
	if e.Parity < 0 || e.Parity > MaxParity {
		return fmt.Errorf("parity must be between 0 and %d", MaxParity)
	}
	if e.EstrusAt.Before(e.SowBirthDate) {
		return fmt.Errorf("estrus predates the sow's birth")
	}
	return nil
}

// EqualContent compares non-key fields.
func (e *EstrusEvent) EqualContent(o *EstrusEvent) bool {
	return e.Pregnant == o.Pregnant && e.Parity == o.Parity
}
