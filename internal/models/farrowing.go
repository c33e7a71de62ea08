package models

import (
	"fmt"
	"time"
)

// FarrowingEvent records the birth concluding a pregnancy. One farrowing
// per estrus: the uniqueness key is the parent estrus key plus the
// farrowing date.
type FarrowingEvent struct {
	ID           string    `db:"id" json:"id"`
	SowTag       string    `db:"sow_tag" json:"sow_tag"`
	SowBirthDate time.Time `db:"sow_birth_date" json:"sow_birth_date"`
	SowFarm      string    `db:"sow_farm" json:"sow_farm"`
	EstrusAt     time.Time `db:"estrus_at" json:"estrus_at"`

	FarrowedOn time.Time `db:"farrowed_on" json:"farrowed_on"`

	// LitterID is the farm's running litter sequence for the sow. It is
	// how weaning and individual rows refer back to a litter, since those
	// sheets do not repeat the farrowing date.
	LitterID int `db:"litter_id" json:"litter_id"`

	Crushed    int `db:"crushed" json:"crushed"`
	Black      int `db:"black" json:"black"`
	Weak       int `db:"weak" json:"weak"`
	Malformed  int `db:"malformed" json:"malformed"`
	Dead       int `db:"dead" json:"dead"`
	BornMale   int `db:"born_male" json:"born_male"`
	BornFemale int `db:"born_female" json:"born_female"`

	TotalWeight *float64 `db:"total_weight" json:"total_weight,omitempty"`
	Note        *string  `db:"note" json:"note,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Sow returns the identifying snapshot of the sow.
func (f *FarrowingEvent) Sow() AnimalRef {
	return AnimalRef{Tag: f.SowTag, BirthDate: f.SowBirthDate, Farm: f.SowFarm}
}

// SetEstrus stores the parent estrus key. The estrus must be unique.
func (f *FarrowingEvent) SetEstrus(estrus *EstrusEvent) error {
	if estrus == nil || !estrus.IsUnique() {
		return fmt.Errorf("estrus is not unique")
	}
	sow := estrus.Sow()
	f.SowTag, f.SowBirthDate, f.SowFarm = sow.Tag, sow.BirthDate, sow.Farm
	f.EstrusAt = estrus.EstrusAt
	return nil
}

// BornAlive is the number of live-born piglets.
func (f *FarrowingEvent) BornAlive() int {
	return f.BornMale + f.BornFemale
}

// BornDead sums the loss categories.
func (f *FarrowingEvent) BornDead() int {
	return f.Crushed + f.Black + f.Weak + f.Malformed + f.Dead
}

// TotalBorn is the whole litter size.
func (f *FarrowingEvent) TotalBorn() int {
	return f.BornAlive() + f.BornDead()
}

// Validate checks the intrinsic invariants of a fully built event.
// ceiling bounds every individual count field.
func (f *FarrowingEvent) Validate(ceiling int) error {
	if !f.Sow().IsComplete() || f.EstrusAt.IsZero() {
		return fmt.Errorf("estrus reference is incomplete")
	}
	if f.FarrowedOn.IsZero() {
		return fmt.Errorf("farrowing date is required")
	}
	if f.FarrowedOn.Before(f.EstrusAt) {
		return fmt.Errorf("farrowing precedes its estrus")
	}
	for _, c := range []struct {
		name  string
		value int
	}{
		{"crushed", f.Crushed},
		{"black", f.Black},
		{"weak", f.Weak},
		{"malformed", f.Malformed},
		{"dead", f.Dead},
		{"born male", f.BornMale},
		{"born female", f.BornFemale},
	} {
		if c.value < 0 || c.value > ceiling {
			return fmt.Errorf("%s count must be between 0 and %d", c.name, ceiling)
		}
	}
	if f.LitterID < 0 || f.LitterID > MaxInLitterID {
		return fmt.Errorf("litter id must be between 0 and %d", MaxInLitterID)
	}
	if f.TotalWeight != nil && *f.TotalWeight < 0 {
		return fmt.Errorf("total litter weight must not be negative")
	}
	return nil
}

// EqualContent compares non-key fields.
func (f *FarrowingEvent) EqualContent(o *FarrowingEvent) bool {
	if f.LitterID != o.LitterID {
		return false
	}
	if f.Crushed != o.Crushed || f.Black != o.Black || f.Weak != o.Weak ||
		f.Malformed != o.Malformed || f.Dead != o.Dead ||
		f.BornMale != o.BornMale || f.BornFemale != o.BornFemale {
		return false
	}
	if !equalFloatPtr(f.TotalWeight, o.TotalWeight) {
		return false
	}
	return equalStringPtr(f.Note, o.Note)
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
