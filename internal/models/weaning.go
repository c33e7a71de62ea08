package models

import (
	"fmt"
	"time"
)

// WeaningEvent records the separation of a litter from its nursing sow.
// The parent farrowing is referenced by (sow ref, farrowing date).
type WeaningEvent struct {
	ID           string    `db:"id" json:"id"`
	SowTag       string    `db:"sow_tag" json:"sow_tag"`
	SowBirthDate time.Time `db:"sow_birth_date" json:"sow_birth_date"`
	SowFarm      string    `db:"sow_farm" json:"sow_farm"`
	FarrowedOn   time.Time `db:"farrowed_on" json:"farrowed_on"`

	WeanedOn time.Time `db:"weaned_on" json:"weaned_on"`
	Nursed   int       `db:"nursed" json:"nursed"`
	Weaned   int       `db:"weaned" json:"weaned"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Sow returns the identifying snapshot of the nursing sow.
func (w *WeaningEvent) Sow() AnimalRef {
	return AnimalRef{Tag: w.SowTag, BirthDate: w.SowBirthDate, Farm: w.SowFarm}
}

// SetFarrowing stores the parent farrowing key.
func (w *WeaningEvent) SetFarrowing(farrowing *FarrowingEvent) error {
	if farrowing == nil || !farrowing.Sow().IsComplete() || farrowing.FarrowedOn.IsZero() {
		return fmt.Errorf("farrowing is not unique")
	}
	sow := farrowing.Sow()
	w.SowTag, w.SowBirthDate, w.SowFarm = sow.Tag, sow.BirthDate, sow.Farm
	w.FarrowedOn = farrowing.FarrowedOn
	return nil
}

// NursingSpan is the time between farrowing and weaning.
func (w *WeaningEvent) NursingSpan() time.Duration {
	return w.WeanedOn.Sub(w.FarrowedOn)
}

// Validate checks the intrinsic invariants of a fully built event.
// The weaning date must fall inside the [minSpan, maxSpan] window after
// farrowing.
func (w *WeaningEvent) Validate(minSpan, maxSpan time.Duration, ceiling int) error {
	if !w.Sow().IsComplete() || w.FarrowedOn.IsZero() {
		return fmt.Errorf("farrowing reference is incomplete")
	}
	if w.WeanedOn.IsZero() {
		return fmt.Errorf("weaning date is required")
	}
	if span := w.NursingSpan(); span < minSpan {
		return fmt.Errorf("weaning only %s after farrowing, window starts at %s", span, minSpan)
	} else if span > maxSpan {
		return fmt.Errorf("weaning %s after farrowing, window ends at %s", span, maxSpan)
	}
	if w.Nursed < 0 || w.Nursed > ceiling {
		return fmt.Errorf("nursed count must be between 0 and %d", ceiling)
	}
	if w.Weaned < 0 || w.Weaned > ceiling {
		return fmt.Errorf("weaned count must be between 0 and %d", ceiling)
	}
	if w.Weaned > w.Nursed {
		return fmt.Errorf("weaned count %d exceeds nursed count %d", w.Weaned, w.Nursed)
	}
	return nil
}

// EqualContent compares non-key fields.
func (w *WeaningEvent) EqualContent(o *WeaningEvent) bool {
	return SameDay(w.WeanedOn, o.WeanedOn) && w.Nursed == o.Nursed && w.Weaned == o.Weaned
}
