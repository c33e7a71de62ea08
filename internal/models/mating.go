package models

import (
	"fmt"
	"time"
)

// MatingEvent records a breeding act during an estrus cycle.
// Uniqueness key: (estrus key, mating timestamp).
type MatingEvent struct {
	ID           string    `db:"id" json:"id"`
	SowTag       string    `db:"sow_tag" json:"sow_tag"`
	SowBirthDate time.Time `db:"sow_birth_date" json:"sow_birth_date"`
	SowFarm      string    `db:"sow_farm" json:"sow_farm"`
	EstrusAt     time.Time `db:"estrus_at" json:"estrus_at"`

	MatingAt      time.Time `db:"mating_at" json:"mating_at"`
	BoarTag       string    `db:"boar_tag" json:"boar_tag"`
	BoarBirthDate time.Time `db:"boar_birth_date" json:"boar_birth_date"`
	BoarFarm      string    `db:"boar_farm" json:"boar_farm"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Sow returns the identifying snapshot of the sow.
func (m *MatingEvent) Sow() AnimalRef {
	return AnimalRef{Tag: m.SowTag, BirthDate: m.SowBirthDate, Farm: m.SowFarm}
}

// Boar returns the identifying snapshot of the boar.
func (m *MatingEvent) Boar() AnimalRef {
	return AnimalRef{Tag: m.BoarTag, BirthDate: m.BoarBirthDate, Farm: m.BoarFarm}
}

// SetEstrus stores the parent estrus key. The estrus must be unique.
func (m *MatingEvent) SetEstrus(estrus *EstrusEvent) error {
	if estrus == nil || !estrus.IsUnique() {
		return fmt.Errorf("estrus is not unique")
	}
	sow := estrus.Sow()
	m.SowTag, m.SowBirthDate, m.SowFarm = sow.Tag, sow.BirthDate, sow.Farm
	m.EstrusAt = estrus.EstrusAt
	return nil
}

// SetBoar stores the boar snapshot. The boar must be a unique animal.
func (m *MatingEvent) SetBoar(boar *Animal) error {
	if boar == nil || !boar.IsUnique() {
		return fmt.Errorf("boar is not a unique animal")
	}
	ref := boar.Ref()
	m.BoarTag, m.BoarBirthDate, m.BoarFarm = ref.Tag, ref.BirthDate, ref.Farm
	return nil
}

// Gap returns the delay between estrus observation and mating.
func (m *MatingEvent) Gap() time.Duration {
	return m.MatingAt.Sub(m.EstrusAt)
}

// Validate checks the intrinsic invariants of a fully built event.
// maxGap is the policy window for how long after the estrus observation a
// mating may still belong to the same cycle.
func (m *MatingEvent) Validate(maxGap time.Duration) error {
	if !m.Sow().IsComplete() || m.EstrusAt.IsZero() {
		return fmt.Errorf("estrus reference is incomplete")
	}
	if m.MatingAt.IsZero() {
		return fmt.Errorf("mating timestamp is required")
	}
	if !m.Boar().IsComplete() {
		return fmt.Errorf("boar reference is incomplete")
	}
	if gap := m.Gap(); gap < 0 {
		return fmt.Errorf("mating precedes its estrus")
	} else if gap > maxGap {
		return fmt.Errorf("gap between estrus and mating exceeds %s", maxGap)
	}
	return nil
}

// EqualContent compares non-key fields.
func (m *MatingEvent) EqualContent(o *MatingEvent) bool {
	return m.Boar().Equal(o.Boar())
}
