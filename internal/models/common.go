package models

import "time"

// Breed identifies the three lines tracked by the herd book.
type Breed string

const (
	BreedLandrace  Breed = "L"
	BreedYorkshire Breed = "Y"
	BreedDuroc     Breed = "D"
)

// String returns the string representation of the breed.
func (b Breed) String() string {
	return string(b)
}

// IsValid returns true if the breed is a recognized value.
func (b Breed) IsValid() bool {
	switch b {
	case BreedLandrace, BreedYorkshire, BreedDuroc:
		return true
	}
	return false
}

// BreedLetters is the alphabet scanned for when an ear tag embeds a breed
// character, e.g. "20Y1234-2".
const BreedLetters = "LYD"

// Gender of an animal.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// String returns the string representation of the gender.
func (g Gender) String() string {
	return string(g)
}

// IsValid returns true if the gender is a recognized value.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	}
	return false
}

// PregnancyStatus records the outcome of an estrus cycle.
type PregnancyStatus string

const (
	PregnancyYes      PregnancyStatus = "Yes"
	PregnancyNo       PregnancyStatus = "No"
	PregnancyUnknown  PregnancyStatus = "Unknown"
	PregnancyAbortion PregnancyStatus = "Abortion"
)

// String returns the string representation of the status.
func (p PregnancyStatus) String() string {
	return string(p)
}

// IsValid returns true if the status is a recognized value.
func (p PregnancyStatus) IsValid() bool {
	switch p {
	case PregnancyYes, PregnancyNo, PregnancyUnknown, PregnancyAbortion:
		return true
	}
	return false
}

// SameDay reports whether two timestamps fall on the same calendar day.
// Dates arrive from spreadsheets without a time component, so key
// comparisons ignore anything below day precision.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly truncates a timestamp to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
