package models

import (
	"fmt"
	"time"
	"unicode"
)

const (
	// MaxTagLength bounds the raw ear tag after normalization.
	MaxTagLength = 19
	// RegNumberLength is the exact digit count of a registration number.
	RegNumberLength = 6
	// MaxNicknameLength bounds the optional display name.
	MaxNicknameLength = 5
)

// AnimalRef is the minimal identifying snapshot of an Animal: the
// uniqueness triple (tag, birth date, farm). Parent links are stored as
// refs, never as live pointers into the pedigree, so the ownership graph
// stays a tree by construction.
type AnimalRef struct {
	Tag       string    `db:"tag"`
	BirthDate time.Time `db:"birth_date"`
	Farm      string    `db:"farm"`
}

// IsComplete reports whether every component of the triple is set. Only a
// complete ref may be used as a foreign reference.
func (r AnimalRef) IsComplete() bool {
	return r.Tag != "" && !r.BirthDate.IsZero() && r.Farm != ""
}

// Equal compares refs component-wise; birth dates compare at day
// precision.
func (r AnimalRef) Equal(o AnimalRef) bool {
	return r.Tag == o.Tag && SameDay(r.BirthDate, o.BirthDate) && r.Farm == o.Farm
}

// String renders the ref for log and report messages.
func (r AnimalRef) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Tag, r.BirthDate.Format("2006-01-02"), r.Farm)
}

// Animal is a registered pig. Uniqueness key: (tag, birth date, farm).
type Animal struct {
	ID        string    `db:"id" json:"id"`
	Breed     Breed     `db:"breed" json:"breed"`
	Tag       string    `db:"tag" json:"tag"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Farm      string    `db:"farm" json:"farm"`

	RegNumber *string `db:"reg_number" json:"reg_number,omitempty"`
	Gender    *Gender `db:"gender" json:"gender,omitempty"`
	Nickname  *string `db:"nickname" json:"nickname,omitempty"`

	SireTag       *string    `db:"sire_tag" json:"sire_tag,omitempty"`
	SireBirthDate *time.Time `db:"sire_birth_date" json:"sire_birth_date,omitempty"`
	SireFarm      *string    `db:"sire_farm" json:"sire_farm,omitempty"`
	DamTag        *string    `db:"dam_tag" json:"dam_tag,omitempty"`
	DamBirthDate  *time.Time `db:"dam_birth_date" json:"dam_birth_date,omitempty"`
	DamFarm       *string    `db:"dam_farm" json:"dam_farm,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Ref returns the identifying snapshot of the animal.
func (a *Animal) Ref() AnimalRef {
	return AnimalRef{Tag: a.Tag, BirthDate: a.BirthDate, Farm: a.Farm}
}

// IsUnique reports whether the animal can serve as a foreign reference,
// i.e. its full uniqueness triple is set.
func (a *Animal) IsUnique() bool {
	return a.Ref().IsComplete()
}

// Sire returns the sire snapshot, or nil when unset.
func (a *Animal) Sire() *AnimalRef {
	if a.SireTag == nil || a.SireBirthDate == nil || a.SireFarm == nil {
		return nil
	}
	return &AnimalRef{Tag: *a.SireTag, BirthDate: *a.SireBirthDate, Farm: *a.SireFarm}
}

// Dam returns the dam snapshot, or nil when unset.
func (a *Animal) Dam() *AnimalRef {
	if a.DamTag == nil || a.DamBirthDate == nil || a.DamFarm == nil {
		return nil
	}
	return &AnimalRef{Tag: *a.DamTag, BirthDate: *a.DamBirthDate, Farm: *a.DamFarm}
}

// SetSire stores the sire snapshot. The referenced animal must itself be
// unique.
func (a *Animal) SetSire(sire *Animal) error {
	if sire == nil || !sire.IsUnique() {
		return fmt.Errorf("sire is not a unique animal")
	}
	ref := sire.Ref()
	a.SireTag, a.SireBirthDate, a.SireFarm = &ref.Tag, &ref.BirthDate, &ref.Farm
	return nil
}

// SetDam stores the dam snapshot. The referenced animal must itself be
// unique.
func (a *Animal) SetDam(dam *Animal) error {
	if dam == nil || !dam.IsUnique() {
		return fmt.Errorf("dam is not a unique animal")
	}
	ref := dam.Ref()
	a.DamTag, a.DamBirthDate, a.DamFarm = &ref.Tag, &ref.BirthDate, &ref.Farm
	return nil
}

// Validate checks the intrinsic invariants of a fully built animal.
func (a *Animal) Validate() error {
	if !a.Breed.IsValid() {
		return fmt.Errorf("breed %q is not one of L, Y, D", a.Breed)
	}
	if a.Tag == "" || len(a.Tag) > MaxTagLength {
		return fmt.Errorf("tag must be 1 to %d characters", MaxTagLength)
	}
	if a.BirthDate.IsZero() {
		return fmt.Errorf("birth date is required")
	}
	if a.Farm == "" {
		return fmt.Errorf("farm is required")
	}
	if a.RegNumber != nil && !isDigits(*a.RegNumber, RegNumberLength) {
		return fmt.Errorf("registration number must be exactly %d digits", RegNumberLength)
	}
	if a.Gender != nil && !a.Gender.IsValid() {
		return fmt.Errorf("gender %q is not one of M, F", *a.Gender)
	}
	if a.Nickname != nil && len([]rune(*a.Nickname)) > MaxNicknameLength {
		return fmt.Errorf("nickname must be at most %d characters", MaxNicknameLength)
	}
	if sire := a.Sire(); sire != nil && !sire.IsComplete() {
		return fmt.Errorf("sire reference is incomplete")
	}
	if dam := a.Dam(); dam != nil && !dam.IsComplete() {
		return fmt.Errorf("dam reference is incomplete")
	}
	return nil
}

// EqualContent compares every non-key field for the reconciliation
// three-way branch. Parent references compare by identifying triple only.
func (a *Animal) EqualContent(o *Animal) bool {
	if a.Breed != o.Breed {
		return false
	}
	if !equalStringPtr(a.RegNumber, o.RegNumber) {
		return false
	}
	if !equalGenderPtr(a.Gender, o.Gender) {
		return false
	}
	if !equalStringPtr(a.Nickname, o.Nickname) {
		return false
	}
	if !equalRefPtr(a.Sire(), o.Sire()) {
		return false
	}
	return equalRefPtr(a.Dam(), o.Dam())
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalGenderPtr(a, b *Gender) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalRefPtr(a, b *AnimalRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
