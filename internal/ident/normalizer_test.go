package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain numeric", "112211", "112211"},
		{"dash suffix padded", "1234-2", "123402"},
		{"dash suffix two digits", "1234-23", "123423"},
		{"dash suffix with trailing letters", "20Y1234-2cao", "123402"},
		{"second dash ignored", "1234-2-extra9999999", "123402"},
		{"embedded breed letter", "Y123456", "123456"},
		{"stray characters equal runs", "12a34", "12"},
		{"longest run wins tie by first", "123x456", "123"},
		{"whitespace trimmed", "  8871  ", "8871"},
		{"empty", "", ""},
		{"no digits", "abc", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"1234-2", "20Y1234-2cao", "112211", "12a345b6", "Y-3", ""}
	for _, raw := range inputs {
		once := Normalize(raw)
		assert.Equal(t, once, Normalize(once), "raw=%q", raw)
	}
}

func TestSplitYearBreedID(t *testing.T) {
	year, breed, id := SplitYearBreedID("20Y1234-2")
	require.NotNil(t, year)
	require.NotNil(t, breed)
	assert.Equal(t, 2020, *year)
	assert.Equal(t, models.BreedYorkshire, *breed)
	assert.Equal(t, "123402", id)
}

func TestSplitYearBreedIDFourDigitYear(t *testing.T) {
	year, breed, id := SplitYearBreedID("2022L8871")
	require.NotNil(t, year)
	require.NotNil(t, breed)
	assert.Equal(t, 2022, *year)
	assert.Equal(t, models.BreedLandrace, *breed)
	assert.Equal(t, "8871", id)
}

func TestSplitYearBreedIDNoBreed(t *testing.T) {
	year, breed, id := SplitYearBreedID("1234-2")
	assert.Nil(t, year)
	assert.Nil(t, breed)
	assert.Equal(t, "123402", id)
}

func TestSplitYearBreedIDNoYear(t *testing.T) {
	year, breed, id := SplitYearBreedID("Y123456")
	assert.Nil(t, year)
	require.NotNil(t, breed)
	assert.Equal(t, models.BreedYorkshire, *breed)
	assert.Equal(t, "123456", id)
}

func TestSplitYearBreedIDLowercaseBreed(t *testing.T) {
	_, breed, id := SplitYearBreedID("22d456")
	require.NotNil(t, breed)
	assert.Equal(t, models.BreedDuroc, *breed)
	assert.Equal(t, "456", id)
}
