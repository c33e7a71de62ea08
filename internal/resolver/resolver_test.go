package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/repository"
)

type mockFinder struct {
	animals    []models.Animal
	lastFilter repository.AnimalFilter
	err        error
}

func (m *mockFinder) Find(_ context.Context, filter repository.AnimalFilter) ([]models.Animal, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Animal
	for _, a := range m.animals {
		if a.Tag != filter.Tag || a.Farm != filter.Farm {
			continue
		}
		if filter.BornBefore != nil && !a.BirthDate.Before(*filter.BornBefore) {
			continue
		}
		if filter.Gender != nil && (a.Gender == nil || *a.Gender != *filter.Gender) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func boar(tag string, born time.Time) models.Animal {
	g := models.GenderMale
	return models.Animal{
		Breed:     models.BreedYorkshire,
		Tag:       tag,
		BirthDate: born,
		Farm:      "F",
		Gender:    &g,
	}
}

func TestResolveUnique(t *testing.T) {
	finder := &mockFinder{animals: []models.Animal{
		boar("123456", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)),
	}}
	r := New(finder, nil)

	result, err := r.Resolve(context.Background(), Query{Tag: "Y123456", Farm: "F"})
	require.NoError(t, err)
	assert.Equal(t, Unique, result.Status)
	require.NotNil(t, result.Animal)
	assert.Equal(t, "123456", result.Animal.Tag)
	assert.Equal(t, "123456", finder.lastFilter.Tag, "tag normalized before lookup")
}

func TestResolveNotFound(t *testing.T) {
	r := New(&mockFinder{}, nil)

	result, err := r.Resolve(context.Background(), Query{Tag: "998877", Farm: "F"})
	require.NoError(t, err)
	assert.Equal(t, NotFound, result.Status)
	assert.Nil(t, result.Animal)
}

func TestResolveEmptyTagIsNotFound(t *testing.T) {
	r := New(&mockFinder{}, nil)

	result, err := r.Resolve(context.Background(), Query{Tag: "no-digits-at-all", Farm: "F"})
	require.NoError(t, err)
	assert.Equal(t, NotFound, result.Status)
}

func TestResolveAmbiguous(t *testing.T) {
	finder := &mockFinder{animals: []models.Animal{
		boar("123456", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)),
		boar("123456", time.Date(2022, 12, 29, 0, 0, 0, 0, time.UTC)),
	}}
	r := New(finder, nil)

	result, err := r.Resolve(context.Background(), Query{Tag: "123456", Farm: "F"})
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, result.Status)
	assert.Len(t, result.Candidates, 2)
}

func TestResolveWithNearestBirth(t *testing.T) {
	finder := &mockFinder{animals: []models.Animal{
		boar("123456", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)),
		boar("123456", time.Date(2022, 12, 29, 0, 0, 0, 0, time.UTC)),
	}}
	r := New(finder, nil)

	matingDate := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := r.ResolveWith(context.Background(), Query{Tag: "123456", Farm: "F"}, NearestBirth{Reference: matingDate})
	require.NoError(t, err)
	require.Equal(t, Unique, result.Status)
	assert.Equal(t, time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC), result.Animal.BirthDate)
}

func TestNearestBirthLateReferencePicksNewest(t *testing.T) {
	// When every candidate precedes the reference, as AsOf-bounded
	// lookups guarantee, nearest-to-reference is the newest holder of
	// the tag no matter how far in the future the reference lies.
	candidates := []models.Animal{
		boar("123456", time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)),
		boar("123456", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)),
		boar("123456", time.Date(2020, 7, 15, 0, 0, 0, 0, time.UTC)),
	}

	idx, err := NearestBirth{Reference: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}.Choose(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestResolveWithAutoReject(t *testing.T) {
	finder := &mockFinder{animals: []models.Animal{
		boar("123456", time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)),
		boar("123456", time.Date(2022, 12, 29, 0, 0, 0, 0, time.UTC)),
	}}
	r := New(finder, nil)

	result, err := r.ResolveWith(context.Background(), Query{Tag: "123456", Farm: "F"}, AutoReject{})
	require.NoError(t, err)
	assert.Equal(t, NotFound, result.Status)
}

func TestResolveAsOfExcludesYoungerAnimals(t *testing.T) {
	finder := &mockFinder{animals: []models.Animal{
		boar("123456", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)),
		boar("123456", time.Date(2022, 12, 29, 0, 0, 0, 0, time.UTC)),
	}}
	r := New(finder, nil)

	asOf := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := r.Resolve(context.Background(), Query{Tag: "123456", Farm: "F", AsOf: &asOf})
	require.NoError(t, err)
	require.Equal(t, Unique, result.Status)
	assert.Equal(t, time.Date(2022, 12, 29, 0, 0, 0, 0, time.UTC), result.Animal.BirthDate)
}
