package reconcile

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/pkg/config"
	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
)

type memAnimals struct {
	records   []models.Animal
	createErr error
	updates   int
}

func (m *memAnimals) FindByKey(_ context.Context, ref models.AnimalRef) (*models.Animal, error) {
	for i := range m.records {
		if m.records[i].Ref().Equal(ref) {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAnimals) Create(_ context.Context, animal *models.Animal) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, *animal)
	return nil
}

func (m *memAnimals) Update(_ context.Context, animal *models.Animal) error {
	m.updates++
	for i := range m.records {
		if m.records[i].Ref().Equal(animal.Ref()) {
			m.records[i] = *animal
		}
	}
	return nil
}

type memEstrus struct {
	records   []models.EstrusEvent
	pregnant  map[string]models.PregnancyStatus
	createErr error
	updates   int
}

func (m *memEstrus) FindByKey(_ context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.EstrusEvent, error) {
	for i := range m.records {
		if m.records[i].Sow().Equal(sow) && m.records[i].EstrusAt.Equal(estrusAt) {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memEstrus) FindNear(_ context.Context, sow models.AnimalRef, at time.Time, span time.Duration) ([]models.EstrusEvent, error) {
	var out []models.EstrusEvent
	for _, r := range m.records {
		if !r.Sow().Equal(sow) {
			continue
		}
		gap := r.EstrusAt.Sub(at)
		if gap < 0 {
			gap = -gap
		}
		if gap <= span {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memEstrus) FindLatestBefore(_ context.Context, sow models.AnimalRef, cutoff time.Time) (*models.EstrusEvent, error) {
	var latest *models.EstrusEvent
	for i := range m.records {
		if !m.records[i].Sow().Equal(sow) || m.records[i].EstrusAt.After(cutoff) {
			continue
		}
		if latest == nil || m.records[i].EstrusAt.After(latest.EstrusAt) {
			latest = &m.records[i]
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (m *memEstrus) Create(_ context.Context, event *models.EstrusEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, *event)
	return nil
}

func (m *memEstrus) Update(_ context.Context, event *models.EstrusEvent) error {
	m.updates++
	for i := range m.records {
		if m.records[i].Sow().Equal(event.Sow()) && m.records[i].EstrusAt.Equal(event.EstrusAt) {
			m.records[i] = *event
		}
	}
	return nil
}

func (m *memEstrus) SetPregnancy(_ context.Context, sow models.AnimalRef, estrusAt time.Time, status models.PregnancyStatus) error {
	if m.pregnant == nil {
		m.pregnant = make(map[string]models.PregnancyStatus)
	}
	m.pregnant[sow.Tag+estrusAt.Format(time.DateTime)] = status
	return nil
}

type memMatings struct{ records []models.MatingEvent }

func (m *memMatings) FindByKey(_ context.Context, sow models.AnimalRef, estrusAt, matingAt time.Time) (*models.MatingEvent, error) {
	for i := range m.records {
		if m.records[i].Sow().Equal(sow) && m.records[i].EstrusAt.Equal(estrusAt) && m.records[i].MatingAt.Equal(matingAt) {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memMatings) FindByEstrus(_ context.Context, sow models.AnimalRef, estrusAt time.Time) ([]models.MatingEvent, error) {
	var out []models.MatingEvent
	for _, r := range m.records {
		if r.Sow().Equal(sow) && r.EstrusAt.Equal(estrusAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMatings) Create(_ context.Context, event *models.MatingEvent) error {
	m.records = append(m.records, *event)
	return nil
}

func (m *memMatings) Update(_ context.Context, _ *models.MatingEvent) error { return nil }

type memFarrowings struct {
	records   []models.FarrowingEvent
	createErr error
}

func (m *memFarrowings) FindByEstrus(_ context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.FarrowingEvent, error) {
	for i := range m.records {
		if m.records[i].Sow().Equal(sow) && m.records[i].EstrusAt.Equal(estrusAt) {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memFarrowings) FindBySowOn(_ context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.FarrowingEvent, error) {
	for i := range m.records {
		if m.records[i].Sow().Equal(sow) && models.SameDay(m.records[i].FarrowedOn, farrowedOn) {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memFarrowings) Create(_ context.Context, event *models.FarrowingEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, *event)
	return nil
}

func (m *memFarrowings) Update(_ context.Context, _ *models.FarrowingEvent) error { return nil }

type memWeanings struct{ records []models.WeaningEvent }

func (m *memWeanings) FindByFarrowing(_ context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.WeaningEvent, error) {
	for i := range m.records {
		if m.records[i].Sow().Equal(sow) && models.SameDay(m.records[i].FarrowedOn, farrowedOn) {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memWeanings) Create(_ context.Context, event *models.WeaningEvent) error {
	m.records = append(m.records, *event)
	return nil
}

func (m *memWeanings) Update(_ context.Context, _ *models.WeaningEvent) error { return nil }

type memIndividuals struct{ records []models.Individual }

func (m *memIndividuals) FindByKey(_ context.Context, birthSow models.AnimalRef, farrowedOn time.Time, inLitterID int) (*models.Individual, error) {
	for i := range m.records {
		if m.records[i].BirthSow().Equal(birthSow) &&
			models.SameDay(m.records[i].BirthFarrowedOn, farrowedOn) &&
			m.records[i].InLitterID == inLitterID {
			return &m.records[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memIndividuals) Create(_ context.Context, piglet *models.Individual) error {
	m.records = append(m.records, *piglet)
	return nil
}

func (m *memIndividuals) Update(_ context.Context, _ *models.Individual) error { return nil }

type acceptAll struct{}

func (acceptAll) Choose(_ context.Context, _ []models.Animal) (int, error) { return 0, nil }
func (acceptAll) Confirm(_ context.Context, _ string) (bool, error)        { return true, nil }

type fixtures struct {
	animals     *memAnimals
	estrus      *memEstrus
	matings     *memMatings
	farrowings  *memFarrowings
	weanings    *memWeanings
	individuals *memIndividuals
}

func newEngine(decider resolver.Decider) (*Engine, *fixtures) {
	f := &fixtures{
		animals:     &memAnimals{},
		estrus:      &memEstrus{},
		matings:     &memMatings{},
		farrowings:  &memFarrowings{},
		weanings:    &memWeanings{},
		individuals: &memIndividuals{},
	}
	stores := NewStores(f.animals, f.estrus, f.matings, f.farrowings, f.weanings, f.individuals)
	policy := config.PolicyConfig{
		MatingGapMax:        72 * time.Hour,
		EstrusDuplicateSpan: 72 * time.Hour,
		RepeatCycleGap:      1200 * time.Hour,
		CountCeiling:        30,
		WeaningWindowMin:    336 * time.Hour,
		WeaningWindowMax:    1008 * time.Hour,
	}
	return New(stores, decider, policy, nil), f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testAnimal() *models.Animal {
	g := models.GenderFemale
	return &models.Animal{
		Breed: models.BreedLandrace, Tag: "123402", BirthDate: day(2020, 1, 1), Farm: "F1", Gender: &g,
	}
}

func TestAnimalInsertThenSkip(t *testing.T) {
	engine, _ := newEngine(resolver.AutoReject{})
	ctx := context.Background()

	result, err := engine.Animal(ctx, testAnimal())
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)

	result, err = engine.Animal(ctx, testAnimal())
	require.NoError(t, err)
	assert.Equal(t, Skipped, result.Outcome)
}

func TestAnimalConflictRefused(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	ctx := context.Background()

	_, err := engine.Animal(ctx, testAnimal())
	require.NoError(t, err)

	changed := testAnimal()
	nickname := "Momo"
	changed.Nickname = &nickname

	result, err := engine.Animal(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, Conflict, result.Outcome)
	assert.NotEmpty(t, result.Detail)
	assert.Zero(t, f.animals.updates)
}

func TestAnimalConflictApproved(t *testing.T) {
	engine, f := newEngine(acceptAll{})
	ctx := context.Background()

	_, err := engine.Animal(ctx, testAnimal())
	require.NoError(t, err)

	changed := testAnimal()
	nickname := "Momo"
	changed.Nickname = &nickname

	result, err := engine.Animal(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, Updated, result.Outcome)
	assert.Equal(t, 1, f.animals.updates)
	require.NotNil(t, f.animals.records[0].Nickname)
	assert.Equal(t, "Momo", *f.animals.records[0].Nickname)
}

func TestAnimalMissingParent(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	f.animals.createErr = apperrors.Wrap(sql.ErrNoRows, apperrors.ErrMissingReference.Code, "create animal: missing referenced record")

	result, err := engine.Animal(context.Background(), testAnimal())
	require.NoError(t, err)
	assert.Equal(t, MissingReference, result.Outcome)
}

func testEstrus(at time.Time) *models.EstrusEvent {
	return &models.EstrusEvent{
		SowTag: "123402", SowBirthDate: day(2020, 1, 1), SowFarm: "F1",
		EstrusAt: at, Pregnant: models.PregnancyUnknown, Parity: 2,
	}
}

func TestEstrusFoldsDoubleObservation(t *testing.T) {
	engine, _ := newEngine(resolver.AutoReject{})
	ctx := context.Background()

	result, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)

	// Second sighting of the same heat a day later.
	result, err = engine.Estrus(ctx, testEstrus(time.Date(2023, 5, 2, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Skipped, result.Outcome)
	assert.Contains(t, result.Detail, "folded")
}

func TestEstrusNewCycleBeyondRepeatGap(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	ctx := context.Background()

	_, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	result, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 7, 15, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)
	assert.Len(t, f.estrus.records, 2)
}

func TestEstrusReturnToHeatClearsMatedCycle(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	ctx := context.Background()
	estrusAt := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	_, err := engine.Estrus(ctx, testEstrus(estrusAt))
	require.NoError(t, err)

	mating := &models.MatingEvent{
		SowTag: "123402", SowBirthDate: day(2020, 1, 1), SowFarm: "F1",
		EstrusAt: estrusAt, MatingAt: estrusAt.Add(12 * time.Hour),
		BoarTag: "778801", BoarBirthDate: day(2019, 6, 1), BoarFarm: "F1",
	}
	_, err = engine.Mating(ctx, mating)
	require.NoError(t, err)

	// Heat again 40 days later: the mating did not take.
	result, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 6, 10, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)
	assert.Equal(t, models.PregnancyNo, f.estrus.pregnant["123402"+estrusAt.Format(time.DateTime)])
}

func TestEstrusEarlyRepeatOfUnmatedCycleConflicts(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	ctx := context.Background()

	_, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	result, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 6, 10, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Conflict, result.Outcome)
	assert.Contains(t, result.Detail, "too closely")
	assert.Len(t, f.estrus.records, 1)
}

func TestEstrusEarlyRepeatApprovedIsInserted(t *testing.T) {
	engine, f := newEngine(acceptAll{})
	ctx := context.Background()

	_, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	result, err := engine.Estrus(ctx, testEstrus(time.Date(2023, 6, 10, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)
	assert.Len(t, f.estrus.records, 2)
}

func TestEstrusUpdateApproved(t *testing.T) {
	engine, f := newEngine(acceptAll{})
	ctx := context.Background()
	at := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	_, err := engine.Estrus(ctx, testEstrus(at))
	require.NoError(t, err)

	changed := testEstrus(at)
	changed.Pregnant = models.PregnancyYes

	result, err := engine.Estrus(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, Updated, result.Outcome)
	assert.Equal(t, 1, f.estrus.updates)
}

func testFarrowing(estrusAt, farrowedOn time.Time, bornMale int) *models.FarrowingEvent {
	return &models.FarrowingEvent{
		SowTag: "123402", SowBirthDate: day(2020, 1, 1), SowFarm: "F1",
		EstrusAt: estrusAt, FarrowedOn: farrowedOn, LitterID: 3,
		BornMale: bornMale, BornFemale: 6,
	}
}

func TestFarrowingMarksCyclePregnant(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	ctx := context.Background()
	estrusAt := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	_, err := engine.Estrus(ctx, testEstrus(estrusAt))
	require.NoError(t, err)

	result, err := engine.Farrowing(ctx, testFarrowing(estrusAt, day(2023, 8, 25), 5))
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)
	assert.Equal(t, models.PregnancyYes, f.estrus.pregnant["123402"+estrusAt.Format(time.DateTime)])
}

func TestFarrowingStillbirthLeavesCycleAlone(t *testing.T) {
	engine, f := newEngine(resolver.AutoReject{})
	ctx := context.Background()
	estrusAt := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	event := testFarrowing(estrusAt, day(2023, 8, 25), 0)
	event.BornFemale = 0
	event.Dead = 8

	result, err := engine.Farrowing(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)
	assert.Empty(t, f.estrus.pregnant)
}

func TestFarrowingDateDisagreementConflicts(t *testing.T) {
	engine, _ := newEngine(acceptAll{})
	ctx := context.Background()
	estrusAt := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	_, err := engine.Farrowing(ctx, testFarrowing(estrusAt, day(2023, 8, 25), 5))
	require.NoError(t, err)

	// Same cycle cannot farrow twice, even for a decider that approves
	// overwrites.
	result, err := engine.Farrowing(ctx, testFarrowing(estrusAt, day(2023, 8, 28), 5))
	require.NoError(t, err)
	assert.Equal(t, Conflict, result.Outcome)
	assert.Contains(t, result.Detail, "already farrowed")
}

func TestFarrowingSameDayDifferentCycleConflicts(t *testing.T) {
	engine, _ := newEngine(acceptAll{})
	ctx := context.Background()

	_, err := engine.Farrowing(ctx, testFarrowing(time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC), day(2023, 8, 25), 5))
	require.NoError(t, err)

	// Same delivery date pinned to a different cycle.
	result, err := engine.Farrowing(ctx, testFarrowing(time.Date(2023, 5, 4, 8, 0, 0, 0, time.UTC), day(2023, 8, 25), 5))
	require.NoError(t, err)
	assert.Equal(t, Conflict, result.Outcome)
	assert.Contains(t, result.Detail, "already farrowed on")
}

func TestWeaningInsertThenSkip(t *testing.T) {
	engine, _ := newEngine(resolver.AutoReject{})
	ctx := context.Background()

	event := &models.WeaningEvent{
		SowTag: "123402", SowBirthDate: day(2020, 1, 1), SowFarm: "F1",
		FarrowedOn: day(2023, 8, 25), WeanedOn: day(2023, 9, 15), Nursed: 10, Weaned: 9,
	}

	result, err := engine.Weaning(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)

	again := *event
	result, err = engine.Weaning(ctx, &again)
	require.NoError(t, err)
	assert.Equal(t, Skipped, result.Outcome)
}

func TestIndividualInsertThenSkip(t *testing.T) {
	engine, _ := newEngine(resolver.AutoReject{})

	piglet := &models.Individual{
		BirthSowTag: "123402", BirthSowBirthDate: day(2020, 1, 1), BirthSowFarm: "F1",
		BirthFarrowedOn: day(2023, 8, 25), InLitterID: 4,
	}

	result, err := engine.Individual(context.Background(), piglet)
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)

	again := *piglet
	result, err = engine.Individual(context.Background(), &again)
	require.NoError(t, err)
	assert.Equal(t, Skipped, result.Outcome)
}

func TestMatingInsertSkipConflict(t *testing.T) {
	engine, _ := newEngine(resolver.AutoReject{})
	ctx := context.Background()
	estrusAt := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)
	matingAt := time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)

	event := &models.MatingEvent{
		SowTag: "123402", SowBirthDate: day(2020, 1, 1), SowFarm: "F1",
		EstrusAt: estrusAt, MatingAt: matingAt,
		BoarTag: "778801", BoarBirthDate: day(2019, 6, 1), BoarFarm: "F1",
	}

	result, err := engine.Mating(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, Inserted, result.Outcome)

	same := *event
	result, err = engine.Mating(ctx, &same)
	require.NoError(t, err)
	assert.Equal(t, Skipped, result.Outcome)

	other := *event
	other.BoarTag = "990001"
	result, err = engine.Mating(ctx, &other)
	require.NoError(t, err)
	assert.Equal(t, Conflict, result.Outcome)
}
