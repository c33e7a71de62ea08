package reader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jack2012aa/breeding-db-sub000/internal/factory"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/reconcile"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/repository"
	"github.com/jack2012aa/breeding-db-sub000/internal/resolver"
	"github.com/jack2012aa/breeding-db-sub000/internal/sheet"
	"github.com/jack2012aa/breeding-db-sub000/pkg/config"
)

type memSink struct{ entries []report.Entry }

func (m *memSink) Reject(e report.Entry) { m.entries = append(m.entries, e) }

func testCfg() factory.Config {
	return factory.Config{
		Farm: "F1",
		Policy: config.PolicyConfig{
			MatingGapMax:        72 * time.Hour,
			EstrusDuplicateSpan: 72 * time.Hour,
			CountCeiling:        30,
			WeaningWindowMin:    336 * time.Hour,
			WeaningWindowMax:    1008 * time.Hour,
		},
	}
}

func records(cells ...map[string]string) []sheet.Record {
	out := make([]sheet.Record, len(cells))
	for i, c := range cells {
		out[i] = sheet.NewRecord(i+1, c)
	}
	return out
}

func TestRunnerRetriesReferenceRows(t *testing.T) {
	sink := &memSink{}
	r := Options{Sink: sink, RetryPasses: 2}.runner("estrus")

	attempts := map[int]int{}
	process := func(_ context.Context, rec sheet.Record) (reconcile.Result, report.Findings, error) {
		attempts[rec.Index]++
		if rec.Index == 2 && attempts[2] == 1 {
			var f report.Findings
			f.Add("sow", report.KindReference, "not found")
			return reconcile.Result{}, f, nil
		}
		return reconcile.Result{Outcome: reconcile.Inserted}, nil, nil
	}

	tally, err := r.run(context.Background(), records(
		map[string]string{"sow_id": "a"},
		map[string]string{"sow_id": "b"},
	), process)
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Inserted)
	assert.Equal(t, 1, tally.Retried)
	assert.Zero(t, tally.Rejected)
	assert.Empty(t, sink.entries)
	assert.Equal(t, 2, attempts[2])
}

func TestRunnerRejectsNonReferenceImmediately(t *testing.T) {
	sink := &memSink{}
	r := Options{Sink: sink, RetryPasses: 3}.runner("estrus")

	attempts := 0
	process := func(_ context.Context, _ sheet.Record) (reconcile.Result, report.Findings, error) {
		attempts++
		var f report.Findings
		f.Add("sow", report.KindReference, "not found")
		f.Add("parity", report.KindFormat, "invalid format")
		return reconcile.Result{}, f, nil
	}

	tally, err := r.run(context.Background(), records(map[string]string{"sow_id": "a"}), process)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Rejected)
	assert.Equal(t, 1, attempts)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "estrus", sink.entries[0].Sheet)
}

func TestRunnerRetriesMissingReferenceOutcome(t *testing.T) {
	sink := &memSink{}
	r := Options{Sink: sink, RetryPasses: 2}.runner("animals")

	attempts := 0
	process := func(_ context.Context, _ sheet.Record) (reconcile.Result, report.Findings, error) {
		attempts++
		if attempts == 1 {
			return reconcile.Result{Outcome: reconcile.MissingReference, Detail: "missing parent"}, nil, nil
		}
		return reconcile.Result{Outcome: reconcile.Inserted}, nil, nil
	}

	tally, err := r.run(context.Background(), records(map[string]string{"tag": "1234"}), process)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Inserted)
	assert.Zero(t, tally.MissingReferences)
	assert.Empty(t, sink.entries)
}

func TestRunnerReportsExhaustedMissingReference(t *testing.T) {
	sink := &memSink{}
	r := Options{Sink: sink, RetryPasses: 2}.runner("animals")

	process := func(_ context.Context, _ sheet.Record) (reconcile.Result, report.Findings, error) {
		return reconcile.Result{Outcome: reconcile.MissingReference, Detail: "missing parent"}, nil, nil
	}

	tally, err := r.run(context.Background(), records(map[string]string{"tag": "1234"}), process)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.MissingReferences)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, report.KindReference, sink.entries[0].Findings[0].Kind)
}

func TestRunnerRoutesConflictsToSink(t *testing.T) {
	sink := &memSink{}
	r := Options{Sink: sink, RetryPasses: 1}.runner("farrowings")

	process := func(_ context.Context, _ sheet.Record) (reconcile.Result, report.Findings, error) {
		return reconcile.Result{Outcome: reconcile.Conflict, Detail: "key exists with different counts"}, nil, nil
	}

	tally, err := r.run(context.Background(), records(map[string]string{"sow_id": "a"}), process)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Conflicts)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, report.KindConflict, sink.entries[0].Findings[0].Kind)
}

func TestSortByDateChronologicalBadLast(t *testing.T) {
	rows := records(
		map[string]string{"birth_date": "2023-01-01"},
		map[string]string{"birth_date": "oops"},
		map[string]string{"birth_date": "2021-06-15"},
	)
	sorted := sortByDate(testCfg(), rows, "birth_date")
	assert.Equal(t, "2021-06-15", sorted[0].Get("birth_date"))
	assert.Equal(t, "2023-01-01", sorted[1].Get("birth_date"))
	assert.Equal(t, "oops", sorted[2].Get("birth_date"))
}

type noAnimals struct{}

func (noAnimals) Find(_ context.Context, _ repository.AnimalFilter) ([]models.Animal, error) {
	return nil, nil
}

type animalEngineStub struct {
	inserted []models.Animal
}

func (s *animalEngineStub) Animal(_ context.Context, a *models.Animal) (reconcile.Result, error) {
	s.inserted = append(s.inserted, *a)
	return reconcile.Result{Outcome: reconcile.Inserted}, nil
}

type checkerStub struct{}

func (checkerStub) ExistsByRegNumber(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestAnimalReaderEndToEnd(t *testing.T) {
	sink := &memSink{}
	engine := &animalEngineStub{}
	res := resolver.New(noAnimals{}, nil)
	reader := NewAnimalReader(testCfg(), res, checkerStub{}, engine, resolver.AutoReject{},
		Options{Sink: sink, RetryPasses: 1})

	table := &sheet.Table{
		Name:    "animals",
		Headers: []string{"breed", "tag", "birth_date", "gender"},
		Rows: records(
			map[string]string{"breed": "L", "tag": "1234-2", "birth_date": "2023-02-01", "gender": "F"},
			map[string]string{"breed": "L", "tag": "5566", "birth_date": "2020-06-01", "gender": "M"},
			map[string]string{"breed": "Q", "tag": "7788", "birth_date": "2022-01-01"},
		),
	}

	tally, err := reader.Read(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 2, tally.Inserted)
	assert.Equal(t, 1, tally.Rejected)

	// Chronological order: the 2020 boar is persisted first.
	require.Len(t, engine.inserted, 2)
	assert.Equal(t, "5566", engine.inserted[0].Tag)
	assert.Equal(t, "123402", engine.inserted[1].Tag)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "breed", sink.entries[0].Findings[0].Field)
}
