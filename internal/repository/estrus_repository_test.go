package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
)

func estrusRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "sow_tag", "sow_birth_date", "sow_farm", "estrus_at", "pregnant", "parity",
		"created_at", "updated_at",
	})
}

func TestEstrusRepositoryFindNear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEstrusRepository(db)

	sow := models.AnimalRef{Tag: "112211", BirthDate: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), Farm: "F"}
	at := time.Date(2022, 6, 3, 15, 0, 0, 0, time.UTC)
	span := 72 * time.Hour

	rows := estrusRows().AddRow(
		"id1", sow.Tag, sow.BirthDate, sow.Farm, at.Add(-24*time.Hour), "Unknown", 2,
		time.Now(), time.Now())

	mock.ExpectQuery(`SELECT .+ FROM estrus_events\s+WHERE sow_tag = \$1 AND sow_birth_date = \$2 AND sow_farm = \$3 AND estrus_at >= \$4 AND estrus_at <= \$5`).
		WithArgs(sow.Tag, sow.BirthDate, sow.Farm, at.Add(-span), at.Add(span)).
		WillReturnRows(rows)

	events, err := repo.FindNear(context.Background(), sow, at, span)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Parity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEstrusRepositoryFindLatestBefore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEstrusRepository(db)

	sow := models.AnimalRef{Tag: "112211", BirthDate: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), Farm: "F"}
	cutoff := time.Date(2022, 9, 26, 0, 0, 0, 0, time.UTC)

	rows := estrusRows().AddRow(
		"id1", sow.Tag, sow.BirthDate, sow.Farm, time.Date(2022, 6, 3, 15, 0, 0, 0, time.UTC), "Yes", 2,
		time.Now(), time.Now())

	mock.ExpectQuery(`SELECT .+ FROM estrus_events\s+WHERE sow_tag = \$1 AND sow_birth_date = \$2 AND sow_farm = \$3 AND estrus_at <= \$4\s+ORDER BY estrus_at DESC LIMIT 1`).
		WithArgs(sow.Tag, sow.BirthDate, sow.Farm, cutoff).
		WillReturnRows(rows)

	event, err := repo.FindLatestBefore(context.Background(), sow, cutoff)
	require.NoError(t, err)
	assert.Equal(t, models.PregnancyYes, event.Pregnant)
}

func TestEstrusRepositoryCreateMissingSow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEstrusRepository(db)

	mock.ExpectExec("INSERT INTO estrus_events").
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.Create(context.Background(), &models.EstrusEvent{
		SowTag:       "999999",
		SowBirthDate: time.Now(),
		SowFarm:      "F",
		EstrusAt:     time.Now(),
		Pregnant:     models.PregnancyUnknown,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingReference)
}

func TestEstrusRepositorySetPregnancy(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEstrusRepository(db)

	sow := models.AnimalRef{Tag: "112211", BirthDate: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), Farm: "F"}
	at := time.Date(2022, 6, 3, 15, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE estrus_events SET pregnant = \$5`).
		WithArgs(sow.Tag, sow.BirthDate, sow.Farm, at, models.PregnancyYes, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetPregnancy(context.Background(), sow, at, models.PregnancyYes)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
