package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// WeaningRepository manages persistence for weaning events.
type WeaningRepository struct {
	db *sqlx.DB
}

// NewWeaningRepository constructs a WeaningRepository.
func NewWeaningRepository(db *sqlx.DB) *WeaningRepository {
	return &WeaningRepository{db: db}
}

const weaningColumns = `id, sow_tag, sow_birth_date, sow_farm, farrowed_on, weaned_on, nursed, weaned, created_at, updated_at`

// FindByFarrowing fetches the weaning concluding one litter. There is at
// most one.
func (r *WeaningRepository) FindByFarrowing(ctx context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.WeaningEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM weaning_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND farrowed_on = $4`, weaningColumns)
	var event models.WeaningEvent
	err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, models.DateOnly(farrowedOn))
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new weaning event.
func (r *WeaningRepository) Create(ctx context.Context, event *models.WeaningEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.SowBirthDate = models.DateOnly(event.SowBirthDate)
	event.FarrowedOn = models.DateOnly(event.FarrowedOn)
	event.WeanedOn = models.DateOnly(event.WeanedOn)
	const query = `INSERT INTO weaning_events (id, sow_tag, sow_birth_date, sow_farm, farrowed_on, weaned_on, nursed, weaned, created_at, updated_at)
        VALUES (:id, :sow_tag, :sow_birth_date, :sow_farm, :farrowed_on, :weaned_on, :nursed, :weaned, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "create weaning")
	}
	return nil
}

// Update overwrites the non-key fields of an existing weaning event.
func (r *WeaningRepository) Update(ctx context.Context, event *models.WeaningEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE weaning_events SET weaned_on = :weaned_on, nursed = :nursed, weaned = :weaned, updated_at = :updated_at
        WHERE sow_tag = :sow_tag AND sow_birth_date = :sow_birth_date AND sow_farm = :sow_farm AND farrowed_on = :farrowed_on`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "update weaning")
	}
	return nil
}
