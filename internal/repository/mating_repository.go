package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// MatingRepository manages persistence for mating events.
type MatingRepository struct {
	db *sqlx.DB
}

// NewMatingRepository constructs a MatingRepository.
func NewMatingRepository(db *sqlx.DB) *MatingRepository {
	return &MatingRepository{db: db}
}

const matingColumns = `id, sow_tag, sow_birth_date, sow_farm, estrus_at, mating_at,
        boar_tag, boar_birth_date, boar_farm, created_at, updated_at`

// FindByKey fetches the mating with the exact uniqueness key.
func (r *MatingRepository) FindByKey(ctx context.Context, sow models.AnimalRef, estrusAt, matingAt time.Time) (*models.MatingEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM mating_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at = $4 AND mating_at = $5`, matingColumns)
	var event models.MatingEvent
	if err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, estrusAt, matingAt); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByEstrus returns every mating recorded for one estrus cycle, in
// mating order.
func (r *MatingRepository) FindByEstrus(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) ([]models.MatingEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM mating_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at = $4
        ORDER BY mating_at ASC`, matingColumns)
	var events []models.MatingEvent
	err := r.db.SelectContext(ctx, &events, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, estrusAt)
	if err != nil {
		return nil, fmt.Errorf("find matings by estrus: %w", err)
	}
	return events, nil
}

// Create inserts a new mating event.
func (r *MatingRepository) Create(ctx context.Context, event *models.MatingEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.SowBirthDate = models.DateOnly(event.SowBirthDate)
	event.BoarBirthDate = models.DateOnly(event.BoarBirthDate)
	const query = `INSERT INTO mating_events (id, sow_tag, sow_birth_date, sow_farm, estrus_at, mating_at,
        boar_tag, boar_birth_date, boar_farm, created_at, updated_at)
        VALUES (:id, :sow_tag, :sow_birth_date, :sow_farm, :estrus_at, :mating_at,
        :boar_tag, :boar_birth_date, :boar_farm, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "create mating")
	}
	return nil
}

// Update overwrites the non-key fields of an existing mating event.
func (r *MatingRepository) Update(ctx context.Context, event *models.MatingEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE mating_events SET boar_tag = :boar_tag, boar_birth_date = :boar_birth_date,
        boar_farm = :boar_farm, updated_at = :updated_at
        WHERE sow_tag = :sow_tag AND sow_birth_date = :sow_birth_date AND sow_farm = :sow_farm
        AND estrus_at = :estrus_at AND mating_at = :mating_at`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "update mating")
	}
	return nil
}
