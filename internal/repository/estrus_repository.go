package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// EstrusRepository manages persistence for estrus events.
type EstrusRepository struct {
	db *sqlx.DB
}

// NewEstrusRepository constructs an EstrusRepository.
func NewEstrusRepository(db *sqlx.DB) *EstrusRepository {
	return &EstrusRepository{db: db}
}

const estrusColumns = `id, sow_tag, sow_birth_date, sow_farm, estrus_at, pregnant, parity, created_at, updated_at`

// FindByKey fetches the estrus with the exact uniqueness key.
func (r *EstrusRepository) FindByKey(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.EstrusEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM estrus_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at = $4`, estrusColumns)
	var event models.EstrusEvent
	if err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, estrusAt); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindNear returns the sow's estrus events whose timestamps fall within
// span of at, newest first. Used to fold double observations of the same
// cycle into one record.
func (r *EstrusRepository) FindNear(ctx context.Context, sow models.AnimalRef, at time.Time, span time.Duration) ([]models.EstrusEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM estrus_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at >= $4 AND estrus_at <= $5
        ORDER BY estrus_at DESC`, estrusColumns)
	var events []models.EstrusEvent
	err := r.db.SelectContext(ctx, &events, query,
		sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, at.Add(-span), at.Add(span))
	if err != nil {
		return nil, fmt.Errorf("find estrus near: %w", err)
	}
	return events, nil
}

// FindLatestBefore returns the sow's most recent estrus at or before the
// cutoff. Farrowing rows reference their cycle this way: the litter
// belongs to the last heat before the farrowing date.
func (r *EstrusRepository) FindLatestBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.EstrusEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM estrus_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at <= $4
        ORDER BY estrus_at DESC LIMIT 1`, estrusColumns)
	var event models.EstrusEvent
	if err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, cutoff); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new estrus event.
func (r *EstrusRepository) Create(ctx context.Context, event *models.EstrusEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	event.SowBirthDate = models.DateOnly(event.SowBirthDate)
	const query = `INSERT INTO estrus_events (id, sow_tag, sow_birth_date, sow_farm, estrus_at, pregnant, parity, created_at, updated_at)
        VALUES (:id, :sow_tag, :sow_birth_date, :sow_farm, :estrus_at, :pregnant, :parity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "create estrus")
	}
	return nil
}

// Update overwrites the non-key fields of an existing estrus event.
func (r *EstrusRepository) Update(ctx context.Context, event *models.EstrusEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE estrus_events SET pregnant = :pregnant, parity = :parity, updated_at = :updated_at
        WHERE sow_tag = :sow_tag AND sow_birth_date = :sow_birth_date AND sow_farm = :sow_farm AND estrus_at = :estrus_at`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "update estrus")
	}
	return nil
}

// SetPregnancy patches the pregnancy outcome of an existing estrus. A
// farrowing with live-born piglets retroactively proves the cycle took.
func (r *EstrusRepository) SetPregnancy(ctx context.Context, sow models.AnimalRef, estrusAt time.Time, status models.PregnancyStatus) error {
	const query = `UPDATE estrus_events SET pregnant = $5, updated_at = $6
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at = $4`
	_, err := r.db.ExecContext(ctx, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, estrusAt, status, time.Now().UTC())
	if err != nil {
		return translatePQ(err, "set pregnancy")
	}
	return nil
}
