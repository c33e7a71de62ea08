package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// FarrowingRepository manages persistence for farrowing events.
type FarrowingRepository struct {
	db *sqlx.DB
}

// NewFarrowingRepository constructs a FarrowingRepository.
func NewFarrowingRepository(db *sqlx.DB) *FarrowingRepository {
	return &FarrowingRepository{db: db}
}

const farrowingColumns = `id, sow_tag, sow_birth_date, sow_farm, estrus_at, farrowed_on, litter_id,
        crushed, black, weak, malformed, dead, born_male, born_female, total_weight, note, created_at, updated_at`

// FindByEstrus fetches the farrowing concluding one estrus cycle. There
// is at most one.
func (r *FarrowingRepository) FindByEstrus(ctx context.Context, sow models.AnimalRef, estrusAt time.Time) (*models.FarrowingEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM farrowing_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND estrus_at = $4`, farrowingColumns)
	var event models.FarrowingEvent
	if err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, estrusAt); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindBySowOn fetches the farrowing a sow delivered on a given date.
// Weaning and individual rows reference their litter this way.
func (r *FarrowingRepository) FindBySowOn(ctx context.Context, sow models.AnimalRef, farrowedOn time.Time) (*models.FarrowingEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM farrowing_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND farrowed_on = $4`, farrowingColumns)
	var event models.FarrowingEvent
	err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, models.DateOnly(farrowedOn))
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// FindBySowLitter fetches a litter by the farm's running litter sequence
// for the sow. Individual rows reference their litter this way.
func (r *FarrowingRepository) FindBySowLitter(ctx context.Context, sow models.AnimalRef, litterID int) (*models.FarrowingEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM farrowing_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND litter_id = $4
        ORDER BY farrowed_on DESC LIMIT 1`, farrowingColumns)
	var event models.FarrowingEvent
	err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, litterID)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// FindLatestBySowBefore fetches the sow's most recent farrowing at or
// before the cutoff. Weaning rows reference their litter this way: the
// weaned litter is the last one farrowed before the weaning date.
func (r *FarrowingRepository) FindLatestBySowBefore(ctx context.Context, sow models.AnimalRef, cutoff time.Time) (*models.FarrowingEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM farrowing_events
        WHERE sow_tag = $1 AND sow_birth_date = $2 AND sow_farm = $3 AND farrowed_on <= $4
        ORDER BY farrowed_on DESC LIMIT 1`, farrowingColumns)
	var event models.FarrowingEvent
	err := r.db.GetContext(ctx, &event, query, sow.Tag, models.DateOnly(sow.BirthDate), sow.Farm, models.DateOnly(cutoff))
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new farrowing event.
func (r *FarrowingRepository) Create(ctx context.Context, event *models.FarrowingEvent) error {
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
	const query = `INSERT INTO farrowing_events (id, sow_tag, sow_birth_date, sow_farm, estrus_at, farrowed_on, litter_id,
        crushed, black, weak, malformed, dead, born_male, born_female, total_weight, note, created_at, updated_at)
        VALUES (:id, :sow_tag, :sow_birth_date, :sow_farm, :estrus_at, :farrowed_on, :litter_id,
        :crushed, :black, :weak, :malformed, :dead, :born_male, :born_female, :total_weight, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "create farrowing")
	}
	return nil
}

// Update overwrites the non-key fields of an existing farrowing event.
func (r *FarrowingRepository) Update(ctx context.Context, event *models.FarrowingEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE farrowing_events SET litter_id = :litter_id, crushed = :crushed, black = :black, weak = :weak,
        malformed = :malformed, dead = :dead, born_male = :born_male, born_female = :born_female,
        total_weight = :total_weight, note = :note, updated_at = :updated_at
        WHERE sow_tag = :sow_tag AND sow_birth_date = :sow_birth_date AND sow_farm = :sow_farm AND estrus_at = :estrus_at`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return translatePQ(err, "update farrowing")
	}
	return nil
}
