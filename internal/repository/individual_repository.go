package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// IndividualRepository manages persistence for individual piglets.
type IndividualRepository struct {
	db *sqlx.DB
}

// NewIndividualRepository constructs an IndividualRepository.
func NewIndividualRepository(db *sqlx.DB) *IndividualRepository {
	return &IndividualRepository{db: db}
}

const individualColumns = `id, birth_sow_tag, birth_sow_birth_date, birth_sow_farm, birth_farrowed_on,
        nurse_sow_tag, nurse_sow_birth_date, nurse_sow_farm, nurse_farrowed_on,
        in_litter_id, gender, birth_weight, weaning_weight, created_at, updated_at`

// FindByKey fetches the piglet with the exact uniqueness key: birth
// litter plus in-litter sequence id.
func (r *IndividualRepository) FindByKey(ctx context.Context, birthSow models.AnimalRef, farrowedOn time.Time, inLitterID int) (*models.Individual, error) {
	query := fmt.Sprintf(`SELECT %s FROM individuals
        WHERE birth_sow_tag = $1 AND birth_sow_birth_date = $2 AND birth_sow_farm = $3
        AND birth_farrowed_on = $4 AND in_litter_id = $5`, individualColumns)
	var individual models.Individual
	err := r.db.GetContext(ctx, &individual, query,
		birthSow.Tag, models.DateOnly(birthSow.BirthDate), birthSow.Farm, models.DateOnly(farrowedOn), inLitterID)
	if err != nil {
		return nil, err
	}
	return &individual, nil
}

// Create inserts a new individual.
func (r *IndividualRepository) Create(ctx context.Context, individual *models.Individual) error {
	if individual.ID == "" {
		individual.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if individual.CreatedAt.IsZero() {
		individual.CreatedAt = now
	}
	individual.UpdatedAt = now
	individual.BirthSowBirthDate = models.DateOnly(individual.BirthSowBirthDate)
	individual.BirthFarrowedOn = models.DateOnly(individual.BirthFarrowedOn)
	const query = `INSERT INTO individuals (id, birth_sow_tag, birth_sow_birth_date, birth_sow_farm, birth_farrowed_on,
        nurse_sow_tag, nurse_sow_birth_date, nurse_sow_farm, nurse_farrowed_on,
        in_litter_id, gender, birth_weight, weaning_weight, created_at, updated_at)
        VALUES (:id, :birth_sow_tag, :birth_sow_birth_date, :birth_sow_farm, :birth_farrowed_on,
        :nurse_sow_tag, :nurse_sow_birth_date, :nurse_sow_farm, :nurse_farrowed_on,
        :in_litter_id, :gender, :birth_weight, :weaning_weight, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, individual); err != nil {
		return translatePQ(err, "create individual")
	}
	return nil
}

// Update overwrites the non-key fields of an existing individual.
func (r *IndividualRepository) Update(ctx context.Context, individual *models.Individual) error {
	individual.UpdatedAt = time.Now().UTC()
	const query = `UPDATE individuals SET nurse_sow_tag = :nurse_sow_tag, nurse_sow_birth_date = :nurse_sow_birth_date,
        nurse_sow_farm = :nurse_sow_farm, nurse_farrowed_on = :nurse_farrowed_on,
        gender = :gender, birth_weight = :birth_weight, weaning_weight = :weaning_weight, updated_at = :updated_at
        WHERE birth_sow_tag = :birth_sow_tag AND birth_sow_birth_date = :birth_sow_birth_date
        AND birth_sow_farm = :birth_sow_farm AND birth_farrowed_on = :birth_farrowed_on AND in_litter_id = :in_litter_id`
	if _, err := r.db.NamedExecContext(ctx, query, individual); err != nil {
		return translatePQ(err, "update individual")
	}
	return nil
}
