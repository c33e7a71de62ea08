package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// AnimalFilter narrows an animal lookup. Tag and Farm are required;
// everything else is an optional hint extracted from composite
// identifiers.
type AnimalFilter struct {
	Tag        string
	Farm       string
	Gender     *models.Gender
	Breed      *models.Breed
	BirthYear  *int
	BornBefore *time.Time
}

// AnimalRepository manages persistence for animals.
type AnimalRepository struct {
	db *sqlx.DB
}

// NewAnimalRepository constructs an AnimalRepository.
func NewAnimalRepository(db *sqlx.DB) *AnimalRepository {
	return &AnimalRepository{db: db}
}

const animalColumns = `id, breed, tag, birth_date, farm, reg_number, gender, nickname,
        sire_tag, sire_birth_date, sire_farm, dam_tag, dam_birth_date, dam_farm, created_at, updated_at`

// Find returns animals matching the filter, newest first. Newest-first
// matters: farms recycle ear tags across generations, and the most recent
// holder is almost always the one a row refers to.
func (r *AnimalRepository) Find(ctx context.Context, filter AnimalFilter) ([]models.Animal, error) {
	conditions := []string{"tag = $1", "farm = $2"}
	args := []interface{}{filter.Tag, filter.Farm}

	if filter.Gender != nil {
		conditions = append(conditions, fmt.Sprintf("gender = $%d", len(args)+1))
		args = append(args, *filter.Gender)
	}
	if filter.Breed != nil {
		conditions = append(conditions, fmt.Sprintf("breed = $%d", len(args)+1))
		args = append(args, *filter.Breed)
	}
	if filter.BirthYear != nil {
		conditions = append(conditions, fmt.Sprintf("birth_date >= $%d", len(args)+1))
		args = append(args, time.Date(*filter.BirthYear, 1, 1, 0, 0, 0, 0, time.UTC))
		conditions = append(conditions, fmt.Sprintf("birth_date <= $%d", len(args)+1))
		args = append(args, time.Date(*filter.BirthYear, 12, 31, 0, 0, 0, 0, time.UTC))
	}
	if filter.BornBefore != nil {
		conditions = append(conditions, fmt.Sprintf("birth_date < $%d", len(args)+1))
		args = append(args, *filter.BornBefore)
	}

	query := fmt.Sprintf("SELECT %s FROM animals WHERE %s ORDER BY birth_date DESC", animalColumns, joinAnd(conditions))

	var animals []models.Animal
	if err := r.db.SelectContext(ctx, &animals, query, args...); err != nil {
		return nil, fmt.Errorf("find animals: %w", err)
	}
	return animals, nil
}

// FindByKey fetches the animal holding the exact uniqueness triple.
func (r *AnimalRepository) FindByKey(ctx context.Context, ref models.AnimalRef) (*models.Animal, error) {
	query := fmt.Sprintf("SELECT %s FROM animals WHERE tag = $1 AND birth_date = $2 AND farm = $3", animalColumns)
	var animal models.Animal
	if err := r.db.GetContext(ctx, &animal, query, ref.Tag, models.DateOnly(ref.BirthDate), ref.Farm); err != nil {
		return nil, err
	}
	return &animal, nil
}

// ExistsByRegNumber checks whether a registration number is already
// taken. Registration numbers are globally unique across farms.
func (r *AnimalRepository) ExistsByRegNumber(ctx context.Context, regNumber string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM animals WHERE reg_number = $1"
	args := []interface{}{regNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check reg number: %w", err)
	}
	return true, nil
}

// Create inserts a new animal.
func (r *AnimalRepository) Create(ctx context.Context, animal *models.Animal) error {
	if animal.ID == "" {
		animal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if animal.CreatedAt.IsZero() {
		animal.CreatedAt = now
	}
	animal.UpdatedAt = now
	animal.BirthDate = models.DateOnly(animal.BirthDate)
	const query = `INSERT INTO animals (id, breed, tag, birth_date, farm, reg_number, gender, nickname,
        sire_tag, sire_birth_date, sire_farm, dam_tag, dam_birth_date, dam_farm, created_at, updated_at)
        VALUES (:id, :breed, :tag, :birth_date, :farm, :reg_number, :gender, :nickname,
        :sire_tag, :sire_birth_date, :sire_farm, :dam_tag, :dam_birth_date, :dam_farm, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, animal); err != nil {
		return translatePQ(err, "create animal")
	}
	return nil
}

// Update overwrites the non-key fields of an existing animal. The
// uniqueness triple is immutable once persisted.
func (r *AnimalRepository) Update(ctx context.Context, animal *models.Animal) error {
	animal.UpdatedAt = time.Now().UTC()
	const query = `UPDATE animals SET breed = :breed, reg_number = :reg_number, gender = :gender, nickname = :nickname,
        sire_tag = :sire_tag, sire_birth_date = :sire_birth_date, sire_farm = :sire_farm,
        dam_tag = :dam_tag, dam_birth_date = :dam_birth_date, dam_farm = :dam_farm, updated_at = :updated_at
        WHERE tag = :tag AND birth_date = :birth_date AND farm = :farm`
	if _, err := r.db.NamedExecContext(ctx, query, animal); err != nil {
		return translatePQ(err, "update animal")
	}
	return nil
}
