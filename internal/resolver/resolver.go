// Package resolver turns partial, hint-laden animal identifiers into
// unique persisted animals. Farms recycle ear tags across generations, so
// the same tag routinely matches several animals; the resolver narrows by
// whatever hints the row carries and defers genuinely ambiguous cases to
// a caller-supplied decision policy.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jack2012aa/breeding-db-sub000/internal/ident"
	"github.com/jack2012aa/breeding-db-sub000/internal/models"
	"github.com/jack2012aa/breeding-db-sub000/internal/repository"
)

// Status is the outcome of a lookup.
type Status int

const (
	// NotFound means no persisted animal matches.
	NotFound Status = iota
	// Unique means exactly one animal matches.
	Unique
	// Ambiguous means several animals match and no policy decision was
	// applied.
	Ambiguous
)

// String returns a readable status name.
func (s Status) String() string {
	switch s {
	case NotFound:
		return "not found"
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Query describes one lookup. Tag and Farm are required; the rest are
// optional hints. AsOf restricts candidates to animals born strictly
// before the given date: a parent cannot be younger than its offspring
// and a sow cannot be in heat before she existed.
type Query struct {
	Tag       string
	Farm      string
	Gender    *models.Gender
	Breed     *models.Breed
	BirthYear *int
	AsOf      *time.Time
}

// Result carries the lookup outcome. Animal is set iff Status is Unique;
// Candidates is set iff Status is Ambiguous.
type Result struct {
	Status     Status
	Animal     *models.Animal
	Candidates []models.Animal
}

type animalFinder interface {
	Find(ctx context.Context, filter repository.AnimalFilter) ([]models.Animal, error)
}

// Resolver looks up animals against the store.
type Resolver struct {
	animals animalFinder
	logger  *zap.Logger
}

// New constructs a Resolver.
func New(animals animalFinder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{animals: animals, logger: logger}
}

// Resolve performs the lookup without applying any disambiguation policy.
// Candidates come back newest-first.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Result, error) {
	tag := ident.Normalize(q.Tag)
	if tag == "" || q.Farm == "" {
		return Result{Status: NotFound}, nil
	}

	matches, err := r.animals.Find(ctx, repository.AnimalFilter{
		Tag:        tag,
		Farm:       q.Farm,
		Gender:     q.Gender,
		Breed:      q.Breed,
		BirthYear:  q.BirthYear,
		BornBefore: q.AsOf,
	})
	if err != nil {
		return Result{}, fmt.Errorf("resolve %q: %w", tag, err)
	}

	switch len(matches) {
	case 0:
		return Result{Status: NotFound}, nil
	case 1:
		animal := matches[0]
		return Result{Status: Unique, Animal: &animal}, nil
	default:
		r.logger.Debug("ambiguous identifier",
			zap.String("tag", tag),
			zap.String("farm", q.Farm),
			zap.Int("candidates", len(matches)),
		)
		return Result{Status: Ambiguous, Candidates: matches}, nil
	}
}

// ResolveWith performs the lookup and lets the decider settle ambiguous
// results. A "none of the above" decision maps to NotFound.
func (r *Resolver) ResolveWith(ctx context.Context, q Query, decider Decider) (Result, error) {
	result, err := r.Resolve(ctx, q)
	if err != nil || result.Status != Ambiguous {
		return result, err
	}

	idx, err := decider.Choose(ctx, result.Candidates)
	if err != nil {
		return Result{}, fmt.Errorf("choose candidate for %q: %w", q.Tag, err)
	}
	if idx < 0 || idx >= len(result.Candidates) {
		return Result{Status: NotFound}, nil
	}
	animal := result.Candidates[idx]
	return Result{Status: Unique, Animal: &animal}, nil
}
