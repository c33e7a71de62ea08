package resolver

import (
	"context"
	"time"

	"github.com/jack2012aa/breeding-db-sub000/internal/models"
)

// Decider settles the two decisions validation cannot make alone: which
// of several matching animals a row means, and whether a suspect value
// may be auto-repaired. Batch runs plug in fixed policies; interactive
// runs prompt a human. Either way the suspension point lives here, never
// inside validation logic.
type Decider interface {
	// Choose picks a candidate index, or a negative index for "none of
	// the above".
	Choose(ctx context.Context, candidates []models.Animal) (int, error)
	// Confirm approves or rejects a proposed auto-repair, e.g. flipping
	// the sign of a negative count.
	Confirm(ctx context.Context, change string) (bool, error)
}

// NearestBirth picks the candidate born closest to a reference date. Ties
// go to the first candidate found, which is the newest since candidates
// arrive birth-date descending. Repairs are approved.
type NearestBirth struct {
	Reference time.Time
}

// Choose implements Decider.
func (p NearestBirth) Choose(_ context.Context, candidates []models.Animal) (int, error) {
	if len(candidates) == 0 {
		return -1, nil
	}
	best := 0
	bestGap := absGap(p.Reference, candidates[0].BirthDate)
	for i := 1; i < len(candidates); i++ {
		if gap := absGap(p.Reference, candidates[i].BirthDate); gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return best, nil
}

// Confirm implements Decider.
func (p NearestBirth) Confirm(context.Context, string) (bool, error) {
	return true, nil
}

// AutoReject refuses every ambiguous match and every repair. It is the
// safe default for unattended batch runs: questionable rows land in the
// report instead of being guessed at.
type AutoReject struct{}

// Choose implements Decider.
func (AutoReject) Choose(context.Context, []models.Animal) (int, error) {
	return -1, nil
}

// Confirm implements Decider.
func (AutoReject) Confirm(context.Context, string) (bool, error) {
	return false, nil
}

func absGap(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
