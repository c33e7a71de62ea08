// Package repository persists breeding records in PostgreSQL. Every
// repository follows the same contract: reads return sql.ErrNoRows
// untouched, writes translate the driver's integrity codes into the
// domain sentinels so callers can branch on duplicate keys and missing
// parents without knowing about pq.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translatePQ maps PostgreSQL integrity violations onto domain errors.
func translatePQ(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperrors.Wrap(err, apperrors.ErrDuplicateKey.Code, fmt.Sprintf("%s: duplicate key", op))
		case pqForeignKeyViolation:
			return apperrors.Wrap(err, apperrors.ErrMissingReference.Code, fmt.Sprintf("%s: missing referenced record", op))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func joinAnd(conditions []string) string {
	return strings.Join(conditions, " AND ")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
