package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/StackForge/internal/domain"
)

const (
	// pgUniqueViolation is the SQLSTATE for unique constraint violations.
	pgUniqueViolation = "23505"
	// pgInvalidText is raised when an id is not a valid uuid.
	pgInvalidText = "22P02"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// nullIfEmpty returns nil for empty strings (for nullable columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullIfZero returns nil for zero ids (for nullable BIGINT columns).
func nullIfZero(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
// Useful to ensure JSON serialization produces [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// isMissing reports whether err means the addressed row cannot exist:
// no rows, or an id that is not a uuid.
func isMissing(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidText
}

// notFoundWrap checks whether err is pgx.ErrNoRows or a malformed id and,
// if so, wraps domain.ErrNotFound with the given message. Otherwise it wraps
// the original error.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isMissing(err) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execExpectOne verifies that an Exec affected exactly one row. If not
// (and err is nil), it returns domain.ErrNotFound with the given message.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	if err != nil && !isMissing(err) {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
	}
	if err != nil || tag.RowsAffected() == 0 {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", domain.ErrNotFound)
	}
	return nil
}

// uniqueWrap maps a unique violation onto domain.ErrValidation.
func uniqueWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: already exists: %w", msg, domain.ErrValidation)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
