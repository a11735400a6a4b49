package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidRequest is returned before any side effect has happened.
	ErrInvalidRequest = errors.New("invalid request")
	ErrLessonNotFound = fmt.Errorf("%w: lesson not found", ErrInvalidRequest)
	ErrCourseNotFound = fmt.Errorf("%w: course not found", ErrInvalidRequest)

	// ErrOrderingInvariant means positions would not have been exactly 1..N
	// after the write. The transaction is rolled back.
	ErrOrderingInvariant = errors.New("lesson ordering invariant violated")
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlstate 23505") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
