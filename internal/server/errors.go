package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrInvalidPhase: the operation is not legal in the session's current
	// phase. Recoverable; the caller retries after the next transition.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")

	// ErrAlreadyBuzzed: the unique (session, player, question) constraint
	// fired. Expected under concurrent load, not a fault.
	ErrAlreadyBuzzed = errors.New("player already buzzed for this question")

	ErrBuzzLocked = errors.New("buzzing is locked")

	ErrUnknownSession   = errors.New("session not found")
	ErrUnknownPlayer    = errors.New("player not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrSaveNotFound     = errors.New("saved session not found")

	// ErrVersionConflict: optimistic-concurrency mismatch on a phase
	// transition. The caller must refetch the snapshot and retry.
	ErrVersionConflict = errors.New("state version conflict")

	// ErrStorageBusy: the store's bounded lock wait expired. Transient;
	// retry with backoff.
	ErrStorageBusy = errors.New("storage busy, retry")

	// ErrIntegrity: option-shuffle verification failed to relocate the
	// correct answer text. The whole replacement aborts.
	ErrIntegrity = errors.New("answer key integrity check failed")
)

// ValidationError rejects a malformed question set or request field. The
// containing operation commits nothing.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite test driver surfaces the raw constraint message
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isStorageBusy(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 55P03 lock_not_available, 57014 query_canceled (lock_timeout)
		return pgErr.Code == "55P03" || pgErr.Code == "57014"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
