package apperrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalid            Kind = "INVALID"
	KindInsufficientPoints Kind = "INSUFFICIENT_POINTS"
	KindConflict           Kind = "CONFLICT"
	KindUpstream           Kind = "UPSTREAM"
	KindUnavailable        Kind = "UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *AppError { return New(KindNotFound, message, nil) }
func Invalid(message string) *AppError { return New(KindInvalid, message, nil) }
func Conflict(message string) *AppError { return New(KindConflict, message, nil) }
func Unavailable(message string) *AppError { return New(KindUnavailable, message, nil) }
func InsufficientPoints(have, want int64) *AppError {
	return New(KindInsufficientPoints, fmt.Sprintf("insufficient points: have %d, need %d", have, want), nil)
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromDB classifies a gorm/pgx error. message describes the failed operation.
func FromDB(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return New(KindNotFound, message, err)
	}
	if IsUniqueViolation(err) {
		return New(KindConflict, message, err)
	}
	return New(KindInternal, message, err)
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
