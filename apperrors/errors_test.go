package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "not found", err: NotFound("profile not found"), want: KindNotFound},
		{name: "wrapped", err: fmt.Errorf("spend: %w", InsufficientPoints(1, 5)), want: KindInsufficientPoints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromDB(t *testing.T) {
	if FromDB(nil, "x") != nil {
		t.Fatal("FromDB(nil) should be nil")
	}
	if !Is(FromDB(gorm.ErrRecordNotFound, "load profile"), KindNotFound) {
		t.Error("record not found should map to NOT_FOUND")
	}
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !Is(FromDB(dup, "insert vote"), KindConflict) {
		t.Error("unique violation should map to CONFLICT")
	}
	if !Is(FromDB(errors.New("conn reset"), "query"), KindInternal) {
		t.Error("other errors should map to INTERNAL")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := New(KindUpstream, "coingecko", cause)
	if !errors.Is(err, cause) {
		t.Error("AppError should unwrap to its cause")
	}
	if err.Error() != "[UPSTREAM] coingecko: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
}
