package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMapStorageClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{
			name: "record_not_found",
			err:  gorm.ErrRecordNotFound,
			want: CodeNotFound,
		},
		{
			name: "wrapped_record_not_found",
			err:  fmt.Errorf("load account: %w", gorm.ErrRecordNotFound),
			want: CodeNotFound,
		},
		{
			name: "unique_violation",
			err:  &pgconn.PgError{Code: "23505"},
			want: CodeConflict,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: CodeStorageFailure,
		},
		{
			name: "deadlock",
			err:  &pgconn.PgError{Code: "40P01"},
			want: CodeStorageFailure,
		},
		{
			name: "sqlite_busy_message",
			err:  errors.New("database is locked"),
			want: CodeStorageFailure,
		},
		{
			name: "duplicate_key_message",
			err:  errors.New("ERROR: duplicate key value violates unique constraint"),
			want: CodeConflict,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: CodeInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapStorage("test.op", tc.err)
			if CodeOf(got) != tc.want {
				t.Fatalf("MapStorage(%v) code = %s, want %s", tc.err, CodeOf(got), tc.want)
			}
		})
	}
}

func TestMapStoragePreservesFaultErrors(t *testing.T) {
	orig := New(CodeInsufficientCredits, "credits.debit", "balance below amount", nil)
	got := MapStorage("outer.op", orig)
	if got != orig {
		t.Fatalf("MapStorage rewrapped an existing fault error: %v", got)
	}
}

func TestMapStorageNil(t *testing.T) {
	if got := MapStorage("op", nil); got != nil {
		t.Fatalf("MapStorage(nil) = %v, want nil", got)
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := New(CodeInvalidAmount, "credits.credit", "amount must be positive", nil)
	wrapped := fmt.Errorf("purchase: %w", err)
	if !IsCode(wrapped, CodeInvalidAmount) {
		t.Fatalf("IsCode failed to see through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, CodeInsufficientCredits) {
		t.Fatalf("IsCode matched the wrong code")
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: CodeAccountNotFound, Op: "ledger.balance", Message: "no account row"}
	want := "ledger.balance: no account row (account_not_found)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(CodeStorageFailure, "op", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is failed to reach the cause through fault.Error")
	}
	if !Retryable(err) {
		t.Fatalf("storage failures should be retryable")
	}
}
