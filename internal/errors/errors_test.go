package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "run not found",
			},
			want: "run not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "finish run",
				Cause:   errors.New("connection reset"),
			},
			want: "finish run: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
	}{
		{name: "not found", err: NotFound("x"), wantCode: ErrCodeNotFound},
		{name: "conflict", err: Conflict("x"), wantCode: ErrCodeConflict},
		{name: "validation", err: Validation("x"), wantCode: ErrCodeValidation},
		{name: "internal", err: Internal("x"), wantCode: ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != "x" {
				t.Errorf("Message = %v, want x", tt.err.Message)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("lock_ttl", "must be at least 60 seconds")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "lock_ttl" {
		t.Errorf("ValidationField().Field = %v, want lock_ttl", err.Field)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(cause, ErrCodeInternal, "acquire lock")

	if err.Code != ErrCodeInternal {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeInternal)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrap() should preserve the cause chain")
	}

	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeConflict, "finish run %s", "r-1")
	if err.Message != "finish run r-1" {
		t.Errorf("Wrapf().Message = %v", err.Message)
	}
	if Wrapf(nil, ErrCodeConflict, "x") != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestIsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Conflict("dup"))

	if !IsConflict(wrapped) {
		t.Error("IsConflict should see through wrapping")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound should be false for a conflict")
	}
	if IsConflict(errors.New("plain")) {
		t.Error("IsConflict should be false for plain errors")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(NotFound("x")); got != ErrCodeNotFound {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeNotFound)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}
