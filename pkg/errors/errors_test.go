package errors

import (
	stderrors "errors"
	"net/http"
	"testing"
)

func TestWithDetailDoesNotMutateShared(t *testing.T) {
	a := ErrStageBlocked.WithDetail("first caller")
	b := ErrStageBlocked.WithDetail("second caller")

	if ErrStageBlocked.Detail != "" {
		t.Errorf("shared error mutated: %q", ErrStageBlocked.Detail)
	}
	if a.Detail != "first caller" || b.Detail != "second caller" {
		t.Errorf("details = %q, %q", a.Detail, b.Detail)
	}
	if a.Code != ErrStageBlocked.Code || a.HTTPStatus != ErrStageBlocked.HTTPStatus {
		t.Error("copy must keep code and status")
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeDatabaseError, "query failed")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause must be reachable via errors.Is")
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d", err.HTTPStatus)
	}
}

func TestAsAppError(t *testing.T) {
	if got := AsAppError(ErrProjectNotFound); got != ErrProjectNotFound {
		t.Error("AppError must pass through unchanged")
	}

	plain := stderrors.New("boom")
	wrapped := AsAppError(plain)
	if wrapped.Code != CodeUnknown {
		t.Errorf("Code = %s, want %s", wrapped.Code, CodeUnknown)
	}
	if !stderrors.Is(wrapped, plain) {
		t.Error("original error must be preserved")
	}

	if IsAppError(plain) {
		t.Error("plain error is not an AppError")
	}
	if !IsAppError(wrapped) {
		t.Error("wrapped error is an AppError")
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeStageBlocked, http.StatusBadRequest},
		{CodeProjectNotFound, http.StatusNotFound},
		{CodeBatchInFlight, http.StatusConflict},
		{CodeUnconfiguredModel, http.StatusUnprocessableEntity},
		{CodeTooManyRequests, http.StatusTooManyRequests},
		{CodeLLMProviderError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := New(tt.code, "x").HTTPStatus; got != tt.want {
			t.Errorf("code %s status = %d, want %d", tt.code, got, tt.want)
		}
	}
}
