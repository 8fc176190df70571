package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad", nil), http.StatusBadRequest},
		{Conflict("COOLDOWN_ACTIVE", "wait"), http.StatusConflict},
		{NotFound("assessment"), http.StatusNotFound},
		{Upstream("llm down", errors.New("boom")), http.StatusBadGateway},
		{Internal(errors.New("db")), http.StatusInternalServerError},
		{Unauthorized("no token"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.err.Kind, tt.want, got)
		}
	}
}

func TestAs_WrappedAndForeign(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", Conflict("ALREADY_SUBMITTED", "dup"))
	if !IsKind(wrapped, KindConflict) {
		t.Fatal("expected wrapped conflict to be detected")
	}
	if got := As(wrapped); got.Code != "ALREADY_SUBMITTED" {
		t.Errorf("expected code ALREADY_SUBMITTED, got %s", got.Code)
	}

	foreign := errors.New("socket closed")
	got := As(foreign)
	if got.Kind != KindInternal {
		t.Errorf("expected internal kind, got %s", got.Kind)
	}
	if !errors.Is(got, foreign) {
		t.Error("expected internal error to unwrap to the original")
	}
}

func TestWithMeta(t *testing.T) {
	err := Conflict("COOLDOWN_ACTIVE", "wait").WithMeta("daysRemaining", 3)
	if err.Meta["daysRemaining"] != 3 {
		t.Fatalf("expected meta to be set, got %v", err.Meta)
	}
}
