package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/david/grant-hunter/internal/db"
	"github.com/david/grant-hunter/internal/triage"
)

func TestMapTriageErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", db.ErrNotFound, http.StatusNotFound},
		{"invalid hitl transition", triage.ErrInvalidTransition, http.StatusConflict},
		{"invalid status change", triage.ErrInvalidStatusChange, http.StatusConflict},
		{"snooze in past", triage.ErrSnoozeInPast, http.StatusBadRequest},
		{"unknown section", triage.ErrUnknownSection, http.StatusBadRequest},
		{"not authenticated", triage.ErrNotAuthenticated, http.StatusUnauthorized},
		{"application create failed", triage.ErrApplicationCreateFailed, http.StatusServiceUnavailable},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), triage.ErrInvalidTransition), http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			if err := mapTriageErr(c, tt.err); err != nil {
				t.Fatalf("mapTriageErr returned error: %v", err)
			}
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	s := &Server{Echo: e}
	if err := s.handleHealth(c); err != nil {
		t.Fatalf("health: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
