package triage

import (
	"errors"
	"testing"
	"time"

	"github.com/david/grant-hunter/internal/models"
)

func TestAdvanceApplication_ForwardOnly(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	app := &models.Application{Status: models.AppDraft}
	if err := AdvanceApplication(app, models.AppInProgress, now); err != nil {
		t.Fatalf("draft -> in_progress: %v", err)
	}
	if err := AdvanceApplication(app, models.AppDraft, now); !errors.Is(err, ErrInvalidStatusChange) {
		t.Fatalf("expected backward move rejected, got %v", err)
	}
	if err := AdvanceApplication(app, models.AppAwarded, now); !errors.Is(err, ErrInvalidStatusChange) {
		t.Fatalf("awarded must only follow submitted, got %v", err)
	}
}

func TestAdvanceApplication_SubmittedAtSetOnce(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	later := now.Add(48 * time.Hour)

	app := &models.Application{Status: models.AppInProgress}
	if err := AdvanceApplication(app, models.AppSubmitted, now); err != nil {
		t.Fatalf("in_progress -> submitted: %v", err)
	}
	if app.SubmittedAt == nil || !app.SubmittedAt.Equal(now) {
		t.Fatalf("expected submitted_at=%s, got %v", now, app.SubmittedAt)
	}

	// Repeat submission is an idempotent no-op on state and timestamp.
	if err := AdvanceApplication(app, models.AppSubmitted, later); err != nil {
		t.Fatalf("repeat submit: %v", err)
	}
	if !app.SubmittedAt.Equal(now) {
		t.Fatalf("submitted_at changed on repeat submit: %v", app.SubmittedAt)
	}

	if err := AdvanceApplication(app, models.AppAwarded, later); err != nil {
		t.Fatalf("submitted -> awarded: %v", err)
	}
	if !app.SubmittedAt.Equal(now) {
		t.Fatalf("submitted_at must survive terminal transition: %v", app.SubmittedAt)
	}
}

func TestAdvanceApplication_TerminalStates(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	for _, terminal := range []models.ApplicationStatus{models.AppAwarded, models.AppRejected} {
		app := &models.Application{Status: terminal}
		if err := AdvanceApplication(app, models.AppSubmitted, now); !errors.Is(err, ErrInvalidStatusChange) {
			t.Fatalf("%s must be terminal, got %v", terminal, err)
		}
	}
}

func TestSetSection_RejectsUnknown(t *testing.T) {
	app := &models.Application{}
	if err := SetSection(app, "cover_letter", "text"); !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
	if err := SetSection(app, "specific_aims", "Aim 1."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ContentSections["specific_aims"] != "Aim 1." {
		t.Fatalf("section not stored verbatim: %v", app.ContentSections)
	}
	// The initializer must pre-create all four fixed sections.
	if len(app.ContentSections) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(app.ContentSections))
	}
}
