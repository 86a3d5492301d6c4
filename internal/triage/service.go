package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/david/grant-hunter/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("operation requires an authenticated user")

	// ErrApplicationCreateFailed signals that a record was approved but its
	// draft application could not be created. The approval is not rolled
	// back; a retried approval repairs the missing application.
	ErrApplicationCreateFailed = errors.New("application creation failed after approval; retry to repair")
)

// Store is the persistence surface the triage service needs. All reads and
// writes are scoped to the owning user.
type Store interface {
	GetScoredOpportunity(ctx context.Context, userID, id uuid.UUID) (*models.ScoredOpportunity, error)
	ListScoredOpportunities(ctx context.Context, userID uuid.UUID) ([]models.ScoredOpportunity, error)
	UpdateHITLStatus(ctx context.Context, userID, id uuid.UUID, status models.HITLStatus, snoozedUntil *time.Time) error
	CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error)
	GetApplicationForScored(ctx context.Context, userID, scoredID uuid.UUID) (*models.Application, error)
	GetApplication(ctx context.Context, userID, id uuid.UUID) (*models.Application, error)
	UpdateApplicationSections(ctx context.Context, userID, id uuid.UUID, sections map[string]string) error
	UpdateApplicationStatus(ctx context.Context, userID, id uuid.UUID, status models.ApplicationStatus, submittedAt *time.Time) error
}

// DraftContext is the fixed context handed to the draft-generation
// collaborator: opportunity title, agency, amount and deadline.
type DraftContext struct {
	Title    string
	Agency   string
	Amount   string
	Deadline string
}

// DraftWriter generates free text for one application section.
type DraftWriter interface {
	WriteSection(ctx context.Context, section string, dc DraftContext) (string, error)
}

// Service drives the review inbox and the application pipeline.
type Service struct {
	store  Store
	drafts DraftWriter
	now    func() time.Time
}

func NewService(store Store, drafts DraftWriter) *Service {
	return &Service{store: store, drafts: drafts, now: time.Now}
}

// Approve flips a reviewable record to approved and creates its draft
// application as a single unit of work. A retried approval of an
// already-approved record returns the existing application, or creates the
// missing one if the first attempt failed between the two writes.
func (s *Service) Approve(ctx context.Context, userID, scoredID uuid.UUID) (*models.Application, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	opp, err := s.store.GetScoredOpportunity(ctx, userID, scoredID)
	if err != nil {
		return nil, err
	}

	if opp.HITLStatus == models.HITLApproved {
		existing, err := s.store.GetApplicationForScored(ctx, userID, scoredID)
		if err == nil && existing != nil {
			return existing, nil
		}
		// Approved but no application: the previous approval failed halfway.
		return s.createApplication(ctx, userID, scoredID)
	}

	if err := CheckTransition(opp.HITLStatus, models.HITLApproved); err != nil {
		return nil, err
	}
	if err := s.store.UpdateHITLStatus(ctx, userID, scoredID, models.HITLApproved, nil); err != nil {
		return nil, err
	}

	return s.createApplication(ctx, userID, scoredID)
}

func (s *Service) createApplication(ctx context.Context, userID, scoredID uuid.UUID) (*models.Application, error) {
	app := &models.Application{
		UserID:              userID,
		OpportunityScoredID: scoredID,
		Status:              models.AppDraft,
		ContentSections:     models.EmptySections(),
	}
	created, err := s.store.CreateApplication(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrApplicationCreateFailed, err)
	}
	return created, nil
}

// Reject marks a reviewable record as rejected.
func (s *Service) Reject(ctx context.Context, userID, scoredID uuid.UUID) error {
	return s.transition(ctx, userID, scoredID, models.HITLRejected, nil)
}

// Reopen returns a decided record to pending for a new review pass.
func (s *Service) Reopen(ctx context.Context, userID, scoredID uuid.UUID) error {
	return s.transition(ctx, userID, scoredID, models.HITLPending, nil)
}

// Snooze hides a record from the inbox until the given time (default
// now+24h). Expired snoozes surface again through the actionable query.
func (s *Service) Snooze(ctx context.Context, userID, scoredID uuid.UUID, requested *time.Time) (time.Time, error) {
	until, err := SnoozeUntil(requested, s.now())
	if err != nil {
		return time.Time{}, err
	}
	if err := s.transition(ctx, userID, scoredID, models.HITLSnoozed, &until); err != nil {
		return time.Time{}, err
	}
	return until, nil
}

func (s *Service) transition(ctx context.Context, userID, scoredID uuid.UUID, target models.HITLStatus, snoozedUntil *time.Time) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}
	opp, err := s.store.GetScoredOpportunity(ctx, userID, scoredID)
	if err != nil {
		return err
	}
	if err := CheckTransition(opp.HITLStatus, target); err != nil {
		return err
	}
	return s.store.UpdateHITLStatus(ctx, userID, scoredID, target, snoozedUntil)
}

// Metrics folds the user's scored opportunities into dashboard counts.
func (s *Service) Metrics(ctx context.Context, userID uuid.UUID) (Metrics, error) {
	opps, err := s.store.ListScoredOpportunities(ctx, userID)
	if err != nil {
		return Metrics{}, err
	}
	return ComputeMetrics(opps), nil
}

// UpdateSections writes content sections onto an application. Every section
// name is validated against the fixed set before anything is persisted.
func (s *Service) UpdateSections(ctx context.Context, userID, appID uuid.UUID, sections map[string]string) (*models.Application, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	app, err := s.store.GetApplication(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	for name, text := range sections {
		if err := SetSection(app, name, text); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateApplicationSections(ctx, userID, appID, app.ContentSections); err != nil {
		return nil, err
	}
	return app, nil
}

// AdvanceStatus applies a lifecycle transition. SubmittedAt is stamped on the
// first entry into submitted and preserved forever after.
func (s *Service) AdvanceStatus(ctx context.Context, userID, appID uuid.UUID, target models.ApplicationStatus) (*models.Application, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	app, err := s.store.GetApplication(ctx, userID, appID)
	if err != nil {
		return nil, err
	}

	before := app.Status
	if err := AdvanceApplication(app, target, s.now()); err != nil {
		return nil, err
	}
	if app.Status == before && target == before {
		// Idempotent repeat; nothing to persist.
		return app, nil
	}
	if err := s.store.UpdateApplicationStatus(ctx, userID, appID, app.Status, app.SubmittedAt); err != nil {
		return nil, err
	}
	return app, nil
}

// GenerateDraft asks the draft collaborator for one section's text and stores
// it verbatim. Unknown sections are rejected before the collaborator call.
func (s *Service) GenerateDraft(ctx context.Context, userID, appID uuid.UUID, section string) (string, error) {
	if userID == uuid.Nil {
		return "", ErrNotAuthenticated
	}
	if !models.ValidSection(section) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	app, err := s.store.GetApplication(ctx, userID, appID)
	if err != nil {
		return "", err
	}

	dc := DraftContext{}
	if app.Scored != nil && app.Scored.Raw != nil {
		raw := app.Scored.Raw
		dc.Title = raw.Title
		dc.Agency = raw.Agency
		dc.Amount = raw.AmountText
		if raw.Deadline != nil {
			dc.Deadline = raw.Deadline.Format(time.RFC3339)
		}
	}

	text, err := s.drafts.WriteSection(ctx, section, dc)
	if err != nil {
		return "", fmt.Errorf("draft generation: %w", err)
	}

	if err := SetSection(app, section, text); err != nil {
		return "", err
	}
	if err := s.store.UpdateApplicationSections(ctx, userID, appID, app.ContentSections); err != nil {
		return "", err
	}
	return text, nil
}
