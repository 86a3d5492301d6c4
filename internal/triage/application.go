package triage

import (
	"errors"
	"fmt"
	"time"

	"github.com/david/grant-hunter/internal/models"
)

var (
	ErrInvalidStatusChange = errors.New("invalid application status change")
	ErrUnknownSection      = errors.New("unknown content section")
)

// appTransitions enumerates forward-only lifecycle moves. Awarded and
// rejected are terminal and only reachable from submitted, which keeps the
// submitted_at invariant intact.
var appTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.AppDraft:      {models.AppInProgress, models.AppSubmitted},
	models.AppInProgress: {models.AppSubmitted},
	models.AppSubmitted:  {models.AppAwarded, models.AppRejected},
}

// AdvanceApplication applies a caller-driven status change to the
// application. Entering submitted stamps SubmittedAt exactly once; it is
// never cleared or overwritten afterwards. Repeating the current status is an
// idempotent no-op.
func AdvanceApplication(app *models.Application, target models.ApplicationStatus, now time.Time) error {
	if app.Status == target {
		return nil
	}

	allowed := false
	for _, next := range appTransitions[app.Status] {
		if next == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, app.Status, target)
	}

	app.Status = target
	if target == models.AppSubmitted && app.SubmittedAt == nil {
		t := now
		app.SubmittedAt = &t
	}
	return nil
}

// SetSection writes one content section, rejecting identifiers outside the
// fixed set before any collaborator call or store write.
func SetSection(app *models.Application, section, text string) error {
	if !models.ValidSection(section) {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if app.ContentSections == nil {
		app.ContentSections = models.EmptySections()
	}
	app.ContentSections[section] = text
	return nil
}
