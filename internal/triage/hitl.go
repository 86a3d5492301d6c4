package triage

import (
	"errors"
	"fmt"
	"time"

	"github.com/david/grant-hunter/internal/models"
)

// DefaultSnoozeHorizon is applied when a snooze request carries no explicit
// snoozed_until.
const DefaultSnoozeHorizon = 24 * time.Hour

var (
	ErrInvalidTransition = errors.New("invalid hitl transition")
	ErrSnoozeInPast      = errors.New("snoozed_until must be in the future")
)

// hitlTransitions enumerates the permitted reviewer moves. A changed mind on
// an approved or rejected record goes back through pending; there is no
// direct approved<->rejected edge.
var hitlTransitions = map[models.HITLStatus][]models.HITLStatus{
	models.HITLPending:  {models.HITLApproved, models.HITLRejected, models.HITLSnoozed},
	models.HITLSnoozed:  {models.HITLApproved, models.HITLRejected, models.HITLSnoozed, models.HITLPending},
	models.HITLApproved: {models.HITLPending},
	models.HITLRejected: {models.HITLPending},
}

// CanTransition reports whether a reviewer may move a record from one HITL
// status to another.
func CanTransition(from, to models.HITLStatus) bool {
	for _, allowed := range hitlTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition (wrapped with detail) when the
// move is not permitted.
func CheckTransition(from, to models.HITLStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// SnoozeUntil resolves the snooze horizon for a request. A nil requested time
// defaults to now plus DefaultSnoozeHorizon; an explicit time must be in the
// future.
func SnoozeUntil(requested *time.Time, now time.Time) (time.Time, error) {
	if requested == nil {
		return now.Add(DefaultSnoozeHorizon), nil
	}
	if !requested.After(now) {
		return time.Time{}, ErrSnoozeInPast
	}
	return *requested, nil
}
