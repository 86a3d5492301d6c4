package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Decision is the priority bucket derived from a qualification's total score.
type Decision string

const (
	DecisionPriorityA   Decision = "priority_a"
	DecisionPriorityB   Decision = "priority_b"
	DecisionConditional Decision = "conditional"
	DecisionNoGo        Decision = "no_go"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionPriorityA, DecisionPriorityB, DecisionConditional, DecisionNoGo:
		return Decision(s), nil
	}
	return "", fmt.Errorf("invalid decision %q", s)
}

// HITLStatus is the reviewer state of a scored opportunity.
type HITLStatus string

const (
	HITLPending  HITLStatus = "pending"
	HITLApproved HITLStatus = "approved"
	HITLRejected HITLStatus = "rejected"
	HITLSnoozed  HITLStatus = "snoozed"
)

func ParseHITLStatus(s string) (HITLStatus, error) {
	switch HITLStatus(s) {
	case HITLPending, HITLApproved, HITLRejected, HITLSnoozed:
		return HITLStatus(s), nil
	}
	return "", fmt.Errorf("invalid hitl_status %q", s)
}

// ApplicationStatus is the lifecycle state of a drafted application.
type ApplicationStatus string

const (
	AppDraft      ApplicationStatus = "draft"
	AppInProgress ApplicationStatus = "in_progress"
	AppSubmitted  ApplicationStatus = "submitted"
	AppAwarded    ApplicationStatus = "awarded"
	AppRejected   ApplicationStatus = "rejected"
)

func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	switch ApplicationStatus(s) {
	case AppDraft, AppInProgress, AppSubmitted, AppAwarded, AppRejected:
		return ApplicationStatus(s), nil
	}
	return "", fmt.Errorf("invalid application status %q", s)
}

// SectionNames is the closed set of application content sections.
var SectionNames = []string{"specific_aims", "budget_justification", "logic_model", "narrative"}

func ValidSection(name string) bool {
	for _, s := range SectionNames {
		if s == name {
			return true
		}
	}
	return false
}

// EmptySections returns the initial content map for a fresh application.
func EmptySections() map[string]string {
	sections := make(map[string]string, len(SectionNames))
	for _, s := range SectionNames {
		sections[s] = ""
	}
	return sections
}

// RawOpportunity is an externally-discovered funding opportunity.
// (source, external_id) is unique: re-discovery updates, never duplicates.
type RawOpportunity struct {
	ID          uuid.UUID              `json:"id"`
	Source      string                 `json:"source"`
	ExternalID  string                 `json:"external_id"`
	Title       string                 `json:"title"`
	Agency      string                 `json:"agency"`
	AmountMin   *float64               `json:"amount_min"`
	AmountMax   *float64               `json:"amount_max"`
	AmountText  string                 `json:"amount_text"`
	Currency    string                 `json:"currency"`
	Deadline    *time.Time             `json:"deadline"`
	Description string                 `json:"description"`
	Eligibility string                 `json:"eligibility"`
	SourceURL   string                 `json:"source_url"`
	RawData     map[string]interface{} `json:"raw_data"`
	IsProcessed bool                   `json:"is_processed"`
	Embedding   []float32              `json:"-"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ScoredOpportunity is one user's qualification of a RawOpportunity.
// Unique per (user_id, opportunity_raw_id): re-scoring overwrites.
type ScoredOpportunity struct {
	ID                      uuid.UUID              `json:"id"`
	UserID                  uuid.UUID              `json:"user_id"`
	OpportunityRawID        uuid.UUID              `json:"opportunity_raw_id"`
	StrategicFitScore       int                    `json:"strategic_fit_score"`
	WinProbabilityScore     int                    `json:"win_probability_score"`
	ResourceEfficiencyScore int                    `json:"resource_efficiency_score"`
	StrategicValueScore     int                    `json:"strategic_value_score"`
	BonusPoints             int                    `json:"bonus_points"`
	CapacityPenalty         int                    `json:"capacity_penalty"`
	TotalScore              int                    `json:"total_score"`
	Decision                Decision               `json:"decision"`
	HITLStatus              HITLStatus             `json:"hitl_status"`
	MatchReasons            []string               `json:"match_reasons"`
	Risks                   []string               `json:"risks"`
	ScoringDetails          map[string]interface{} `json:"scoring_details"`
	SnoozedUntil            *time.Time             `json:"snoozed_until"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
	Raw                     *RawOpportunity        `json:"opportunity_raw,omitempty"`
}

// Actionable reports whether the record should surface in the review inbox:
// pending, or snoozed with an elapsed snooze horizon. Snooze expiry is a
// derived query, never a status write.
func (s *ScoredOpportunity) Actionable(now time.Time) bool {
	switch s.HITLStatus {
	case HITLPending:
		return true
	case HITLSnoozed:
		return s.SnoozedUntil == nil || s.SnoozedUntil.Before(now)
	}
	return false
}

// Application is a drafted submission tied to one approved ScoredOpportunity.
type Application struct {
	ID                  uuid.UUID          `json:"id"`
	UserID              uuid.UUID          `json:"user_id"`
	OpportunityScoredID uuid.UUID          `json:"opportunity_scored_id"`
	Status              ApplicationStatus  `json:"status"`
	ContentSections     map[string]string  `json:"content_sections"`
	TeamMembers         []string           `json:"team_members"`
	Notes               string             `json:"notes"`
	SubmittedAt         *time.Time         `json:"submitted_at"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
	Scored              *ScoredOpportunity `json:"opportunity_scored,omitempty"`
}

// CompanyProfile is the read-only scoring context for a user's organization.
type CompanyProfile struct {
	ID                   uuid.UUID `json:"id"`
	UserID               uuid.UUID `json:"user_id"`
	Sectors              []string  `json:"sectors"`
	Keywords             []string  `json:"keywords"`
	CostShareCapacity    string    `json:"cost_share_capacity"`
	GeographicPriorities []string  `json:"geographic_priorities"`
	ActiveProposalCount  int       `json:"active_proposal_count"`
	TeamCredentials      string    `json:"team_credentials"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// User is an authenticated account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
