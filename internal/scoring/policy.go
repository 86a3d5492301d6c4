package scoring

import (
	"fmt"
	"strings"

	"github.com/david/grant-hunter/internal/models"
)

// Component score ceilings. The four maxima sum to a nominal 100-point scale;
// bonuses can push totals past it (see overScaleRisk).
const (
	MaxStrategicFit       = 40
	MaxWinProbability     = 30
	MaxResourceEfficiency = 20
	MaxStrategicValue     = 10
)

// Decision thresholds on total_score. Boundaries are closed design constants:
// 85 is priority_a, 70 is priority_b, 55 is conditional, 54 is no_go.
const (
	PriorityAThreshold   = 85
	PriorityBThreshold   = 70
	ConditionalThreshold = 55
)

// Bonus and penalty amounts.
const (
	IntersectionalBonus = 20
	LargeAwardBonus     = 10
	CapacityPenalty     = -15

	// LargeAwardThreshold pairs with a sub-25% cost-share requirement for
	// the +10 bonus.
	LargeAwardThreshold = 5_000_000

	// CapacityCeiling is the number of in-flight unsubmitted proposals above
	// which the capacity penalty applies.
	CapacityCeiling = 3
)

const overScaleRisk = "score above nominal 100-point scale"

// Qualification is the structured scoring result. Collaborator-supplied
// instances are advisory until passed through Finalize, which re-derives
// TotalScore and Decision from the components.
type Qualification struct {
	StrategicFitScore       int             `json:"strategic_fit_score"`
	WinProbabilityScore     int             `json:"win_probability_score"`
	ResourceEfficiencyScore int             `json:"resource_efficiency_score"`
	StrategicValueScore     int             `json:"strategic_value_score"`
	BonusPoints             int             `json:"bonus_points"`
	CapacityPenalty         int             `json:"capacity_penalty"`
	TotalScore              int             `json:"total_score"`
	Decision                models.Decision `json:"decision"`
	MatchReasons            []string        `json:"match_reasons"`
	Risks                   []string        `json:"risks"`
}

// DecisionFor maps a total score onto its priority bucket.
func DecisionFor(total int) models.Decision {
	switch {
	case total >= PriorityAThreshold:
		return models.DecisionPriorityA
	case total >= PriorityBThreshold:
		return models.DecisionPriorityB
	case total >= ConditionalThreshold:
		return models.DecisionConditional
	default:
		return models.DecisionNoGo
	}
}

// Total sums the component scores plus bonuses and penalties. It ignores the
// TotalScore field entirely.
func (q Qualification) Total() int {
	return q.StrategicFitScore + q.WinProbabilityScore +
		q.ResourceEfficiencyScore + q.StrategicValueScore +
		q.BonusPoints + q.CapacityPenalty
}

// Validate checks every component against its declared bound. A violation
// means the collaborator output is malformed; callers should fall back to
// Fallback() rather than persisting it.
func (q Qualification) Validate() error {
	checks := []struct {
		name  string
		value int
		max   int
	}{
		{"strategic_fit_score", q.StrategicFitScore, MaxStrategicFit},
		{"win_probability_score", q.WinProbabilityScore, MaxWinProbability},
		{"resource_efficiency_score", q.ResourceEfficiencyScore, MaxResourceEfficiency},
		{"strategic_value_score", q.StrategicValueScore, MaxStrategicValue},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return fmt.Errorf("%s %d outside [0,%d]", c.name, c.value, c.max)
		}
	}
	if q.BonusPoints < 0 {
		return fmt.Errorf("bonus_points %d must be non-negative", q.BonusPoints)
	}
	if q.CapacityPenalty > 0 {
		return fmt.Errorf("capacity_penalty %d must be non-positive", q.CapacityPenalty)
	}
	return nil
}

// Finalize validates the object, re-derives TotalScore and Decision from the
// component scores (the supplied values are advisory only), and normalizes
// the reason/risk lists. Malformed input yields the conservative fallback so
// the opportunity still surfaces for manual review.
func Finalize(q Qualification) Qualification {
	if err := q.Validate(); err != nil {
		return Fallback()
	}

	q.TotalScore = q.Total()
	q.Decision = DecisionFor(q.TotalScore)
	q.MatchReasons = sanitizeList(q.MatchReasons)
	q.Risks = sanitizeList(q.Risks)

	// Totals are deliberately unclamped; flag instead of guessing.
	if q.TotalScore > 100 {
		q.Risks = appendUnique(q.Risks, overScaleRisk)
	}

	return q
}

// Fallback is the conservative default qualification used when the scoring
// collaborator returns malformed or unparseable output. Its conditional
// decision is final even though the 50-point total sits below the
// conditional threshold: re-deriving it would bury the opportunity in no_go
// instead of surfacing it for manual review.
func Fallback() Qualification {
	return Qualification{
		StrategicFitScore:       20,
		WinProbabilityScore:     15,
		ResourceEfficiencyScore: 10,
		StrategicValueScore:     5,
		TotalScore:              50,
		Decision:                models.DecisionConditional,
		MatchReasons:            []string{"Unable to fully analyze - manual review recommended"},
		Risks:                   []string{"AI analysis incomplete"},
	}
}

// ApplyCapacityPenalty overwrites the penalty from the organization's actual
// in-flight proposal count. The penalty models reviewer bandwidth, not
// opportunity quality, so it is always recomputed server-side when a profile
// is available.
func ApplyCapacityPenalty(q Qualification, activeProposals int) Qualification {
	if activeProposals > CapacityCeiling {
		q.CapacityPenalty = CapacityPenalty
	} else {
		q.CapacityPenalty = 0
	}
	return Finalize(q)
}

// CapacityPenaltyFor returns the penalty points for a proposal count.
func CapacityPenaltyFor(activeProposals int) int {
	if activeProposals > CapacityCeiling {
		return CapacityPenalty
	}
	return 0
}

func sanitizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		clean = appendUnique(clean, v)
	}
	return clean
}

func appendUnique(list []string, v string) []string {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}
