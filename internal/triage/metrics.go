package triage

import "github.com/david/grant-hunter/internal/models"

// Metrics are the dashboard counts derived from a user's scored
// opportunities. Recomputed on demand; nothing is cached.
type Metrics struct {
	PriorityA int `json:"priority_a"`
	PriorityB int `json:"priority_b"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
}

// ComputeMetrics folds over the record set without mutating it.
func ComputeMetrics(opps []models.ScoredOpportunity) Metrics {
	var m Metrics
	for _, opp := range opps {
		switch opp.Decision {
		case models.DecisionPriorityA:
			m.PriorityA++
		case models.DecisionPriorityB:
			m.PriorityB++
		}
		switch opp.HITLStatus {
		case models.HITLPending:
			m.Pending++
		case models.HITLApproved:
			m.Approved++
		}
	}
	return m
}
