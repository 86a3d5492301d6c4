package scoring

import (
	"testing"

	"github.com/david/grant-hunter/internal/models"
)

func TestDecisionFor_Boundaries(t *testing.T) {
	tests := []struct {
		total    int
		expected models.Decision
	}{
		{100, models.DecisionPriorityA},
		{85, models.DecisionPriorityA},
		{84, models.DecisionPriorityB},
		{70, models.DecisionPriorityB},
		{69, models.DecisionConditional},
		{55, models.DecisionConditional},
		{54, models.DecisionNoGo},
		{0, models.DecisionNoGo},
	}

	for _, tc := range tests {
		if got := DecisionFor(tc.total); got != tc.expected {
			t.Fatalf("DecisionFor(%d) = %s, expected %s", tc.total, got, tc.expected)
		}
	}
}

func TestFinalize_RecomputesTotalAndDecision(t *testing.T) {
	q := Qualification{
		StrategicFitScore:       30,
		WinProbabilityScore:     22,
		ResourceEfficiencyScore: 14,
		StrategicValueScore:     6,
		// Advisory values from the collaborator must be ignored.
		TotalScore: 12,
		Decision:   models.DecisionNoGo,
	}

	out := Finalize(q)
	if out.TotalScore != 72 {
		t.Fatalf("expected total 72, got %d", out.TotalScore)
	}
	if out.Decision != models.DecisionPriorityB {
		t.Fatalf("expected priority_b, got %s", out.Decision)
	}
}

func TestFinalize_IntersectionalOverScale(t *testing.T) {
	// Lithium-recycling + autism-employment hybrid: maxed alignment plus the
	// intersectional bonus pushes the total past the nominal scale.
	q := Qualification{
		StrategicFitScore:       40, // 15 technical + 15 social + 10 geographic
		WinProbabilityScore:     25, // 10 competition + 10 differentiation + 5 track record
		ResourceEfficiencyScore: 18, // 8 cost-benefit + 10 cost-share
		StrategicValueScore:     10, // 5 partnership + 5 pipeline
		BonusPoints:             IntersectionalBonus,
	}

	out := Finalize(q)
	if out.TotalScore != 113 {
		t.Fatalf("expected unclamped total 113, got %d", out.TotalScore)
	}
	if out.Decision != models.DecisionPriorityA {
		t.Fatalf("expected priority_a, got %s", out.Decision)
	}

	found := false
	for _, r := range out.Risks {
		if r == overScaleRisk {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected over-scale risk flag, got %v", out.Risks)
	}
}

func TestFinalize_MalformedFallsBack(t *testing.T) {
	tests := []struct {
		name string
		q    Qualification
	}{
		{"strategic fit over bound", Qualification{StrategicFitScore: 41}},
		{"negative component", Qualification{WinProbabilityScore: -1}},
		{"negative bonus", Qualification{BonusPoints: -5}},
		{"positive penalty", Qualification{CapacityPenalty: 15}},
	}

	for _, tc := range tests {
		out := Finalize(tc.q)
		if out.TotalScore != 50 || out.Decision != models.DecisionConditional {
			t.Fatalf("%s: expected fallback (50/conditional), got %d/%s",
				tc.name, out.TotalScore, out.Decision)
		}
		if len(out.Risks) == 0 || out.Risks[0] != "AI analysis incomplete" {
			t.Fatalf("%s: expected AI analysis incomplete risk, got %v", tc.name, out.Risks)
		}
	}
}

func TestFallback_DecisionIsFinal(t *testing.T) {
	fb := Fallback()
	if fb.TotalScore != 50 || fb.Decision != models.DecisionConditional {
		t.Fatalf("fallback = %d/%s, want 50/conditional", fb.TotalScore, fb.Decision)
	}
	// The threshold table would bucket 50 as no_go; the fallback deliberately
	// overrides it so the opportunity stays in the review queue.
	if DecisionFor(fb.TotalScore) != models.DecisionNoGo {
		t.Fatal("threshold assumption changed; revisit fallback handling")
	}
}

func TestApplyCapacityPenalty_FlipsDecision(t *testing.T) {
	q := Qualification{
		StrategicFitScore:       35,
		WinProbabilityScore:     25,
		ResourceEfficiencyScore: 12,
		StrategicValueScore:     8,
	}

	unpenalized := ApplyCapacityPenalty(q, 3)
	if unpenalized.CapacityPenalty != 0 {
		t.Fatalf("count at ceiling must not be penalized, got %d", unpenalized.CapacityPenalty)
	}
	if unpenalized.TotalScore != 80 || unpenalized.Decision != models.DecisionPriorityB {
		t.Fatalf("expected 80/priority_b, got %d/%s", unpenalized.TotalScore, unpenalized.Decision)
	}

	penalized := ApplyCapacityPenalty(q, 4)
	if penalized.CapacityPenalty != -15 {
		t.Fatalf("expected -15 penalty, got %d", penalized.CapacityPenalty)
	}
	if penalized.TotalScore != 65 || penalized.Decision != models.DecisionConditional {
		t.Fatalf("expected 65/conditional, got %d/%s", penalized.TotalScore, penalized.Decision)
	}
}

func TestFinalize_Deterministic(t *testing.T) {
	q := Qualification{
		StrategicFitScore:       28,
		WinProbabilityScore:     19,
		ResourceEfficiencyScore: 11,
		StrategicValueScore:     7,
		BonusPoints:             20,
		CapacityPenalty:         -15,
		MatchReasons:            []string{" strong  fit ", "strong fit", "niche program"},
	}

	first := Finalize(q)
	second := Finalize(q)

	if first.TotalScore != second.TotalScore || first.Decision != second.Decision {
		t.Fatalf("repeated finalization diverged: %v vs %v", first, second)
	}
	if first.TotalScore != 70 || first.Decision != models.DecisionPriorityB {
		t.Fatalf("expected 70/priority_b, got %d/%s", first.TotalScore, first.Decision)
	}
	if len(first.MatchReasons) != 2 {
		t.Fatalf("expected deduplicated reasons, got %v", first.MatchReasons)
	}
}
