package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/david/grant-hunter/internal/ai"
	"github.com/david/grant-hunter/internal/models"
	"github.com/david/grant-hunter/internal/scoring"
)

type fakeSearcher struct {
	grants []ai.GrantResult
	err    error
}

func (f *fakeSearcher) SearchGrants(_ context.Context, _ string, _ ai.SearchFilters) ([]ai.GrantResult, []string, error) {
	return f.grants, []string{"https://example.gov/notice"}, f.err
}

type fakeQualifier struct {
	byTitle map[string]scoring.Qualification
	errFor  map[string]error
	calls   int
}

func (f *fakeQualifier) Qualify(_ context.Context, opp models.RawOpportunity, _ *models.CompanyProfile) (scoring.Qualification, error) {
	f.calls++
	if err, ok := f.errFor[opp.Title]; ok {
		return scoring.Qualification{}, err
	}
	return f.byTitle[opp.Title], nil
}

type fakeStore struct {
	profile    *models.CompanyProfile
	profileErr error
	raw        map[string]*models.RawOpportunity // keyed by (source, external_id)
	scored     map[string]*models.ScoredOpportunity
	rawErrFor  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		raw:    make(map[string]*models.RawOpportunity),
		scored: make(map[string]*models.ScoredOpportunity),
	}
}

func (f *fakeStore) UpsertRawOpportunity(_ context.Context, opp *models.RawOpportunity) error {
	if err := f.rawErrFor[opp.Title]; err != nil {
		return err
	}
	key := opp.Source + "/" + opp.ExternalID
	if existing, ok := f.raw[key]; ok {
		opp.ID = existing.ID
	} else if opp.ID == uuid.Nil {
		opp.ID = uuid.New()
	}
	clone := *opp
	f.raw[key] = &clone
	return nil
}

func (f *fakeStore) UpsertScoredOpportunity(_ context.Context, scored *models.ScoredOpportunity) error {
	key := scored.UserID.String() + "/" + scored.OpportunityRawID.String()
	if existing, ok := f.scored[key]; ok {
		scored.ID = existing.ID
	} else if scored.ID == uuid.Nil {
		scored.ID = uuid.New()
	}
	clone := *scored
	f.scored[key] = &clone
	return nil
}

func (f *fakeStore) GetCompanyProfile(_ context.Context, _ uuid.UUID) (*models.CompanyProfile, error) {
	return f.profile, f.profileErr
}

func newPipeline(s *fakeSearcher, q *fakeQualifier, store *fakeStore) *Pipeline {
	return New(s, q, nil, nil, store)
}

func TestRunScoresEachResult(t *testing.T) {
	userID := uuid.New()
	searcher := &fakeSearcher{grants: []ai.GrantResult{
		{Title: "Lithium Recycling SBIR", Agency: "DOE", Amount: "$500K - $2M", Deadline: "2026-11-15"},
		{Title: "Water Access Grant", Agency: "EPA", Amount: "up to $1M"},
	}}
	qualifier := &fakeQualifier{byTitle: map[string]scoring.Qualification{
		"Lithium Recycling SBIR": {StrategicFitScore: 38, WinProbabilityScore: 25, ResourceEfficiencyScore: 15, StrategicValueScore: 8, BonusPoints: 20},
		"Water Access Grant":     {StrategicFitScore: 20, WinProbabilityScore: 15, ResourceEfficiencyScore: 12, StrategicValueScore: 5},
	}}
	store := newFakeStore()

	result, err := newPipeline(searcher, qualifier, store).Run(context.Background(), userID, "lithium", ai.SearchFilters{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}

	first := result.Items[0]
	if first.Error != "" || first.Scored == nil {
		t.Fatalf("first item failed: %+v", first)
	}
	if first.Scored.TotalScore != 106 || first.Scored.Decision != models.DecisionPriorityA {
		t.Errorf("first item = total %d decision %s", first.Scored.TotalScore, first.Scored.Decision)
	}
	if first.Scored.HITLStatus != models.HITLPending {
		t.Errorf("new scored row must start pending, got %s", first.Scored.HITLStatus)
	}

	second := result.Items[1]
	if second.Scored == nil || second.Scored.TotalScore != 52 || second.Scored.Decision != models.DecisionNoGo {
		t.Errorf("second item = %+v", second.Scored)
	}

	if len(store.raw) != 2 || len(store.scored) != 2 {
		t.Errorf("persisted raw=%d scored=%d", len(store.raw), len(store.scored))
	}
}

func TestRunRequiresResolvedUser(t *testing.T) {
	p := newPipeline(&fakeSearcher{}, &fakeQualifier{}, newFakeStore())
	if _, err := p.Run(context.Background(), uuid.Nil, "q", ai.SearchFilters{}); err == nil {
		t.Fatal("expected error for nil user")
	}
}

func TestQualifierFailureFallsBack(t *testing.T) {
	searcher := &fakeSearcher{grants: []ai.GrantResult{{Title: "Opaque Grant", Agency: "NIH"}}}
	qualifier := &fakeQualifier{errFor: map[string]error{"Opaque Grant": errors.New("malformed output")}}
	store := newFakeStore()
	// A busy profile must not drag the fallback below conditional either.
	store.profile = &models.CompanyProfile{ActiveProposalCount: 4}

	result, err := newPipeline(searcher, qualifier, store).Run(context.Background(), uuid.New(), "q", ai.SearchFilters{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	item := result.Items[0]
	if item.Scored == nil {
		t.Fatalf("fallback should still persist a scored row: %+v", item)
	}
	if item.Scored.TotalScore != 50 || item.Scored.Decision != models.DecisionConditional {
		t.Errorf("fallback scored = total %d decision %s", item.Scored.TotalScore, item.Scored.Decision)
	}
	if item.Scored.CapacityPenalty != 0 {
		t.Errorf("fallback must carry no penalty, got %d", item.Scored.CapacityPenalty)
	}
	found := false
	for _, r := range item.Scored.Risks {
		if r == "AI analysis incomplete" {
			found = true
		}
	}
	if !found {
		t.Errorf("fallback risks = %v", item.Scored.Risks)
	}
}

func TestItemFailureDoesNotStopBatch(t *testing.T) {
	searcher := &fakeSearcher{grants: []ai.GrantResult{
		{Title: "Broken", Agency: "DOE"},
		{Title: "Fine", Agency: "NSF"},
	}}
	qualifier := &fakeQualifier{byTitle: map[string]scoring.Qualification{
		"Fine": {StrategicFitScore: 30, WinProbabilityScore: 20, ResourceEfficiencyScore: 15, StrategicValueScore: 5},
	}}
	store := newFakeStore()
	store.rawErrFor = map[string]error{"Broken": errors.New("db down")}

	result, err := newPipeline(searcher, qualifier, store).Run(context.Background(), uuid.New(), "q", ai.SearchFilters{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Items[0].Error == "" {
		t.Error("broken item should carry its error")
	}
	if result.Items[1].Scored == nil || result.Items[1].Scored.TotalScore != 70 {
		t.Errorf("healthy item should still score: %+v", result.Items[1])
	}
}

func TestCapacityPenaltyFromProfile(t *testing.T) {
	searcher := &fakeSearcher{grants: []ai.GrantResult{{Title: "Busy Season Grant", Agency: "DOE"}}}
	qualifier := &fakeQualifier{byTitle: map[string]scoring.Qualification{
		"Busy Season Grant": {StrategicFitScore: 35, WinProbabilityScore: 25, ResourceEfficiencyScore: 15, StrategicValueScore: 5},
	}}
	store := newFakeStore()
	store.profile = &models.CompanyProfile{ActiveProposalCount: 4}

	result, err := newPipeline(searcher, qualifier, store).Run(context.Background(), uuid.New(), "q", ai.SearchFilters{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	scored := result.Items[0].Scored
	if scored.CapacityPenalty != -15 || scored.TotalScore != 65 {
		t.Errorf("penalty=%d total=%d, want -15/65", scored.CapacityPenalty, scored.TotalScore)
	}
	if scored.Decision != models.DecisionConditional {
		t.Errorf("decision = %s, want conditional", scored.Decision)
	}
}

func TestRerunUpdatesInsteadOfDuplicating(t *testing.T) {
	userID := uuid.New()
	searcher := &fakeSearcher{grants: []ai.GrantResult{{Title: "Stable Grant", Agency: "NSF"}}}
	qualifier := &fakeQualifier{byTitle: map[string]scoring.Qualification{
		"Stable Grant": {StrategicFitScore: 30, WinProbabilityScore: 20, ResourceEfficiencyScore: 10, StrategicValueScore: 5},
	}}
	store := newFakeStore()
	p := newPipeline(searcher, qualifier, store)

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), userID, "q", ai.SearchFilters{}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if len(store.raw) != 1 {
		t.Errorf("raw rows = %d, want 1", len(store.raw))
	}
	if len(store.scored) != 1 {
		t.Errorf("scored rows = %d, want 1", len(store.scored))
	}
}

func TestExternalID(t *testing.T) {
	a := ExternalID("Lithium Battery Recycling R&D", "DOE")
	b := ExternalID("Lithium Battery Recycling R&D", "DOE")
	if a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
	if a != "lithium-battery-recycling-r-d-doe" {
		t.Errorf("slug = %q", a)
	}
	if got := ExternalID("Other Grant", "DOE"); got == a {
		t.Error("different titles must differ")
	}

	long := ExternalID("A grant title that keeps going and going and going and going and going and going and going and going and going", "Agency")
	if len(long) > 100 {
		t.Errorf("external id too long: %d", len(long))
	}
}
