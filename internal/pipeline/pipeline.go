package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/david/grant-hunter/internal/ai"
	"github.com/david/grant-hunter/internal/enrich"
	"github.com/david/grant-hunter/internal/models"
	"github.com/david/grant-hunter/internal/scoring"
)

// SourcePerplexity tags opportunities discovered through the search
// collaborator. (source, external_id) dedup keys off it.
const SourcePerplexity = "perplexity"

const maxExternalIDLen = 100

// Searcher finds grant opportunities for a free-text query.
type Searcher interface {
	SearchGrants(ctx context.Context, query string, filters ai.SearchFilters) ([]ai.GrantResult, []string, error)
}

// Qualifier scores one opportunity against a company profile. Its output is
// advisory and always passes through the scoring policy before persistence.
type Qualifier interface {
	Qualify(ctx context.Context, opp models.RawOpportunity, profile *models.CompanyProfile) (scoring.Qualification, error)
}

// Embedder produces an embedding vector for relevance ordering.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Enricher fills sparse opportunity fields from the source page.
type Enricher interface {
	Enrich(ctx context.Context, opp *models.RawOpportunity) error
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	UpsertRawOpportunity(ctx context.Context, opp *models.RawOpportunity) error
	UpsertScoredOpportunity(ctx context.Context, scored *models.ScoredOpportunity) error
	GetCompanyProfile(ctx context.Context, userID uuid.UUID) (*models.CompanyProfile, error)
}

// ItemResult reports the outcome of one search result: either a persisted
// scored opportunity or the error that stopped it. A failed item never stops
// the batch.
type ItemResult struct {
	Title  string                    `json:"title"`
	Scored *models.ScoredOpportunity `json:"scored,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// RunResult is the outcome of one search-and-score run.
type RunResult struct {
	Items     []ItemResult `json:"items"`
	Citations []string     `json:"citations,omitempty"`
}

// Pipeline turns search results into scored, triage-ready opportunities:
// raw upsert, best-effort enrichment and embedding, qualification with
// policy-enforced fallback, then scored upsert.
type Pipeline struct {
	searcher  Searcher
	qualifier Qualifier
	embedder  Embedder
	enricher  Enricher
	store     Store
}

func New(searcher Searcher, qualifier Qualifier, embedder Embedder, enricher Enricher, store Store) *Pipeline {
	return &Pipeline{
		searcher:  searcher,
		qualifier: qualifier,
		embedder:  embedder,
		enricher:  enricher,
		store:     store,
	}
}

// Run executes a full search-and-score pass for one user.
func (p *Pipeline) Run(ctx context.Context, userID uuid.UUID, query string, filters ai.SearchFilters) (*RunResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("search run requires a resolved user")
	}

	grants, citations, err := p.searcher.SearchGrants(ctx, query, filters)
	if err != nil {
		return nil, fmt.Errorf("grant search: %w", err)
	}

	profile, err := p.store.GetCompanyProfile(ctx, userID)
	if err != nil {
		log.Printf("[pipeline] profile load for %s: %v (scoring without context)", userID, err)
		profile = nil
	}

	result := &RunResult{Citations: citations}
	for _, grant := range grants {
		item := ItemResult{Title: grant.Title}
		scored, err := p.processGrant(ctx, userID, grant, profile)
		if err != nil {
			log.Printf("[pipeline] %q: %v", grant.Title, err)
			item.Error = err.Error()
		} else {
			item.Scored = scored
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

func (p *Pipeline) processGrant(ctx context.Context, userID uuid.UUID, grant ai.GrantResult, profile *models.CompanyProfile) (*models.ScoredOpportunity, error) {
	raw := rawFromGrant(grant)

	if p.enricher != nil {
		if err := p.enricher.Enrich(ctx, &raw); err != nil {
			log.Printf("[pipeline] enrich %q: %v (keeping unenriched)", raw.Title, err)
		}
	}

	if p.embedder != nil {
		text := strings.TrimSpace(raw.Title + " " + raw.Description)
		if embedding, err := p.embedder.GenerateEmbedding(ctx, text); err != nil {
			log.Printf("[pipeline] embed %q: %v (skipping)", raw.Title, err)
		} else {
			raw.Embedding = embedding
		}
	}

	if err := p.store.UpsertRawOpportunity(ctx, &raw); err != nil {
		return nil, fmt.Errorf("upsert raw: %w", err)
	}

	q, err := p.qualifier.Qualify(ctx, raw, profile)
	switch {
	case err != nil:
		// The fallback is final: recomputing its decision would drop the
		// 50-point total below the conditional threshold and bury the
		// opportunity in no_go instead of surfacing it for review.
		log.Printf("[pipeline] qualify %q: %v (using fallback)", raw.Title, err)
		q = scoring.Fallback()
	case profile != nil:
		q = scoring.ApplyCapacityPenalty(q, profile.ActiveProposalCount)
	default:
		q = scoring.Finalize(q)
	}

	scored := &models.ScoredOpportunity{
		UserID:                  userID,
		OpportunityRawID:        raw.ID,
		StrategicFitScore:       q.StrategicFitScore,
		WinProbabilityScore:     q.WinProbabilityScore,
		ResourceEfficiencyScore: q.ResourceEfficiencyScore,
		StrategicValueScore:     q.StrategicValueScore,
		BonusPoints:             q.BonusPoints,
		CapacityPenalty:         q.CapacityPenalty,
		TotalScore:              q.TotalScore,
		Decision:                q.Decision,
		HITLStatus:              models.HITLPending,
		MatchReasons:            q.MatchReasons,
		Risks:                   q.Risks,
		Raw:                     &raw,
	}
	if err := p.store.UpsertScoredOpportunity(ctx, scored); err != nil {
		return nil, fmt.Errorf("upsert scored: %w", err)
	}
	return scored, nil
}

// rawFromGrant converts a search result into a persistable raw opportunity.
func rawFromGrant(grant ai.GrantResult) models.RawOpportunity {
	raw := models.RawOpportunity{
		Source:      SourcePerplexity,
		ExternalID:  ExternalID(grant.Title, grant.Agency),
		Title:       strings.TrimSpace(grant.Title),
		Agency:      strings.TrimSpace(grant.Agency),
		AmountText:  strings.TrimSpace(grant.Amount),
		Description: strings.TrimSpace(grant.Description),
		Eligibility: strings.TrimSpace(grant.Eligibility),
		SourceURL:   strings.TrimSpace(grant.SourceURL),
		RawData: map[string]interface{}{
			"deadline_text": grant.Deadline,
		},
	}
	if deadline, err := enrich.ParseDate(grant.Deadline); err == nil {
		raw.Deadline = &deadline
	}
	if raw.AmountText != "" {
		if min, max, currency := enrich.ParseAmount(raw.AmountText, ""); currency != "" {
			if min > 0 {
				raw.AmountMin = &min
			}
			if max > 0 {
				raw.AmountMax = &max
			}
			raw.Currency = currency
		}
	}
	return raw
}

// ExternalID derives a stable dedup key from title and agency so the same
// opportunity re-discovered in a later search updates instead of duplicating.
func ExternalID(title, agency string) string {
	slug := slugify(title + " " + agency)
	if len(slug) > maxExternalIDLen {
		slug = strings.Trim(slug[:maxExternalIDLen], "-")
	}
	return slug
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
