package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/david/grant-hunter/internal/models"
	"github.com/david/grant-hunter/internal/scoring"
)

const scoringSystemPrompt = `You are the Grant Qualification Engine for an organization focused on:
- Lithium recycling & critical minerals (primary)
- Autism-inclusive employment & education technology
- Clean water infrastructure for underserved communities
- Carbon neutrality & circular economy

SCORING MATRIX (return exact scores for each category):

A. Strategic Fit (40 points max)
   - Technical Alignment (0-15): 15=Lithium recycling, 10=Critical minerals/water, 5=General STEM, 0=Unrelated
   - Social Impact Alignment (0-15): 15=Autism employment + underserved, 10=Disability/education, 5=General social, 0=None
   - Geographic Priority (0-10): 10=USA/EU priority regions, 5=Eligible but not priority, 0=Ineligible

B. Win Probability (30 points max)
   - Competition Density (0-10): 10=<50 apps (niche), 5=50-200, 0=>200 or highly competitive
   - Differentiation Potential (0-10): 10=Unique autism-lithium angle, 5=Tech only, 0=Commodity
   - Track Record Match (0-10): 10=Similar past wins, 5=Related experience, 0=New area

C. Resource Efficiency (20 points max)
   - Cost-Benefit Ratio (0-10): Based on award size vs. effort required
   - Cost-Share Leverage (0-10): 10=Industry partner committed, 5=In-kind only, 0=100% match required

D. Strategic Value (10 points max)
   - Partnership Access (0-5): Opens door to major partners
   - Future Pipeline (0-5): Phase 1 of multi-phase program

BONUSES & PENALTIES:
+20 if intersectionality matches (social-tech hybrid with both lithium AND autism/education)
+10 if award >$5M AND cost-share <25%
-15 if organization has >3 other proposals due within 30 days (assume 1 currently)

DECISION THRESHOLDS (based on total_score):
85-100: priority_a
70-84: priority_b
55-69: conditional
<55: no_go

IMPORTANT: Return ONLY valid JSON with no markdown formatting.`

// Qualify asks the scoring collaborator to rate an opportunity against the
// organization profile. The returned qualification is advisory: callers must
// pass it through scoring.Finalize before persisting.
func (c *Client) Qualify(ctx context.Context, opp models.RawOpportunity, profile *models.CompanyProfile) (scoring.Qualification, error) {
	content, _, err := c.ChatCompletion(ctx, scoringSystemPrompt, qualifyUserPrompt(opp, profile), 0.1)
	if err != nil {
		return scoring.Qualification{}, err
	}
	return parseQualification(content)
}

func qualifyUserPrompt(opp models.RawOpportunity, profile *models.CompanyProfile) string {
	amount := opp.AmountText
	if amount == "" {
		amount = fmt.Sprintf("$%s - $%s", floatOrUnknown(opp.AmountMin), floatOrUnknown(opp.AmountMax))
	}
	deadline := "Not specified"
	if opp.Deadline != nil {
		deadline = opp.Deadline.Format(time.RFC3339)
	}

	var sb strings.Builder
	sb.WriteString("Analyze this grant opportunity and score it:\n\nOPPORTUNITY:\n")
	fmt.Fprintf(&sb, "Title: %s\n", opp.Title)
	fmt.Fprintf(&sb, "Agency: %s\n", orDefault(opp.Agency, "Unknown"))
	fmt.Fprintf(&sb, "Amount: %s\n", amount)
	fmt.Fprintf(&sb, "Deadline: %s\n", deadline)
	fmt.Fprintf(&sb, "Description: %s\n", orDefault(opp.Description, "No description available"))
	fmt.Fprintf(&sb, "Eligibility: %s\n", orDefault(opp.Eligibility, "Not specified"))

	if profile != nil {
		sb.WriteString("\nCOMPANY CONTEXT:\n")
		fmt.Fprintf(&sb, "- Current sectors: %s\n", orDefault(strings.Join(profile.Sectors, ", "), "Not specified"))
		fmt.Fprintf(&sb, "- Focus keywords: %s\n", orDefault(strings.Join(profile.Keywords, ", "), "Not specified"))
		fmt.Fprintf(&sb, "- Active proposals: %d\n", profile.ActiveProposalCount)
	}

	sb.WriteString(`
Return a JSON object with this exact structure:
{
  "strategic_fit_score": <0-40>,
  "win_probability_score": <0-30>,
  "resource_efficiency_score": <0-20>,
  "strategic_value_score": <0-10>,
  "bonus_points": <0 or positive number>,
  "capacity_penalty": <0 or negative number>,
  "total_score": <sum of all scores>,
  "decision": "<priority_a|priority_b|conditional|no_go>",
  "match_reasons": ["reason1", "reason2", "reason3"],
  "risks": ["risk1", "risk2"]
}`)
	return sb.String()
}

func parseQualification(content string) (scoring.Qualification, error) {
	cleaned := stripCodeFences(content)
	if obj, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = obj
	}

	var q scoring.Qualification
	if err := json.Unmarshal([]byte(cleaned), &q); err != nil {
		return scoring.Qualification{}, fmt.Errorf("failed to parse qualification json: %w", err)
	}
	return q, nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func floatOrUnknown(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%.0f", *v)
}
