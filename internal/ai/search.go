package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// GrantResult is one structured result from the search collaborator.
type GrantResult struct {
	Title       string `json:"title"`
	Agency      string `json:"agency"`
	Amount      string `json:"amount"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
	Eligibility string `json:"eligibility"`
	SourceURL   string `json:"sourceUrl"`
}

// SearchFilters narrow a grant search.
type SearchFilters struct {
	FundingRange string `json:"funding_range"`
	Deadline     string `json:"deadline"`
	Sector       string `json:"sector"`
}

const searchSystemPrompt = `You are Grant Hunter Pro, an expert AI grant researcher. Your task is to find real, current grant opportunities based on the user's search query.

When searching for grants, focus on:
- SBIR/STTR programs from federal agencies
- NSF, NIH, DOE, NASA, DARPA grants
- State and local economic development grants
- Private foundation grants
- Corporate innovation programs

For each grant opportunity found, provide structured information including:
- Grant title and program name
- Funding agency/organization
- Funding amount (range if applicable)
- Application deadline
- Brief description
- Eligibility requirements
- Source URL

Always cite your sources and provide accurate, up-to-date information about real grant programs.`

// SearchGrants asks the search collaborator for matching opportunities and
// returns the structured results plus citation URLs.
func (c *Client) SearchGrants(ctx context.Context, query string, filters SearchFilters) ([]GrantResult, []string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search for grant opportunities matching: %q\n", query)
	if filters.FundingRange != "" {
		fmt.Fprintf(&sb, "Funding range: %s\n", filters.FundingRange)
	}
	if filters.Deadline != "" {
		fmt.Fprintf(&sb, "Deadline preference: %s\n", filters.Deadline)
	}
	if filters.Sector != "" {
		fmt.Fprintf(&sb, "Technology sector: %s\n", filters.Sector)
	}
	sb.WriteString(`
Find 5-10 relevant grant opportunities and return them as a JSON array with this structure:
[{
  "title": "Grant Program Name",
  "agency": "Funding Organization",
  "amount": "$X - $Y",
  "deadline": "Date or Rolling",
  "description": "Brief program description",
  "eligibility": "Who can apply",
  "sourceUrl": "https://..."
}]

Return ONLY the JSON array, no additional text.`)

	content, citations, err := c.ChatCompletion(ctx, searchSystemPrompt, sb.String(), 0.2)
	if err != nil {
		return nil, nil, err
	}

	grants, err := parseGrantResults(content)
	if err != nil {
		return nil, nil, err
	}
	return grants, citations, nil
}

func parseGrantResults(content string) ([]GrantResult, error) {
	cleaned := stripCodeFences(content)
	if arr, ok := extractFirstJSONArray(cleaned); ok {
		cleaned = arr
	}

	var grants []GrantResult
	if err := json.Unmarshal([]byte(cleaned), &grants); err != nil {
		return nil, fmt.Errorf("failed to parse grant results: %w", err)
	}

	// Drop entries without the dedup-relevant fields.
	valid := grants[:0]
	for _, g := range grants {
		if strings.TrimSpace(g.Title) != "" {
			valid = append(valid, g)
		}
	}
	return valid, nil
}
