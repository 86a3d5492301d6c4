package ai

import (
	"context"
	"fmt"

	"github.com/david/grant-hunter/internal/triage"
)

const draftSystemPrompt = "You are an expert grant writer with 20+ years of experience winning federal and foundation grants. Write in a professional, compelling tone appropriate for grant applications."

// sectionTemplates maps each application section to the prompt that shapes
// its draft. The set is closed; callers validate section names before us.
var sectionTemplates = map[string]string{
	"specific_aims": `Write a Specific Aims section for a grant application to the following opportunity.

Opportunity: %s
Agency: %s
Amount: %s
Deadline: %s

Structure: opening hook establishing the problem, long-term goal, overall objective, central hypothesis, then 2-3 numbered specific aims each with a one-sentence working hypothesis. Keep it under 500 words.`,

	"budget_justification": `Write a Budget Justification narrative for a grant application to the following opportunity.

Opportunity: %s
Agency: %s
Amount: %s
Deadline: %s

Cover personnel (roles and effort), equipment, materials and supplies, travel, and indirect costs. Justify each category against the project scope. Keep it under 400 words.`,

	"logic_model": `Write a Logic Model narrative for a grant application to the following opportunity.

Opportunity: %s
Agency: %s
Amount: %s
Deadline: %s

Lay out inputs, activities, outputs, short-term outcomes, and long-term impact as labeled paragraphs. Make the causal chain explicit. Keep it under 400 words.`,

	"narrative": `Write a Project Narrative for a grant application to the following opportunity.

Opportunity: %s
Agency: %s
Amount: %s
Deadline: %s

Cover statement of need, project description, organizational capacity, and evaluation plan. Keep it under 600 words.`,
}

// WriteSection generates draft text for one application section. It
// implements triage.DraftWriter; output is stored verbatim by the caller.
func (c *Client) WriteSection(ctx context.Context, section string, dc triage.DraftContext) (string, error) {
	tmpl, ok := sectionTemplates[section]
	if !ok {
		return "", fmt.Errorf("no draft template for section %q", section)
	}

	prompt := fmt.Sprintf(tmpl,
		orDefault(dc.Title, "Untitled opportunity"),
		orDefault(dc.Agency, "Unknown"),
		orDefault(dc.Amount, "Not specified"),
		orDefault(dc.Deadline, "Not specified"),
	)

	text, _, err := c.ChatCompletion(ctx, draftSystemPrompt, prompt, 0.7)
	if err != nil {
		return "", err
	}
	return text, nil
}
