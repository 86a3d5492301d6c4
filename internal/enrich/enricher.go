package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/david/grant-hunter/internal/models"
)

const maxDescriptionLen = 4000

// Enricher fills in opportunity fields the search collaborator left sparse:
// amounts parsed from free text, deadlines, and page-text descriptions.
// Enrichment is best effort; a failed fetch never fails the opportunity.
type Enricher struct {
	fetcher Fetcher
	now     func() time.Time
}

func NewEnricher(fetcher Fetcher) *Enricher {
	return &Enricher{fetcher: fetcher, now: time.Now}
}

// Enrich mutates opp in place. It returns the first fetch error for logging;
// callers keep the opportunity either way.
func (e *Enricher) Enrich(ctx context.Context, opp *models.RawOpportunity) error {
	if opp.AmountText != "" && opp.AmountMin == nil && opp.AmountMax == nil {
		min, max, currency := ParseAmount(opp.AmountText, opp.Currency)
		if currency != "" {
			if min > 0 {
				opp.AmountMin = &min
			}
			if max > 0 {
				opp.AmountMax = &max
			}
			opp.Currency = currency
		}
	}

	if opp.SourceURL == "" {
		return nil
	}

	page, err := e.fetcher.Fetch(ctx, opp.SourceURL)
	if err != nil {
		return err
	}

	var pageText string
	if strings.Contains(strings.ToLower(page.ContentType), "pdf") {
		text, err := extractPDFText(page.Body)
		if err != nil {
			return err
		}
		pageText = cleanText(text)
	} else {
		pageText = HTMLToText(SanitizeHTML(string(page.Body)))
	}
	pageText = SanitizeUTF8(pageText)

	if len(opp.Description) < 200 && len(pageText) > len(opp.Description) {
		opp.Description = TruncateText(pageText, maxDescriptionLen)
	}

	if opp.Deadline == nil {
		if deadline, ok := e.pickDeadline(DeadlineCandidates(pageText)); ok {
			opp.Deadline = &deadline
		}
	}
	return nil
}

// pickDeadline prefers the earliest future candidate; a page full of past
// dates yields nothing rather than a stale deadline.
func (e *Enricher) pickDeadline(candidates []time.Time) (time.Time, bool) {
	now := e.now()
	for _, c := range candidates {
		if c.After(now) {
			return c, true
		}
	}
	return time.Time{}, false
}
