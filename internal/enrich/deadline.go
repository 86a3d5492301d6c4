package enrich

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	rpdf "rsc.io/pdf"
)

var dateSnippetRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}/\d{1,2}/20\d{2}\b`),
	regexp.MustCompile(`(?i)\b20\d{2}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+20\d{2}\b`),
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+20\d{2}\b`),
}

var dateFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
}

// ParseDate parses a deadline string in the formats grant pages actually use.
// Date-only values resolve to end of day UTC so a deadline stays open through
// its final day.
func ParseDate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, format := range dateFormats {
		t, err := time.Parse(format, text)
		if err != nil {
			continue
		}
		if strings.Contains(format, ":") {
			return t, nil
		}
		return toEndOfDay(t), nil
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", text)
}

func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}

// DeadlineCandidates scans free text for date mentions and returns the
// distinct parsed values, earliest first.
func DeadlineCandidates(text string) []time.Time {
	seen := make(map[time.Time]bool)
	var candidates []time.Time

	for _, expr := range dateSnippetRegexes {
		for _, token := range expr.FindAllString(text, -1) {
			parsed, err := ParseDate(strings.TrimSpace(token))
			if err != nil {
				continue
			}
			if !seen[parsed] {
				seen[parsed] = true
				candidates = append(candidates, parsed)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
	return candidates
}

// ExtractPDFDeadlines pulls deadline candidates out of a funding-notice PDF.
func ExtractPDFDeadlines(content []byte) ([]time.Time, error) {
	text, err := extractPDFText(content)
	if err != nil {
		return nil, err
	}
	return DeadlineCandidates(text), nil
}

// extractPDFText extracts all page text. The parser panics on some malformed
// documents, so recover and report that as an error.
func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
