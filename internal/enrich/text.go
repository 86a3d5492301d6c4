package enrich

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLToText converts HTML to plain text, collapsing whitespace. Text nodes
// are joined with spaces so adjacent block elements ("</h1><p>") do not mash
// words together before the amount and date extractors scan the result.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return cleanText(html)
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	var walk func(sel *goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "#text" {
				if t := strings.TrimSpace(s.Text()); t != "" {
					parts = append(parts, t)
				}
				return
			}
			walk(s)
		})
	}
	walk(doc.Selection)
	return cleanText(strings.Join(parts, " "))
}

// SanitizeHTML strips unsafe tags and attributes before any HTML is stored.
func SanitizeHTML(s string) string {
	return bluemonday.UGCPolicy().Sanitize(s)
}

// SanitizeUTF8 removes invalid byte sequences that break Postgres text columns.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// TruncateText cuts a string to max length, appending ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return text[:maxLen-3] + "..."
	}
	return text[:maxLen]
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
