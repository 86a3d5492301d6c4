package ai

import (
	"strings"
	"testing"
)

func TestParseGrantResultsFencedArray(t *testing.T) {
	content := "```json\n[{\"title\": \"Lithium Battery Recycling R&D\", \"agency\": \"DOE\", \"amount\": \"$2M - $5M\", \"deadline\": \"2026-11-15\", \"description\": \"Recycling research\", \"eligibility\": \"US small businesses\", \"sourceUrl\": \"https://energy.gov/x\"}]\n```"

	results, err := parseGrantResults(content)
	if err != nil {
		t.Fatalf("parseGrantResults returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "Lithium Battery Recycling R&D" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].SourceURL != "https://energy.gov/x" {
		t.Errorf("sourceUrl = %q", results[0].SourceURL)
	}
}

func TestParseGrantResultsProseWrapped(t *testing.T) {
	content := `Here are the grants I found:
[{"title": "Water Infrastructure Grant", "agency": "EPA", "amount": "$500K"}]
Let me know if you need more.`

	results, err := parseGrantResults(content)
	if err != nil {
		t.Fatalf("parseGrantResults returned error: %v", err)
	}
	if len(results) != 1 || results[0].Agency != "EPA" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestParseGrantResultsDropsEmptyTitles(t *testing.T) {
	content := `[{"title": "A", "agency": "NSF"}, {"title": "", "agency": "NIH"}, {"agency": "DOE"}]`

	results, err := parseGrantResults(content)
	if err != nil {
		t.Fatalf("parseGrantResults returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result after filtering, got %d", len(results))
	}
}

func TestParseGrantResultsMalformed(t *testing.T) {
	for _, content := range []string{"", "no json here", `{"title": "object not array"}`, "[{broken"} {
		if _, err := parseGrantResults(content); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

func TestParseQualificationFenced(t *testing.T) {
	content := "```json\n{\n  \"strategic_fit_score\": 35,\n  \"win_probability_score\": 22,\n  \"resource_efficiency_score\": 15,\n  \"strategic_value_score\": 8,\n  \"bonus_points\": 20,\n  \"capacity_penalty\": 0,\n  \"total_score\": 100,\n  \"decision\": \"priority_a\",\n  \"match_reasons\": [\"lithium recycling focus\"],\n  \"risks\": [\"tight deadline\"]\n}\n```"

	q, err := parseQualification(content)
	if err != nil {
		t.Fatalf("parseQualification returned error: %v", err)
	}
	if q.StrategicFitScore != 35 || q.BonusPoints != 20 {
		t.Errorf("unexpected scores: %+v", q)
	}
	if len(q.MatchReasons) != 1 || q.MatchReasons[0] != "lithium recycling focus" {
		t.Errorf("match_reasons = %v", q.MatchReasons)
	}
}

func TestParseQualificationProseWrapped(t *testing.T) {
	content := `Based on my analysis: {"strategic_fit_score": 10, "win_probability_score": 5, "resource_efficiency_score": 5, "strategic_value_score": 2, "decision": "no_go"} as shown above.`

	q, err := parseQualification(content)
	if err != nil {
		t.Fatalf("parseQualification returned error: %v", err)
	}
	if q.StrategicFitScore != 10 || q.WinProbabilityScore != 5 {
		t.Errorf("unexpected scores: %+v", q)
	}
}

func TestParseQualificationMalformed(t *testing.T) {
	for _, content := range []string{"", "the opportunity scores well", "{\"strategic_fit_score\": }"} {
		if _, err := parseQualification(content); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

func TestExtractBalancedNestedAndStrings(t *testing.T) {
	s := `noise {"a": {"b": "close } brace in string"}, "c": [1, 2]} trailing`
	got, ok := extractFirstJSONObject(s)
	if !ok {
		t.Fatal("expected to find object")
	}
	if !strings.HasPrefix(got, `{"a"`) || !strings.HasSuffix(got, `]}`) {
		t.Errorf("extracted %q", got)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[1]\n```": "[1]",
		"```\n[1]\n```":     "[1]",
		"[1]":               "[1]",
	}
	for in, want := range cases {
		if got := stripCodeFences(in); got != want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}
