package enrich

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantMin  float64
		wantMax  float64
		wantCurr string
	}{
		{"range with magnitudes", "$500K - $2M", 500_000, 2_000_000, "USD"},
		{"plain range", "$100,000 - $250,000", 100_000, 250_000, "USD"},
		{"up to ceiling", "up to $5,000,000", 0, 5_000_000, "USD"},
		{"bare amount is ceiling", "$750,000", 0, 750_000, "USD"},
		{"minimum floor", "minimum of $50,000", 50_000, 0, "USD"},
		{"million spelled out", "awards up to 2 million", 0, 2_000_000, "USD"},
		{"euro", "€100,000 - €400,000", 100_000, 400_000, "EUR"},
		{"no amount", "rolling basis, see announcement", 0, 0, ""},
		{"empty", "", 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max, curr := ParseAmount(tt.text, "")
			if min != tt.wantMin || max != tt.wantMax || curr != tt.wantCurr {
				t.Fatalf("ParseAmount(%q) = (%v, %v, %q), want (%v, %v, %q)",
					tt.text, min, max, curr, tt.wantMin, tt.wantMax, tt.wantCurr)
			}
		})
	}
}

func TestMagnitudeSuffixNotPartOfWord(t *testing.T) {
	// "3 matching funds" must not read the leading "m" of "matching" as million.
	_, max, _ := ParseAmount("$3 matching funds required", "")
	if max != 3 {
		t.Fatalf("max = %v, want 3", max)
	}
}
