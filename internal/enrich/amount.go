package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

var amountNumberRegex = regexp.MustCompile(`[\d][\d,\.]*`)

var magnitudeSuffixes = []struct {
	token string
	scale float64
}{
	{"billion", 1e9},
	{"million", 1e6},
	{"m", 1e6},
	{"k", 1e3},
}

// ParseAmount extracts min/max award amounts and a currency code from free
// text like "$500K - $2M" or "up to $5,000,000". A zero value means the bound
// is unknown. The empty currency return means no amount was found.
func ParseAmount(text, defaultCurrency string) (float64, float64, string) {
	lower := strings.ToLower(text)

	currency := defaultCurrency
	if currency == "" {
		currency = "USD"
	}
	switch {
	case strings.Contains(lower, "£") || strings.Contains(lower, "gbp"):
		currency = "GBP"
	case strings.Contains(lower, "€") || strings.Contains(lower, "eur"):
		currency = "EUR"
	case strings.Contains(lower, "$") || strings.Contains(lower, "usd"):
		currency = "USD"
	}

	var amounts []float64
	for _, loc := range amountNumberRegex.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		val, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
		if err != nil || val <= 0 {
			continue
		}
		amounts = append(amounts, val*magnitudeAfter(lower, loc[1]))
	}

	if len(amounts) == 0 {
		return 0, 0, ""
	}

	if len(amounts) == 1 {
		if strings.Contains(lower, "minimum") || strings.Contains(lower, "at least") {
			return amounts[0], 0, currency
		}
		// "up to" and bare amounts both read as a ceiling.
		return 0, amounts[0], currency
	}

	min, max := amounts[0], amounts[0]
	for _, a := range amounts[1:] {
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
	}
	return min, max, currency
}

// magnitudeAfter returns the multiplier implied by a suffix immediately
// following the number, e.g. the "M" in "$2M".
func magnitudeAfter(lower string, end int) float64 {
	rest := strings.TrimLeft(lower[end:], " ")
	for _, m := range magnitudeSuffixes {
		if strings.HasPrefix(rest, m.token) {
			tail := rest[len(m.token):]
			// "m" must not match the start of a longer word like "matching".
			if m.token == "m" || m.token == "k" {
				if tail != "" && tail[0] >= 'a' && tail[0] <= 'z' {
					continue
				}
			}
			return m.scale
		}
	}
	return 1
}
