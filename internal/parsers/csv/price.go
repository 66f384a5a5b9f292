package csv

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var currencySuffix = regexp.MustCompile(`(?i)\s*(NZD|AUD|USD)\s*$`)

// ParsePrice parses a price string to cents. Handles "12.99", "$12.99",
// "1,299.00", "12,99" and a trailing currency code.
func ParsePrice(value string) (int, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '$' || r == ' ' || r == '\u00A0' {
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	cleaned = currencySuffix.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty price value %q", value)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastComma > lastDot && len(cleaned)-lastComma-1 == 2:
		// 1.234,56
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	default:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", value, err)
	}
	return int(math.Round(f * 100)), nil
}
