package report

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Two independent passes over the text: "1.5k tokens" style and
// "tokens: 200" style. A phrase matching both is counted twice; the metric
// feeds a dashboard approximation, not accounting.
var (
	amountBeforeTokens = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*([kmb])?\s*tokens\b`)
	tokensThenAmount   = regexp.MustCompile(`(?i)tokens?\s*[:：]\s*([\d,]+(?:\.\d+)?)\s*([kmb])?`)
)

var unitMultipliers = map[string]float64{
	"k": 1_000,
	"m": 1_000_000,
	"b": 1_000_000_000,
}

// ExtractTokenUsage scans free-form worker output for token-usage telemetry
// and returns the rounded total. Unrecognized text yields 0.
func ExtractTokenUsage(text string) int64 {
	total := 0.0
	for _, re := range []*regexp.Regexp{amountBeforeTokens, tokensThenAmount} {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			total += parseAmount(match[1], match[2])
		}
	}
	return int64(math.Round(total))
}

func parseAmount(number, unit string) float64 {
	value, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0
	}
	if multiplier, ok := unitMultipliers[strings.ToLower(unit)]; ok {
		value *= multiplier
	}
	return value
}
