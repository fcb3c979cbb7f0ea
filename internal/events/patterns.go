package events

import "regexp"

// promptPattern is one permission-prompt heuristic with a priority so the
// most specific match wins when several fire on the same line.
type promptPattern struct {
	Pattern  *regexp.Regexp
	Priority int
}

const (
	priorityBracketed = 90
	priorityQuestion  = 70
)

// Permission-prompt patterns ordered by priority (highest first). This is a
// heuristic over free-form CLI output, not a protocol; false positives and
// negatives are expected.
var promptPatterns = []promptPattern{
	// Explicit y/n affordances
	{regexp.MustCompile(`(?i)\[y/n\]`), priorityBracketed},
	{regexp.MustCompile(`(?i)\[yes/no\]`), priorityBracketed},
	{regexp.MustCompile(`(?i)\(y/n\)`), priorityBracketed},
	{regexp.MustCompile(`(?i)\(yes/no\)`), priorityBracketed},
	{regexp.MustCompile(`(?i)\[y/n/a\]`), priorityBracketed},

	// Question phrasings that expect a confirmation
	{regexp.MustCompile(`(?i)allow\b.*\?`), priorityQuestion},
	{regexp.MustCompile(`(?i)approve\b.*\?`), priorityQuestion},
	{regexp.MustCompile(`(?i)confirm\b.*\?`), priorityQuestion},
	{regexp.MustCompile(`(?i)do you want to`), priorityQuestion},
	{regexp.MustCompile(`(?i)would you like to`), priorityQuestion},
	{regexp.MustCompile(`(?i)proceed\?`), priorityQuestion},
	{regexp.MustCompile(`(?i)continue\?`), priorityQuestion},
	{regexp.MustCompile(`(?i)是否(允许|继续|确认)`), priorityQuestion},
}

// IsPermissionPrompt reports whether a worker output line looks like the
// worker is waiting for a yes/no decision.
func IsPermissionPrompt(line string) bool {
	for _, p := range promptPatterns {
		if p.Pattern.MatchString(line) {
			return true
		}
	}
	return false
}
