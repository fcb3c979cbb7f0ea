package domain

import (
	"regexp"
	"strings"
)

var versionTagPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// IsVersionTag reports whether a tag is a version marker like "v1.2.3".
func IsVersionTag(tag string) bool {
	return versionTagPattern.MatchString(strings.TrimSpace(tag))
}

// MergeTagsInput describes one tag merge. Tags arrive from several sources
// (worker output, defaults, manual edits) and must not duplicate or
// accumulate stale version markers.
type MergeTagsInput struct {
	Existing   []string
	Generated  []string
	VersionTag string
	Max        int
}

// MergeTaskTags unions generated tags over existing ones. Generated tags take
// priority: each is pushed to the front in turn, so the most recently
// generated tag leads. Deduplication is case-insensitive, keeping first-seen
// casing. At most one version-pattern tag survives; an explicit VersionTag
// always wins and is appended last. Max > 0 truncates the result.
// The merge is idempotent.
func MergeTaskTags(in MergeTagsInput) []string {
	ordered := make([]string, 0, len(in.Generated)+len(in.Existing)+1)
	for _, tag := range in.Generated {
		ordered = append([]string{tag}, ordered...)
	}
	ordered = append(ordered, in.Existing...)

	explicit := strings.TrimSpace(in.VersionTag)

	merged := make([]string, 0, len(ordered))
	seen := make(map[string]bool, len(ordered))
	versionSeen := false
	for _, raw := range ordered {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		if IsVersionTag(tag) {
			// With an explicit version tag every inherited version
			// marker is stale; without one only the first survives.
			if explicit != "" || versionSeen {
				continue
			}
			versionSeen = true
		}
		seen[key] = true
		merged = append(merged, tag)
	}

	if explicit != "" && !seen[strings.ToLower(explicit)] {
		merged = append(merged, explicit)
	}

	if in.Max > 0 && len(merged) > in.Max {
		merged = merged[:in.Max]
	}
	return merged
}
