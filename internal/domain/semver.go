package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// BumpPatch increments the patch component of a "major.minor.patch" version.
// There is no rollover: the patch grows unbounded and never cascades into
// minor or major.
func BumpPatch(version string) (string, error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid version %q", version)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", version, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", version, err)
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", fmt.Errorf("invalid version %q: %w", version, err)
	}

	return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
}
