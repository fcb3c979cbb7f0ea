package domain

import "testing"

func TestBumpPatch(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"0.1.0", "0.1.1"},
		{"2.9.9", "2.9.10"},
		{"1.0.0", "1.0.1"},
		{"10.20.99", "10.20.100"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got, err := BumpPatch(tt.version)
			if err != nil {
				t.Fatalf("BumpPatch(%q) error: %v", tt.version, err)
			}
			if got != tt.want {
				t.Errorf("BumpPatch(%q) = %q, want %q", tt.version, got, tt.want)
			}
		})
	}
}

func TestBumpPatch_Invalid(t *testing.T) {
	tests := []string{"", "1.2", "1.2.3.4", "a.b.c", "1.2.x"}

	for _, version := range tests {
		t.Run(version, func(t *testing.T) {
			if _, err := BumpPatch(version); err == nil {
				t.Errorf("BumpPatch(%q) expected error", version)
			}
		})
	}
}

func TestBumpPatch_Deterministic(t *testing.T) {
	first, err := BumpPatch("3.4.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := BumpPatch("3.4.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("BumpPatch not deterministic: %q vs %q", first, second)
	}
}
