package domain

import (
	"reflect"
	"testing"
)

func TestMergeTaskTags(t *testing.T) {
	tests := []struct {
		name string
		in   MergeTagsInput
		want []string
	}{
		{
			name: "explicit version wins and old version tag dropped",
			in: MergeTagsInput{
				Existing:   []string{"v1.0.1", "ui"},
				Generated:  []string{"ui", "urgent"},
				VersionTag: "v1.0.2",
			},
			want: []string{"urgent", "ui", "v1.0.2"},
		},
		{
			name: "case insensitive dedup keeps first seen casing",
			in: MergeTagsInput{
				Existing:  []string{"UI", "backend"},
				Generated: []string{"ui"},
			},
			want: []string{"ui", "backend"},
		},
		{
			name: "at most one implicit version tag",
			in: MergeTagsInput{
				Existing:  []string{"v0.2.0", "v0.1.0"},
				Generated: []string{"fix"},
			},
			want: []string{"fix", "v0.2.0"},
		},
		{
			name: "max truncates",
			in: MergeTagsInput{
				Existing:  []string{"a", "b", "c"},
				Generated: []string{"d"},
				Max:       2,
			},
			want: []string{"d", "a"},
		},
		{
			name: "blank tags dropped",
			in: MergeTagsInput{
				Existing:  []string{"", "  ", "kept"},
				Generated: []string{" "},
			},
			want: []string{"kept"},
		},
		{
			name: "empty inputs with explicit version",
			in: MergeTagsInput{
				VersionTag: "v2.0.0",
			},
			want: []string{"v2.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTaskTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeTaskTags(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMergeTaskTags_Idempotent(t *testing.T) {
	in := MergeTagsInput{
		Existing:   []string{"v1.0.1", "ui"},
		Generated:  []string{"ui", "urgent"},
		VersionTag: "v1.0.2",
	}

	once := MergeTaskTags(in)

	again := MergeTaskTags(MergeTagsInput{
		Existing:   once,
		Generated:  in.Generated,
		VersionTag: in.VersionTag,
	})

	if !reflect.DeepEqual(once, again) {
		t.Errorf("merge not idempotent: %v then %v", once, again)
	}
}

func TestIsVersionTag(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"v1.0.0", true},
		{"v10.2.33", true},
		{"1.0.0", false},
		{"v1.0", false},
		{"release", false},
	}

	for _, tt := range tests {
		if got := IsVersionTag(tt.tag); got != tt.want {
			t.Errorf("IsVersionTag(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}
