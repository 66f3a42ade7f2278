package output

import (
	"regexp"
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean id passes through", input: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "spaces become underscores", input: "PPA Tour Final", want: "PPA_Tour_Final"},
		{name: "unsafe chars replaced", input: "a:b/c*d", want: "a_b_c_d"},
		{name: "runs collapse", input: "a   -  b", want: "a_-_b"},
		{name: "leading trailing trimmed", input: "__abc__", want: "abc"},
		{name: "empty input", input: "", want: "item"},
		{name: "only unsafe chars", input: "///", want: "item"},
		{name: "dots and dashes kept", input: "v1.2-final", want: "v1.2-final"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.input); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlug_Truncates(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := Slug(long); len(got) != 200 {
		t.Errorf("Slug() length = %d, want 200", len(got))
	}
}

func TestFrameName(t *testing.T) {
	got := FrameName("abc123", 92.5, "jpg")
	want := "abc123_0000092500ms.jpg"
	if got != want {
		t.Errorf("FrameName() = %q, want %q", got, want)
	}
}

func TestRunID(t *testing.T) {
	seeded := RunID(42, true)
	if !strings.Contains(seeded, "_seed42_") {
		t.Errorf("RunID() with seed = %q, want seed marker", seeded)
	}

	unseeded := RunID(0, false)
	if strings.Contains(unseeded, "seed") {
		t.Errorf("RunID() without seed = %q, want no seed marker", unseeded)
	}

	format := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}Z_`)
	if !format.MatchString(seeded) {
		t.Errorf("RunID() = %q, want timestamp prefix", seeded)
	}

	if RunID(1, true) == RunID(1, true) {
		t.Error("two RunID() calls produced identical IDs")
	}
}
