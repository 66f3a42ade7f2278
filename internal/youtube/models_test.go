package youtube

import "testing"

func TestClassifyMatchType(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  MatchType
	}{
		{
			name:  "singles by versus",
			title: "Ben Johns vs Federico Staksrud - Championship Sunday",
			want:  MatchSingles,
		},
		{
			name:  "doubles by slash notation",
			title: "Johns/Johns vs Tardio/Tardio at the Masters",
			want:  MatchDoubles,
		},
		{
			name:  "doubles by keyword",
			title: "Mixed Doubles Final Highlights",
			want:  MatchDoubles,
		},
		{
			name:  "singles by keyword",
			title: "Best Singles Rallies of 2025",
			want:  MatchSingles,
		},
		{
			name:  "vs with period",
			title: "Waters vs. Rohrabacher - Quarterfinal",
			want:  MatchSingles,
		},
		{
			name:  "single letter v separator",
			title: "Johns v Staksrud Gold Medal Match",
			want:  MatchSingles,
		},
		{
			name:  "slash only on one side",
			title: "Johns/Johns vs The Field",
			want:  MatchDoubles,
		},
		{
			name:  "no versus separator",
			title: "Tournament Recap and Interviews",
			want:  MatchUnknown,
		},
		{
			name:  "vs inside a word is not a separator",
			title: "Navratilova highlight reel",
			want:  MatchUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMatchType(tt.title); got != tt.want {
				t.Errorf("ClassifyMatchType(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestWatchURL(t *testing.T) {
	want := "https://www.youtube.com/watch?v=abc123"
	if got := WatchURL("abc123"); got != want {
		t.Errorf("WatchURL() = %q, want %q", got, want)
	}
}
