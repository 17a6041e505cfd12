package lyrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Song
	}{
		{
			name: "well formed",
			raw:  "---TITLE---\nT\n---STYLE---\nS\n---LYRICS---\nL",
			want: Song{Title: "T", Style: "S", Lyrics: "L"},
		},
		{
			name: "lower case markers",
			raw:  "---title---\nT\n---style---\nS\n---lyrics---\nL",
			want: Song{Title: "T", Style: "S", Lyrics: "L"},
		},
		{
			name: "mixed case and whitespace",
			raw:  "Sure! Here you go:\n\n---Title---   Ratio King  \n\n---STYLE---\n\n  trap 140 BPM\n---Lyrics---\n[Intro]\n(Shouted)\nYEAH\n\n",
			want: Song{Title: "Ratio King", Style: "trap 140 BPM", Lyrics: "[Intro]\n(Shouted)\nYEAH"},
		},
		{
			name: "sections out of order",
			raw:  "---LYRICS---\nL\n---TITLE---\nT\n---STYLE---\nS",
			want: Song{Title: "T", Style: "S", Lyrics: "L"},
		},
		{
			name: "missing style",
			raw:  "---TITLE---\nT\n---LYRICS---\nL",
			want: Song{Title: "T", Style: FallbackStyle, Lyrics: "L"},
		},
		{
			name: "empty title",
			raw:  "---TITLE---\n\n---STYLE---\nS\n---LYRICS---\nL",
			want: Song{Title: FallbackTitle, Style: "S", Lyrics: "L"},
		},
		{
			name: "duplicate marker keeps first",
			raw:  "---TITLE---\nA\n---STYLE---\nS\n---LYRICS---\nL\n---TITLE---\nB",
			want: Song{Title: "A", Style: "S", Lyrics: "L"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestParseWithoutMarkers(t *testing.T) {
	raw := "  I just wrote a song\nwith no markers at all\n"
	assert.Equal(t, Song{Title: FallbackTitle, Style: FallbackStyle, Lyrics: raw}, Parse(raw))
}

func TestParseMissingLyricsUsesWholeReply(t *testing.T) {
	raw := "---TITLE---\nT\n---STYLE---\nS\n---LYRICS---\n   "
	got := Parse(raw)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "S", got.Style)
	assert.Equal(t, raw, got.Lyrics)
}

func TestParseEmpty(t *testing.T) {
	assert.Equal(t, Song{Title: FallbackTitle, Style: FallbackStyle, Lyrics: ""}, Parse(""))
}

func TestSongEmpty(t *testing.T) {
	assert.True(t, Song{}.Empty())
	assert.False(t, Song{Lyrics: "x"}.Empty())
}

func TestMarkdown(t *testing.T) {
	s := Song{Title: "T", Style: "S", Lyrics: "L"}
	assert.Equal(t, "# T\n\n## Style\n\nS\n\n## Lyrics\n\nL\n", s.Markdown())
}
