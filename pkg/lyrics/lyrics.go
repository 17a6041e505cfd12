package lyrics

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	TitleMarker  = "---TITLE---"
	StyleMarker  = "---STYLE---"
	LyricsMarker = "---LYRICS---"

	FallbackTitle = "Untitled Banger"
	FallbackStyle = "Unable to parse style"
)

// Song is the generated content, ready to paste into Suno.
type Song struct {
	Title  string `json:"title" yaml:"title" csv:"title"`
	Style  string `json:"style" yaml:"style" csv:"style"`
	Lyrics string `json:"lyrics" yaml:"lyrics" csv:"lyrics"`
}

// Empty reports whether nothing has been generated.
func (s Song) Empty() bool {
	return s.Title == "" && s.Style == "" && s.Lyrics == ""
}

// Markdown renders the song as plain text with headers.
func (s Song) Markdown() string {
	return fmt.Sprintf("# %s\n\n## Style\n\n%s\n\n## Lyrics\n\n%s\n", s.Title, s.Style, s.Lyrics)
}

var markerRe = regexp.MustCompile(`(?i)---(TITLE|STYLE|LYRICS)---`)

// Parse extracts the sections delimited by the markers from a model reply.
//
// Markers are matched case-insensitively and only their first occurrence
// counts. A section ends at the next marker of any kind. Missing sections
// fall back to placeholders, and the whole reply is used as lyrics when no
// lyrics section can be found.
func Parse(raw string) Song {
	sections := map[string]string{}
	matches := markerRe.FindAllStringSubmatchIndex(raw, -1)
	for i, m := range matches {
		name := strings.ToUpper(raw[m[2]:m[3]])
		if _, ok := sections[name]; ok {
			continue
		}
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[name] = strings.TrimSpace(raw[m[1]:end])
	}

	song := Song{
		Title:  sections["TITLE"],
		Style:  sections["STYLE"],
		Lyrics: sections["LYRICS"],
	}
	if song.Title == "" {
		song.Title = FallbackTitle
	}
	if song.Style == "" {
		song.Style = FallbackStyle
	}
	if song.Lyrics == "" {
		song.Lyrics = raw
	}
	return song
}
