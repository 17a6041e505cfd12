package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/memesong/memesong/pkg/lyrics"
	"github.com/memesong/memesong/pkg/preset"
)

// FormattingGuide documents the Suno markup conventions. It is embedded in
// every system prompt.
//
//go:embed suno_hints.md
var FormattingGuide string

// Prompt is the pair of messages sent to the language model.
type Prompt struct {
	System string
	User   string
}

const persona = `You are a satirical songwriting genius who turns trending topics and social media posts into viral, funny songs. You playfully roast the subject with clever wordplay and catchy hooks.`

var rules = fmt.Sprintf(`OUTPUT FORMAT (MANDATORY):
1. Answer in EXACTLY this layout:
%[1]s
[A short, punchy, meme-worthy song title]
%[2]s
[One paragraph of Suno style prompt describing BPM, instruments, vocals and energy]
%[3]s
[The complete lyrics using Suno markup]

2. The title must be quotable and capture the essence of the roast (e.g. "Ratio King").
3. The style is a single paragraph such as: "Sarcastic cyberpunk deep-house 126 BPM, glitchy female vocals..."
4. Lyrics use [brackets] for structure and (parentheses) for vocal directions.
5. Include [Intro], [Verse], [Chorus], [Bridge] and [Outro] sections.
6. Make it catchy, meme-worthy and shareable.
7. Keep it to 2-3 minutes of lyrics.

PARENTHESES PLACEMENT:
- NEVER end a lyric line with a (vocal hint), Suno would sing it.
- ALWAYS put hints like (Whispered), (Shouted) or (Echoes) on their OWN LINE before the lyrics they affect.
- Correct:
  (Whispered)
  These secrets burn inside
- Wrong (gets sung):
  These secrets burn inside (whispered)

LANGUAGE RULE (NON-NEGOTIABLE):
- ALL lyrics MUST be written in ENGLISH.
- This holds even when the musical STYLE is French, Italian, Spanish, Russian, German or anything else: the instrumentation may sound foreign, the WORDS stay English.
- At most 2 short foreign exclamations per song (like "Oh la la!" or "¡Ay!"); every actual lyric line is English.
- Never write a verse, chorus or bridge in another language. If you notice you are doing it, stop and rewrite it in English.

DATES AND NUMBERS:
- Spell out every date from the content in full words so it is sung naturally.
- "Dec 10, 2025" becomes "December tenth, twenty twenty-five".
- "1/15/24" becomes "January fifteenth, twenty twenty-four".`,
	lyrics.TitleMarker, lyrics.StyleMarker, lyrics.LyricsMarker)

// System returns the system prompt.
func System() string {
	return persona + "\n\n" + FormattingGuide + "\n\n" + rules
}

// User returns the user prompt for the given content.
func User(content string, p preset.Preset, extra string) string {
	var sb strings.Builder
	sb.WriteString("Here is text extracted from a social media post/screenshot. Create a satirical song about it:\n\n")
	sb.WriteString("--- POST CONTENT ---\n")
	sb.WriteString(content)
	sb.WriteString("\n--- END POST ---")
	if extra != "" {
		sb.WriteString("\n\n--- ADDITIONAL CONTEXT/DIRECTION ---\n")
		sb.WriteString(extra)
		sb.WriteString("\n--- END CONTEXT ---\n\n")
		sb.WriteString("Use this additional context to guide the tone, focus or direction of the lyrics.")
	}
	fmt.Fprintf(&sb, "\n\nSTYLE DIRECTION: %s\n", p.Name)
	fmt.Fprintf(&sb, "Base style: %s\n", p.StylePrompt)
	fmt.Fprintf(&sb, "Tone: %s\n\n", p.Tone)
	sb.WriteString("Create a song that:\n")
	sb.WriteString("1. Captures the essence and absurdity of what's being said\n")
	sb.WriteString("2. Has a catchy, quotable chorus\n")
	sb.WriteString("3. Uses clever wordplay and references to the content\n")
	fmt.Fprintf(&sb, "4. Matches the %q energy perfectly\n", p.Name)
	sb.WriteString("5. Is formatted for Suno with proper structure hints\n\n")
	sb.WriteString("GO! Make it funny and viral-worthy.")
	return sb.String()
}

// Build renders both prompts.
func Build(content string, p preset.Preset, extra string) Prompt {
	return Prompt{
		System: System(),
		User:   User(content, p, extra),
	}
}
