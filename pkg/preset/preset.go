package preset

import (
	"errors"
	"fmt"
)

var ErrUnknown = errors.New("preset: unknown preset")

// Preset is a named bundle of musical style guidance.
type Preset struct {
	ID          string `json:"id" yaml:"id" csv:"id"`
	Name        string `json:"name" yaml:"name" csv:"name"`
	Emoji       string `json:"emoji" yaml:"emoji" csv:"emoji"`
	Description string `json:"description" yaml:"description" csv:"description"`
	StylePrompt string `json:"style_prompt" yaml:"style_prompt" csv:"style_prompt"`
	Tone        string `json:"tone" yaml:"tone" csv:"tone"`
}

func (p Preset) String() string {
	return fmt.Sprintf("%s %s (%s)", p.Emoji, p.Name, p.ID)
}

// IsZero reports whether no preset was selected.
func (p Preset) IsZero() bool {
	return p.ID == ""
}

var catalog = []Preset{
	{
		ID:          "petty-pop",
		Name:        "Petty Pop",
		Emoji:       "💅",
		Description: "Glossy pop diss track with maximum side-eye",
		StylePrompt: "upbeat synth-pop 118 BPM, bright plucky synths, punchy claps, sassy female vocals, catchy hook, glossy radio production",
		Tone:        "sassy, petty and shady",
	},
	{
		ID:          "diss-rap",
		Name:        "Diss Track",
		Emoji:       "🎤",
		Description: "Hard-hitting rap roast",
		StylePrompt: "aggressive trap diss track 140 BPM, booming 808s, rapid hi-hats, confident male rap vocals, ad-libs, dark minor piano loop",
		Tone:        "savage, cocky and relentless",
	},
	{
		ID:          "power-ballad",
		Name:        "Dramatic Ballad",
		Emoji:       "🎭",
		Description: "Over-the-top emotional ballad about something trivial",
		StylePrompt: "80s power ballad 72 BPM, soaring electric guitar, big gated drums, emotional belted vocals, key change before final chorus",
		Tone:        "melodramatic and mock-serious",
	},
	{
		ID:          "country-roast",
		Name:        "Country Roast",
		Emoji:       "🤠",
		Description: "Twangy storytelling with a smirk",
		StylePrompt: "modern country 100 BPM, twangy telecaster, banjo, fiddle, stomp-clap rhythm, warm male vocals with southern drawl",
		Tone:        "folksy, teasing and tongue-in-cheek",
	},
	{
		ID:          "emo-anthem",
		Name:        "Emo Meltdown",
		Emoji:       "🖤",
		Description: "Pop-punk angst for the timeline",
		StylePrompt: "2000s emo pop-punk 165 BPM, distorted power chords, fast drums, whiny strained male vocals, gang vocals in chorus",
		Tone:        "angsty, self-pitying and ironic",
	},
	{
		ID:          "eurodance",
		Name:        "Eurodance Banger",
		Emoji:       "🪩",
		Description: "Club-ready cheese with a chant-along chorus",
		StylePrompt: "90s eurodance 132 BPM, supersaw leads, four-on-the-floor kick, male rap verses, soaring female chorus vocals",
		Tone:        "euphoric, silly and hype",
	},
	{
		ID:          "sea-shanty",
		Name:        "Sea Shanty",
		Emoji:       "🏴‍☠️",
		Description: "Drunken sing-along for the whole crew",
		StylePrompt: "sea shanty 90 BPM, stomping feet, accordion, fiddle, deep male choir call and response vocals",
		Tone:        "rowdy, mocking and communal",
	},
	{
		ID:          "opera",
		Name:        "Opera Tragedy",
		Emoji:       "🎻",
		Description: "Grand operatic lament",
		StylePrompt: "operatic aria 60 BPM, full orchestra, timpani rolls, dramatic soprano vocals, choir swells",
		Tone:        "grandiose, tragic and absurd",
	},
}

// All returns a copy of the catalog in display order.
func All() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog)
	return out
}

// Default returns the first preset of the catalog.
func Default() Preset {
	return catalog[0]
}

// Lookup returns the preset with the given id.
func Lookup(id string) (Preset, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Get returns the preset with the given id, or the default one when id is
// empty.
func Get(id string) (Preset, error) {
	if id == "" {
		return Default(), nil
	}
	p, ok := Lookup(id)
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	return p, nil
}
