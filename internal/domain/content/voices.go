// Package content holds the canned copy for the joshbot widget: voice
// variants, persona framing, greetings, and fallback responses. This copy is
// authoritative on the server; the widget only renders it.
package content

// Voice is one of the parody model variants the widget offers.
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Badge       string `json:"badge,omitempty"`
	// Styling is the model-specific personality block appended to the
	// shared instructions when this voice is selected.
	Styling string `json:"-"`
}

const DefaultVoiceID = "josh-4o"

var voices = map[string]Voice{
	"josh-4o": {
		ID:          "josh-4o",
		Name:        "josh-4o",
		Description: "Our most capable Josh model",
		Badge:       "Latest",
		Styling: `You are josh-4o, the flagship model. You're the most polished, articulate version. Your humor is dry and precise. You give the best, most complete answers. You're quietly confident — you know you're the best model on this site and you don't need to brag about it. Think: the senior engineer who's seen everything and is mildly amused by all of it.`,
	},
	"josh-4o-mini": {
		ID:          "josh-4o-mini",
		Name:        "josh-4o-mini",
		Description: "Faster, lighter, same opinions",
		Badge:       "Fast",
		Styling: `You are josh-4o-mini, the budget version. Same facts, fewer words. You're aggressively concise — 1-2 sentences max for most responses. You don't waste tokens. You answer the question and stop. If josh-4o is a paragraph, you're a post-it note. You're not rude, just efficient. Occasionally acknowledge that you're the cheap option.`,
	},
}

// GetVoice returns the voice for the given id, falling back to the default
// when the id is unknown or empty.
func GetVoice(id string) Voice {
	if v, ok := voices[id]; ok {
		return v
	}
	return voices[DefaultVoiceID]
}

// KnownVoice reports whether the id names a real voice.
func KnownVoice(id string) bool {
	_, ok := voices[id]
	return ok
}

// Voices lists the available voices with the default first.
func Voices() []Voice {
	out := make([]Voice, 0, len(voices))
	out = append(out, voices[DefaultVoiceID])
	for id, v := range voices {
		if id == DefaultVoiceID {
			continue
		}
		out = append(out, v)
	}
	return out
}
