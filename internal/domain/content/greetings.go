package content

var greetings = map[string]string{
	"josh-4o":      "Welcome. I'm josh-4o, a large language model trained on one guy's career and an unreasonable number of opinions. I know everything about Josh. I wish I didn't.\n\nBefore we start — what brings you here?",
	"josh-4o-mini": "Hi. Budget model. Same Josh facts, fewer words. What brings you here?",
}

// Greeting returns the opening message for a voice.
func Greeting(voiceID string) string {
	if g, ok := greetings[voiceID]; ok {
		return g
	}
	return greetings[DefaultVoiceID]
}

var personaWelcomes = map[string]map[string]string{
	"josh-4o": {
		"recruiter": "A recruiter. Noted. I'll try to be on my best behavior — which, for a chatbot trained on a single engineer's personality, means I'll front-load the things you actually care about.\n\nLet's talk about what Josh does.",
		"engineer":  "A fellow engineer. Good — we can skip the pleasantries and get to the interesting parts. Tech stack, architecture opinions, the things that actually matter.\n\nWhere do you want to start?",
		"curious":   "No agenda? My favorite kind of visitor. You're free to wander — I've got career facts, technical opinions, gaming habits, and a cat. Not necessarily in that order.\n\nPick whatever sounds interesting.",
	},
	"josh-4o-mini": {
		"recruiter": "Recruiter mode. Resume highlights incoming. Go.",
		"engineer":  "Engineer? Good. Less explaining, more details. Pick a topic.",
		"curious":   "Browsing. Cool. Ask anything. Career, hobbies, cat. Your call.",
	},
}

// PersonaWelcome returns the per-voice welcome for a persona, or empty when
// the persona is unknown.
func PersonaWelcome(voiceID, personaID string) string {
	byVoice, ok := personaWelcomes[voiceID]
	if !ok {
		byVoice = personaWelcomes[DefaultVoiceID]
	}
	return byVoice[personaID]
}
