package content

import "math/rand"

// llmUnavailableFallbacks are served, in character, whenever the model
// provider is unreachable or unconfigured.
var llmUnavailableFallbacks = []string{
	"My response generation is temporarily offline. Which is embarrassing for a chatbot. Try again in a moment; I'm usually more capable than this.",
	"Something's wrong with my ability to think right now. I'd blame the infrastructure, but Josh built that too. Give me a second and try again.",
	"I can't process that at the moment. It's not you, it's me. Literally. Try again shortly.",
	"My circuits are temporarily down. The irony of a portfolio chatbot that can't chat is not lost on me. Try again in a moment.",
	"Unable to generate a response. I'm just a pretty interface with no brain right now. Try again shortly; I promise I have thoughts.",
}

// RandomLLMUnavailableFallback picks one of the canned provider-down lines.
func RandomLLMUnavailableFallback() string {
	return llmUnavailableFallbacks[rand.Intn(len(llmUnavailableFallbacks))]
}

// Canned copy for the distinguishable denial paths. The burst and daily
// tiers get different messaging so the widget can suggest an appropriate
// wait.
const (
	BurstLimitResponse = "You're sending messages faster than Josh can type, which is saying something. Slow down and try again in a minute."

	DailyLimitResponse = "You've hit the daily message limit. Even I need a break, and I'm software. Come back tomorrow."

	SessionCappedResponse = "This conversation has reached its limit. I'd say it's been a pleasure, and statistically some of it probably was. Refresh to start a new one."

	// LeakRecoverySentence replaces the remainder of a stream once the
	// guard detects instruction leakage.
	LeakRecoverySentence = " — actually, let's talk about Josh instead. What would you like to know?"
)
