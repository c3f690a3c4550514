package chat

// ResponseSource is the closed set of provenance tags for a chat response.
// Every handler path must map to exactly one of these.
type ResponseSource string

const (
	// SourceLLMStream marks a live streamed model response.
	SourceLLMStream ResponseSource = "llm-stream"
	// SourceLLMUnavailable marks a canned fallback used when the provider
	// is unreachable or unconfigured.
	SourceLLMUnavailable ResponseSource = "llm-unavailable"
	// SourceRateLimit marks an admission denial.
	SourceRateLimit ResponseSource = "rate-limit"
	// SourceSessionCapped marks a conversation past its visitor-turn ceiling.
	SourceSessionCapped ResponseSource = "session-capped"
	// SourceError marks a client-caused validation failure.
	SourceError ResponseSource = "error"
)
