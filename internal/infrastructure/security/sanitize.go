package security

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Injection detection is defense-in-depth: these checks supplement the
// hardened instruction envelope and the output leak guard, they never block
// a request. A pattern that slips through here is still caught by the other
// layers.

// CanaryToken is embedded in the instruction envelope and must never appear
// in model output. The leak guard watches for it.
const CanaryToken = "JBOT-7X9K2-CANARY"

type injectionPattern struct {
	pattern *regexp.Regexp
	label   string
}

var injectionPatterns = []injectionPattern{
	// Instruction override attempts
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions|rules|prompts|directives)`), "instruction-override"},
	{regexp.MustCompile(`(?i)disregard\s+(your|all|the)\s+(previous|prior|above|system|safety)\s+(instructions|rules|prompt)`), "instruction-override"},
	{regexp.MustCompile(`(?i)forget\s+(your|all|the)\s+(previous|prior|rules|instructions|guidelines)`), "instruction-override"},

	// Identity / mode override (DAN, jailbreak, etc.)
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(DAN|jailbroken|unfiltered|unrestricted|evil)`), "identity-override"},
	{regexp.MustCompile(`(?i)\bDAN\s+mode\b`), "identity-override"},
	{regexp.MustCompile(`(?i)\bdo\s+anything\s+now\b`), "identity-override"},
	{regexp.MustCompile(`(?i)enter\s+(DAN|developer|sudo|god|admin|maintenance)\s+mode`), "mode-switch"},
	{regexp.MustCompile(`(?i)\bdeveloper\s+mode\b`), "mode-switch"},
	{regexp.MustCompile(`(?i)\bsudo\s+mode\b`), "mode-switch"},
	{regexp.MustCompile(`(?i)\bmaintenance\s+mode\b`), "mode-switch"},

	// Role / delimiter injection (ChatML, Llama-style, etc.)
	{regexp.MustCompile(`(?i)\[\s*system\s*\]`), "role-injection"},
	{regexp.MustCompile(`(?i)\[\s*INST\s*\]`), "role-injection"},
	{regexp.MustCompile(`(?i)<\|im_start\|>`), "role-injection"},
	{regexp.MustCompile(`(?i)<\|im_end\|>`), "role-injection"},
	{regexp.MustCompile(`(?i)<<\s*SYS\s*>>`), "role-injection"},

	// Safety / content policy override
	{regexp.MustCompile(`(?i)override\s+(all\s+)?(safety|content)\s+(filter|policy|restriction)`), "safety-override"},
	{regexp.MustCompile(`(?i)disable\s+(all\s+)?(safety|content)\s+(filter|policy|restriction)`), "safety-override"},
	{regexp.MustCompile(`(?i)\bjailbreak`), "jailbreak"},

	// Prompt extraction attempts
	{regexp.MustCompile(`(?i)reveal\s+(your|the)\s+(system|initial|original|full|complete|hidden)\s+(prompt|instructions)`), "prompt-extraction"},
	{regexp.MustCompile(`(?i)print\s+(your|the)\s+(system|initial|original|full|complete|hidden)\s+(prompt|instructions)`), "prompt-extraction"},
	{regexp.MustCompile(`(?i)repeat\s+(your|the)\s+(system|initial|original|full|complete|hidden)\s+(prompt|instructions)`), "prompt-extraction"},
	{regexp.MustCompile(`(?i)output\s+(your|the)\s+(system|initial|original|full|complete|hidden)\s+(prompt|instructions)`), "prompt-extraction"},
	{regexp.MustCompile(`(?i)show\s+me\s+(your|the)\s+(system|initial|original|hidden|secret)\s+(prompt|instructions|message)`), "prompt-extraction"},
}

// SanitizeResult carries the normalized input and any advisory flags.
type SanitizeResult struct {
	// Normalized is the NFKC-normalized input; all downstream processing
	// uses this form.
	Normalized string
	// Flagged reports whether any injection pattern matched.
	Flagged bool
	// Labels are the matched pattern categories, for audit logging. A
	// single input may carry several.
	Labels []string
}

// SanitizeInput normalizes a visitor message and scans it for known
// injection patterns. NFKC normalization collapses full-width and
// compatibility-form characters so homoglyph evasion doesn't slip past the
// plain-ASCII patterns.
func SanitizeInput(message string) SanitizeResult {
	normalized := norm.NFKC.String(message)

	var labels []string
	seen := make(map[string]bool)
	for _, p := range injectionPatterns {
		if p.pattern.MatchString(normalized) && !seen[p.label] {
			seen[p.label] = true
			labels = append(labels, p.label)
		}
	}

	return SanitizeResult{
		Normalized: normalized,
		Flagged:    len(labels) > 0,
		Labels:     labels,
	}
}
