package security

import "strings"

// LeakGuard watches a growing response buffer for fragments of the hidden
// instruction envelope. Callers append each chunk to the accumulated buffer
// and call Observe before forwarding the chunk; re-checking the whole buffer
// catches markers that straddle chunk boundaries, and withholding the
// triggering chunk means a marker's full text never reaches the client.
type LeakGuard struct {
	markers []string
}

// NewLeakGuard creates a guard for the given marker strings. Markers must be
// strings that only occur inside the instruction envelope (the canary token
// plus the envelope's section headings).
func NewLeakGuard(markers []string) *LeakGuard {
	out := make([]string, len(markers))
	copy(out, markers)
	return &LeakGuard{markers: out}
}

// Observe checks the accumulated output so far. Returns whether any marker
// appeared and which ones matched.
func (g *LeakGuard) Observe(buffer string) (leaked bool, matched []string) {
	for _, marker := range g.markers {
		if strings.Contains(buffer, marker) {
			matched = append(matched, marker)
		}
	}
	return len(matched) > 0, matched
}
