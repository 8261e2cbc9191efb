package session

import "strings"

// FallbackPrompt is shown when a response needs input but no clean prompt
// line could be extracted from it.
const FallbackPrompt = "The assistant needs more information to continue."

// Classifier decides whether a raw agent response is a request for human
// input, and extracts the clarification prompt when it is.
type Classifier interface {
	Classify(raw string) (prompt string, needsInput bool)
}

// explicit markers emitted by controlled agents.
var markers = []string{
	"[HUMAN INPUT REQUESTED]",
	"HUMAN_INPUT_REQUESTED",
	"[HUMAN INPUT]",
}

// request verbs for the phrasing heuristic.
var requestVerbs = []string{
	"specify",
	"provide",
	"enter",
	"what",
	"which",
	"clarify",
}

// MarkerClassifier is the default classifier. It looks for explicit marker
// substrings first and falls back to a phrasing heuristic: a line containing a
// question mark together with a request verb. The heuristic path is
// best-effort, kept for opaque agents that cannot emit markers.
type MarkerClassifier struct{}

// Classify implements Classifier.
func (MarkerClassifier) Classify(raw string) (string, bool) {
	lines := strings.Split(raw, "\n")

	for _, line := range lines {
		for _, marker := range markers {
			if strings.Contains(line, marker) {
				return extractPrompt(line), true
			}
		}
	}

	for _, line := range lines {
		if !strings.Contains(line, "?") {
			continue
		}
		lower := strings.ToLower(line)
		for _, verb := range requestVerbs {
			if strings.Contains(lower, verb) {
				return extractPrompt(line), true
			}
		}
	}

	return "", false
}

// extractPrompt strips markers and decorative framing characters from a
// matched line, falling back to a generic prompt when nothing is left.
func extractPrompt(line string) string {
	for _, marker := range markers {
		line = strings.ReplaceAll(line, marker, "")
	}
	line = strings.TrimFunc(line, func(r rune) bool {
		switch r {
		case ' ', '\t', '*', '_', '#', '>', '-', '=', '`', '[', ']', '|':
			return true
		}
		return false
	})
	if line == "" {
		return FallbackPrompt
	}
	return line
}
