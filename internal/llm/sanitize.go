package llm

import "strings"

// fillerPrefixes are lower-cased openings models put before the answer.
var fillerPrefixes = []string{"here is", "sure", "output"}

// Sanitize strips conversational filler lines from the start of a model
// response. If nothing would remain, the raw text is kept. The result is
// trimmed of surrounding whitespace and Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	start := 0
	for start < len(lines) && isFiller(lines[start]) {
		start++
	}

	cleaned := strings.Join(lines[start:], "\n")
	if strings.TrimSpace(cleaned) == "" {
		cleaned = raw
	}
	return strings.TrimSpace(cleaned)
}

func isFiller(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	if l == "" || l == "fixed text:" {
		return true
	}
	for _, p := range fillerPrefixes {
		if strings.HasPrefix(l, p) {
			return true
		}
	}
	return false
}
