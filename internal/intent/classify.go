package intent

import (
	"strings"

	"github.com/google/uuid"
)

// planNamespace scopes plan ids so they never collide with other
// name-based UUIDs.
var planNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("sidekick:intent-plan"))

// placeholderConfidence is reported for every plan until a real model backs
// the classifier.
const placeholderConfidence = 0.9

// Classify is a keyword placeholder, not language understanding: any input
// mentioning "folder" opens the Downloads folder, everything else becomes
// a web search for the input. The plan id is derived from the input, so the
// same input always yields the same id.
func Classify(input string) Plan {
	action := WebSearch(input)
	if strings.Contains(strings.ToLower(input), "folder") {
		action = OpenFolder("Downloads")
	}

	return Plan{
		ID:         uuid.NewSHA1(planNamespace, []byte(input)).String(),
		Action:     action,
		Candidates: []Candidate{},
		Confidence: placeholderConfidence,
	}
}
