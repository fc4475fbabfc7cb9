// Package window decides how many trailing conversation exchanges to include
// as recent history. Selection is a pure function of the history it is
// handed: no hidden state, no I/O.
package window

import (
	"strings"

	"promptweave/internal/logging"
)

// Exchange is one conversation turn. Histories are chronologically ordered,
// oldest first.
type Exchange struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

const (
	// baseWindow is the default number of trailing exchanges.
	baseWindow = 3

	// extendedWindow is used when a heuristic asks for more context.
	extendedWindow = 4

	// shortReactionMaxWords: a latest message at or under this length is
	// treated as a reaction ("lol", "wait what") that needs more history
	// to interpret.
	shortReactionMaxWords = 3

	// referenceScanDepth is how many trailing messages are scanned for
	// back-reference markers.
	referenceScanDepth = 6

	// densityThresholdChars bounds the character footprint of scanned
	// messages: past it, content is already dense and the extension
	// shrinks back to the base window.
	densityThresholdChars = 600

	// topicFrequencyThreshold is the dominant-bucket share required for
	// the topic-continuity extension.
	topicFrequencyThreshold = 0.6
)

// referenceMarkers flag anaphoric or temporal back-references in a message.
// Single words are matched against tokenized content; multi-word phrases by
// substring.
var referenceMarkers = []string{
	"that", "it", "this", "earlier", "before", "again", "previously",
	"you said", "you mentioned", "you told", "last time", "remember when",
	"the one", "like you said",
}

// topicBuckets are coarse keyword buckets for topic-continuity detection.
var topicBuckets = map[string][]string{
	"work":     {"work", "job", "meeting", "boss", "project", "deadline", "office"},
	"food":     {"eat", "food", "dinner", "lunch", "breakfast", "coffee", "cook", "recipe"},
	"media":    {"game", "movie", "show", "music", "song", "watch", "play", "episode"},
	"feelings": {"feel", "feeling", "sad", "happy", "tired", "stressed", "excited", "anxious"},
	"plans":    {"tomorrow", "weekend", "trip", "plan", "visit", "later", "tonight"},
}

// SelectWindow decides how many trailing exchanges to include, using
// reaction/reference/topic heuristics. The result is always capped by the
// available history length.
func SelectWindow(history []Exchange) int {
	available := len(history)
	if available == 0 {
		return 0
	}
	log := logging.Get(logging.CategoryWindow)

	latest := history[available-1]

	// Short-reaction override: a terse latest message carries no context
	// of its own, so extend regardless of other signals.
	if wordCount(latest.Content) <= shortReactionMaxWords {
		log.Debug("short reaction %q, extending window", latest.Content)
		return min(extendedWindow, available)
	}

	scanned := history[max(0, available-referenceScanDepth):]
	footprint := 0
	for _, ex := range scanned {
		footprint += len(ex.Content)
	}

	// Reference-detection override: back-references need the referred-to
	// material in view. The extension shrinks when the scanned content is
	// already dense.
	if hasBackReference(scanned) {
		if footprint < densityThresholdChars {
			log.Debug("back-reference found, footprint %d, extending window", footprint)
			return min(extendedWindow, available)
		}
		log.Debug("back-reference found but content dense (%d chars), base window", footprint)
		return min(baseWindow, available)
	}

	// Topic-continuity override: a sustained topic thread earns more
	// history, but only when the footprint is well under threshold.
	if footprint < densityThresholdChars/2 && hasDominantTopic(scanned) {
		log.Debug("dominant topic thread, extending window")
		return min(extendedWindow, available)
	}

	return min(baseWindow, available)
}

// hasBackReference reports whether any scanned message contains an
// anaphoric or temporal back-reference marker.
func hasBackReference(scanned []Exchange) bool {
	for _, ex := range scanned {
		lowered := strings.ToLower(ex.Content)
		tokens := tokenize(lowered)
		for _, marker := range referenceMarkers {
			if strings.Contains(marker, " ") {
				if strings.Contains(lowered, marker) {
					return true
				}
				continue
			}
			for _, tok := range tokens {
				if tok == marker {
					return true
				}
			}
		}
	}
	return false
}

// hasDominantTopic reports whether one topic bucket covers at least 60% of
// the scanned messages.
func hasDominantTopic(scanned []Exchange) bool {
	if len(scanned) == 0 {
		return false
	}

	counts := make(map[string]int)
	for _, ex := range scanned {
		if bucket := classifyTopic(ex.Content); bucket != "" {
			counts[bucket]++
		}
	}

	for _, n := range counts {
		if float64(n)/float64(len(scanned)) >= topicFrequencyThreshold {
			return true
		}
	}
	return false
}

// classifyTopic returns the first bucket with a keyword hit, or "".
// Bucket iteration is ordered for determinism.
func classifyTopic(content string) string {
	tokens := tokenize(strings.ToLower(content))
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}

	for _, bucket := range []string{"work", "food", "media", "feelings", "plans"} {
		for _, keyword := range topicBuckets[bucket] {
			if _, ok := tokenSet[keyword]; ok {
				return bucket
			}
		}
	}
	return ""
}

// tokenize splits content into words with surrounding punctuation stripped.
func tokenize(content string) []string {
	fields := strings.Fields(content)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, ".,!?;:\"'()[]")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

