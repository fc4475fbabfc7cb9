// Package prompt implements the token-budgeted prompt assembly engine for
// promptweave. It turns a set of prioritized, conditionally-included text
// fragments ("components") into a single final prompt string while respecting
// a hard token budget, preserving the most important content, deduplicating
// repeated material, and degrading gracefully - never erroring - when content
// exceeds budget.
//
// The engine achieves graceful degradation through:
// 1. Priority ordering - lower priority values are emitted (and preserved) first
// 2. Continue-scanning greedy fill - an optional component that does not fit is
//    dropped, but scanning continues to later optional components
// 3. Intelligent truncation - required components that overflow the budget are
//    head/tail spliced around a visible marker rather than cut mid-thought
// 4. Fingerprint deduplication - repeated material survives exactly once
package prompt

import (
	"strings"
)

// ComponentType identifies a fragment's semantic role in the final prompt.
// Types carry no identity of their own; they drive default ordering and
// formatter section headings.
type ComponentType string

const (
	// TypeIdentity defines who the persona is and its core traits.
	TypeIdentity ComponentType = "identity"

	// TypePersonality contains personality flavor detail.
	TypePersonality ComponentType = "personality"

	// TypeVoice contains voice and speaking-style guidance.
	TypeVoice ComponentType = "voice"

	// TypeMemory contains pre-ranked narrative memory context.
	TypeMemory ComponentType = "memory"

	// TypeGuidance contains response guidelines and behavioral rules.
	TypeGuidance ComponentType = "guidance"

	// TypeAntiHallucination contains anti-hallucination guardrails.
	TypeAntiHallucination ComponentType = "anti_hallucination"

	// TypeAIHandling contains guidance for handling AI-identity questions.
	TypeAIHandling ComponentType = "ai_handling"

	// TypeConversation contains recent conversation history.
	TypeConversation ComponentType = "conversation"

	// TypeKnowledge contains pre-ranked knowledge narrative.
	TypeKnowledge ComponentType = "knowledge"

	// TypeCustom is the catch-all for caller-defined fragments.
	TypeCustom ComponentType = "custom"
)

// AllComponentTypes returns all defined component types.
func AllComponentTypes() []ComponentType {
	return []ComponentType{
		TypeIdentity,
		TypePersonality,
		TypeVoice,
		TypeMemory,
		TypeGuidance,
		TypeAntiHallucination,
		TypeAIHandling,
		TypeConversation,
		TypeKnowledge,
		TypeCustom,
	}
}

// Meta is a typed, open extension side-table for profile-specific hints.
// Required component fields stay statically checked on Component itself;
// anything formatter- or caller-specific lives here.
type Meta map[string]string

// Get returns the hint for key, or "" when absent.
func (m Meta) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Set stores a hint, allocating the table on first use.
func (m *Meta) Set(key, value string) {
	if *m == nil {
		*m = make(Meta)
	}
	(*m)[key] = value
}

// Component represents a single named, priority-tagged prompt fragment.
// Components are the fundamental building blocks of assembled prompts.
// Once passed to Assemble, a component list is treated as frozen for that
// call; Condition predicates must be pure for the call's duration.
type Component struct {
	// Type classifies the fragment's semantic role
	Type ComponentType

	// Content is the actual prompt text
	Content string

	// Priority determines ordering (lower = earlier in the prompt)
	Priority int

	// Required components survive budget pressure until the truncation
	// floor makes them unreadable
	Required bool

	// Condition is an optional zero-arg inclusion predicate.
	// Nil means "always include when content is non-empty".
	Condition func() bool

	// TokenCost is the explicit token cost if known (from a real
	// tokenizer). Zero means "estimate from content".
	TokenCost int

	// Meta holds open, profile-specific hints
	Meta Meta
}

// ShouldInclude reports whether this component belongs in the assembled
// prompt: false if content is empty/whitespace or a present condition
// predicate evaluates false. No side effects.
func (c *Component) ShouldInclude() bool {
	if strings.TrimSpace(c.Content) == "" {
		return false
	}
	if c.Condition != nil && !c.Condition() {
		return false
	}
	return true
}

// EstimateTokenCost returns the explicit cost if set, falling back to the
// chars/4 heuristic. Callers needing exactness must supply TokenCost from a
// real tokenizer (see TiktokenEstimator).
func (c *Component) EstimateTokenCost() int {
	if c.TokenCost > 0 {
		return c.TokenCost
	}
	return EstimateTokens(c.Content)
}

// fingerprintLength is how many characters of normalized content
// participate in the deduplication fingerprint.
const fingerprintLength = 200

// Fingerprint returns the normalized dedup fingerprint: case-folded,
// whitespace-trimmed, first 200 characters of content.
func (c *Component) Fingerprint() string {
	normalized := strings.ToLower(strings.TrimSpace(c.Content))
	runes := []rune(normalized)
	if len(runes) > fingerprintLength {
		runes = runes[:fingerprintLength]
	}
	return string(runes)
}

// charsPerToken is the approximation ratio used when no explicit cost or
// exact estimator is available. English prose averages roughly four
// characters per token.
const charsPerToken = 4

// EstimateTokens estimates the token count for content using the chars/4
// approximation. This is a fast heuristic; actual tokenization varies by
// model.
func EstimateTokens(content string) int {
	if content == "" {
		return 0
	}
	return (len(content) + charsPerToken - 1) / charsPerToken
}
