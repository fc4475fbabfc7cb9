// Package sections implements the adaptive section builder: candidate prompt
// sections are built at full fidelity first and degraded in two phases only
// when a word budget is exceeded. Sections are gated by externally computed
// context signals; this package performs no detection of its own.
package sections

// Signals are per-request relevance flags from the context signal provider.
// They are advisory only: an all-false set degrades the build to minimal
// identity + guidelines, never an error. Callers whose provider fails must
// substitute a zero-value Signals before invoking the builder.
type Signals struct {
	NeedsPersonality   bool `json:"needs_personality"`
	NeedsVoiceStyle    bool `json:"needs_voice_style"`
	NeedsAIGuidance    bool `json:"needs_ai_guidance"`
	NeedsMemoryContext bool `json:"needs_memory_context"`
	IsGreeting         bool `json:"is_greeting"`
	IsSimpleQuestion   bool `json:"is_simple_question"`

	// Confidence carries per-flag confidence scores, keyed by the flag's
	// json name. Purely observational; inclusion decisions use the booleans.
	Confidence map[string]float64 `json:"confidence,omitempty"`
}
