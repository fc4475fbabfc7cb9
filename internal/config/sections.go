package config

import "fmt"

// SectionsConfig configures the adaptive section builder, which budgets in
// words - a coarser heuristic than the assembler's token budget.
type SectionsConfig struct {
	// MaxWords is the word budget for the combined sections (default: 800)
	MaxWords int `yaml:"max_words" json:"max_words"`

	// TrimThresholds are the per-section detail-trimming rules applied in
	// the first degradation phase
	TrimThresholds SectionTrimThresholds `yaml:"trim_thresholds" json:"trim_thresholds"`
}

// SectionTrimThresholds holds per-section word/line allowances for detail
// trimming. Memory and guidelines keep a larger allowance because
// continuity and behavioral correctness are weighted above static flavor.
type SectionTrimThresholds struct {
	// IdentityWords: past this size the identity section keeps only its
	// first line (default: 60)
	IdentityWords int `yaml:"identity_words" json:"identity_words"`

	// PersonalityLines: header plus this many detail lines (default: 3)
	PersonalityLines int `yaml:"personality_lines" json:"personality_lines"`

	// VoiceLines: header plus this many detail lines (default: 3)
	VoiceLines int `yaml:"voice_lines" json:"voice_lines"`

	// AIHandlingLines: header plus this many detail lines (default: 4)
	AIHandlingLines int `yaml:"ai_handling_lines" json:"ai_handling_lines"`

	// MemoryLines: header plus this many detail lines (default: 6)
	MemoryLines int `yaml:"memory_lines" json:"memory_lines"`

	// GuidelineLines: header plus this many detail lines (default: 6)
	GuidelineLines int `yaml:"guideline_lines" json:"guideline_lines"`
}

// DefaultSectionsConfig returns section builder defaults.
func DefaultSectionsConfig() SectionsConfig {
	return SectionsConfig{
		MaxWords: 800,
		TrimThresholds: SectionTrimThresholds{
			IdentityWords:    60,
			PersonalityLines: 3,
			VoiceLines:       3,
			AIHandlingLines:  4,
			MemoryLines:      6,
			GuidelineLines:   6,
		},
	}
}

// Validate rejects malformed word budgets.
func (c SectionsConfig) Validate() error {
	if c.MaxWords < 0 {
		return fmt.Errorf("sections.max_words must be >= 0, got %d", c.MaxWords)
	}
	return nil
}
