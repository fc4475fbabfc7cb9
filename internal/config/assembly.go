package config

import "fmt"

// AssemblyConfig configures the token-budgeted component assembler.
type AssemblyConfig struct {
	// MaxTokens is the hard token budget for assembled prompts.
	// Zero means unlimited (default: 0)
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// TruncationFloorTokens is the minimum allowance below which a
	// required component is dropped rather than truncated (default: 500)
	TruncationFloorTokens int `yaml:"truncation_floor_tokens" json:"truncation_floor_tokens"`

	// ModelProfile selects output formatting: generic, openai, anthropic,
	// mistral. Unknown values fall back to generic (default: generic)
	ModelProfile string `yaml:"model_profile" json:"model_profile"`

	// ExactTokenizer enables tiktoken-backed cost estimation instead of
	// the chars/4 heuristic (default: false)
	ExactTokenizer bool `yaml:"exact_tokenizer" json:"exact_tokenizer"`
}

// DefaultAssemblyConfig returns assembler defaults.
func DefaultAssemblyConfig() AssemblyConfig {
	return AssemblyConfig{
		MaxTokens:             0,
		TruncationFloorTokens: 500,
		ModelProfile:          "generic",
		ExactTokenizer:        false,
	}
}

// Validate rejects malformed budgets.
func (c AssemblyConfig) Validate() error {
	if c.MaxTokens < 0 {
		return fmt.Errorf("assembly.max_tokens must be >= 0, got %d", c.MaxTokens)
	}
	if c.TruncationFloorTokens < 0 {
		return fmt.Errorf("assembly.truncation_floor_tokens must be >= 0, got %d", c.TruncationFloorTokens)
	}
	return nil
}
