package prompt

import (
	"fmt"
	"strings"

	"promptweave/internal/logging"
)

// ModelProfile selects the output formatting for a target model family.
type ModelProfile string

const (
	// ProfileGeneric joins components with blank-line separators.
	ProfileGeneric ModelProfile = "generic"

	// ProfileOpenAI adds markdown section headers per component type.
	ProfileOpenAI ModelProfile = "openai"

	// ProfileAnthropic wraps components in named section tags.
	ProfileAnthropic ModelProfile = "anthropic"

	// ProfileMistral emits a single instruction-friendly block.
	ProfileMistral ModelProfile = "mistral"
)

// ParseModelProfile maps a config string to a ModelProfile. Unknown values
// pass through and fall back to generic at format time.
func ParseModelProfile(s string) ModelProfile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ProfileGeneric):
		return ProfileGeneric
	case string(ProfileOpenAI):
		return ProfileOpenAI
	case string(ProfileAnthropic):
		return ProfileAnthropic
	case string(ProfileMistral):
		return ProfileMistral
	default:
		return ModelProfile(s)
	}
}

// formatterFunc renders the final ordered component list as a prompt string.
type formatterFunc func([]*Component) string

// formatters is the closed profile dispatch table. Profiles absent here
// fall back to generic explicitly - never an error, never empty output.
var formatters = map[ModelProfile]formatterFunc{
	ProfileGeneric:   formatGeneric,
	ProfileOpenAI:    formatOpenAI,
	ProfileAnthropic: formatAnthropic,
	ProfileMistral:   formatMistral,
}

// formatPrompt dispatches to the profile's formatter, falling back to
// generic for unknown profiles.
func formatPrompt(profile ModelProfile, comps []*Component) string {
	f, ok := formatters[profile]
	if !ok {
		logging.Get(logging.CategoryAssembly).Warn("unknown model profile %q, falling back to generic", profile)
		f = formatGeneric
	}
	return f(comps)
}

// sectionSeparator is inserted between components in all profiles.
const sectionSeparator = "\n\n"

func formatGeneric(comps []*Component) string {
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, sectionSeparator)
}

func formatOpenAI(comps []*Component) string {
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		parts = append(parts, typeHeading(c.Type)+"\n"+c.Content)
	}
	return strings.Join(parts, sectionSeparator)
}

func formatAnthropic(comps []*Component) string {
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		parts = append(parts, fmt.Sprintf("<section name=%q>\n%s\n</section>", c.Type, c.Content))
	}
	return strings.Join(parts, sectionSeparator)
}

func formatMistral(comps []*Component) string {
	parts := make([]string, 0, len(comps))
	for _, c := range comps {
		parts = append(parts, strings.TrimSpace(c.Content))
	}
	return strings.Join(parts, sectionSeparator)
}

// typeHeading returns a markdown header for a component type.
func typeHeading(t ComponentType) string {
	names := map[ComponentType]string{
		TypeIdentity:          "## Identity",
		TypePersonality:       "## Personality",
		TypeVoice:             "## Voice & Style",
		TypeMemory:            "## Memory Context",
		TypeGuidance:          "## Response Guidelines",
		TypeAntiHallucination: "## Guardrails",
		TypeAIHandling:        "## AI Handling",
		TypeConversation:      "## Recent Conversation",
		TypeKnowledge:         "## Knowledge",
		TypeCustom:            "## Additional Context",
	}

	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("## %s", t)
}
