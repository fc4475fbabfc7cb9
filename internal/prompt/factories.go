package prompt

// Default priorities per component type. Lower values are emitted earlier;
// gaps leave room for callers to interleave custom fragments.
const (
	PriorityIdentity          = 10
	PriorityGuidance          = 20
	PriorityAntiHallucination = 30
	PriorityAIHandling        = 40
	PriorityPersonality       = 50
	PriorityVoice             = 60
	PriorityMemory            = 70
	PriorityKnowledge         = 80
	PriorityConversation      = 90
	PriorityCustom            = 100
)

// NewIdentityComponent creates a required identity fragment.
func NewIdentityComponent(content string) *Component {
	return &Component{
		Type:     TypeIdentity,
		Content:  content,
		Priority: PriorityIdentity,
		Required: true,
	}
}

// NewGuidanceComponent creates a required response-guidelines fragment.
func NewGuidanceComponent(content string) *Component {
	return &Component{
		Type:     TypeGuidance,
		Content:  content,
		Priority: PriorityGuidance,
		Required: true,
	}
}

// NewAntiHallucinationComponent creates a required guardrail fragment.
func NewAntiHallucinationComponent(content string) *Component {
	return &Component{
		Type:     TypeAntiHallucination,
		Content:  content,
		Priority: PriorityAntiHallucination,
		Required: true,
	}
}

// NewAIHandlingComponent creates an optional AI-identity-handling fragment.
// The condition gates inclusion on the caller's ai-guidance signal.
func NewAIHandlingComponent(content string, condition func() bool) *Component {
	return &Component{
		Type:      TypeAIHandling,
		Content:   content,
		Priority:  PriorityAIHandling,
		Condition: condition,
	}
}

// NewPersonalityComponent creates an optional personality fragment.
func NewPersonalityComponent(content string, condition func() bool) *Component {
	return &Component{
		Type:      TypePersonality,
		Content:   content,
		Priority:  PriorityPersonality,
		Condition: condition,
	}
}

// NewVoiceComponent creates an optional voice-style fragment.
func NewVoiceComponent(content string, condition func() bool) *Component {
	return &Component{
		Type:      TypeVoice,
		Content:   content,
		Priority:  PriorityVoice,
		Condition: condition,
	}
}

// NewMemoryComponent creates an optional memory-context fragment from a
// pre-ranked, pre-formatted narrative string.
func NewMemoryComponent(content string, condition func() bool) *Component {
	return &Component{
		Type:      TypeMemory,
		Content:   content,
		Priority:  PriorityMemory,
		Condition: condition,
	}
}

// NewKnowledgeComponent creates an optional knowledge fragment.
func NewKnowledgeComponent(content string) *Component {
	return &Component{
		Type:     TypeKnowledge,
		Content:  content,
		Priority: PriorityKnowledge,
	}
}

// NewConversationComponent creates an optional recent-history fragment.
func NewConversationComponent(content string) *Component {
	return &Component{
		Type:     TypeConversation,
		Content:  content,
		Priority: PriorityConversation,
	}
}

// NewCustomComponent creates a caller-defined fragment with explicit
// priority and required-ness.
func NewCustomComponent(content string, priority int, required bool) *Component {
	return &Component{
		Type:     TypeCustom,
		Content:  content,
		Priority: priority,
		Required: required,
	}
}
