package prompt

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AssemblyMetrics is the ephemeral per-call summary of an Assemble run.
// It is recomputed on every call, never persisted, and exists so the LLM
// invocation layer can log what degraded and why.
type AssemblyMetrics struct {
	// AssemblyID correlates this run's log lines with the returned prompt
	AssemblyID string

	// Final composition
	ComponentCount int
	TotalTokens    int
	TotalChars     int
	RequiredCount  int
	OptionalCount  int
	PerType        map[ComponentType]int

	// Budget state
	Budget       int // 0 = unlimited
	WithinBudget bool

	// Degradation records. Any non-zero value here is a
	// DegradedAssemblyWarning: recoverable, logged, never thrown.
	DroppedOptional   int
	DroppedRequired   int
	TruncatedRequired int
	Deduplicated      int
}

func newAssemblyMetrics(budget int) *AssemblyMetrics {
	return &AssemblyMetrics{
		AssemblyID:   uuid.NewString(),
		PerType:      make(map[ComponentType]int),
		Budget:       budget,
		WithinBudget: true,
	}
}

// Degraded reports whether any component was dropped, truncated, or
// deduplicated away during assembly.
func (m *AssemblyMetrics) Degraded() bool {
	return m.DroppedOptional > 0 || m.DroppedRequired > 0 ||
		m.TruncatedRequired > 0 || m.Deduplicated > 0
}

// String renders a single loggable summary line.
func (m *AssemblyMetrics) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "assembly=%s components=%d tokens=%d chars=%d required=%d optional=%d",
		m.AssemblyID, m.ComponentCount, m.TotalTokens, m.TotalChars,
		m.RequiredCount, m.OptionalCount)
	if m.Budget > 0 {
		fmt.Fprintf(&sb, " budget=%d within_budget=%v", m.Budget, m.WithinBudget)
	}
	if m.Degraded() {
		fmt.Fprintf(&sb, " dropped_optional=%d dropped_required=%d truncated=%d deduplicated=%d",
			m.DroppedOptional, m.DroppedRequired, m.TruncatedRequired, m.Deduplicated)
	}
	return sb.String()
}
