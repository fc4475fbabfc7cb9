package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAssembler(t *testing.T) {
	t.Run("creates assembler with defaults", func(t *testing.T) {
		a := NewAssembler()
		require.NotNil(t, a)

		assert.Equal(t, 0, a.maxTokens)
		assert.Equal(t, DefaultTruncationFloorTokens, a.truncationFloor)
		assert.Equal(t, ProfileGeneric, a.profile)
		assert.NotNil(t, a.estimator)
	})

	t.Run("options apply", func(t *testing.T) {
		a := NewAssembler(
			WithMaxTokens(1000),
			WithTruncationFloor(50),
			WithProfile(ProfileAnthropic),
		)
		assert.Equal(t, 1000, a.maxTokens)
		assert.Equal(t, 50, a.truncationFloor)
		assert.Equal(t, ProfileAnthropic, a.profile)
	})
}

func TestAssembler_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func() *Assembler
	}{
		{
			name: "negative budget",
			setup: func() *Assembler {
				return NewAssembler(WithMaxTokens(-1))
			},
		},
		{
			name: "negative truncation floor",
			setup: func() *Assembler {
				return NewAssembler(WithTruncationFloor(-10))
			},
		},
		{
			name: "truncation split sums past 1.0",
			setup: func() *Assembler {
				return NewAssembler(WithTruncationSplit(0.7, 0.4))
			},
		},
		{
			name: "required component with unresolvable cost",
			setup: func() *Assembler {
				a := NewAssembler()
				a.Add(&Component{Type: TypeIdentity, Content: "x", Required: true, TokenCost: -5})
				return a
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup().Assemble()
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestAssembler_FilterAndOrdering(t *testing.T) {
	t.Run("empty and false-condition components are filtered", func(t *testing.T) {
		a := NewAssembler()
		a.AddAll(
			&Component{Type: TypeIdentity, Content: "keep me", Priority: 1},
			&Component{Type: TypeMemory, Content: "   \n\t  ", Priority: 2},
			&Component{Type: TypeVoice, Content: "gated out", Priority: 3, Condition: func() bool { return false }},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Equal(t, "keep me", out)
		assert.Equal(t, 1, a.Metrics().ComponentCount)
	})

	t.Run("lower priority appears strictly earlier", func(t *testing.T) {
		a := NewAssembler()
		a.AddAll(
			&Component{Type: TypeMemory, Content: "third", Priority: 30},
			&Component{Type: TypeIdentity, Content: "first", Priority: 10},
			&Component{Type: TypeGuidance, Content: "second", Priority: 20},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))
		assert.Less(t, strings.Index(out, "second"), strings.Index(out, "third"))
	})

	t.Run("priority ties preserve insertion order", func(t *testing.T) {
		a := NewAssembler()
		a.AddAll(
			&Component{Type: TypeCustom, Content: "alpha", Priority: 5},
			&Component{Type: TypeCustom, Content: "bravo", Priority: 5},
			&Component{Type: TypeCustom, Content: "charlie", Priority: 5},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Equal(t, "alpha\n\nbravo\n\ncharlie", out)
	})
}

func TestAssembler_BudgetEnforcement(t *testing.T) {
	t.Run("everything kept when within budget", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(100))
		a.AddAll(
			&Component{Type: TypeIdentity, Content: "id", Priority: 1, Required: true, TokenCost: 20},
			&Component{Type: TypeMemory, Content: "mem", Priority: 2, TokenCost: 30},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Contains(t, out, "id")
		assert.Contains(t, out, "mem")
		assert.True(t, a.Metrics().WithinBudget)
		assert.False(t, a.Metrics().Degraded())
	})

	// Scenario: required 20 + optionals 30/30 against a 40-token budget.
	// Both optionals overflow independently, so only the required survives.
	t.Run("optionals dropped when they overflow", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(40))
		a.AddAll(
			&Component{Type: TypeIdentity, Content: "A content", Priority: 1, Required: true, TokenCost: 20},
			&Component{Type: TypeMemory, Content: "B content", Priority: 2, TokenCost: 30},
			&Component{Type: TypeKnowledge, Content: "C content", Priority: 3, TokenCost: 30},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Equal(t, "A content", out)

		m := a.Metrics()
		assert.Equal(t, 1, m.ComponentCount)
		assert.Equal(t, 20, m.TotalTokens)
		assert.Equal(t, 2, m.DroppedOptional)
		assert.True(t, m.WithinBudget)
	})

	t.Run("scanning continues past an optional that misses", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(40))
		a.AddAll(
			&Component{Type: TypeIdentity, Content: "A content", Priority: 1, Required: true, TokenCost: 20},
			&Component{Type: TypeMemory, Content: "B content", Priority: 2, TokenCost: 30},
			&Component{Type: TypeKnowledge, Content: "C content", Priority: 3, TokenCost: 15},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.NotContains(t, out, "B content")
		assert.Contains(t, out, "A content")
		assert.Contains(t, out, "C content")

		m := a.Metrics()
		assert.Equal(t, 1, m.DroppedOptional)
		assert.Equal(t, 35, m.TotalTokens)
		assert.True(t, m.WithinBudget)
	})

	t.Run("budget invariant holds across mixed component sets", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(60))
		a.AddAll(
			&Component{Type: TypeIdentity, Content: "id", Priority: 1, Required: true, TokenCost: 25},
			&Component{Type: TypeGuidance, Content: "guide", Priority: 2, Required: true, TokenCost: 25},
			&Component{Type: TypeMemory, Content: "m1", Priority: 3, TokenCost: 12},
			&Component{Type: TypeMemory, Content: "m2", Priority: 4, TokenCost: 9},
			&Component{Type: TypeVoice, Content: "v", Priority: 5, TokenCost: 8},
		)

		_, err := a.Assemble()
		require.NoError(t, err)
		assert.LessOrEqual(t, a.Metrics().TotalTokens, 60)
	})
}

func TestAssembler_RequiredTruncation(t *testing.T) {
	// ~2000 tokens of required content under the heuristic estimator.
	bigContent := strings.Repeat("The dragon kept careful watch over the valley. ", 170)

	t.Run("dropped when remaining budget is below the floor", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(300), WithTruncationFloor(500))
		a.Add(&Component{Type: TypeIdentity, Content: bigContent, Priority: 1, Required: true})

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Empty(t, out)

		m := a.Metrics()
		assert.Equal(t, 0, m.ComponentCount)
		assert.Equal(t, 1, m.DroppedRequired)
		assert.Equal(t, 0, m.TruncatedRequired)
	})

	t.Run("truncated with visible marker when floor allows", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(300), WithTruncationFloor(100))
		a.Add(&Component{Type: TypeIdentity, Content: bigContent, Priority: 1, Required: true})

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Contains(t, out, "[... identity truncated ...]")
		assert.True(t, strings.HasPrefix(out, "The dragon kept careful watch"))

		m := a.Metrics()
		assert.Equal(t, 1, m.TruncatedRequired)
		assert.Equal(t, 0, m.DroppedRequired)
		assert.LessOrEqual(t, m.TotalTokens, 300)
	})

	t.Run("keeps head and tail around the marker", func(t *testing.T) {
		head := strings.Repeat("begin ", 200)
		tail := strings.Repeat("close ", 200)
		content := head + strings.Repeat("middle ", 400) + tail

		a := NewAssembler(WithMaxTokens(200), WithTruncationFloor(100))
		a.Add(&Component{Type: TypeGuidance, Content: content, Priority: 1, Required: true})

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Contains(t, out, "begin")
		assert.Contains(t, out, "close")
		assert.Contains(t, out, "[... guidance truncated ...]")
	})

	t.Run("multi-byte content stays within budget after truncation", func(t *testing.T) {
		// 2000 runes but 6000 bytes: ~1500 tokens under the heuristic,
		// 3x what a rune count would suggest.
		a := NewAssembler(WithMaxTokens(600), WithTruncationFloor(500))
		a.Add(&Component{Type: TypeIdentity, Content: strings.Repeat("日", 2000), Priority: 1, Required: true})

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Contains(t, out, "[... identity truncated ...]")
		assert.True(t, utf8.ValidString(out))

		m := a.Metrics()
		assert.Equal(t, 1, m.TruncatedRequired)
		assert.Equal(t, 0, m.DroppedRequired)
		assert.LessOrEqual(t, m.TotalTokens, 600)
		assert.True(t, m.WithinBudget)
	})

	t.Run("later required components dropped once budget is exhausted", func(t *testing.T) {
		a := NewAssembler(WithMaxTokens(200), WithTruncationFloor(50))
		a.AddAll(
			&Component{Type: TypeIdentity, Content: strings.Repeat("a", 360), Priority: 1, Required: true},          // 90 tokens
			&Component{Type: TypeGuidance, Content: strings.Repeat("b", 640), Priority: 2, Required: true},          // 160 tokens
			&Component{Type: TypeAntiHallucination, Content: strings.Repeat("c", 400), Priority: 3, Required: true}, // 100 tokens
		)

		_, err := a.Assemble()
		require.NoError(t, err)

		m := a.Metrics()
		assert.LessOrEqual(t, m.TotalTokens, 200)
		// First fits whole, second is truncated into the remaining
		// allowance, third falls below the floor and is dropped.
		assert.Equal(t, 2, m.ComponentCount)
		assert.Equal(t, 1, m.TruncatedRequired)
		assert.Equal(t, 1, m.DroppedRequired)
		assert.True(t, m.Degraded())
	})
}

func TestAssembler_Deduplication(t *testing.T) {
	t.Run("identical content survives once at the earlier position", func(t *testing.T) {
		a := NewAssembler()
		a.AddAll(
			&Component{Type: TypeMemory, Content: "User likes coffee. Blah blah.", Priority: 2},
			&Component{Type: TypeGuidance, Content: "other content", Priority: 3},
			&Component{Type: TypeMemory, Content: "User likes coffee. Blah blah.", Priority: 5},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(out, "User likes coffee. Blah blah."))
		assert.Less(t, strings.Index(out, "User likes coffee"), strings.Index(out, "other content"))
		assert.Equal(t, 1, a.Metrics().Deduplicated)
	})

	t.Run("fingerprint is case-folded and trimmed", func(t *testing.T) {
		a := NewAssembler()
		a.AddAll(
			&Component{Type: TypeMemory, Content: "User Likes Coffee.", Priority: 1},
			&Component{Type: TypeMemory, Content: "  user likes coffee.  ", Priority: 2},
		)

		out, err := a.Assemble()
		require.NoError(t, err)
		assert.Equal(t, "User Likes Coffee.", out)
	})

	t.Run("divergence past the fingerprint window still collides", func(t *testing.T) {
		shared := strings.Repeat("x", 200)
		a := NewAssembler()
		a.AddAll(
			&Component{Type: TypeKnowledge, Content: shared + " ending one", Priority: 1},
			&Component{Type: TypeKnowledge, Content: shared + " ending two", Priority: 2},
		)

		_, err := a.Assemble()
		require.NoError(t, err)
		assert.Equal(t, 1, a.Metrics().Deduplicated)
	})
}

func TestAssembler_Idempotence(t *testing.T) {
	build := func() *Assembler {
		a := NewAssembler(WithMaxTokens(50))
		a.AddAll(
			&Component{Type: TypeIdentity, Content: "identity text", Priority: 1, Required: true, TokenCost: 20},
			&Component{Type: TypeMemory, Content: "memory text", Priority: 2, TokenCost: 40},
			&Component{Type: TypeVoice, Content: "voice text", Priority: 3, TokenCost: 25},
		)
		return a
	}

	a := build()
	first, err := a.Assemble()
	require.NoError(t, err)
	firstMetrics := a.Metrics()

	second, err := a.Assemble()
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Metrics are byte-identical aside from the per-call correlation ID.
	diff := cmp.Diff(firstMetrics, a.Metrics(),
		cmpopts.IgnoreFields(AssemblyMetrics{}, "AssemblyID"))
	assert.Empty(t, diff)
}

func TestAssembler_Metrics(t *testing.T) {
	a := NewAssembler()
	a.AddAll(
		&Component{Type: TypeIdentity, Content: "who I am", Priority: 1, Required: true},
		&Component{Type: TypeMemory, Content: "what I remember", Priority: 2},
		&Component{Type: TypeMemory, Content: "something else entirely", Priority: 3},
	)

	_, err := a.Assemble()
	require.NoError(t, err)

	m := a.Metrics()
	assert.NotEmpty(t, m.AssemblyID)
	assert.Equal(t, 3, m.ComponentCount)
	assert.Equal(t, 1, m.RequiredCount)
	assert.Equal(t, 2, m.OptionalCount)
	assert.Equal(t, 1, m.PerType[TypeIdentity])
	assert.Equal(t, 2, m.PerType[TypeMemory])
	assert.True(t, m.WithinBudget)
	assert.Greater(t, m.TotalTokens, 0)
	assert.Greater(t, m.TotalChars, 0)

	t.Run("fresh metrics per call", func(t *testing.T) {
		_, err := a.Assemble()
		require.NoError(t, err)
		assert.NotEqual(t, m.AssemblyID, a.Metrics().AssemblyID)
	})

	t.Run("summary line is loggable", func(t *testing.T) {
		s := m.String()
		assert.Contains(t, s, "components=3")
		assert.Contains(t, s, "required=1")
	})
}

func TestAssembler_EmptyInput(t *testing.T) {
	a := NewAssembler(WithMaxTokens(100))
	out, err := a.Assemble()
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, a.Metrics().ComponentCount)
	assert.True(t, a.Metrics().WithinBudget)
}
