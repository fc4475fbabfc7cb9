package prompt

import (
	"fmt"
	"sort"

	"promptweave/internal/logging"
)

// DefaultTruncationFloorTokens is the minimum token allowance below which a
// required component is dropped rather than truncated into an unreadable
// fragment.
const DefaultTruncationFloorTokens = 500

// Default head/tail keep ratios for intelligent truncation. Keeping the
// first 50% and last 30% of the character budget preserves lead-in framing
// and closing instructions; the remaining 20% is slack for the marker.
const (
	defaultHeadKeepRatio = 0.5
	defaultTailKeepRatio = 0.3
)

// Assembler is the budgeting/ordering/deduplication/formatting engine.
// Each request must use its own instance; there is no shared mutable state
// across requests and Assemble is deterministic given identical inputs.
type Assembler struct {
	components      []*Component
	maxTokens       int // 0 = unlimited
	truncationFloor int
	headKeepRatio   float64
	tailKeepRatio   float64
	profile         ModelProfile
	estimator       CostEstimator
	lastMetrics     *AssemblyMetrics
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithMaxTokens sets the hard token budget. Zero means unlimited.
func WithMaxTokens(n int) Option {
	return func(a *Assembler) { a.maxTokens = n }
}

// WithTruncationFloor overrides the truncation floor (in tokens).
func WithTruncationFloor(n int) Option {
	return func(a *Assembler) { a.truncationFloor = n }
}

// WithProfile selects the output formatting profile.
func WithProfile(p ModelProfile) Option {
	return func(a *Assembler) { a.profile = p }
}

// WithCostEstimator injects a token cost estimator. Defaults to the chars/4
// heuristic when not set.
func WithCostEstimator(e CostEstimator) Option {
	return func(a *Assembler) { a.estimator = e }
}

// WithTruncationSplit overrides the head/tail keep ratios used by
// intelligent truncation. head+tail must stay below 1.0.
func WithTruncationSplit(head, tail float64) Option {
	return func(a *Assembler) {
		a.headKeepRatio = head
		a.tailKeepRatio = tail
	}
}

// NewAssembler creates a per-request assembler.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		truncationFloor: DefaultTruncationFloorTokens,
		headKeepRatio:   defaultHeadKeepRatio,
		tailKeepRatio:   defaultTailKeepRatio,
		profile:         ProfileGeneric,
		estimator:       HeuristicEstimator{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add appends a component. Insertion order breaks priority ties.
func (a *Assembler) Add(c *Component) {
	if c == nil {
		return
	}
	a.components = append(a.components, c)
}

// AddAll appends components preserving their order.
func (a *Assembler) AddAll(cs ...*Component) {
	for _, c := range cs {
		a.Add(c)
	}
}

// Metrics returns the metrics from the most recent Assemble call, or nil
// before the first call.
func (a *Assembler) Metrics() *AssemblyMetrics {
	return a.lastMetrics
}

// Assemble runs the full pipeline: filter, stable priority sort, budget
// enforcement, deduplication, metrics, formatting. It never errors under
// budget pressure - it degrades and records the degradation in metrics.
// The only error class is *ConfigError for malformed configuration.
func (a *Assembler) Assemble() (string, error) {
	timer := logging.StartTimer(logging.CategoryAssembly, "Assembler.Assemble")
	defer timer.Stop()

	if err := a.validate(); err != nil {
		return "", err
	}

	log := logging.Get(logging.CategoryAssembly)
	metrics := newAssemblyMetrics(a.maxTokens)

	// 1. Filter out empty components and failed conditions
	included := make([]*Component, 0, len(a.components))
	for _, c := range a.components {
		if c.ShouldInclude() {
			included = append(included, c)
		}
	}

	// 2. Stable sort by priority; ties preserve insertion order
	sort.SliceStable(included, func(i, j int) bool {
		return included[i].Priority < included[j].Priority
	})

	// 3+4. Budget enforcement (with required-overflow truncation)
	if a.maxTokens > 0 {
		included = a.enforceBudget(included, metrics, log)
	}

	// 5. Deduplicate by normalized fingerprint; earlier survives
	included = a.deduplicate(included, metrics)

	// 6. Record metrics
	a.recordMetrics(included, metrics)
	a.lastMetrics = metrics

	if metrics.Degraded() {
		log.Warn("degraded assembly: %s", metrics.String())
	} else {
		log.Debug("%s", metrics.String())
	}

	// 7. Format for the target profile
	return formatPrompt(a.profile, included), nil
}

// validate checks for malformed configuration. This is the only path that
// can make Assemble fail.
func (a *Assembler) validate() error {
	if a.maxTokens < 0 {
		return configErrorf("max_tokens", "must be >= 0, got %d", a.maxTokens)
	}
	if a.truncationFloor < 0 {
		return configErrorf("truncation_floor_tokens", "must be >= 0, got %d", a.truncationFloor)
	}
	if a.headKeepRatio < 0 || a.tailKeepRatio < 0 || a.headKeepRatio+a.tailKeepRatio >= 1.0 {
		return configErrorf("truncation_split", "head+tail ratios must be non-negative and sum below 1.0")
	}
	for i, c := range a.components {
		if c.Required && c.TokenCost < 0 {
			return configErrorf("components", "required component %d (%s) has unresolvable cost %d", i, c.Type, c.TokenCost)
		}
	}
	return nil
}

// cost resolves a component's token cost: explicit cost wins, else the
// injected estimator, else chars/4.
func (a *Assembler) cost(c *Component) int {
	if c.TokenCost > 0 {
		return c.TokenCost
	}
	if a.estimator != nil {
		return a.estimator.Cost(c.Content)
	}
	return EstimateTokens(c.Content)
}

// enforceBudget applies the budget to the sorted, filtered component list.
// Policy: if everything fits, keep everything. If required components alone
// overflow, all optionals are dropped and the required set is intelligently
// truncated. Otherwise all required components are kept and optionals are
// filled greedily in priority order - an optional that does not fit is
// dropped, but scanning continues to later, possibly smaller, optionals.
func (a *Assembler) enforceBudget(comps []*Component, m *AssemblyMetrics, log *logging.Logger) []*Component {
	total := 0
	requiredTotal := 0
	optionalCount := 0
	for _, c := range comps {
		cost := a.cost(c)
		total += cost
		if c.Required {
			requiredTotal += cost
		} else {
			optionalCount++
		}
	}

	if total <= a.maxTokens {
		return comps
	}

	log.Debug("over budget: total=%d budget=%d required=%d", total, a.maxTokens, requiredTotal)

	if requiredTotal > a.maxTokens {
		// Required alone overflow: no optional can fit.
		m.DroppedOptional += optionalCount
		required := make([]*Component, 0, len(comps)-optionalCount)
		for _, c := range comps {
			if c.Required {
				required = append(required, c)
			}
		}
		return a.truncateRequired(required, m, log)
	}

	// All required fit. Pre-charge their total, then scan optionals in
	// priority order, continuing past misses.
	kept := make([]*Component, 0, len(comps))
	running := requiredTotal
	for _, c := range comps {
		if c.Required {
			kept = append(kept, c)
			continue
		}
		cost := a.cost(c)
		if running+cost <= a.maxTokens {
			kept = append(kept, c)
			running += cost
			continue
		}
		m.DroppedOptional++
		log.Debug("dropped optional %s component (%d tokens, %d remaining)", c.Type, cost, a.maxTokens-running)
	}
	return kept
}

// truncateRequired processes required components in priority order against a
// running total. A component that fits whole is kept. When the remaining
// allowance is below the truncation floor the component is dropped - an
// unreadable fragment is worse than an absent one. Otherwise the component
// is truncated with a head/tail splice around a visible marker. Components
// past the point of exhaustion are dropped and counted, never silently lost.
func (a *Assembler) truncateRequired(required []*Component, m *AssemblyMetrics, log *logging.Logger) []*Component {
	kept := make([]*Component, 0, len(required))
	running := 0
	for _, c := range required {
		remaining := a.maxTokens - running
		if remaining <= 0 {
			m.DroppedRequired++
			log.Warn("dropped required %s component: budget exhausted", c.Type)
			continue
		}

		cost := a.cost(c)
		if cost <= remaining {
			kept = append(kept, c)
			running += cost
			continue
		}

		if remaining < a.truncationFloor {
			m.DroppedRequired++
			log.Warn("dropped required %s component: %d tokens remaining is below the %d-token floor",
				c.Type, remaining, a.truncationFloor)
			continue
		}

		truncated := *c
		truncated.Content = a.spliceContent(c, remaining)
		truncated.TokenCost = a.cost(&Component{Content: truncated.Content})
		if truncated.TokenCost > remaining {
			m.DroppedRequired++
			log.Warn("dropped required %s component: even a minimal splice exceeds the %d tokens remaining", c.Type, remaining)
			continue
		}
		kept = append(kept, &truncated)
		running += truncated.TokenCost
		m.TruncatedRequired++
		log.Warn("truncated required %s component from %d to ~%d tokens", c.Type, cost, truncated.TokenCost)
	}
	return kept
}

// spliceContent keeps the head and tail of a component's content within the
// remaining token allowance, with a visible marker naming the component type
// between them. The chars/4 guess only seeds the search: each candidate
// splice is re-measured with the active estimator and the rune budget shrunk
// until the result fits, so multi-byte content and injected tokenizers stay
// within the allowance.
func (a *Assembler) spliceContent(c *Component, remainingTokens int) string {
	runes := []rune(c.Content)
	marker := fmt.Sprintf("\n[... %s truncated ...]\n", c.Type)

	spliced := c.Content
	for budget := remainingTokens * charsPerToken; budget > 0; budget = budget * 3 / 4 {
		headLen := int(float64(budget) * a.headKeepRatio)
		tailLen := int(float64(budget) * a.tailKeepRatio)
		if headLen+tailLen >= len(runes) {
			spliced = c.Content
		} else {
			spliced = string(runes[:headLen]) + marker + string(runes[len(runes)-tailLen:])
		}
		if a.cost(&Component{Content: spliced}) <= remainingTokens {
			break
		}
	}
	return spliced
}

// deduplicate drops later components whose normalized fingerprint collides
// with an earlier one. The input is already in final order, so the earlier
// component (by priority, then insertion order) always survives.
func (a *Assembler) deduplicate(comps []*Component, m *AssemblyMetrics) []*Component {
	seen := make(map[string]struct{}, len(comps))
	kept := make([]*Component, 0, len(comps))
	for _, c := range comps {
		fp := c.Fingerprint()
		if _, dup := seen[fp]; dup {
			m.Deduplicated++
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}

func (a *Assembler) recordMetrics(comps []*Component, m *AssemblyMetrics) {
	for _, c := range comps {
		m.ComponentCount++
		m.TotalTokens += a.cost(c)
		m.TotalChars += len(c.Content)
		m.PerType[c.Type]++
		if c.Required {
			m.RequiredCount++
		} else {
			m.OptionalCount++
		}
	}
	if m.Budget > 0 {
		m.WithinBudget = m.TotalTokens <= m.Budget
	}
}
