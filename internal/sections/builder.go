package sections

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"promptweave/internal/config"
	"promptweave/internal/logging"
)

// Kind identifies a candidate section.
type Kind string

const (
	KindIdentity    Kind = "identity"
	KindPersonality Kind = "personality"
	KindVoice       Kind = "voice"
	KindAIHandling  Kind = "ai_handling"
	KindMemory      Kind = "memory"
	KindGuidelines  Kind = "guidelines"
)

// rankOrder is the re-prioritization ranking used in the second degradation
// phase. Identity and behavioral correctness outrank static flavor.
var rankOrder = []Kind{
	KindIdentity,
	KindGuidelines,
	KindMemory,
	KindAIHandling,
	KindPersonality,
	KindVoice,
}

// minTruncationWords is the allowance below which a section is dropped
// outright instead of truncated during re-prioritization.
const minTruncationWords = 8

// Inputs are the pre-fetched, pre-ranked narrative strings the builder
// formats into sections. This package never retrieves or ranks anything.
type Inputs struct {
	IdentityCard      string
	PersonalityTraits []string
	VoiceNotes        []string
	AIGuidance        []string
	Memories          []string
	Guidelines        []string
}

// section is one built candidate.
type section struct {
	kind    Kind
	content string
}

// BuildResult reports what the builder produced and how far it had to degrade.
type BuildResult struct {
	Content   string
	WordCount int

	// Phase records the degradation level: "full", "detail_trim", or
	// "reprioritized".
	Phase string

	// SectionsBuilt lists the candidate kinds that produced content,
	// in output order.
	SectionsBuilt []Kind
}

// Degraded reports whether any trimming occurred.
func (r *BuildResult) Degraded() bool {
	return r.Phase != "full"
}

// Builder assembles candidate sections under a word budget, full fidelity
// first. Each request must use its own instance.
type Builder struct {
	maxWords   int // 0 = unlimited
	thresholds config.SectionTrimThresholds
}

// NewBuilder creates a per-request builder from the sections config.
func NewBuilder(cfg config.SectionsConfig) *Builder {
	return &Builder{
		maxWords:   cfg.MaxWords,
		thresholds: cfg.TrimThresholds,
	}
}

// Build constructs every relevant candidate section at full fidelity, then
// applies two-phase degradation only if the combined result exceeds the word
// budget. A section is only a candidate at all if its triggering signal is
// true; irrelevant sections are never built.
//
// Candidate construction is pure per section and fans out via errgroup; the
// budgeting that follows is inherently sequential and runs single-threaded.
func (b *Builder) Build(ctx context.Context, sig Signals, in Inputs) (*BuildResult, error) {
	timer := logging.StartTimer(logging.CategorySections, "Builder.Build")
	defer timer.Stop()
	log := logging.Get(logging.CategorySections)

	type candidate struct {
		kind  Kind
		build func() string
	}

	candidates := []candidate{
		{KindIdentity, func() string { return buildIdentity(in.IdentityCard) }},
		{KindGuidelines, func() string { return buildGuidelines(in.Guidelines) }},
	}
	if sig.NeedsMemoryContext {
		candidates = append(candidates, candidate{KindMemory, func() string { return buildMemory(in.Memories) }})
	}
	if sig.NeedsAIGuidance {
		candidates = append(candidates, candidate{KindAIHandling, func() string { return buildAIHandling(in.AIGuidance) }})
	}
	if sig.NeedsPersonality {
		candidates = append(candidates, candidate{KindPersonality, func() string { return buildPersonality(in.PersonalityTraits) }})
	}
	if sig.NeedsVoiceStyle {
		candidates = append(candidates, candidate{KindVoice, func() string { return buildVoice(in.VoiceNotes) }})
	}

	// Full-fidelity fan-out; results land at fixed indexes so gather order
	// is deterministic regardless of scheduling.
	built := make([]section, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			built[i] = section{kind: c.kind, content: c.build()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := make([]section, 0, len(built))
	for _, s := range built {
		if s.content != "" {
			sections = append(sections, s)
		}
	}

	// Full fidelity is always preferred when affordable.
	if result := combine(sections, "full"); b.maxWords == 0 || result.WordCount <= b.maxWords {
		log.Debug("full fidelity: %d sections, %d words", len(sections), result.WordCount)
		return result, nil
	}

	// Phase A: per-section detail trimming.
	trimmed := make([]section, len(sections))
	for i, s := range sections {
		trimmed[i] = section{kind: s.kind, content: b.trimDetail(s)}
	}
	if result := combine(trimmed, "detail_trim"); result.WordCount <= b.maxWords {
		log.Warn("detail trim applied: %d words (budget %d)", result.WordCount, b.maxWords)
		return result, nil
	}

	// Phase B: section re-prioritization.
	result := b.reprioritize(trimmed)
	log.Warn("sections reprioritized: %d words (budget %d)", result.WordCount, b.maxWords)
	return result, nil
}

// trimDetail applies the per-kind detail-trimming rule. Identity collapses
// to its first line past a size threshold; other sections keep their header
// plus a fixed number of detail lines, with memory and guidelines granted a
// larger allowance.
func (b *Builder) trimDetail(s section) string {
	switch s.kind {
	case KindIdentity:
		if wordCount(s.content) > b.thresholds.IdentityWords {
			return firstLines(s.content, 1)
		}
		return s.content
	case KindPersonality:
		return firstLines(s.content, 1+b.thresholds.PersonalityLines)
	case KindVoice:
		return firstLines(s.content, 1+b.thresholds.VoiceLines)
	case KindAIHandling:
		return firstLines(s.content, 1+b.thresholds.AIHandlingLines)
	case KindMemory:
		return firstLines(s.content, 1+b.thresholds.MemoryLines)
	case KindGuidelines:
		return firstLines(s.content, 1+b.thresholds.GuidelineLines)
	default:
		return s.content
	}
}

// reprioritize greedily includes whole sections in rank order until the
// budget is consumed. The first section that would overflow is truncated to
// the remaining word allowance rather than dropped, unless that allowance
// is negligible.
func (b *Builder) reprioritize(sections []section) *BuildResult {
	byKind := make(map[Kind]section, len(sections))
	for _, s := range sections {
		byKind[s.kind] = s
	}

	kept := make([]section, 0, len(sections))
	remaining := b.maxWords
	truncated := false
	for _, kind := range rankOrder {
		s, ok := byKind[kind]
		if !ok {
			continue
		}
		if truncated || remaining <= 0 {
			continue
		}

		words := wordCount(s.content)
		if words <= remaining {
			kept = append(kept, s)
			remaining -= words
			continue
		}

		if remaining >= minTruncationWords {
			kept = append(kept, section{kind: s.kind, content: truncateToWords(s.content, remaining)})
		}
		truncated = true
	}

	return combine(kept, "reprioritized")
}

func combine(sections []section, phase string) *BuildResult {
	parts := make([]string, 0, len(sections))
	kinds := make([]Kind, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, s.content)
		kinds = append(kinds, s.kind)
	}
	content := strings.Join(parts, "\n\n")
	return &BuildResult{
		Content:       content,
		WordCount:     wordCount(content),
		Phase:         phase,
		SectionsBuilt: kinds,
	}
}

// ---- candidate section builders ----

func buildIdentity(card string) string {
	if strings.TrimSpace(card) == "" {
		return ""
	}
	return "## Identity\n" + strings.TrimSpace(card)
}

func buildPersonality(traits []string) string {
	return buildList("## Personality", traits)
}

func buildVoice(notes []string) string {
	return buildList("## Voice & Style", notes)
}

func buildAIHandling(guidance []string) string {
	return buildList("## AI Handling", guidance)
}

func buildMemory(memories []string) string {
	return buildList("## Memory Context", memories)
}

func buildGuidelines(guidelines []string) string {
	return buildList("## Response Guidelines", guidelines)
}

func buildList(header string, items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		lines = append(lines, "- "+strings.TrimSpace(item))
	}
	if len(lines) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// ---- text helpers ----

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// firstLines keeps the first n non-empty lines of a section.
func firstLines(s string, n int) string {
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) >= n {
			break
		}
	}
	return strings.Join(kept, "\n")
}

// truncateToWords keeps the section header plus as many trailing body words
// as fit in the allowance. The most recent material sits at the end of a
// section body, so the tail is kept and an ellipsis marks the elided front.
func truncateToWords(s string, allowance int) string {
	lines := strings.SplitN(s, "\n", 2)
	header := lines[0]
	body := ""
	if len(lines) > 1 {
		body = lines[1]
	}

	words := strings.Fields(body)
	remaining := allowance - wordCount(header)
	if len(words) <= remaining {
		return s
	}

	// One word of the allowance is reserved for the ellipsis marker.
	remaining--
	if remaining <= 0 {
		return header
	}
	return header + "\n... " + strings.Join(words[len(words)-remaining:], " ")
}
