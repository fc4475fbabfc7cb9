package prompt

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"promptweave/internal/logging"
)

// CostEstimator resolves the token cost of content. The assembler falls back
// to the chars/4 heuristic when no estimator is injected; callers needing
// billing-accurate budgets inject a TiktokenEstimator (or their own).
type CostEstimator interface {
	// Cost returns the token count for content.
	Cost(content string) int
}

// HeuristicEstimator is the default chars/4 estimator.
type HeuristicEstimator struct{}

// Cost implements CostEstimator using the chars/4 approximation.
func (HeuristicEstimator) Cost(content string) int {
	return EstimateTokens(content)
}

// TiktokenEstimator wraps tiktoken for exact token counting. It is
// constructor-injected with caller-controlled lifetime; this package never
// instantiates one on its own.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator creates a TiktokenEstimator using the cl100k_base
// encoding, a good approximation across current chat models.
func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding: %w", err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

// Cost returns the exact token count for content under cl100k_base.
func (t *TiktokenEstimator) Cost(content string) int {
	if content == "" {
		return 0
	}
	n := len(t.enc.Encode(content, nil, nil))
	logging.Get(logging.CategoryTokenizer).Debug("tiktoken cost: %d chars -> %d tokens", len(content), n)
	return n
}
