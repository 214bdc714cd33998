// Package llm implements the LLM-backed Extractor variant of spec §4.6.
// It wraps an opaque Provider behind a circuit breaker
// (github.com/sony/gobreaker) so that repeated timeouts trip the breaker
// open and the rule extractor runs without hammering a failing endpoint,
// grounded on the teacher's llm.Service/Provider split and its
// defensive "strip code fence, then json.Unmarshal" response handling.
package llm

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"storyweave/internal/extract"
	"storyweave/internal/graph"
	"storyweave/internal/plan"
)

// Extractor selects the LLM path when the breaker is closed and the
// provider reports itself available, falling back to Fallback on any
// failure: timeout, breaker trip, or a response that fails to parse.
type Extractor struct {
	provider Provider
	fallback extract.Extractor
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *zap.Logger
}

// Options configures the LLM extractor's breaker and request timeout.
type Options struct {
	RequestTimeout time.Duration
	// MaxConsecutiveFailures trips the breaker open; defaults to 5.
	MaxConsecutiveFailures uint32
}

// New wraps provider with circuit breaking and falls back to fallback
// (normally a rule.Extractor) on any failure.
func New(provider Provider, fallback extract.Extractor, opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 180 * time.Second // spec §6 default llm_request_timeout_seconds
	}
	if opts.MaxConsecutiveFailures == 0 {
		opts.MaxConsecutiveFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "llm-extractor",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxConsecutiveFailures
		},
		Timeout: 30 * time.Second,
	})

	return &Extractor{provider: provider, fallback: fallback, breaker: breaker, timeout: opts.RequestTimeout, logger: logger}
}

// Analyze runs the LLM path with a deadline; on any failure (timeout,
// breaker open, non-JSON response, provider unavailable) it falls back
// to the rule extractor, per spec §4.6's selection rule — the two
// extractors are never mixed within one call.
func (e *Extractor) Analyze(ctx context.Context, userText, assistantText string, g *graph.KnowledgeGraph, recentContext string) (*plan.UpdatePlan, error) {
	if !e.provider.IsAvailable() {
		e.logger.Warn("llm provider unavailable, using rule extractor")
		return e.fallback.Analyze(ctx, userText, assistantText, g, recentContext)
	}

	prompt := buildAnalysisPrompt(userText, assistantText, recentContext, g)
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.breaker.Execute(func() (interface{}, error) {
		return e.provider.Complete(reqCtx, prompt, CompletionOptions{Temperature: 0.2, MaxTokens: 1024, Format: "json"})
	})
	if err != nil {
		e.logger.Warn("llm extraction failed, falling back to rule extractor", zap.Error(err))
		return e.fallback.Analyze(ctx, userText, assistantText, g, recentContext)
	}

	response, _ := result.(string)
	p, err := parsePlan(response)
	if err != nil {
		e.logger.Warn("llm response unparsable, falling back to rule extractor", zap.Error(err))
		return e.fallback.Analyze(ctx, userText, assistantText, g, recentContext)
	}

	augmentPlan(p, g)
	return p, nil
}
