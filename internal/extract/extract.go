// Package extract defines the Extractor capability shared by the rule-
// based and LLM-based implementations (internal/extract/rule,
// internal/extract/llm), per spec §4.6: a single
// text -> UpdatePlan shape, selected by configuration, with explicit
// fallback rather than exception unwinding.
package extract

import (
	"context"

	"storyweave/internal/graph"
	"storyweave/internal/plan"
)

// Extractor analyzes one turn's text (plus recent context and a view of
// the current graph) and returns an UpdatePlan. Implementations never
// panic; the LLM implementation falls back to its rule extractor
// internally, and an error that still reaches DelayedUpdateManager
// leaves the target turn unprocessed.
type Extractor interface {
	Analyze(ctx context.Context, userText, assistantText string, g *graph.KnowledgeGraph, recentContext string) (*plan.UpdatePlan, error)
}
