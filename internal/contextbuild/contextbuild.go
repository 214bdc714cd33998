// Package contextbuild implements ContextBuilder: composing the
// three-section prompt block (recent history, world state, relevant
// knowledge graph) served by the /enhance_prompt endpoint, per spec
// §4.11.
package contextbuild

import (
	"fmt"

	"storyweave/internal/entitymatch"
	"storyweave/internal/graph"
	"storyweave/internal/statetable"
	"storyweave/internal/turnbuffer"
)

// defaultMaxContextLength matches spec §6's max_context_length default.
const defaultMaxContextLength = 4000

const truncationMarker = "\n...[truncated]"

// Stats reports composition counters returned alongside the built text.
type Stats struct {
	EntitiesCount int
	ContextLength int
	GraphNodes    int
	GraphEdges    int
}

// Result is ContextBuilder's return value: the composed text, the
// matched entity ids, and stats.
type Result struct {
	Text      string
	EntityIDs []string
	Stats     Stats
	Truncated bool
}

// Options configures one Build call.
type Options struct {
	RecentK          int // TurnBuffer.RecentText(k); 0 means every pair the buffer holds
	Depth            int // Subgraph BFS depth; 0 means spec default of 1
	MaxContextLength int // 0 means spec default of 4000
}

// Build scans utterance for entity mentions, retrieves their subgraph,
// and composes the three-section context block, per spec §4.11.
func Build(utterance string, g *graph.KnowledgeGraph, buf *turnbuffer.TurnBuffer, st *statetable.StateTable, opts Options) (Result, error) {
	depth := opts.Depth
	if depth <= 0 {
		depth = 1
	}
	maxLen := opts.MaxContextLength
	if maxLen <= 0 {
		maxLen = defaultMaxContextLength
	}

	matcher, err := entitymatch.Build(g)
	if err != nil {
		return Result{}, err
	}
	entityIDs := matcher.Scan(utterance)

	sub := g.Subgraph(entityIDs, depth)

	worldTime := "Not set"
	if e, ok := st.Get("world_time"); ok {
		worldTime = fmt.Sprintf("%v", e.Value)
	}

	historySection := "## Recent Conversation History\n" + buf.RecentText(opts.RecentK)
	worldSection := fmt.Sprintf("## Current World State\n- World Time: %s\n", worldTime)
	graphSection := "## Relevant Knowledge Graph\n" + sub.String()

	text := historySection + "\n" + worldSection + "\n" + graphSection
	truncated := false
	if len(text) > maxLen {
		// Truncate the graph section last, preserving recent history and
		// world state per spec §4.11 step 4.
		head := historySection + "\n" + worldSection + "\n"
		budget := maxLen - len(head) - len(truncationMarker)
		if budget < 0 {
			budget = 0
		}
		graphTrunc := graphSection
		if len(graphTrunc) > budget {
			graphTrunc = graphTrunc[:budget]
		}
		text = head + graphTrunc + truncationMarker
		truncated = true
	}

	return Result{
		Text:      text,
		EntityIDs: entityIDs,
		Truncated: truncated,
		Stats: Stats{
			EntitiesCount: len(entityIDs),
			ContextLength: len(text),
			GraphNodes:    sub.NodeCount(),
			GraphEdges:    sub.EdgeCount(),
		},
	}, nil
}
