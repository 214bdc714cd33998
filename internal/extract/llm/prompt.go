package llm

import (
	"fmt"
	"strings"

	"storyweave/internal/graph"
)

// buildAnalysisPrompt assembles the LLM extractor's prompt: a short task
// description, the recent turn texts, and a compact view of the graph
// restricted to nodes/edges touching tokens present in the combined
// text — the same "relevant slice, not the whole graph" shape the
// teacher's llm.Service uses for its categorization prompts.
func buildAnalysisPrompt(userText, assistantText, recentContext string, g *graph.KnowledgeGraph) string {
	var b strings.Builder
	b.WriteString("You are extracting structured memory updates from a story turn.\n")
	b.WriteString("Return ONLY a JSON object with keys nodes_to_upsert, edges_to_add, nodes_to_delete, edges_to_delete.\n")
	b.WriteString("Rules:\n")
	b.WriteString("1. nodes_to_upsert entries have id, type, attributes.\n")
	b.WriteString("2. edges_to_add entries have source, target, label, attributes.\n")
	b.WriteString("3. nodes_to_delete entries have id, mode (soft|hard), reason.\n")
	b.WriteString("4. edges_to_delete entries have source, target, label (use \"*\" for wildcard), reason.\n")
	b.WriteString("5. type must be one of: character, location, item, event, concept, skill, organization, unknown.\n\n")

	b.WriteString("Recent conversation:\n")
	b.WriteString(recentContext)
	b.WriteString("\n\nCurrent turn:\n")
	fmt.Fprintf(&b, "user: %s\nassistant: %s\n\n", userText, assistantText)

	relevant := relevantGraphSlice(userText+" "+assistantText, g)
	b.WriteString("Relevant known entities:\n")
	b.WriteString(relevant)

	return b.String()
}

// relevantGraphSlice returns a compact textual view of the depth-1
// subgraph around nodes whose name appears (case-insensitively, as a
// substring) in text, so the prompt stays small even for a large graph.
func relevantGraphSlice(text string, g *graph.KnowledgeGraph) string {
	if g == nil {
		return "(none)\n"
	}
	lower := strings.ToLower(text)
	relevant := map[string]struct{}{}
	for _, n := range g.AllNodes() {
		if n.Deleted {
			continue
		}
		if n.Name != "" && strings.Contains(lower, strings.ToLower(n.Name)) {
			relevant[n.ID] = struct{}{}
		}
	}
	if len(relevant) == 0 {
		return "(none)\n"
	}
	ids := make([]string, 0, len(relevant))
	for id := range relevant {
		ids = append(ids, id)
	}
	sub := g.Subgraph(ids, 1)
	return sub.String()
}
