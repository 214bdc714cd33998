// Package graph implements the KnowledgeGraph: a typed, directed
// multigraph of attributed nodes and labeled edges, the sole mutator of
// session state per spec §4.1. Callers (MemoryFacade) are responsible
// for serializing access; KnowledgeGraph itself does no locking, the
// same separation of concerns as the teacher's repository layer, which
// left concurrency control to its service layer.
package graph

import (
	"fmt"
	"sort"
	"time"
)

// EdgeMatch is a (possibly wildcarded) pattern for matching edges by
// DeleteEdgesMatching. An empty field means "unspecified"; Wildcard
// marker strings are handled by callers (internal/plan), not here — by
// the time a match reaches the graph, wildcards have already been
// resolved to "match any" by leaving the field empty.
type EdgeMatch struct {
	Source string
	Target string
	Label  string
}

func (m EdgeMatch) matches(e Edge) bool {
	if m.Source != "" && m.Source != e.Source {
		return false
	}
	if m.Target != "" && m.Target != e.Target {
		return false
	}
	if m.Label != "" && m.Label != e.Label {
		return false
	}
	return true
}

func (m EdgeMatch) isAllWildcard() bool {
	return m.Source == "" && m.Target == "" && m.Label == ""
}

// KnowledgeGraph holds the live set of nodes and edges for one session.
type KnowledgeGraph struct {
	nodes map[string]*Node
	edges map[edgeKey]*Edge
	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
}

// New returns an empty KnowledgeGraph.
func New() *KnowledgeGraph {
	return &KnowledgeGraph{
		nodes: make(map[string]*Node),
		edges: make(map[edgeKey]*Edge),
		now:   time.Now,
	}
}

// UpsertNode inserts a new node (created_at = now) or merges attributes
// into an existing one via the conflict-resolution table, bumping
// last_modified. Returns the log entries produced by last-write-wins
// attributes that the caller may want to record (location/status).
func (g *KnowledgeGraph) UpsertNode(id string, kind EntityKind, attrs map[string]interface{}) []logEntry {
	now := g.now()
	existing, ok := g.nodes[id]
	if !ok {
		node := &Node{
			ID:           id,
			Type:         kind,
			Name:         id,
			CreatedAt:    now,
			LastModified: now,
			Attributes:   make(map[string]interface{}, len(attrs)),
		}
		for k, v := range attrs {
			node.Attributes[k] = v
		}
		if name, ok := attrs["name"].(string); ok && name != "" {
			node.Name = name
		}
		if desc, ok := attrs["description"].(string); ok {
			node.Description = desc
		}
		g.nodes[id] = node
		return nil
	}

	merged, logs := mergeAttributes(existing.Attributes, attrs)
	existing.Attributes = merged
	existing.LastModified = now
	if existing.Type == KindUnknown && kind != KindUnknown {
		existing.Type = kind
	}
	if name, ok := attrs["name"].(string); ok && name != "" {
		existing.Name = name
	}
	if desc, ok := attrs["description"].(string); ok {
		existing.Description = desc
	}
	return logs
}

// AddEdge adds a directed labeled edge. Returns missingEndpoint=true
// without side effect if either endpoint is absent (or hard-deleted).
func (g *KnowledgeGraph) AddEdge(source, target, label string, attrs map[string]interface{}) (missingEndpoint bool) {
	if _, ok := g.nodes[source]; !ok {
		return true
	}
	if _, ok := g.nodes[target]; !ok {
		return true
	}
	e := Edge{Source: source, Target: target, Label: label, Attributes: map[string]interface{}{}}
	for k, v := range attrs {
		e.Attributes[k] = v
	}
	g.edges[e.key()] = &e
	return false
}

// DeleteNode hard-deletes a node and removes all incident edges.
func (g *KnowledgeGraph) DeleteNode(id string) (notFound bool) {
	if _, ok := g.nodes[id]; !ok {
		return true
	}
	delete(g.nodes, id)
	for k, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.edges, k)
		}
	}
	return false
}

// MarkDeleted soft-deletes a node: sets markers only, retains the node
// and its edges until a hard delete or compaction removes them.
func (g *KnowledgeGraph) MarkDeleted(id, reason string) (notFound bool) {
	node, ok := g.nodes[id]
	if !ok {
		return true
	}
	now := g.now()
	node.Deleted = true
	node.DeletedReason = reason
	node.DeletedAt = &now
	return false
}

// DeleteEdge removes edges matching (source, target[, label]). If label
// is empty, all parallel edges between the pair are removed. Returns the
// count removed.
func (g *KnowledgeGraph) DeleteEdge(source, target, label string) int {
	count := 0
	for k := range g.edges {
		if k.source != source || k.target != target {
			continue
		}
		if label != "" && k.label != label {
			continue
		}
		delete(g.edges, k)
		count++
	}
	return count
}

// DeleteEdgesMatching performs wildcard deletion per EdgeMatch, rejecting
// an all-wildcard match (every field empty) by returning ok=false.
func (g *KnowledgeGraph) DeleteEdgesMatching(m EdgeMatch) (count int, ok bool) {
	if m.isAllWildcard() {
		return 0, false
	}
	for k, e := range g.edges {
		if m.matches(*e) {
			delete(g.edges, k)
			count++
		}
	}
	return count, true
}

// GetNode returns a defensive copy of the node, or nil if absent.
func (g *KnowledgeGraph) GetNode(id string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.clone()
}

// NodeExists reports presence regardless of soft-delete state — used by
// the Validator, which must still see soft-deleted nodes as valid edge
// endpoints (they are excluded from extraction/context, not from the
// graph itself).
func (g *KnowledgeGraph) NodeExists(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeCount and EdgeCount support stats endpoints and tests.
func (g *KnowledgeGraph) NodeCount() int { return len(g.nodes) }
func (g *KnowledgeGraph) EdgeCount() int { return len(g.edges) }

// AllNodes returns defensive copies of every node, sorted by ID for
// deterministic serialization and test output.
func (g *KnowledgeGraph) AllNodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllEdges returns defensive copies of every edge, sorted for
// deterministic output.
func (g *KnowledgeGraph) AllEdges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Subgraph returns the ego-union of the graph around seedIDs: a BFS up
// to depth hops, following edges in either direction, excluding
// soft-deleted nodes. Seed IDs that are themselves deleted or absent are
// silently skipped.
func (g *KnowledgeGraph) Subgraph(seedIDs []string, depth int) *KnowledgeGraph {
	result := New()
	if depth < 0 {
		depth = 0
	}

	visited := make(map[string]int) // id -> hop distance found at
	queue := make([]string, 0, len(seedIDs))
	for _, id := range seedIDs {
		n, ok := g.nodes[id]
		if !ok || n.Deleted {
			continue
		}
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = 0
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		hop := visited[id]
		if hop >= depth {
			continue
		}
		for _, e := range g.edges {
			var neighbor string
			switch {
			case e.Source == id:
				neighbor = e.Target
			case e.Target == id:
				neighbor = e.Source
			default:
				continue
			}
			n, ok := g.nodes[neighbor]
			if !ok || n.Deleted {
				continue
			}
			if _, seen := visited[neighbor]; seen {
				continue
			}
			visited[neighbor] = hop + 1
			queue = append(queue, neighbor)
		}
	}

	for id := range visited {
		result.nodes[id] = g.nodes[id].clone()
	}
	for k, e := range g.edges {
		_, srcIn := result.nodes[k.source]
		_, dstIn := result.nodes[k.target]
		if srcIn && dstIn {
			result.edges[k] = e.clone()
		}
	}
	return result
}

// String renders the graph in the "[Nodes] then [Relationships]" shape
// ContextBuilder composes into the prompt block.
func (g *KnowledgeGraph) String() string {
	nodes := g.AllNodes()
	edges := g.AllEdges()

	out := "[Nodes]\n"
	if len(nodes) == 0 {
		out += "(none)\n"
	}
	for _, n := range nodes {
		if n.Deleted {
			continue
		}
		out += fmt.Sprintf("- %s (%s): %s\n", n.Name, n.Type, describeAttrs(n))
	}
	out += "\n[Relationships]\n"
	if len(edges) == 0 {
		out += "(none)\n"
	}
	for _, e := range edges {
		out += fmt.Sprintf("- %s --[%s]--> %s\n", e.Source, e.Label, e.Target)
	}
	return out
}

func describeAttrs(n *Node) string {
	if n.Description != "" {
		return n.Description
	}
	if len(n.Attributes) == 0 {
		return "(no attributes)"
	}
	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", k, n.Attributes[k])
	}
	return out
}
