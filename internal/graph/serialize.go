package graph

import (
	"encoding/json"
	"time"
)

// serializedNode and serializedEdge are the wire shapes Serialize/Parse
// round-trip through; kept distinct from Node/Edge so JSON field names
// stay stable independent of internal field renames.
type serializedNode struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	CreatedAt     time.Time              `json:"created_at"`
	LastModified  time.Time              `json:"last_modified"`
	Attributes    map[string]interface{} `json:"attributes"`
	Deleted       bool                   `json:"deleted,omitempty"`
	DeletedReason string                 `json:"deleted_reason,omitempty"`
	DeletedAt     *time.Time             `json:"deleted_at,omitempty"`
}

type serializedEdge struct {
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Label      string                 `json:"label"`
	Attributes map[string]interface{} `json:"attributes"`
}

type serializedGraph struct {
	Nodes []serializedNode `json:"nodes"`
	Edges []serializedEdge `json:"edges"`
}

// Serialize produces a lossless JSON encoding of nodes, edges,
// attributes, timestamps, and soft-delete markers. The choice of JSON
// (rather than a bespoke binary format) follows spec.md §1's explicit
// "any serializer that round-trips" allowance; internal/store layers a
// bbolt-backed durable file on top of this encoding.
func (g *KnowledgeGraph) Serialize() ([]byte, error) {
	sg := serializedGraph{}
	for _, n := range g.AllNodes() {
		sg.Nodes = append(sg.Nodes, serializedNode{
			ID: n.ID, Type: string(n.Type), Name: n.Name, Description: n.Description,
			CreatedAt: n.CreatedAt, LastModified: n.LastModified, Attributes: n.Attributes,
			Deleted: n.Deleted, DeletedReason: n.DeletedReason, DeletedAt: n.DeletedAt,
		})
	}
	for _, e := range g.AllEdges() {
		sg.Edges = append(sg.Edges, serializedEdge{
			Source: e.Source, Target: e.Target, Label: e.Label, Attributes: e.Attributes,
		})
	}
	return json.Marshal(sg)
}

// Parse replaces g's contents with the decoded form of data. On
// malformed input it leaves g untouched and returns the decode error;
// callers (internal/store) are responsible for treating that as Corrupt
// and falling back to an empty graph with a warning, per spec.md §7.
func (g *KnowledgeGraph) Parse(data []byte) error {
	var sg serializedGraph
	if err := json.Unmarshal(data, &sg); err != nil {
		return err
	}

	nodes := make(map[string]*Node, len(sg.Nodes))
	for _, n := range sg.Nodes {
		attrs := n.Attributes
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		nodes[n.ID] = &Node{
			ID: n.ID, Type: ParseKind(n.Type), Name: n.Name, Description: n.Description,
			CreatedAt: n.CreatedAt, LastModified: n.LastModified, Attributes: attrs,
			Deleted: n.Deleted, DeletedReason: n.DeletedReason, DeletedAt: n.DeletedAt,
		}
	}
	edges := make(map[edgeKey]*Edge, len(sg.Edges))
	for _, e := range sg.Edges {
		attrs := e.Attributes
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		edge := &Edge{Source: e.Source, Target: e.Target, Label: e.Label, Attributes: attrs}
		edges[edge.key()] = edge
	}

	g.nodes = nodes
	g.edges = edges
	return nil
}
