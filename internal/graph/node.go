package graph

import "time"

// Node is a single graph vertex. Attributes is an open map of domain
// scalars, strings, and string lists; KnowledgeGraph never interprets
// keys beyond the conflict-resolution table in merge.go.
type Node struct {
	ID            string
	Type          EntityKind
	Name          string
	Description   string
	CreatedAt     time.Time
	LastModified  time.Time
	Attributes    map[string]interface{}
	Deleted       bool
	DeletedReason string
	DeletedAt     *time.Time
}

// clone returns a deep-enough copy for safe return across the
// KnowledgeGraph boundary (callers must not mutate Attributes in place).
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Attributes = make(map[string]interface{}, len(n.Attributes))
	for k, v := range n.Attributes {
		if list, ok := v.([]string); ok {
			cloned := make([]string, len(list))
			copy(cloned, list)
			cp.Attributes[k] = cloned
			continue
		}
		cp.Attributes[k] = v
	}
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}
