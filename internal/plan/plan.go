// Package plan defines UpdatePlan, the pure value both Extractor
// implementations produce and the Validator filters before MemoryFacade
// applies it to a KnowledgeGraph.
package plan

// DeleteMode distinguishes a soft delete (marker set, node retained) from
// a hard delete (node and incident edges removed).
type DeleteMode string

const (
	DeleteSoft DeleteMode = "soft"
	DeleteHard DeleteMode = "hard"
)

// Wildcard marks an edge-delete field as "match any".
const Wildcard = "*"

// NodeUpsert describes one node to insert or merge into the graph.
type NodeUpsert struct {
	ID         string
	Type       string
	Attributes map[string]interface{}
}

// EdgeAdd describes one directed, labeled edge to add.
type EdgeAdd struct {
	Source     string
	Target     string
	Label      string
	Attributes map[string]interface{}
}

// NodeDelete describes one node deletion, soft or hard.
type NodeDelete struct {
	ID     string
	Mode   DeleteMode
	Reason string
}

// EdgeDelete describes a (possibly wildcarded) edge-matching deletion.
// Source, Target, and Label may each be Wildcard or a concrete value; at
// least one field must be concrete (all-wildcard is rejected upstream).
type EdgeDelete struct {
	Source string
	Target string
	Label  string
	Reason string
}

// IsAllWildcard reports whether every field of d is Wildcard, the one
// shape the Validator must reject.
func (d EdgeDelete) IsAllWildcard() bool {
	return d.Source == Wildcard && d.Target == Wildcard && d.Label == Wildcard
}

// UpdatePlan is the four-list data structure both Extractor
// implementations build and the Validator filters.
type UpdatePlan struct {
	NodesToUpsert []NodeUpsert
	EdgesToAdd    []EdgeAdd
	NodesToDelete []NodeDelete
	EdgesToDelete []EdgeDelete
	// Warnings carries non-fatal notes accumulated while building or
	// validating the plan (malformed entries dropped, parse issues).
	Warnings []string
}

// New returns an empty plan ready to be appended to.
func New() *UpdatePlan {
	return &UpdatePlan{}
}

// Warn appends a warning message to the plan.
func (p *UpdatePlan) Warn(msg string) {
	p.Warnings = append(p.Warnings, msg)
}

// Empty reports whether the plan has no operations (warnings don't count).
func (p *UpdatePlan) Empty() bool {
	return len(p.NodesToUpsert) == 0 && len(p.EdgesToAdd) == 0 &&
		len(p.NodesToDelete) == 0 && len(p.EdgesToDelete) == 0
}
