// Package validate implements Validator: filters an UpdatePlan against
// the current graph so that MemoryFacade.Apply only ever receives a plan
// guaranteed to satisfy commit invariants, per spec §4.7. The Validator
// never errors; it returns a (possibly empty) plan plus warnings.
package validate

import (
	"strings"

	"storyweave/internal/plan"
)

// GraphView is the read-only surface the Validator needs from a
// KnowledgeGraph; kept as an interface so tests can supply a fake.
type GraphView interface {
	NodeExists(id string) bool
}

// Validate normalizes and filters p against view, returning a new plan.
// p itself is left untouched.
func Validate(p *plan.UpdatePlan, view GraphView) *plan.UpdatePlan {
	out := plan.New()

	upsertIDs := make(map[string]struct{})
	seenUpserts := make(map[string]struct{})
	for _, nu := range p.NodesToUpsert {
		id := normalizeID(nu.ID)
		if id == "" {
			out.Warn("dropped node upsert with empty id")
			continue
		}
		if _, dup := seenUpserts[id]; dup {
			continue
		}
		seenUpserts[id] = struct{}{}
		if original := strings.TrimSpace(nu.ID); original != id {
			if _, hasName := nu.Attributes["name"]; !hasName {
				attrs := make(map[string]interface{}, len(nu.Attributes)+1)
				for k, v := range nu.Attributes {
					attrs[k] = v
				}
				attrs["name"] = original
				nu.Attributes = attrs
			}
		}
		nu.ID = id
		out.NodesToUpsert = append(out.NodesToUpsert, nu)
		upsertIDs[id] = struct{}{}
	}

	existsOrUpserted := func(id string) bool {
		id = normalizeID(id)
		if _, ok := upsertIDs[id]; ok {
			return true
		}
		return view.NodeExists(id)
	}

	seenEdges := make(map[string]struct{})
	for _, ea := range p.EdgesToAdd {
		src, dst := normalizeID(ea.Source), normalizeID(ea.Target)
		if !existsOrUpserted(src) || !existsOrUpserted(dst) {
			out.Warn("dropped edge with missing endpoint: " + ea.Source + " -> " + ea.Target)
			continue
		}
		key := src + "\x1f" + dst + "\x1f" + ea.Label
		if _, dup := seenEdges[key]; dup {
			continue
		}
		seenEdges[key] = struct{}{}
		ea.Source, ea.Target = src, dst
		out.EdgesToAdd = append(out.EdgesToAdd, ea)
	}

	seenDeletes := make(map[string]struct{})
	for _, nd := range p.NodesToDelete {
		id := normalizeID(nd.ID)
		if id == "" {
			continue
		}
		if _, dup := seenDeletes[id]; dup {
			continue
		}
		seenDeletes[id] = struct{}{}
		nd.ID = id
		out.NodesToDelete = append(out.NodesToDelete, nd)
	}

	seenEdgeDeletes := make(map[string]struct{})
	for _, ed := range p.EdgesToDelete {
		if ed.IsAllWildcard() {
			out.Warn("dropped all-wildcard edge deletion")
			continue
		}
		key := ed.Source + "\x1f" + ed.Target + "\x1f" + ed.Label
		if _, dup := seenEdgeDeletes[key]; dup {
			continue
		}
		seenEdgeDeletes[key] = struct{}{}
		out.EdgesToDelete = append(out.EdgesToDelete, ed)
	}

	return out
}

// normalizeID trims whitespace and lowercases for duplicate-detection
// comparisons. Validate writes the normalized form back as the node ID;
// when that changes the casing of an upsert without a "name" attribute,
// Validate keeps the original casing in a copied "name" attribute.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
