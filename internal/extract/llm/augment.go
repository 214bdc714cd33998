package llm

import (
	"storyweave/internal/graph"
	"storyweave/internal/plan"
)

// characterDefaults and itemDefaults are world-aware attribute defaults
// the LLM extractor fills in for brand-new entities, per spec §4.6's
// "augment operations with world-aware defaults" clause.
var characterDefaults = map[string]interface{}{
	"health": 100.0, "max_health": 100.0, "level": 1.0,
}

var itemDefaults = map[string]interface{}{
	"enhancement": "+0",
}

// augmentPlan fills in world-aware defaults on new character/item
// upserts and auto-creates placeholder nodes for edge endpoints that
// exist neither in the graph nor in the plan's own upsert list — so the
// Validator does not drop an otherwise-valid new relation for lack of a
// node to attach it to.
func augmentPlan(p *plan.UpdatePlan, g *graph.KnowledgeGraph) {
	planned := make(map[string]struct{}, len(p.NodesToUpsert))
	for i := range p.NodesToUpsert {
		nu := &p.NodesToUpsert[i]
		planned[nu.ID] = struct{}{}
		applyDefaults(nu, g)
	}

	for _, ea := range p.EdgesToAdd {
		for _, id := range []string{ea.Source, ea.Target} {
			if id == "" {
				continue
			}
			if _, inPlan := planned[id]; inPlan {
				continue
			}
			if g != nil && g.NodeExists(id) {
				continue
			}
			planned[id] = struct{}{}
			p.NodesToUpsert = append(p.NodesToUpsert, plan.NodeUpsert{
				ID: id, Type: string(graph.KindUnknown),
				Attributes: map[string]interface{}{"name": id, "placeholder": true},
			})
		}
	}
}

func applyDefaults(nu *plan.NodeUpsert, g *graph.KnowledgeGraph) {
	if g != nil && g.NodeExists(nu.ID) {
		return // only brand-new entities get world-aware defaults
	}
	if nu.Attributes == nil {
		nu.Attributes = map[string]interface{}{}
	}
	var defaults map[string]interface{}
	switch graph.ParseKind(nu.Type) {
	case graph.KindCharacter:
		defaults = characterDefaults
	case graph.KindItem:
		defaults = itemDefaults
	default:
		return
	}
	for k, v := range defaults {
		if _, present := nu.Attributes[k]; !present {
			nu.Attributes[k] = v
		}
	}
}
