package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storyweave/internal/plan"
)

type fakeGraph struct {
	existing map[string]struct{}
}

func (f fakeGraph) NodeExists(id string) bool {
	_, ok := f.existing[id]
	return ok
}

func TestValidate_DropsEdgeWithMissingEndpoint(t *testing.T) {
	p := plan.New()
	p.EdgesToAdd = append(p.EdgesToAdd, plan.EdgeAdd{Source: "hero", Target: "ghost"})

	out := Validate(p, fakeGraph{existing: map[string]struct{}{"hero": {}}})
	assert.Empty(t, out.EdgesToAdd)
	assert.NotEmpty(t, out.Warnings)
}

func TestValidate_AllowsEdgeToNodeUpsertedInSamePlan(t *testing.T) {
	p := plan.New()
	p.NodesToUpsert = append(p.NodesToUpsert, plan.NodeUpsert{ID: "sword"})
	p.EdgesToAdd = append(p.EdgesToAdd, plan.EdgeAdd{Source: "hero", Target: "sword", Label: "wields"})

	out := Validate(p, fakeGraph{existing: map[string]struct{}{"hero": {}}})
	assert.Len(t, out.EdgesToAdd, 1)
}

func TestValidate_RejectsAllWildcardEdgeDeletion(t *testing.T) {
	p := plan.New()
	p.EdgesToDelete = append(p.EdgesToDelete, plan.EdgeDelete{Source: plan.Wildcard, Target: plan.Wildcard, Label: plan.Wildcard})

	out := Validate(p, fakeGraph{})
	assert.Empty(t, out.EdgesToDelete)
}

func TestValidate_DeduplicatesWithinPlan(t *testing.T) {
	p := plan.New()
	p.NodesToUpsert = append(p.NodesToUpsert,
		plan.NodeUpsert{ID: "Hero"},
		plan.NodeUpsert{ID: "hero"},
	)

	out := Validate(p, fakeGraph{})
	assert.Len(t, out.NodesToUpsert, 1)
}

func TestValidate_NeverErrorsOnEmptyPlan(t *testing.T) {
	out := Validate(plan.New(), fakeGraph{})
	assert.True(t, out.Empty())
}
