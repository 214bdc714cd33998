package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertNode_InsertThenMerge(t *testing.T) {
	g := New()

	g.UpsertNode("hero", KindCharacter, map[string]interface{}{
		"health": 80.0, "max_health": 100.0, "tags": []string{"brave"},
	})
	n := g.GetNode("hero")
	require.NotNil(t, n)
	assert.Equal(t, KindCharacter, n.Type)
	assert.Equal(t, 80.0, n.Attributes["health"])

	g.UpsertNode("hero", KindCharacter, map[string]interface{}{
		"health": 250.0, "tags": []string{"wounded"},
	})
	n = g.GetNode("hero")
	// health clamps to existing max_health.
	assert.Equal(t, 100.0, n.Attributes["health"])
	assert.ElementsMatch(t, []string{"brave", "wounded"}, n.Attributes["tags"])
}

func TestUpsertNode_MaxGrowthAttributes(t *testing.T) {
	g := New()
	g.UpsertNode("hero", KindCharacter, map[string]interface{}{"level": 3.0})
	g.UpsertNode("hero", KindCharacter, map[string]interface{}{"level": 2.0})
	n := g.GetNode("hero")
	assert.Equal(t, 3.0, n.Attributes["level"], "level must never regress")
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	g := New()
	g.UpsertNode("hero", KindCharacter, nil)
	missing := g.AddEdge("hero", "sword", "wields", nil)
	assert.True(t, missing)
	assert.Equal(t, 0, g.EdgeCount())

	g.UpsertNode("sword", KindItem, nil)
	missing = g.AddEdge("hero", "sword", "wields", nil)
	assert.False(t, missing)
	assert.Equal(t, 1, g.EdgeCount())
}

func TestDeleteNode_RemovesIncidentEdges(t *testing.T) {
	g := New()
	g.UpsertNode("hero", KindCharacter, nil)
	g.UpsertNode("sword", KindItem, nil)
	g.AddEdge("hero", "sword", "wields", nil)

	notFound := g.DeleteNode("sword")
	assert.False(t, notFound)
	assert.Equal(t, 0, g.EdgeCount())
	assert.Nil(t, g.GetNode("sword"))
}

func TestMarkDeleted_SoftDeleteExcludedFromSubgraph(t *testing.T) {
	g := New()
	g.UpsertNode("villain", KindCharacter, nil)
	g.UpsertNode("hero", KindCharacter, nil)
	g.AddEdge("hero", "villain", "hostile_to", nil)

	notFound := g.MarkDeleted("villain", "death")
	assert.False(t, notFound)

	sub := g.Subgraph([]string{"villain"}, 1)
	assert.Equal(t, 0, sub.NodeCount(), "subgraph seeded from a deleted node must be empty")

	n := g.GetNode("villain")
	require.NotNil(t, n)
	assert.True(t, n.Deleted)
	assert.Equal(t, "death", n.DeletedReason)
}

func TestDeleteEdgesMatching_RejectsAllWildcard(t *testing.T) {
	g := New()
	_, ok := g.DeleteEdgesMatching(EdgeMatch{})
	assert.False(t, ok, "an all-wildcard match must be rejected")
}

func TestSubgraph_ContainmentAcrossDepth(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.UpsertNode(id, KindCharacter, nil)
	}
	g.AddEdge("a", "b", "knows", nil)
	g.AddEdge("b", "c", "knows", nil)
	g.AddEdge("c", "d", "knows", nil)

	d0 := g.Subgraph([]string{"a"}, 0)
	d1 := g.Subgraph([]string{"a"}, 1)
	d2 := g.Subgraph([]string{"a"}, 2)

	assert.Equal(t, 1, d0.NodeCount())
	assert.Equal(t, 2, d1.NodeCount())
	assert.Equal(t, 3, d2.NodeCount())
	assert.LessOrEqual(t, d0.NodeCount(), d1.NodeCount())
	assert.LessOrEqual(t, d1.NodeCount(), d2.NodeCount())
}

func TestSerializeParse_RoundTrip(t *testing.T) {
	g := New()
	g.UpsertNode("hero", KindCharacter, map[string]interface{}{"health": 80.0, "tags": []string{"brave"}})
	g.UpsertNode("sword", KindItem, nil)
	g.AddEdge("hero", "sword", "wields", map[string]interface{}{"enchantment": "+2"})

	data, err := g.Serialize()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Parse(data))

	assert.Equal(t, g.NodeCount(), restored.NodeCount())
	assert.Equal(t, g.EdgeCount(), restored.EdgeCount())
	hero := restored.GetNode("hero")
	require.NotNil(t, hero)
	assert.Equal(t, 80.0, hero.Attributes["health"])
}

func TestParse_MalformedLeavesGraphUntouched(t *testing.T) {
	g := New()
	g.UpsertNode("hero", KindCharacter, nil)
	err := g.Parse([]byte("not json"))
	assert.Error(t, err)
	assert.Equal(t, 1, g.NodeCount(), "a failed parse must not mutate the existing graph")
}
