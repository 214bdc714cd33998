package contextbuild

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/graph"
	"storyweave/internal/statetable"
	"storyweave/internal/turnbuffer"
)

func TestBuild_ComposesThreeSections(t *testing.T) {
	g := graph.New()
	g.UpsertNode("kael", graph.KindCharacter, map[string]interface{}{"name": "Kael", "health": 80.0})
	g.AddEdge("kael", "kael", "self", nil)

	buf := turnbuffer.New(10)
	buf.Append("hello", "hi there")
	st := statetable.New()
	st.Put("world_time", "Day 3, Dusk")

	result, err := Build("Kael looks around nervously.", g, buf, st, Options{})
	require.NoError(t, err)

	assert.Contains(t, result.Text, "## Recent Conversation History")
	assert.Contains(t, result.Text, "## Current World State")
	assert.Contains(t, result.Text, "World Time: Day 3, Dusk")
	assert.Contains(t, result.Text, "## Relevant Knowledge Graph")
	assert.Contains(t, result.EntityIDs, "kael")
	assert.Equal(t, 1, result.Stats.EntitiesCount)
}

func TestBuild_WorldTimeDefaultsWhenNotSet(t *testing.T) {
	g := graph.New()
	result, err := Build("nothing relevant", g, turnbuffer.New(10), statetable.New(), Options{})
	require.NoError(t, err)
	assert.Contains(t, result.Text, "World Time: Not set")
}

func TestBuild_TruncatesGraphSectionButKeepsHistoryAndWorldState(t *testing.T) {
	g := graph.New()
	for i := 0; i < 200; i++ {
		id := "npc_" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		g.UpsertNode(id, graph.KindCharacter, map[string]interface{}{
			"name": id, "description": strings.Repeat("lore ", 20),
		})
	}
	buf := turnbuffer.New(10)
	buf.Append("what happened", "a long battle unfolded")
	st := statetable.New()
	st.Put("world_time", "Day 1")

	// seed every node so Subgraph pulls them all into the rendered section
	ids := make([]string, 0, 200)
	for _, n := range g.AllNodes() {
		ids = append(ids, n.ID)
	}
	result, err := Build(strings.Join(ids, " "), g, buf, st, Options{MaxContextLength: 500})
	require.NoError(t, err)

	assert.True(t, result.Truncated)
	assert.Contains(t, result.Text, "## Recent Conversation History")
	assert.Contains(t, result.Text, "what happened")
	assert.Contains(t, result.Text, "World Time: Day 1")
	assert.Contains(t, result.Text, "[truncated]")
	assert.LessOrEqual(t, len(result.Text), 500+len(truncationMarker)+200)
}
