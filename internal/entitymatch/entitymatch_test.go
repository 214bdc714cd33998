package entitymatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/graph"
)

func TestBuild_EmptyGraphScansNothing(t *testing.T) {
	m, err := Build(graph.New())
	require.NoError(t, err)
	assert.Empty(t, m.Scan("Kael the Warrior arrives."))
}

func TestScan_MatchesNodeNameAndID(t *testing.T) {
	g := graph.New()
	g.UpsertNode("kael", graph.KindCharacter, map[string]interface{}{"name": "Kael"})

	m, err := Build(g)
	require.NoError(t, err)

	assert.Contains(t, m.Scan("Kael draws his sword."), "kael")
	assert.Contains(t, m.Scan("the kael entity was referenced"), "kael")
}

func TestScan_PrefersLongestOverlappingMatch(t *testing.T) {
	g := graph.New()
	g.UpsertNode("kael", graph.KindCharacter, map[string]interface{}{"name": "Kael"})
	g.UpsertNode("kael_the_warrior", graph.KindCharacter, map[string]interface{}{"name": "Kael the Warrior"})

	m, err := Build(g)
	require.NoError(t, err)

	ids := m.Scan("Kael the Warrior guards the gate.")
	assert.Contains(t, ids, "kael_the_warrior")
	assert.NotContains(t, ids, "kael")
}

func TestScan_IgnoresDeletedNodes(t *testing.T) {
	g := graph.New()
	g.UpsertNode("kael", graph.KindCharacter, map[string]interface{}{"name": "Kael"})
	g.MarkDeleted("kael", "death")

	m, err := Build(g)
	require.NoError(t, err)
	assert.Empty(t, m.Scan("Kael is mentioned again."))
}
