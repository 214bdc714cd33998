package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/extract/rule"
	"storyweave/internal/graph"
)

func TestAnalyze_ParsesCodeFencedResponse(t *testing.T) {
	provider := NewMockProvider("```json\n{\"nodes_to_upsert\":[{\"id\":\"kael\",\"type\":\"character\",\"attributes\":{}}]}\n```")
	e := New(provider, rule.New(), Options{}, nil)

	p, err := e.Analyze(context.Background(), "Kael arrives.", "", graph.New(), "")
	require.NoError(t, err)
	require.Len(t, p.NodesToUpsert, 1)
	assert.Equal(t, "kael", p.NodesToUpsert[0].ID)
	// world-aware defaults filled in for a brand-new character
	assert.Equal(t, 100.0, p.NodesToUpsert[0].Attributes["health"])
}

func TestAnalyze_FallsBackToRuleOnProviderError(t *testing.T) {
	provider := &MockProvider{Available: true, Err: errors.New("timeout")}
	e := New(provider, rule.New(), Options{}, nil)

	p, err := e.Analyze(context.Background(), "", "Kael dies in battle.", graph.New(), "")
	require.NoError(t, err)
	require.Len(t, p.NodesToDelete, 1)
	assert.Equal(t, "death", p.NodesToDelete[0].Reason)
}

func TestAnalyze_FallsBackWhenProviderUnavailable(t *testing.T) {
	provider := &MockProvider{Available: false}
	e := New(provider, rule.New(), Options{}, nil)

	p, err := e.Analyze(context.Background(), "nothing happens", "", graph.New(), "")
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestAnalyze_AugmentsWithPlaceholderEndpoint(t *testing.T) {
	provider := NewMockProvider(`{"edges_to_add":[{"source":"kael","target":"rusty_dagger","label":"wields"}]}`)
	e := New(provider, rule.New(), Options{}, nil)

	p, err := e.Analyze(context.Background(), "", "", graph.New(), "")
	require.NoError(t, err)
	assert.Len(t, p.EdgesToAdd, 1)

	ids := map[string]bool{}
	for _, n := range p.NodesToUpsert {
		ids[n.ID] = true
	}
	assert.True(t, ids["kael"])
	assert.True(t, ids["rusty_dagger"])
}

func TestParsePlan_DropsMalformedEntries(t *testing.T) {
	p, err := parsePlan(`{"nodes_to_upsert":[{"id":""},{"id":"ok","type":"item"}]}`)
	require.NoError(t, err)
	require.Len(t, p.NodesToUpsert, 1)
	assert.NotEmpty(t, p.Warnings)
}
