package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/internal/httpapi/dto"
	"storyweave/internal/session"
	"storyweave/pkg/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server: config.Server{DataDir: t.TempDir(), MetricsPath: "/metrics"},
		Session: config.Session{
			WindowSize: 4, ProcessingDelay: 1, HotBufferSize: 10,
			ContextDefaultDepth: 1, MaxContextLength: 4000,
			EvictionPolicy: config.EvictionNone, MaxSessions: 100,
		},
		CORS: config.CORS{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}, AllowedHeaders: []string{"*"}},
	}
}

func newTestServer(t *testing.T) (http.Handler, *session.Registry) {
	t.Helper()
	cfg := testConfig(t)
	reg := session.NewRegistry(cfg.Server.DataDir, cfg.Session, cfg.LLM, nil, nil, nil)
	t.Cleanup(func() {
		for _, id := range reg.List() {
			reg.Destroy(id)
		}
	})
	return NewRouter(reg, cfg, nil, nil), reg
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReportsHealthy(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitialize_CreatesSessionAndSeedsGraph(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/initialize", dto.InitializeRequest{
		CharacterCard: "Kael the Warrior guards the village gate.",
		WorldInfo:     "The village sits at the edge of a dark forest.",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.InitializeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Greater(t, resp.GraphStats.NodeCount, 0)
}

func TestInitialize_RejectsMissingCharacterCard(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/initialize", dto.InitializeRequest{WorldInfo: "text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMemory_UnknownSessionReturnsNotFound(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/update_memory", dto.ConversationRequest{
		SessionID: "ghost", UserInput: "hi", LLMResponse: "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetSession_KeepCharacterDataClearsHistoryButKeepsGraph(t *testing.T) {
	h, reg := newTestServer(t)

	initRec := doJSON(t, h, http.MethodPost, "/initialize", dto.InitializeRequest{
		CharacterCard: "Kael the Warrior arrives.",
	})
	require.Equal(t, http.StatusOK, initRec.Code)
	var initResp dto.InitializeResponse
	require.NoError(t, json.NewDecoder(initRec.Body).Decode(&initResp))

	doJSON(t, h, http.MethodPost, "/update_memory", dto.ConversationRequest{
		SessionID: initResp.SessionID, UserInput: "Kael draws his sword.", LLMResponse: "The blade gleams.",
	})

	keep := true
	resetRec := doJSON(t, h, http.MethodPost, "/sessions/"+initResp.SessionID+"/reset", dto.ResetRequest{KeepCharacterData: &keep})
	assert.Equal(t, http.StatusOK, resetRec.Code)

	_, err := reg.Get(initResp.SessionID)
	require.NoError(t, err, "session must still exist after a keep-character-data reset")

	statsRec := doJSON(t, h, http.MethodGet, "/sessions/"+initResp.SessionID+"/stats", nil)
	require.Equal(t, http.StatusOK, statsRec.Code)
	var stats dto.SessionStatsResponse
	require.NoError(t, json.NewDecoder(statsRec.Body).Decode(&stats))
	assert.Equal(t, 0, stats.BufferLen, "conversation history must be cleared")
	assert.Greater(t, stats.GraphStats.NodeCount, 0, "graph must be preserved")
}

func TestResetSession_WithoutKeepDestroysSession(t *testing.T) {
	h, reg := newTestServer(t)

	initRec := doJSON(t, h, http.MethodPost, "/initialize", dto.InitializeRequest{
		CharacterCard: "Kael the Warrior arrives.",
	})
	require.Equal(t, http.StatusOK, initRec.Code)
	var initResp dto.InitializeResponse
	require.NoError(t, json.NewDecoder(initRec.Body).Decode(&initResp))

	drop := false
	resetRec := doJSON(t, h, http.MethodPost, "/sessions/"+initResp.SessionID+"/reset", dto.ResetRequest{KeepCharacterData: &drop})
	assert.Equal(t, http.StatusOK, resetRec.Code)

	_, err := reg.Get(initResp.SessionID)
	assert.Error(t, err, "session must be destroyed after a reset without keep_character_data")
}

func TestResetSession_OmittedKeepCharacterDataDefaultsToKeep(t *testing.T) {
	h, reg := newTestServer(t)

	initRec := doJSON(t, h, http.MethodPost, "/initialize", dto.InitializeRequest{
		CharacterCard: "Kael the Warrior arrives.",
	})
	require.Equal(t, http.StatusOK, initRec.Code)
	var initResp dto.InitializeResponse
	require.NoError(t, json.NewDecoder(initRec.Body).Decode(&initResp))

	resetRec := doJSON(t, h, http.MethodPost, "/sessions/"+initResp.SessionID+"/reset", dto.ResetRequest{})
	assert.Equal(t, http.StatusOK, resetRec.Code)

	_, err := reg.Get(initResp.SessionID)
	require.NoError(t, err, "omitting keep_character_data must default to keep, not destroy")
}

func TestFullFlow_InitializeThenUpdateThenStats(t *testing.T) {
	h, _ := newTestServer(t)

	initRec := doJSON(t, h, http.MethodPost, "/initialize", dto.InitializeRequest{
		CharacterCard: "Kael the Warrior arrives.",
	})
	require.Equal(t, http.StatusOK, initRec.Code)
	var initResp dto.InitializeResponse
	require.NoError(t, json.NewDecoder(initRec.Body).Decode(&initResp))

	updateRec := doJSON(t, h, http.MethodPost, "/update_memory", dto.ConversationRequest{
		SessionID: initResp.SessionID, UserInput: "Kael draws his sword.", LLMResponse: "The blade gleams.",
	})
	assert.Equal(t, http.StatusOK, updateRec.Code)

	statsRec := doJSON(t, h, http.MethodGet, "/sessions/"+initResp.SessionID+"/stats", nil)
	assert.Equal(t, http.StatusOK, statsRec.Code)
	var stats dto.SessionStatsResponse
	require.NoError(t, json.NewDecoder(statsRec.Body).Decode(&stats))
	assert.Equal(t, 1, stats.BufferLen)
}
