package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"storyweave/internal/conflict"
	"storyweave/internal/httpapi/dto"
	"storyweave/internal/memory"
	"storyweave/internal/observability"
	"storyweave/internal/session"
	"storyweave/pkg/apperrors"
	"storyweave/pkg/config"
)

// Handler serves spec §6's HTTP surface over a SessionRegistry. Route
// handlers stay thin — decode, validate, call a Session/Registry method,
// encode — with no business logic of their own, mirroring the teacher's
// internal/handlers separation from internal/service/memory.
type Handler struct {
	registry *session.Registry
	cfg      config.Session
	metrics  *observability.Metrics
	logger   *zap.Logger
	validate *validator.Validate
}

// New returns a Handler bound to registry, using cfg as the default
// per-session config for /initialize calls that omit session_config.
// metrics may be nil to disable instrumentation.
func New(registry *session.Registry, cfg config.Session, metrics *observability.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, cfg: cfg, metrics: metrics, logger: logger, validate: validator.New()}
}

func (h *Handler) recordCounts(c memory.Counts) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordPlanCounts(c.NodesUpserted, c.EdgesAdded, c.NodesDeleted, c.EdgesDeleted)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, apperrors.NewInvalidInput("invalid request body: "+err.Error()))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, apperrors.NewInvalidInput("validation failed: "+err.Error()))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusCode(err)
	resp := dto.ErrorResponse{Error: err.Error()}
	h.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	h.writeJSON(w, status, resp)
}

// mergeSessionConfig overlays non-zero fields of override onto the
// handler's default Session config, per /initialize's "session_config
// only applies on first creation" contract.
func (h *Handler) mergeSessionConfig(override *dto.SessionConfig) config.Session {
	cfg := h.cfg
	if override == nil {
		return cfg
	}
	if override.WindowSize != 0 {
		cfg.WindowSize = override.WindowSize
	}
	if override.ProcessingDelay != 0 {
		cfg.ProcessingDelay = override.ProcessingDelay
	}
	if override.HotBufferSize != 0 {
		cfg.HotBufferSize = override.HotBufferSize
	}
	if override.ContextDefaultDepth != 0 {
		cfg.ContextDefaultDepth = override.ContextDefaultDepth
	}
	if override.MaxContextLength != 0 {
		cfg.MaxContextLength = override.MaxContextLength
	}
	if override.SessionEvictionPolicy != "" {
		cfg.EvictionPolicy = config.SessionEvictionPolicy(override.SessionEvictionPolicy)
	}
	return cfg
}

// worldInfoText renders world_info as free text fed to the Extractor.
// world_info may be a YAML world-book (SPEC_FULL.md §3); when it parses
// as YAML it is flattened into "key: value" lines so the rule extractor
// can still scan it as prose, otherwise it is used verbatim.
func worldInfoText(worldInfo string) string {
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(worldInfo), &doc); err != nil || len(doc) == 0 {
		return worldInfo
	}
	var b strings.Builder
	for k, v := range doc {
		fmt.Fprintf(&b, "%s: %v\n", k, v)
	}
	return b.String()
}

// Initialize handles POST /initialize.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req dto.InitializeRequest
	if !h.decode(w, r, &req) {
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cfg := h.mergeSessionConfig(req.SessionConfig)
	sess, _, err := h.registry.GetOrCreateWithConfig(sessionID, cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}

	freeText := req.CharacterCard + "\n" + worldInfoText(req.WorldInfo)
	sess.Seed(r.Context(), freeText)

	worldTime := "Not set"
	if req.SessionConfig != nil && req.SessionConfig.WorldTime != "" {
		worldTime = req.SessionConfig.WorldTime
	}
	sess.PutState("world_time", worldTime)

	if !req.IsTest {
		if err := sess.Persist(); err != nil {
			h.writeError(w, err)
			return
		}
	}

	stats := sess.Stats()
	h.writeJSON(w, http.StatusOK, dto.InitializeResponse{
		SessionID: sessionID,
		Message:   "session initialized",
		GraphStats: dto.GraphStats{
			NodeCount: stats.NodeCount,
			EdgeCount: stats.EdgeCount,
		},
	})
}

// EnhancePrompt handles POST /enhance_prompt.
func (h *Handler) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req dto.EnhancePromptRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := sess.EnhancePrompt(req.UserInput, req.MaxContextLength)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dto.EnhancePromptResponse{
		EnhancedContext: result.Text,
		EntitiesFound:   result.EntityIDs,
		Truncated:       result.Truncated,
		ContextStats: dto.ContextStats{
			EntitiesCount: result.Stats.EntitiesCount,
			ContextLength: result.Stats.ContextLength,
			GraphNodes:    result.Stats.GraphNodes,
			GraphEdges:    result.Stats.GraphEdges,
		},
	})
}

func countsToDTO(c memory.Counts) dto.ProcessingStats {
	return dto.ProcessingStats{
		NodesUpserted: c.NodesUpserted,
		EdgesAdded:    c.EdgesAdded,
		NodesDeleted:  c.NodesDeleted,
		EdgesDeleted:  c.EdgesDeleted,
		Warnings:      c.Warnings,
	}
}

// UpdateMemory handles POST /update_memory.
func (h *Handler) UpdateMemory(w http.ResponseWriter, r *http.Request) {
	var req dto.ConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	counts, err := sess.UpdateMemory(r.Context(), req.UserInput, req.LLMResponse)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.recordCounts(counts)

	h.writeJSON(w, http.StatusOK, dto.UpdateMemoryResponse{
		Message:         "memory updated",
		NodesUpdated:    counts.NodesUpserted,
		EdgesAdded:      counts.EdgesAdded,
		ProcessingStats: countsToDTO(counts),
	})
}

// ProcessConversation handles POST /process_conversation. A session with
// no meaningful window configured falls back to /update_memory
// semantics transparently, per spec §6.
func (h *Handler) ProcessConversation(w http.ResponseWriter, r *http.Request) {
	var req dto.ConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !sess.HasWindow() {
		counts, err := sess.UpdateMemory(r.Context(), req.UserInput, req.LLMResponse)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.recordCounts(counts)
		h.writeJSON(w, http.StatusOK, dto.ProcessConversationResponse{
			TurnProcessed:   true,
			TargetProcessed: true,
			WindowSize:      0,
			ProcessingStats: countsToDTO(counts),
		})
		return
	}

	result := sess.ProcessConversation(r.Context(), req.UserInput, req.LLMResponse)
	if result.TargetCommitted {
		h.recordCounts(result.Counts)
		if h.metrics != nil {
			h.metrics.RecordTurnCommitted()
		}
	}
	h.writeJSON(w, http.StatusOK, dto.ProcessConversationResponse{
		TurnSequence:    result.Sequence,
		TurnProcessed:   result.TurnAccepted,
		TargetProcessed: result.TargetCommitted,
		WindowSize:      sess.Stats().WindowInfo.WindowSize,
		ProcessingStats: countsToDTO(result.Counts),
	})
}

func toExternalTurns(in []dto.TavernTurn) []conflict.ExternalTurn {
	out := make([]conflict.ExternalTurn, len(in))
	for i, t := range in {
		out[i] = conflict.ExternalTurn{
			ID: t.ID, Sequence: t.Sequence, User: t.User, Assistant: t.Assistant, Timestamp: t.Timestamp,
		}
	}
	return out
}

// SyncConversation handles POST /sync_conversation.
func (h *Handler) SyncConversation(w http.ResponseWriter, r *http.Request) {
	var req dto.SyncConversationRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result := sess.SyncConversation(toExternalTurns(req.TavernHistory))
	h.writeJSON(w, http.StatusOK, dto.SyncConversationResponse{
		ConflictsDetected: result.ConflictsDetected,
		ConflictsResolved: result.ConflictsResolved,
		WindowSynced:      true,
	})
}

// SessionStats handles GET /sessions/{id}/stats.
func (h *Handler) SessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.registry.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	stats := sess.Stats()
	h.writeJSON(w, http.StatusOK, dto.SessionStatsResponse{
		SessionID: id,
		GraphStats: dto.GraphStats{
			NodeCount: stats.NodeCount,
			EdgeCount: stats.EdgeCount,
		},
		BufferLen: stats.BufferLen,
		WindowStats: dto.WindowStats{
			WindowSize:           stats.WindowInfo.WindowSize,
			CurrentTurns:         stats.WindowInfo.CurrentTurns,
			ProcessedTurns:       stats.WindowInfo.ProcessedTurns,
			PendingTurns:         stats.WindowInfo.PendingTurns,
			NextProcessingTarget: stats.WindowInfo.NextProcessingTarget,
			OldestSequence:       stats.WindowInfo.OldestSequence,
			NewestSequence:       stats.WindowInfo.NewestSequence,
		},
		CreatedAt:    stats.CreatedAt,
		LastAccessed: stats.LastAccessed,
	})
}

// ResetSession handles POST /sessions/{id}/reset. keep_character_data
// (default true) clears conversation history while preserving the
// graph; false destroys the session outright, per spec §6.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.registry.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req dto.ResetRequest
	if r.ContentLength > 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	if !req.Keep() {
		if err := h.registry.Destroy(id); err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, dto.ResetResponse{Message: "session reset"})
		return
	}

	if err := sess.Reset(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dto.ResetResponse{Message: "session reset"})
}

// ListSessions handles GET /sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.SessionListResponse{SessionIDs: h.registry.List()})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "healthy"})
}

// ExportSession handles GET /sessions/{id}/export.
func (h *Handler) ExportSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.registry.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data, err := sess.Export()
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
