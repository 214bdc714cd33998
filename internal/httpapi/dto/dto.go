// Package dto holds the request/response shapes for internal/httpapi's
// JSON surface, per spec §6. Validation tags follow the teacher's
// handlers.CreateNodeRequest style (github.com/go-playground/validator/v10).
package dto

import "time"

// SessionConfig carries per-session overrides accepted by /initialize.
// Zero-valued fields fall back to the process-wide defaults in
// pkg/config.Session.
type SessionConfig struct {
	WindowSize          int    `json:"window_size,omitempty" validate:"omitempty,min=2"`
	ProcessingDelay      int    `json:"processing_delay,omitempty" validate:"omitempty,min=0"`
	HotBufferSize       int    `json:"hot_buffer_size,omitempty" validate:"omitempty,min=1"`
	ContextDefaultDepth int    `json:"context_default_depth,omitempty" validate:"omitempty,min=0"`
	MaxContextLength    int    `json:"max_context_length,omitempty" validate:"omitempty,min=1"`
	SessionEvictionPolicy string `json:"session_eviction_policy,omitempty" validate:"omitempty,oneof=none lru"`
	WorldTime           string `json:"world_time,omitempty"`
}

// InitializeRequest is /initialize's request body.
type InitializeRequest struct {
	SessionID     string         `json:"session_id,omitempty"`
	CharacterCard string         `json:"character_card" validate:"required"`
	WorldInfo     string         `json:"world_info"`
	SessionConfig *SessionConfig `json:"session_config,omitempty"`
	IsTest        bool           `json:"is_test,omitempty"`
	EnableAgent   bool           `json:"enable_agent,omitempty"`
}

// GraphStats mirrors the counters surfaced by Session.Stats's graph half.
type GraphStats struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// InitializeResponse is /initialize's response body.
type InitializeResponse struct {
	SessionID  string     `json:"session_id"`
	Message    string     `json:"message"`
	GraphStats GraphStats `json:"graph_stats"`
}

// EnhancePromptRequest is /enhance_prompt's request body.
type EnhancePromptRequest struct {
	SessionID        string `json:"session_id" validate:"required"`
	UserInput        string `json:"user_input" validate:"required"`
	RecentHistory    int    `json:"recent_history,omitempty" validate:"omitempty,min=0"`
	MaxContextLength int    `json:"max_context_length,omitempty" validate:"omitempty,min=1"`
}

// ContextStats mirrors contextbuild.Stats over the wire.
type ContextStats struct {
	EntitiesCount int `json:"entities_count"`
	ContextLength int `json:"context_length"`
	GraphNodes    int `json:"graph_nodes"`
	GraphEdges    int `json:"graph_edges"`
}

// EnhancePromptResponse is /enhance_prompt's response body.
type EnhancePromptResponse struct {
	EnhancedContext string       `json:"enhanced_context"`
	EntitiesFound   []string     `json:"entities_found"`
	ContextStats    ContextStats `json:"context_stats"`
	Truncated       bool         `json:"truncated"`
}

// ConversationRequest is the shared body of /update_memory and
// /process_conversation, per spec §6.
type ConversationRequest struct {
	SessionID   string     `json:"session_id" validate:"required"`
	UserInput   string     `json:"user_input" validate:"required"`
	LLMResponse string     `json:"llm_response" validate:"required"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	ChatID      string     `json:"chat_id,omitempty"`
}

// ProcessingStats mirrors memory.Counts over the wire.
type ProcessingStats struct {
	NodesUpserted int      `json:"nodes_upserted"`
	EdgesAdded    int      `json:"edges_added"`
	NodesDeleted  int      `json:"nodes_deleted"`
	EdgesDeleted  int      `json:"edges_deleted"`
	Warnings      []string `json:"warnings,omitempty"`
}

// UpdateMemoryResponse is /update_memory's response body.
type UpdateMemoryResponse struct {
	Message         string          `json:"message"`
	NodesUpdated    int             `json:"nodes_updated"`
	EdgesAdded      int             `json:"edges_added"`
	ProcessingStats ProcessingStats `json:"processing_stats"`
}

// ProcessConversationResponse is /process_conversation's response body.
type ProcessConversationResponse struct {
	TurnSequence    int             `json:"turn_sequence"`
	TurnProcessed   bool            `json:"turn_processed"`
	TargetProcessed bool            `json:"target_processed"`
	WindowSize      int             `json:"window_size"`
	ProcessingStats ProcessingStats `json:"processing_stats"`
}

// TavernTurn is one record in /sync_conversation's tavern_history list.
type TavernTurn struct {
	ID        string     `json:"id,omitempty"`
	Sequence  int        `json:"sequence,omitempty"`
	User      string     `json:"user"`
	Assistant string     `json:"assistant"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// SyncConversationRequest is /sync_conversation's request body.
type SyncConversationRequest struct {
	SessionID     string       `json:"session_id" validate:"required"`
	TavernHistory []TavernTurn `json:"tavern_history" validate:"required"`
}

// SyncConversationResponse is /sync_conversation's response body.
type SyncConversationResponse struct {
	ConflictsDetected int  `json:"conflicts_detected"`
	ConflictsResolved int  `json:"conflicts_resolved"`
	WindowSynced      bool `json:"window_synced"`
}

// WindowStats mirrors window.Info over the wire.
type WindowStats struct {
	WindowSize           int    `json:"window_size"`
	CurrentTurns         int    `json:"current_turns"`
	ProcessedTurns       int    `json:"processed_turns"`
	PendingTurns         int    `json:"pending_turns"`
	NextProcessingTarget string `json:"next_processing_target,omitempty"`
	OldestSequence       int    `json:"oldest_sequence"`
	NewestSequence       int    `json:"newest_sequence"`
}

// SessionStatsResponse is GET /sessions/{id}/stats's response body.
type SessionStatsResponse struct {
	SessionID    string      `json:"session_id"`
	GraphStats   GraphStats  `json:"graph_stats"`
	BufferLen    int         `json:"buffer_len"`
	WindowStats  WindowStats `json:"window_stats"`
	CreatedAt    time.Time   `json:"created_at"`
	LastAccessed time.Time   `json:"last_accessed"`
}

// ResetRequest is /sessions/{id}/reset's request body. KeepCharacterData
// defaults to true when omitted, matching the original handler's default.
type ResetRequest struct {
	KeepCharacterData *bool `json:"keep_character_data,omitempty"`
}

// Keep reports the effective keep-character-data flag, defaulting to
// true when the request didn't specify one.
func (r ResetRequest) Keep() bool {
	if r.KeepCharacterData == nil {
		return true
	}
	return *r.KeepCharacterData
}

// ResetResponse is /sessions/{id}/reset's response body.
type ResetResponse struct {
	Message string `json:"message"`
}

// SessionListResponse is GET /sessions's response body.
type SessionListResponse struct {
	SessionIDs []string `json:"session_ids"`
}

// HealthResponse is GET /health's response body.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body returned for every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}
