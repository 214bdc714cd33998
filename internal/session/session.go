// Package session implements Session and SessionRegistry: the per-id
// composition root over MemoryFacade, SlidingWindow, Extractor, and
// ConflictResolver, and the map that owns their lifecycle, per spec §5.
// Grounded on the teacher's internal/service/memory.Service, which plays
// a similar per-tenant composition role, generalized here to one
// in-process object per session instead of one DynamoDB partition.
package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"storyweave/internal/conflict"
	"storyweave/internal/contextbuild"
	"storyweave/internal/delayedupdate"
	"storyweave/internal/extract"
	"storyweave/internal/extract/llm"
	"storyweave/internal/extract/rule"
	"storyweave/internal/memory"
	"storyweave/internal/store"
	"storyweave/internal/window"
	"storyweave/pkg/apperrors"
	"storyweave/pkg/config"
)

// Session composes one story's in-memory state and persistence handle.
// Every exported method that mutates state takes the Session's own
// mutex, per spec §5's "one session object owns per-session state" rule.
// Lock ordering is registry -> session, never the reverse.
type Session struct {
	mu sync.Mutex

	ID            string
	facade        *memory.Facade
	window        *window.SlidingWindow
	manager       *delayedupdate.Manager
	resolver      *conflict.Resolver
	extractor     extract.Extractor
	extractorKind string
	onExtraction  func(backend, outcome string)
	cfg           config.Session

	createdAt    time.Time
	lastAccessed time.Time
}

// Deps carries the shared, process-wide collaborators a new Session
// needs: a logger, an LLM provider (nil disables the LLM extractor
// regardless of configuration), and an optional extraction-metrics hook.
type Deps struct {
	Logger       *zap.Logger
	Provider     llm.Provider
	OnExtraction func(backend, outcome string)
}

// New creates a Session rooted at dir (which must already exist),
// loading any persisted state found there.
func New(id, dir string, cfg config.Session, llmCfg config.LLM, deps Deps) (*Session, []string, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	facade, warnings, err := memory.Load(dir, cfg.HotBufferSize, logger)
	if err != nil {
		return nil, nil, err
	}

	win := window.New(cfg.WindowSize, cfg.ProcessingDelay)
	ruleExtractor := rule.New()

	backend := "rule"
	var extractor extract.Extractor = ruleExtractor
	if llmCfg.Enabled && deps.Provider != nil {
		extractor = llm.New(deps.Provider, ruleExtractor, llm.Options{RequestTimeout: llmCfg.RequestTimeout}, logger)
		backend = "llm"
	}

	now := time.Now()
	s := &Session{
		ID:             id,
		facade:         facade,
		window:         win,
		manager:        delayedupdate.New(win, extractor, facade),
		resolver:       conflict.New(win),
		extractor:      extractor,
		extractorKind:  backend,
		onExtraction:   deps.OnExtraction,
		cfg:            cfg,
		createdAt:      now,
		lastAccessed:   now,
	}
	return s, warnings, nil
}

// recordExtraction invokes the extraction-metrics hook, if any; callers
// must already hold mu.
func (s *Session) recordExtraction(err error) {
	if s.onExtraction == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.onExtraction(s.extractorKind, outcome)
}

// touch stamps lastAccessed; callers must already hold mu.
func (s *Session) touch() { s.lastAccessed = time.Now() }

// Seed applies freeText through the extractor once, bypassing the
// sliding window delay, per spec §6's /initialize contract.
func (s *Session) Seed(ctx context.Context, freeText string) memory.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	p, err := s.extractor.Analyze(ctx, freeText, "", s.facade.Graph(), "")
	s.recordExtraction(err)
	if err != nil {
		return memory.Counts{Warnings: []string{"seed extraction failed: " + err.Error()}}
	}
	return s.facade.Apply(p)
}

// UpdateMemory implements the /update_memory synchronous path: extract,
// apply, record, persist — no sliding-window delay.
func (s *Session) UpdateMemory(ctx context.Context, userInput, llmResponse string) (memory.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	p, err := s.extractor.Analyze(ctx, userInput, llmResponse, s.facade.Graph(), s.facade.Buffer().RecentText(3))
	s.recordExtraction(err)
	if err != nil {
		return memory.Counts{}, apperrors.NewTransient("extraction failed", err)
	}
	counts := s.facade.Apply(p)
	s.facade.RecordTurn(userInput, llmResponse)
	if err := s.facade.Persist(); err != nil {
		return counts, err
	}
	return counts, nil
}

// ProcessConversation implements the windowed /process_conversation
// path via DelayedUpdateManager.
func (s *Session) ProcessConversation(ctx context.Context, userInput, llmResponse string) delayedupdate.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	result := s.manager.OnNewTurn(ctx, userInput, llmResponse)
	if result.TargetCommitted {
		_ = s.facade.Persist()
	}
	return result
}

// SyncConversation implements /sync_conversation via ConflictResolver.
func (s *Session) SyncConversation(tavernHistory []conflict.ExternalTurn) conflict.SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.resolver.Sync(tavernHistory)
}

// EnhancePrompt implements /enhance_prompt via ContextBuilder.
func (s *Session) EnhancePrompt(userInput string, maxContextLength int) (contextbuild.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	opts := contextbuild.Options{
		Depth:            s.cfg.ContextDefaultDepth,
		MaxContextLength: maxContextLength,
	}
	return contextbuild.Build(userInput, s.facade.Graph(), s.facade.Buffer(), s.facade.State(), opts)
}

// Stats reports the fields the /sessions/{id}/stats endpoint surfaces.
type Stats struct {
	WindowInfo   window.Info
	NodeCount    int
	EdgeCount    int
	BufferLen    int
	CreatedAt    time.Time
	LastAccessed time.Time
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		WindowInfo:   s.window.Info(),
		NodeCount:    s.facade.Graph().NodeCount(),
		EdgeCount:    s.facade.Graph().EdgeCount(),
		BufferLen:    s.facade.Buffer().Len(),
		CreatedAt:    s.createdAt,
		LastAccessed: s.lastAccessed,
	}
}

// Export returns the graph re-rendered as the flat entities.json mirror
// for the /sessions/{id}/export endpoint, per the supplemented graph
// export feature.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.BuildMirror(s.facade.Graph())
}

// HasWindow reports whether this session has a meaningful sliding
// window configured. A configured WindowSize of 1 or less counts as no
// window (window.New would substitute its defaults for it), so
// /process_conversation transparently falls back to /update_memory
// semantics for such sessions, committing every turn immediately, per
// spec §6.
func (s *Session) HasWindow() bool {
	return s.cfg.WindowSize > 1
}

// PutState sets a StateTable key (e.g. world_time seeded at
// initialization) without persisting immediately; the next Persist call
// picks it up.
func (s *Session) PutState(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facade.PutState(key, value)
}

// Persist flushes any pending mutations to disk. Seed does not persist
// on its own so that a dry-run /initialize call (is_test=true) can skip
// this step entirely.
func (s *Session) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facade.Persist()
}

// Reset clears conversation history and processing state while leaving
// the graph and state table untouched, per spec §6's
// reset-with-keep-character-data contract: a fresh SlidingWindow,
// DelayedUpdateManager, and ConflictResolver replace the old ones, and
// the TurnBuffer is emptied, then the cleared state is persisted.
// Destroying a session outright (keep_character_data=false) is the
// registry's job, not this method's: the caller removes the Session from
// the registry instead of calling Reset.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	win := window.New(s.cfg.WindowSize, s.cfg.ProcessingDelay)
	s.window = win
	s.manager = delayedupdate.New(win, s.extractor, s.facade)
	s.resolver = conflict.New(win)
	s.facade.ClearHistory()
	return s.facade.Persist()
}

// Close releases the session's Store handle.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facade.Close()
}

// sessionDir derives a session's on-disk directory from the registry's
// root data directory.
func sessionDir(root, id string) string {
	return filepath.Join(root, id)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
