package session

import (
	"container/list"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"storyweave/internal/extract/llm"
	"storyweave/pkg/apperrors"
	"storyweave/pkg/config"
)

// Registry owns the session map and its own mutex, per spec §5's lock
// ordering rule: registry -> session, never the reverse; the registry
// lock is always released before a caller touches a returned Session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lru      *list.List // front = most recently used; elements are session IDs
	lruElem  map[string]*list.Element

	dataDir string
	cfg     config.Session
	llmCfg  config.LLM
	deps    Deps
	logger  *zap.Logger
}

// NewRegistry returns an empty Registry rooted at dataDir. onExtraction
// may be nil to disable extraction metrics.
func NewRegistry(dataDir string, cfg config.Session, llmCfg config.LLM, provider llm.Provider, onExtraction func(backend, outcome string), logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		lru:      list.New(),
		lruElem:  make(map[string]*list.Element),
		dataDir:  dataDir,
		cfg:      cfg,
		llmCfg:   llmCfg,
		deps:     Deps{Logger: logger, Provider: provider, OnExtraction: onExtraction},
		logger:   logger,
	}
}

// GetOrCreate returns the session for id, creating it (and its on-disk
// directory) on first use. Warnings surfaced from loading persisted
// state are returned alongside a freshly created session only.
func (r *Registry) GetOrCreate(id string) (*Session, []string, error) {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.touchLocked(id)
		r.mu.Unlock()
		return s, nil, nil
	}
	r.mu.Unlock()

	dir := sessionDir(r.dataDir, id)
	if err := ensureDir(dir); err != nil {
		return nil, nil, apperrors.NewTransient("creating session directory", err)
	}
	s, warnings, err := New(id, dir, r.cfg, r.llmCfg, r.deps)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		// Lost a race to create the same session; discard ours, keep theirs.
		r.touchLocked(id)
		return existing, nil, nil
	}
	r.sessions[id] = s
	r.lruElem[id] = r.lru.PushFront(id)
	r.evictIfNeededLocked()
	return s, warnings, nil
}

// GetOrCreateWithConfig behaves like GetOrCreate, but applies override in
// place of the registry's default Session config when id does not exist
// yet. An existing session's config is never changed by a later call,
// per /initialize's "session_config only applies on first creation"
// contract.
func (r *Registry) GetOrCreateWithConfig(id string, override config.Session) (*Session, []string, error) {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.touchLocked(id)
		r.mu.Unlock()
		return s, nil, nil
	}
	r.mu.Unlock()

	dir := sessionDir(r.dataDir, id)
	if err := ensureDir(dir); err != nil {
		return nil, nil, apperrors.NewTransient("creating session directory", err)
	}
	s, warnings, err := New(id, dir, override, r.llmCfg, r.deps)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		r.touchLocked(id)
		return existing, nil, nil
	}
	r.sessions[id] = s
	r.lruElem[id] = r.lru.PushFront(id)
	r.evictIfNeededLocked()
	return s, warnings, nil
}

// Get returns an existing session, or NotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("session %q not found", id))
	}
	r.touchLocked(id)
	return s, nil
}

// Destroy closes and removes a session. Returns NotFound if absent.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return apperrors.NewNotFound(fmt.Sprintf("session %q not found", id))
	}
	delete(r.sessions, id)
	if elem, ok := r.lruElem[id]; ok {
		r.lru.Remove(elem)
		delete(r.lruElem, id)
	}
	r.mu.Unlock()

	return s.Close()
}

// List returns every live session ID.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) touchLocked(id string) {
	if elem, ok := r.lruElem[id]; ok {
		r.lru.MoveToFront(elem)
	}
}

// evictIfNeededLocked closes and drops the least-recently-used session
// when the eviction policy is lru and MaxSessions is exceeded. Caller
// must hold mu. The evicted session is persisted (errors ignored) and
// then closed synchronously; a slow Persist or Close briefly delays the triggering
// GetOrCreate call, acceptable per spec §5's backpressure design note.
func (r *Registry) evictIfNeededLocked() {
	if r.cfg.EvictionPolicy != config.EvictionLRU {
		return
	}
	for len(r.sessions) > r.cfg.MaxSessions {
		oldest := r.lru.Back()
		if oldest == nil {
			return
		}
		id := oldest.Value.(string)
		r.lru.Remove(oldest)
		delete(r.lruElem, id)
		if s, ok := r.sessions[id]; ok {
			delete(r.sessions, id)
			_ = s.facade.Persist()
			_ = s.Close()
		}
	}
}
