// Package memory implements MemoryFacade: the single entry point
// composing KnowledgeGraph, EntityStore, TurnBuffer, and StateTable,
// owning dirty-flag persistence and the JSON-mirror sync, per spec §4.5.
// Grounded on the teacher's internal/service/memory.Service, which plays
// the same composing-façade role over its own repository/domain layers.
package memory

import (
	"sync"

	"go.uber.org/zap"

	"storyweave/internal/graph"
	"storyweave/internal/plan"
	"storyweave/internal/statetable"
	"storyweave/internal/store"
	"storyweave/internal/turnbuffer"
)

// Counts reports how many plan operations actually took effect,
// returned by Apply per spec §4.5.
type Counts struct {
	NodesUpserted int
	EdgesAdded    int
	NodesDeleted  int
	EdgesDeleted  int
	Warnings      []string
}

// Facade composes the per-session memory layers behind a single mutex,
// the lock sufficient to serialize mutators per spec §5's sharing
// policy. It is not safe to share across sessions.
type Facade struct {
	mu sync.RWMutex

	graph  *graph.KnowledgeGraph
	buffer *turnbuffer.TurnBuffer
	state  *statetable.StateTable
	store  *store.Store
	logger *zap.Logger

	dirty bool
}

// New composes a Facade from already-constructed layers. Session is
// responsible for wiring Store via store.Open and loading prior state.
func New(g *graph.KnowledgeGraph, buf *turnbuffer.TurnBuffer, st *statetable.StateTable, s *store.Store, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{graph: g, buffer: buf, state: st, store: s, logger: logger}
}

// Load opens dir's Store and reconstructs a Facade from whatever
// persisted state exists there (first boot yields an empty graph,
// buffer, and state table). Any forgiven corruption surfaces as
// warnings rather than an error, per spec §7's Corrupt kind.
func Load(dir string, hotBufferSize int, logger *zap.Logger) (*Facade, []string, error) {
	s, err := store.Open(dir, logger)
	if err != nil {
		return nil, nil, err
	}

	g, graphWarnings, err := s.Load()
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	pairs, entries, auxWarnings, err := s.LoadAux()
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	buf := turnbuffer.New(hotBufferSize)
	buf.Restore(pairs)
	st := statetable.New()
	st.Restore(entries)

	warnings := append(graphWarnings, auxWarnings...)
	return New(g, buf, st, s, logger), warnings, nil
}

// Close releases the underlying Store handle.
func (f *Facade) Close() error {
	return f.store.Close()
}

// Apply commits a validated plan in the order deletes -> upserts ->
// edges, per spec §4.5. It never partially aborts: every entry is
// applied best-effort, failures are counted rather than short-circuiting
// the remaining entries. Marks the session dirty iff anything changed.
func (f *Facade) Apply(p *plan.UpdatePlan) Counts {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := Counts{Warnings: append([]string(nil), p.Warnings...)}
	changed := false

	for _, nd := range p.NodesToDelete {
		switch nd.Mode {
		case plan.DeleteHard:
			if notFound := f.graph.DeleteNode(nd.ID); !notFound {
				counts.NodesDeleted++
				changed = true
			} else {
				counts.Warnings = append(counts.Warnings, "delete target not found: "+nd.ID)
			}
		default:
			if notFound := f.graph.MarkDeleted(nd.ID, nd.Reason); !notFound {
				counts.NodesDeleted++
				changed = true
			} else {
				counts.Warnings = append(counts.Warnings, "soft-delete target not found: "+nd.ID)
			}
		}
	}

	for _, ed := range p.EdgesToDelete {
		match := graph.EdgeMatch{Source: normalizeWildcard(ed.Source), Target: normalizeWildcard(ed.Target), Label: normalizeWildcard(ed.Label)}
		n, ok := f.graph.DeleteEdgesMatching(match)
		if !ok {
			counts.Warnings = append(counts.Warnings, "rejected all-wildcard edge deletion")
			continue
		}
		if n > 0 {
			counts.EdgesDeleted += n
			changed = true
		}
	}

	for _, nu := range p.NodesToUpsert {
		logs := f.graph.UpsertNode(nu.ID, graph.ParseKind(nu.Type), nu.Attributes)
		for _, l := range logs {
			f.logger.Debug("attribute overwritten", zap.String("node", nu.ID), zap.String("attr", l.key))
		}
		counts.NodesUpserted++
		changed = true
	}

	for _, ea := range p.EdgesToAdd {
		if missing := f.graph.AddEdge(ea.Source, ea.Target, ea.Label, ea.Attributes); missing {
			counts.Warnings = append(counts.Warnings, "missing endpoint for edge: "+ea.Source+" -> "+ea.Target)
			continue
		}
		counts.EdgesAdded++
		changed = true
	}

	if changed {
		f.dirty = true
	}
	return counts
}

// RecordTurn appends a (user, assistant) pair to the TurnBuffer and
// marks the session dirty.
func (f *Facade) RecordTurn(user, assistant string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer.Append(user, assistant)
	f.dirty = true
}

// ClearHistory empties the TurnBuffer, leaving the graph and state table
// untouched, and marks the session dirty so the cleared buffer is
// persisted. Used by a reset that keeps character data.
func (f *Facade) ClearHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer.Clear()
	f.dirty = true
}

// PutState sets a StateTable key and marks the session dirty.
func (f *Facade) PutState(key string, value interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Put(key, value)
	f.dirty = true
}

// Graph returns the live KnowledgeGraph for read-only use by
// ContextBuilder and the Validator. Callers must not retain it past the
// call holding f's lock (RLock/RUnlock around the read).
func (f *Facade) Graph() *graph.KnowledgeGraph {
	return f.graph
}

// RLock/RUnlock expose the façade's read lock to components (ContextBuilder)
// that need a consistent multi-field read without a full mutator lock.
func (f *Facade) RLock()   { f.mu.RLock() }
func (f *Facade) RUnlock() { f.mu.RUnlock() }

// Buffer and State expose the composed layers for ContextBuilder, under
// the caller's own RLock/RUnlock.
func (f *Facade) Buffer() *turnbuffer.TurnBuffer { return f.buffer }
func (f *Facade) State() *statetable.StateTable  { return f.state }

// RetrieveContext renders the depth-1 subgraph around entityIDs as text;
// recentK is currently unused. The full three-section composition (with
// entity scanning, world time, and length capping) lives in
// internal/contextbuild, which builds its graph section from
// KnowledgeGraph.Subgraph directly rather than through this method.
func (f *Facade) RetrieveContext(entityIDs []string, recentK int) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sub := f.graph.Subgraph(entityIDs, 1)
	return sub.String()
}

// Persist writes graph + JSON mirror (via EntityStore.Sync) if the
// session is dirty, then clears the dirty flag. Safe to call
// concurrently; idempotent when not dirty.
func (f *Facade) Persist() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirty {
		return nil
	}
	if err := f.store.Sync(f.graph); err != nil {
		// Dirty flag stays set; the next modification's Persist call
		// retries, per spec §5's cancellation/timeout policy.
		return err
	}
	if err := f.store.SyncAux(f.buffer, f.state); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// Dirty reports whether unsynced mutations are pending.
func (f *Facade) Dirty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dirty
}

func normalizeWildcard(s string) string {
	if s == plan.Wildcard {
		return ""
	}
	return s
}
