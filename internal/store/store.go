// Package store implements EntityStore: the durable projection of a
// session's KnowledgeGraph, per spec §4.2. Two files live side by side in
// a session's directory: graph.bbolt, a lossless single-file embedded KV
// store (go.etcd.io/bbolt) holding the graph's Serialize() bytes, and
// entities.json, a flat human-inspectable mirror written atomically by
// write-then-rename.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"storyweave/internal/graph"
	"storyweave/pkg/apperrors"
)

const (
	graphFileName  = "graph.bbolt"
	mirrorFileName = "entities.json"

	bucketGraph = "graph"
	keyCurrent  = "current"
)

// Store is a session's on-disk persistence handle.
type Store struct {
	dir    string
	db     *bbolt.DB
	logger *zap.Logger
}

// Open opens (creating if absent) the bbolt file under dir and ensures
// the graph bucket exists. dir must already exist.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dbPath := filepath.Join(dir, graphFileName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, apperrors.NewTransient("opening graph store", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketGraph))
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperrors.NewTransient("initializing graph bucket", err)
	}
	return &Store{dir: dir, db: db, logger: logger}, nil
}

// Close releases the underlying bbolt file handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sync overwrites both the bbolt-backed lossless form and the JSON
// mirror from the current graph, per spec §4.2. The mirror write is
// atomic (write-then-rename); callers rely on MemoryFacade.Persist to
// hold the session lock for the duration.
func (s *Store) Sync(g *graph.KnowledgeGraph) error {
	data, err := g.Serialize()
	if err != nil {
		return apperrors.NewCorrupt("serializing graph", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketGraph))
		return b.Put([]byte(keyCurrent), data)
	})
	if err != nil {
		return apperrors.NewTransient("writing graph store", err)
	}

	if err := s.writeMirror(g); err != nil {
		return err
	}
	return nil
}

func (s *Store) writeMirror(g *graph.KnowledgeGraph) error {
	data, err := BuildMirror(g)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(s.dir, mirrorFileName), data)
}

// BuildMirror renders g as the flat entities.json document described in
// spec §6, independent of any Store instance. Used both by Sync's
// on-disk mirror write and by the /sessions/{id}/export endpoint, which
// hands a session's graph to an operator without requiring a bbolt client.
func BuildMirror(g *graph.KnowledgeGraph) ([]byte, error) {
	doc := mirrorDocument{LastModified: time.Now()}
	for _, n := range g.AllNodes() {
		doc.Entities = append(doc.Entities, mirrorEntity{
			Name: n.Name, Type: string(n.Type), Description: n.Description,
			CreatedTime: n.CreatedAt, LastModified: n.LastModified, Attributes: n.Attributes,
		})
	}
	for _, e := range g.AllEdges() {
		doc.Relationships = append(doc.Relationships, mirrorRelationship{
			Source: e.Source, Target: e.Target, Relationship: e.Label, Attributes: e.Attributes,
		})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.NewCorrupt("marshaling entity mirror", err)
	}
	return data, nil
}

// atomicWrite writes data to a temp file in the same directory as path,
// then renames it over path — the write-then-rename pattern spec.md §9
// calls out explicitly, so a crash mid-write never leaves a truncated
// mirror file on disk.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return apperrors.NewTransient("creating temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewTransient("writing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewTransient("closing temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewTransient("renaming temp file", err)
	}
	return nil
}

// Load reconstructs a graph at session boot. It prefers the lossless
// bbolt form; if that key is absent (first boot, or a prior Corrupt
// event cleared it) it falls back to the flat JSON mirror, forgiving of
// unknown attribute keys and dropping — with a warning, not an error —
// any relationship whose endpoints are missing from the entity list.
func (s *Store) Load() (*graph.KnowledgeGraph, []string, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketGraph))
		v := b.Get([]byte(keyCurrent))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, nil, apperrors.NewTransient("reading graph store", err)
	}

	if data != nil {
		g := graph.New()
		if parseErr := g.Parse(data); parseErr != nil {
			s.logger.Warn("graph store corrupt, falling back to mirror", zap.Error(parseErr))
			return s.loadFromMirror()
		}
		return g, nil, nil
	}
	return s.loadFromMirror()
}

func (s *Store) loadFromMirror() (*graph.KnowledgeGraph, []string, error) {
	path := filepath.Join(s.dir, mirrorFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return graph.New(), nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.NewTransient("reading entity mirror", err)
	}

	var doc mirrorDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return graph.New(), []string{fmt.Sprintf("entity mirror corrupt, starting empty: %v", err)}, nil
	}

	g := graph.New()
	known := make(map[string]struct{}, len(doc.Entities))
	for _, e := range doc.Entities {
		attrs := e.Attributes
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		if e.Description != "" {
			attrs["description"] = e.Description
		}
		if e.Name != "" {
			attrs["name"] = e.Name
		}
		g.UpsertNode(e.Name, graph.ParseKind(e.Type), attrs)
		known[e.Name] = struct{}{}
	}

	var warnings []string
	for _, r := range doc.Relationships {
		_, srcOK := known[r.Source]
		_, dstOK := known[r.Target]
		if !srcOK || !dstOK {
			warnings = append(warnings, fmt.Sprintf("dropped relationship %s-[%s]->%s: missing endpoint", r.Source, r.Relationship, r.Target))
			continue
		}
		g.AddEdge(r.Source, r.Target, r.Relationship, r.Attributes)
	}
	return g, warnings, nil
}
