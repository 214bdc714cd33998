// Package conflict implements ConflictResolver: reconciliation of an
// authoritative external turn list against the in-window history, per
// spec §4.10. Grounded on the original ConflictResolver
// (original_source/src/core/conflict_resolver.py), whose content-hash
// diff and per-record classification this mirrors; the Python version's
// try/except-wrapped sync loop becomes an explicit per-record result
// with no exceptional control flow, per spec §9's design note.
package conflict

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"storyweave/internal/window"
)

// ExternalTurn is one record delivered by the external chat host.
type ExternalTurn struct {
	ID        string
	Sequence  int // 0 means "not provided"
	User      string
	Assistant string
	Timestamp *time.Time
}

// SyncResult reports the per-sync accounting invariants of spec §4.10/§8.
type SyncResult struct {
	Synced            int
	ConflictsDetected int
	ConflictsResolved int
	OutOfWindow       int
	NewTurns          int
	UpdatedTurns      int
	DeletedTurns      int
}

// snapshot mirrors the original's ConversationState: a content-hash
// fingerprint taken whenever a turn is admitted or resynced.
type snapshot struct {
	turnID      string
	sequence    int
	contentHash string
	createdAt   time.Time
	version     int
}

// contentHash hashes user || 0x1e || assistant, matching the
// separator-joined hash spec §4.10 specifies.
func contentHash(user, assistant string) string {
	sum := sha256.Sum256([]byte(user + "\x1e" + assistant))
	return hex.EncodeToString(sum[:])[:16]
}

// Resolver reconciles external turn lists against a SlidingWindow.
// Snapshots are kept in a map parallel to the window, one per admitted
// turn ID.
type Resolver struct {
	win       *window.SlidingWindow
	snapshots map[string]snapshot
	now       func() time.Time
}

// New returns a Resolver bound to the given session window.
func New(win *window.SlidingWindow) *Resolver {
	return &Resolver{win: win, snapshots: make(map[string]snapshot), now: time.Now}
}

// recencyWindow bounds how old an unknown turn's timestamp may be to
// still be admitted, per spec §4.10 ("within the last 24 hours").
const recencyWindow = 24 * time.Hour

// Sync reconciles externalList against the window per the algorithm in
// spec §4.10. All operations are O(len(externalList) + window size).
func (r *Resolver) Sync(externalList []ExternalTurn) SyncResult {
	result := SyncResult{}
	windowSequences := r.win.Sequences()
	seenIDs := make(map[string]struct{}, len(externalList))

	for _, rec := range externalList {
		result.Synced++
		if rec.ID != "" {
			seenIDs[rec.ID] = struct{}{}
		}

		if rec.Sequence != 0 {
			if _, inWindow := windowSequences[rec.Sequence]; !inWindow {
				result.OutOfWindow++
				continue
			}
		}

		h := contentHash(rec.User, rec.Assistant)

		if rec.ID != "" && r.win.Contains(rec.ID) {
			snap, hasSnap := r.snapshots[rec.ID]
			if !hasSnap || snap.contentHash != h {
				result.ConflictsDetected++
				user, assistant := rec.User, rec.Assistant
				if r.win.Update(rec.ID, &user, &assistant) {
					result.ConflictsResolved++
					result.UpdatedTurns++
					r.snapshots[rec.ID] = snapshot{
						turnID: rec.ID, sequence: rec.Sequence,
						contentHash: h, createdAt: r.now(), version: snap.version + 1,
					}
				}
			}
			continue
		}

		// Unknown (or empty) ID: admitted as a new turn when it has
		// content and is recent enough.
		if rec.User == "" && rec.Assistant == "" {
			continue
		}
		if rec.Timestamp != nil && r.now().Sub(*rec.Timestamp) > recencyWindow {
			continue
		}

		turn := r.win.Append(rec.User, rec.Assistant)
		result.NewTurns++
		r.snapshots[turn.TurnID] = snapshot{
			turnID: turn.TurnID, sequence: turn.Sequence,
			contentHash: h, createdAt: r.now(), version: 1,
		}
	}

	for _, turn := range r.win.AllTurns() {
		if _, ok := seenIDs[turn.TurnID]; !ok {
			result.DeletedTurns++
		}
	}

	return result
}
