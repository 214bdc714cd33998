// Package window implements SlidingWindow: a bounded deque of
// ConversationTurn records with a processing cursor trailing the tail by
// a configurable delay, per spec §4.8. Grounded on the original
// SlidingWindowManager (original_source/src/core/sliding_window.py),
// reworked from a coroutine-style "delayed processing" into an explicit
// cursor over a plain slice, per spec §9's design note.
package window

import (
	"time"

	"github.com/google/uuid"
)

// defaultWindowSize and defaultProcessingDelay match spec §6's config defaults.
const (
	defaultWindowSize      = 4
	defaultProcessingDelay = 1
)

// Info summarizes window state for the /sessions/{id}/stats endpoint.
type Info struct {
	WindowSize            int
	CurrentTurns          int
	ProcessedTurns        int
	PendingTurns          int
	NextProcessingTarget  string
	OldestSequence        int
	NewestSequence        int
}

// SlidingWindow holds at most WindowSize turns in arrival order; the
// oldest is evicted permanently once capacity is exceeded.
type SlidingWindow struct {
	windowSize      int
	processingDelay int

	turns    []*ConversationTurn
	byID     map[string]*ConversationTurn
	sequence int

	now func() time.Time
	newID func() string
}

// New returns a SlidingWindow with the given size/delay. Invalid
// combinations (windowSize < 2, delay < 0, delay >= windowSize) fall
// back to the spec defaults (4, 1).
func New(windowSize, processingDelay int) *SlidingWindow {
	if windowSize < 2 || processingDelay < 0 || processingDelay >= windowSize {
		windowSize, processingDelay = defaultWindowSize, defaultProcessingDelay
	}
	return &SlidingWindow{
		windowSize:      windowSize,
		processingDelay: processingDelay,
		byID:            make(map[string]*ConversationTurn),
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
	}
}

// Append assigns the next sequence number and a new turn ID, evicting the
// oldest turn if the window is at capacity. Evicted turns leave the
// window permanently — they are not retrievable by GetById afterward.
func (w *SlidingWindow) Append(user, assistant string) *ConversationTurn {
	w.sequence++
	turn := &ConversationTurn{
		TurnID:            w.newID(),
		Sequence:          w.sequence,
		CreatedAt:         w.now(),
		UserInput:         user,
		AssistantResponse: assistant,
		Version:           1,
	}
	w.turns = append(w.turns, turn)
	w.byID[turn.TurnID] = turn

	if len(w.turns) > w.windowSize {
		evicted := w.turns[0]
		w.turns = w.turns[1:]
		delete(w.byID, evicted.TurnID)
	}
	return turn
}

// PickProcessingTarget returns the turn at position len-1-D from the
// tail iff len > D and that turn is unprocessed; otherwise nil. This is
// the cursor that trails the newest turn by exactly D, per the delay
// invariant in spec §8.
func (w *SlidingWindow) PickProcessingTarget() *ConversationTurn {
	n := len(w.turns)
	if n <= w.processingDelay {
		return nil
	}
	idx := n - 1 - w.processingDelay
	target := w.turns[idx]
	if target.Processed {
		return nil
	}
	return target
}

// MarkProcessed sets a turn's Processed flag and stamps ProcessedAt.
// Returns false if turnID is not currently in the window.
func (w *SlidingWindow) MarkProcessed(turnID string, ok bool) bool {
	turn, found := w.byID[turnID]
	if !found {
		return false
	}
	turn.Processed = ok
	now := w.now()
	turn.ProcessedAt = &now
	return true
}

// Update overwrites user/assistant fields (nil means "leave unchanged"),
// bumps Version, and clears Processed so the turn is re-eligible for
// processing. Returns false if turnID is not in the window.
func (w *SlidingWindow) Update(turnID string, user, assistant *string) bool {
	turn, found := w.byID[turnID]
	if !found {
		return false
	}
	if user != nil {
		turn.UserInput = *user
	}
	if assistant != nil {
		turn.AssistantResponse = *assistant
	}
	turn.Version++
	turn.Processed = false
	turn.ProcessedAt = nil
	return true
}

// Recent returns the last k turns, oldest first. k <= 0 returns all.
func (w *SlidingWindow) Recent(k int) []*ConversationTurn {
	if k <= 0 || k > len(w.turns) {
		k = len(w.turns)
	}
	out := make([]*ConversationTurn, k)
	copy(out, w.turns[len(w.turns)-k:])
	return out
}

// AllTurns returns every turn currently in the window, oldest first.
func (w *SlidingWindow) AllTurns() []*ConversationTurn {
	out := make([]*ConversationTurn, len(w.turns))
	copy(out, w.turns)
	return out
}

// GetById returns the turn with the given ID, or nil if evicted/absent.
func (w *SlidingWindow) GetById(turnID string) *ConversationTurn {
	return w.byID[turnID]
}

// Contains reports whether turnID is currently in the window.
func (w *SlidingWindow) Contains(turnID string) bool {
	_, ok := w.byID[turnID]
	return ok
}

// Sequences returns the set of sequence numbers currently held, used by
// ConflictResolver to test "is this record's sequence in the window".
func (w *SlidingWindow) Sequences() map[int]struct{} {
	out := make(map[int]struct{}, len(w.turns))
	for _, t := range w.turns {
		out[t.Sequence] = struct{}{}
	}
	return out
}

// Info summarizes the window for the stats endpoint.
func (w *SlidingWindow) Info() Info {
	info := Info{WindowSize: w.windowSize}
	if len(w.turns) == 0 {
		return info
	}
	info.CurrentTurns = len(w.turns)
	info.OldestSequence = w.turns[0].Sequence
	info.NewestSequence = w.turns[len(w.turns)-1].Sequence
	for _, t := range w.turns {
		if t.Processed {
			info.ProcessedTurns++
		} else {
			info.PendingTurns++
		}
	}
	if target := w.PickProcessingTarget(); target != nil {
		info.NextProcessingTarget = target.TurnID
	}
	return info
}
