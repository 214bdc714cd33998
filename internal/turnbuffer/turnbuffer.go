// Package turnbuffer implements TurnBuffer: a bounded FIFO of recent
// (user, assistant) pairs that feeds recency context, per spec §4.3.
package turnbuffer

import "fmt"

// Pair is one (user, assistant) exchange held in the buffer.
type Pair struct {
	User      string
	Assistant string
}

// defaultSize matches spec §6's configuration default for hot_buffer_size.
const defaultSize = 10

// TurnBuffer is a bounded FIFO; Append evicts the oldest pair once full.
type TurnBuffer struct {
	capacity int
	pairs    []Pair
}

// New returns a TurnBuffer with the given capacity (at least 1);
// capacity <= 0 falls back to the spec default of 10.
func New(capacity int) *TurnBuffer {
	if capacity <= 0 {
		capacity = defaultSize
	}
	return &TurnBuffer{capacity: capacity}
}

// Append adds a pair, evicting the oldest if the buffer is at capacity.
func (b *TurnBuffer) Append(user, assistant string) {
	b.pairs = append(b.pairs, Pair{User: user, Assistant: assistant})
	if len(b.pairs) > b.capacity {
		b.pairs = b.pairs[len(b.pairs)-b.capacity:]
	}
}

// RecentText formats the last k pairs as "user: … / assistant: …" lines,
// oldest first. k <= 0 or k greater than the buffer size returns
// everything held.
func (b *TurnBuffer) RecentText(k int) string {
	pairs := b.last(k)
	out := ""
	for _, p := range pairs {
		out += fmt.Sprintf("user: %s\nassistant: %s\n", p.User, p.Assistant)
	}
	return out
}

// Recent returns a copy of the last k pairs, oldest first.
func (b *TurnBuffer) Recent(k int) []Pair {
	src := b.last(k)
	out := make([]Pair, len(src))
	copy(out, src)
	return out
}

func (b *TurnBuffer) last(k int) []Pair {
	if k <= 0 || k > len(b.pairs) {
		return b.pairs
	}
	return b.pairs[len(b.pairs)-k:]
}

// Len reports the number of pairs currently held.
func (b *TurnBuffer) Len() int {
	return len(b.pairs)
}

// Snapshot returns all pairs held, for persistence.
func (b *TurnBuffer) Snapshot() []Pair {
	out := make([]Pair, len(b.pairs))
	copy(out, b.pairs)
	return out
}

// Restore replaces the buffer's contents, used when loading from the
// persisted conversation_buffer.json snapshot. Extra entries beyond
// capacity are trimmed to the oldest-evicted rule.
func (b *TurnBuffer) Restore(pairs []Pair) {
	b.pairs = nil
	for _, p := range pairs {
		b.Append(p.User, p.Assistant)
	}
}

// Clear drops every held pair, used by a reset-with-keep-character-data
// that wipes conversation history while leaving the graph untouched.
func (b *TurnBuffer) Clear() {
	b.pairs = nil
}
