package window

import "time"

// ConversationTurn is one (user, assistant) exchange tracked by the
// SlidingWindow, grounded on the original implementation's
// ConversationTurn dataclass (original_source/src/core/sliding_window.py).
type ConversationTurn struct {
	TurnID            string
	Sequence          int
	CreatedAt         time.Time
	UserInput         string
	AssistantResponse string
	Processed         bool
	ProcessedAt       *time.Time
	// Version increments whenever content is edited; editing clears Processed.
	Version int
}
