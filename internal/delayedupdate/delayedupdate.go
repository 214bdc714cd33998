// Package delayedupdate implements DelayedUpdateManager: the driver that
// advances the sliding window, picks the oldest unprocessed turn outside
// the delay zone, and submits it through Extractor -> Validator ->
// MemoryFacade, per spec §4.9.
package delayedupdate

import (
	"context"
	"fmt"

	"storyweave/internal/extract"
	"storyweave/internal/memory"
	"storyweave/internal/validate"
	"storyweave/internal/window"
)

// Result reports the outcome of one OnNewTurn call.
type Result struct {
	Sequence        int
	TurnAccepted    bool
	TargetCommitted bool
	TargetTurnID    string
	Counts          memory.Counts
}

// Manager wires a SlidingWindow, an Extractor, and a MemoryFacade
// together. One Manager per session, owned by the session's Facade
// mutex — callers must already hold the session's serialization
// discipline described in spec §5.
type Manager struct {
	window    *window.SlidingWindow
	extractor extract.Extractor
	facade    *memory.Facade
}

// New returns a Manager over the given window, extractor, and facade.
func New(win *window.SlidingWindow, extractor extract.Extractor, facade *memory.Facade) *Manager {
	return &Manager{window: win, extractor: extractor, facade: facade}
}

// OnNewTurn implements spec §4.9's seven-step algorithm.
func (m *Manager) OnNewTurn(ctx context.Context, user, assistant string) Result {
	turn := m.window.Append(user, assistant)
	result := Result{Sequence: turn.Sequence, TurnAccepted: true}

	target := m.window.PickProcessingTarget()
	if target == nil {
		return result
	}
	result.TargetTurnID = target.TurnID

	recentContext := formatRecent(m.window.Recent(3))

	p, err := m.extractor.Analyze(ctx, target.UserInput, target.AssistantResponse, m.facade.Graph(), recentContext)
	if err != nil {
		// Every extractor implementation in this module already falls
		// back internally (rule extractor never errors, the LLM
		// extractor falls back to its own rule instance); an error
		// reaching here means both failed, so the target is left
		// unprocessed to retry on the next trigger.
		m.window.MarkProcessed(target.TurnID, false)
		return result
	}

	validated := validate.Validate(p, m.facade.Graph())
	counts := m.facade.Apply(validated)
	result.Counts = counts
	result.TargetCommitted = true

	m.facade.RecordTurn(target.UserInput, target.AssistantResponse)
	m.window.MarkProcessed(target.TurnID, true)

	return result
}

// EditResult reports whether OnTurnEdited succeeded or the turn was out
// of window.
type EditResult struct {
	OutOfWindow bool
}

// OnTurnEdited updates a turn's content if it is still in the window; an
// edited turn becomes eligible on the next OnNewTurn once it falls into
// the committable zone. Per spec §4.9, a turn outside the window is
// reported, not an error.
func (m *Manager) OnTurnEdited(turnID string, user, assistant *string) EditResult {
	if !m.window.Contains(turnID) {
		return EditResult{OutOfWindow: true}
	}
	m.window.Update(turnID, user, assistant)
	return EditResult{}
}

func formatRecent(turns []*window.ConversationTurn) string {
	out := ""
	for _, t := range turns {
		out += fmt.Sprintf("user: %s\nassistant: %s\n", t.UserInput, t.AssistantResponse)
	}
	return out
}
