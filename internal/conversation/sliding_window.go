package conversation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// TruncatedResultText replaces tool result content during overflow recovery.
const TruncatedResultText = "The tool result was too large!"

// SlidingWindow keeps the most recent messages of a conversation.
type SlidingWindow struct {
	mu              sync.Mutex
	windowSize      int
	truncateResults bool
	removed         int
	logger          zerolog.Logger
}

// NewSlidingWindow creates a sliding window of windowSize messages. A size below 1 selects
// DefaultWindowSize. When truncateResults is set, recovery first replaces the most recent
// tool result with a placeholder before removing messages.
func NewSlidingWindow(windowSize int, truncateResults bool) *SlidingWindow {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &SlidingWindow{
		windowSize:      windowSize,
		truncateResults: truncateResults,
		logger:          logging.Component("conversation"),
	}
}

func (w *SlidingWindow) Name() string { return types.ManagerSlidingWindow }

// WindowSize returns the configured window.
func (w *SlidingWindow) WindowSize() int { return w.windowSize }

// RemovedMessageCount returns how many messages the window has evicted so far.
func (w *SlidingWindow) RemovedMessageCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removed
}

// ApplyBound removes the oldest messages until at most WindowSize remain. When the cut
// would split a tool use from its result the cut moves toward the oldest messages, keeping
// more than WindowSize. It never cuts past the target to get under the bound.
func (w *SlidingWindow) ApplyBound(ctx context.Context, store *history.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var removed int
	store.Update(func(msgs []types.Message) []types.Message {
		if len(msgs) <= w.windowSize {
			return msgs
		}
		b := len(msgs) - w.windowSize
		for b > 0 && !history.ValidBoundary(msgs, b) {
			b--
		}
		removed = b
		return msgs[b:]
	})

	if removed > 0 {
		w.removed += removed
		w.logger.Debug().
			Int("removed", removed).
			Int("total_removed", w.removed).
			Int("window", w.windowSize).
			Msg("trimmed history")
	}
	return nil
}

// Recover first truncates the newest tool result, then falls back to removing the oldest
// messages.
func (w *SlidingWindow) Recover(ctx context.Context, store *history.Store, overflow error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.truncateResults {
		var truncated bool
		store.Update(func(msgs []types.Message) []types.Message {
			truncated = truncateLastToolResults(msgs)
			return msgs
		})
		if truncated {
			w.logger.Debug().Msg("truncated tool results after context overflow")
			return nil
		}
	}

	var removed int
	store.Update(func(msgs []types.Message) []types.Message {
		b := w.recoveryBoundary(msgs)
		if b < 0 {
			return msgs
		}
		removed = b
		return msgs[b:]
	})
	if removed == 0 {
		return cannotReduce(overflow, "no message can be removed without orphaning a tool result")
	}

	w.removed += removed
	w.logger.Debug().
		Int("removed", removed).
		Int("total_removed", w.removed).
		Msg("removed messages after context overflow")
	return nil
}

// recoveryBoundary returns the number of leading messages to drop, or -1 when no cut
// removes at least one message, keeps at least one and respects tool pairing.
func (w *SlidingWindow) recoveryBoundary(msgs []types.Message) int {
	n := len(msgs)
	if n < 2 {
		return -1
	}

	target := 2
	if n > w.windowSize {
		target = n - w.windowSize
	}
	target = min(max(target, 1), n-1)

	for b := target; b >= 1; b-- {
		if history.ValidBoundary(msgs, b) {
			return b
		}
	}
	for b := target + 1; b < n; b++ {
		if history.ValidBoundary(msgs, b) {
			return b
		}
	}
	return -1
}

// truncateLastToolResults replaces the content of the newest message holding tool results.
// It reports false when there is no such message or it was already truncated.
func truncateLastToolResults(msgs []types.Message) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		results := msgs[i].ToolResults()
		if len(results) == 0 {
			continue
		}

		changed := false
		for _, tr := range results {
			if isTruncated(tr) {
				continue
			}
			tr.Status = types.ToolResultError
			tr.Content = []types.ToolResultContent{{Text: TruncatedResultText}}
			changed = true
		}
		return changed
	}
	return false
}

func isTruncated(tr *types.ToolResultBlock) bool {
	return tr.Status == types.ToolResultError &&
		len(tr.Content) == 1 &&
		tr.Content[0].Text == TruncatedResultText
}

// State implements Manager.
func (w *SlidingWindow) State() types.ManagerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return types.ManagerState{Name: w.Name(), RemovedMessageCount: w.removed}
}

// Restore implements Manager.
func (w *SlidingWindow) Restore(state types.ManagerState) error {
	if err := checkState(w, state); err != nil {
		return err
	}
	w.mu.Lock()
	w.removed = state.RemovedMessageCount
	w.mu.Unlock()
	return nil
}
