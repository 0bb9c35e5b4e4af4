// Package conversation bounds the message history replayed into the model.
//
// A Manager has two operations. ApplyBound runs after every successful cycle and keeps the
// history within the manager's limits. Recover runs only when the backend reports a
// context overflow and must either shrink the history or fail with ErrCannotReduce.
// Neither operation ever separates a tool use from its result.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// DefaultWindowSize is the sliding window size used when none is configured.
const DefaultWindowSize = 40

// ErrCannotReduce is returned by Recover when the history cannot be made smaller.
var ErrCannotReduce = errors.New("conversation history cannot be reduced further")

// Manager bounds a history store.
type Manager interface {
	// Name identifies the variant in persisted state.
	Name() string

	// ApplyBound trims the store after a successful cycle. It is a no-op when the store is
	// already within bounds.
	ApplyBound(ctx context.Context, store *history.Store) error

	// Recover shrinks the store in response to overflow. On failure the store is left
	// untouched and the returned error wraps overflow.
	Recover(ctx context.Context, store *history.Store, overflow error) error

	// State returns the variant-specific state needed to resume after a restart.
	State() types.ManagerState

	// Restore loads state previously returned by State.
	Restore(state types.ManagerState) error
}

// New builds the manager selected by cfg. A nil cfg selects a sliding window with the
// default size. summarizer is required only by the summarizing variant.
func New(cfg *types.ConversationConfig, summarizer Summarizer) (Manager, error) {
	if cfg == nil {
		cfg = &types.ConversationConfig{}
	}

	switch cfg.Manager {
	case "", types.ManagerSlidingWindow:
		return NewSlidingWindow(cfg.WindowSize, cfg.TruncateResults()), nil
	case types.ManagerSummarizing:
		if summarizer == nil {
			return nil, fmt.Errorf("summarizing manager requires a summarizer")
		}
		return NewSummarizing(summarizer, SummarizingOptions{
			Instruction:    cfg.SummaryPrompt,
			PreserveRecent: cfg.PreserveRecent,
		}), nil
	case types.ManagerNull:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown conversation manager %q", cfg.Manager)
	}
}

// cannotReduce builds a recovery failure wrapping both ErrCannotReduce and overflow.
func cannotReduce(overflow error, reason string) error {
	if overflow == nil {
		return fmt.Errorf("%w: %s", ErrCannotReduce, reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrCannotReduce, reason, overflow)
}

func checkState(m Manager, state types.ManagerState) error {
	if state.Name != "" && state.Name != m.Name() {
		return fmt.Errorf("state belongs to manager %q, not %q", state.Name, m.Name())
	}
	return nil
}
