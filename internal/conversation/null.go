package conversation

import (
	"context"

	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// Null never changes the history. Overflow is always fatal under it.
type Null struct{}

// NewNull creates a Null manager.
func NewNull() *Null { return &Null{} }

func (*Null) Name() string { return types.ManagerNull }

func (*Null) ApplyBound(ctx context.Context, _ *history.Store) error { return ctx.Err() }

// Recover returns overflow unchanged.
func (*Null) Recover(_ context.Context, _ *history.Store, overflow error) error {
	if overflow == nil {
		return ErrCannotReduce
	}
	return overflow
}

func (n *Null) State() types.ManagerState { return types.ManagerState{Name: n.Name()} }

func (n *Null) Restore(state types.ManagerState) error { return checkState(n, state) }
