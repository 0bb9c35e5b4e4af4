package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// Executor runs the tool uses of one assistant message.
type Executor struct {
	registry       *Registry
	hooks          *hook.Registry
	maxConcurrency int
	logger         zerolog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithHooks sets the hook registry fired around each call.
func WithHooks(hooks *hook.Registry) ExecutorOption {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithMaxConcurrency bounds the number of tools running at once. Zero means unbounded.
func WithMaxConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxConcurrency = n
	}
}

// NewExecutor creates an executor over registry.
func NewExecutor(registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		logger:   logging.Component("tool"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor resolves tools from.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Run executes uses concurrently and returns one result per use, in use order.
// Tool failures become error results. Run only fails when ctx is done.
func (e *Executor) Run(ctx context.Context, uses []*types.ToolUseBlock) ([]*types.ToolResultBlock, error) {
	results := make([]*types.ToolResultBlock, len(uses))

	g, gctx := errgroup.WithContext(ctx)
	if e.maxConcurrency > 0 {
		g.SetLimit(e.maxConcurrency)
	}

	for i, use := range uses {
		g.Go(func() error {
			results[i] = e.call(gctx, use)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Executor) call(ctx context.Context, use *types.ToolUseBlock) *types.ToolResultBlock {
	start := time.Now()

	before := &hook.BeforeToolCall{
		ToolUseID: use.ToolUseID,
		Name:      use.Name,
		Input:     use.Clone().Input,
	}
	e.hooks.FireBeforeToolCall(ctx, before)

	var (
		result *types.ToolResultBlock
		err    error
	)
	if before.Cancelled() {
		result = types.NewTextResult(use.ToolUseID, before.CancelMessage, types.ToolResultError)
	} else {
		invoked := &types.ToolUseBlock{ToolUseID: use.ToolUseID, Name: use.Name, Input: before.Input}
		result, err = e.invoke(ctx, invoked)
		if err != nil {
			result = e.errorResult(use, err)
		}
	}

	after := &hook.AfterToolCall{
		ToolUseID: use.ToolUseID,
		Name:      use.Name,
		Input:     before.Input,
		Result:    result,
		Err:       err,
	}
	e.hooks.FireAfterToolCall(ctx, after)
	result = after.Result
	if result == nil {
		result = types.NewTextResult(use.ToolUseID, "tool returned no result", types.ToolResultError)
	}
	result.ToolUseID = use.ToolUseID

	e.logger.Debug().
		Str("tool", use.Name).
		Str("toolUseId", use.ToolUseID).
		Str("status", string(result.Status)).
		Dur("elapsed", time.Since(start)).
		Msg("tool call finished")

	return result
}

func (e *Executor) invoke(ctx context.Context, use *types.ToolUseBlock) (result *types.ToolResultBlock, err error) {
	t, ok := e.registry.Get(use.Name)
	if !ok {
		msg := fmt.Sprintf("Unknown tool: %s", use.Name)
		if s := e.registry.Suggest(use.Name); s != "" {
			msg += fmt.Sprintf(". Did you mean %q?", s)
		}
		return types.NewTextResult(use.ToolUseID, msg, types.ToolResultError), nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("tool", use.Name).Interface("panic", r).Msg("tool panicked")
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	result, err = t.Invoke(ctx, use)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("tool returned no result")
	}
	return result, nil
}

func (e *Executor) errorResult(use *types.ToolUseBlock, err error) *types.ToolResultBlock {
	e.logger.Warn().
		Err(&types.ToolExecutionError{ToolName: use.Name, ToolUseID: use.ToolUseID, Cause: err}).
		Msg("tool call failed")
	return types.NewTextResult(use.ToolUseID, "Error: "+err.Error(), types.ToolResultError)
}
