// Package eventloop drives the model/tool cycles of one agent invocation.
//
// Each cycle sends the history to the backend, folds the streamed reply into an assistant
// message, runs any requested tools and then applies the conversation manager's bound.
// Throttling is retried on a fixed exponential schedule and context overflow is handed to
// the conversation manager once per occurrence. Any other failure rolls the history and
// the manager state back to where the failing cycle started.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/strands-agents/sdk-go/internal/conversation"
	"github.com/strands-agents/sdk-go/internal/event"
	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/internal/metrics"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/internal/streaming"
	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ErrMaxCycles is returned when an invocation runs more cycles than Config.MaxCycles.
var ErrMaxCycles = errors.New("maximum number of cycles reached")

// Config holds the collaborators of a Loop.
type Config struct {
	Backend provider.Backend
	// Tools runs requested tool uses. Nil means no tools are available.
	Tools *tool.Executor
	// Manager bounds the history. Nil selects a default sliding window.
	Manager      conversation.Manager
	Hooks        *hook.Registry
	SystemPrompt string
	Model        provider.RequestConfig
	Retry        RetryPolicy
	Metrics      metrics.Recorder
	// Sleep waits between throttle retries. Nil uses a timer.
	Sleep SleepFunc
	// MaxCycles bounds the cycles of one invocation. Zero means no limit.
	MaxCycles int
	// OnTransition observes every state change.
	OnTransition func(cycle int, from, to State)
}

// Loop runs invocations against a history store.
type Loop struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a loop.
func New(cfg Config) *Loop {
	if cfg.Tools == nil {
		cfg.Tools = tool.NewExecutor(tool.NewRegistry(), tool.WithHooks(cfg.Hooks))
	}
	if cfg.Manager == nil {
		cfg.Manager = conversation.NewSlidingWindow(conversation.DefaultWindowSize, true)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	cfg.Retry = cfg.Retry.withDefaults()

	return &Loop{cfg: cfg, logger: logging.Component("eventloop")}
}

// Manager returns the conversation manager in use.
func (l *Loop) Manager() conversation.Manager { return l.cfg.Manager }

// Invocation is one run of the loop.
type Invocation struct {
	ID    string
	Store *history.Store
	// Prompt is appended at the start of the first cycle. It may be nil to continue an
	// existing history.
	Prompt *types.Message
	// Events receives projected events. It may be nil.
	Events *event.Projector
}

// cycle carries the per-cycle state of an invocation.
type cycle struct {
	n      int
	state  State
	inv    *Invocation
	result *types.InvocationResult
}

// Run drives cycles until the model stops without requesting tools. Every failure is
// returned as *types.CycleError. A failed cycle is rolled back in the store and manager.
// When the closing CycleStopped or FinalResult events cannot be delivered, the last cycle
// already counts as completed: its messages stay committed and the error names that cycle.
func (l *Loop) Run(ctx context.Context, inv *Invocation) (*types.InvocationResult, error) {
	if inv.Events == nil {
		inv.Events = event.NewProjector(ctx, nil, nil)
	}
	if err := inv.Events.Emit(event.LoopInitialized{InvocationID: inv.ID}); err != nil {
		return nil, &types.CycleError{Err: err}
	}

	result := &types.InvocationResult{}
	for n := 1; ; n++ {
		if l.cfg.MaxCycles > 0 && n > l.cfg.MaxCycles {
			return nil, &types.CycleError{Cycle: n - 1, LastStopReason: result.StopReason, Err: ErrMaxCycles}
		}

		c := &cycle{n: n, inv: inv, result: result}
		snap := inv.Store.Snapshot()
		managerState := l.cfg.Manager.State()

		more, err := l.runCycle(ctx, c)
		if err != nil {
			l.transition(c, Failed)
			inv.Store.Restore(snap)
			if rerr := l.cfg.Manager.Restore(managerState); rerr != nil {
				l.logger.Error().Err(rerr).Msg("failed to restore conversation manager state")
			}
			l.logger.Warn().
				Err(err).
				Str("invocation", inv.ID).
				Int("cycle", n).
				Msg("cycle failed")
			return nil, &types.CycleError{Cycle: n, LastStopReason: result.StopReason, Err: err}
		}
		if !more {
			break
		}
	}

	if err := inv.Events.Emit(event.CycleStopped{Cycle: result.Cycles, StopReason: result.StopReason}); err != nil {
		return nil, &types.CycleError{Cycle: result.Cycles, LastStopReason: result.StopReason, Err: err}
	}
	if err := inv.Events.Emit(event.FinalResult{Result: *result}); err != nil {
		return nil, &types.CycleError{Cycle: result.Cycles, LastStopReason: result.StopReason, Err: err}
	}
	return result, nil
}

// runCycle executes one cycle and reports whether another is needed.
func (l *Loop) runCycle(ctx context.Context, c *cycle) (bool, error) {
	store := c.inv.Store

	if c.n == 1 && c.inv.Prompt != nil {
		l.appendMessage(ctx, store, *c.inv.Prompt)
	}
	if err := c.inv.Events.Emit(event.CycleStarted{Cycle: c.n}); err != nil {
		return false, err
	}

	res, err := l.model(ctx, c)
	if err != nil {
		return false, err
	}

	if res.StopReason == types.StopMaxTokens {
		partial := streaming.RecoverTruncatedToolUse(res.Message)
		return false, &types.OutputExhaustedError{StopReason: res.StopReason, Partial: &partial}
	}

	l.transition(c, Succeeded)
	msg := l.appendMessage(ctx, store, res.Message)

	c.result.Cycles = c.n
	c.result.StopReason = res.StopReason
	c.result.Message = msg
	c.result.Usage.Add(res.Usage)
	c.result.Metrics.LatencyMs += res.Metrics.LatencyMs
	l.cfg.Metrics.IncCycle(l.cfg.Backend.ID(), res.StopReason)

	if err := c.inv.Events.Emit(event.MessageCompleted{Cycle: c.n, Message: msg}); err != nil {
		return false, err
	}

	more := res.StopReason == types.StopToolUse && msg.HasToolUse()
	if more {
		results, err := l.cfg.Tools.Run(ctx, msg.ToolUses())
		if err != nil {
			return false, err
		}
		content := make([]types.ContentBlock, len(results))
		for i, r := range results {
			content[i] = r
		}
		resultMsg := l.appendMessage(ctx, store, types.Message{Role: types.RoleUser, Content: content})
		if err := c.inv.Events.Emit(event.ToolResultsCompleted{Cycle: c.n, Message: resultMsg}); err != nil {
			return false, err
		}
	}

	if err := l.cfg.Manager.ApplyBound(ctx, store); err != nil {
		return false, fmt.Errorf("apply conversation bound: %w", err)
	}

	l.logger.Debug().
		Str("invocation", c.inv.ID).
		Int("cycle", c.n).
		Str("stop_reason", string(res.StopReason)).
		Int("messages", store.Len()).
		Msg("cycle succeeded")
	return more, nil
}

// model calls the backend until it produces a reply, retrying throttles and recovering
// from overflow.
func (l *Loop) model(ctx context.Context, c *cycle) (*streaming.Result, error) {
	retry := l.cfg.Retry.newBackOff(ctx)

	for attempt := 1; ; attempt++ {
		l.transition(c, Preparing)
		req := &provider.Request{
			Messages:     c.inv.Store.Messages(),
			ToolSpecs:    l.cfg.Tools.Registry().Specs(),
			SystemPrompt: l.cfg.SystemPrompt,
			Config:       l.cfg.Model,
		}
		l.cfg.Hooks.FireBeforeModelCall(ctx, &hook.BeforeModelCall{
			Cycle:    c.n,
			Attempt:  attempt,
			Messages: types.CloneMessages(req.Messages),
		})

		l.transition(c, Streaming)
		start := time.Now()
		res, err := l.stream(ctx, c, req)
		l.observeModelCall(res, err, time.Since(start))

		after := &hook.AfterModelCall{Cycle: c.n, Err: err}
		if res != nil {
			msg := res.Message.Clone()
			after.StopReason = res.StopReason
			after.Message = &msg
		}
		l.cfg.Hooks.FireAfterModelCall(ctx, after)

		if err == nil {
			return res, nil
		}

		var throttled *types.ThrottlingError
		var overflow *types.ContextOverflowError
		switch {
		case errors.As(err, &throttled):
			l.transition(c, Retrying)
			delay := retry.NextBackOff()
			if delay == backoff.Stop {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, &types.ThrottlingError{Message: throttled.Message, Attempts: attempt, Cause: err}
			}
			if throttled.RetryAfter > delay {
				delay = throttled.RetryAfter
			}
			l.cfg.Metrics.IncThrottle(l.cfg.Backend.ID())
			l.logger.Warn().
				Int("cycle", c.n).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("model throttled, retrying")
			if err := c.inv.Events.Emit(event.ThrottleNotice{Cycle: c.n, Attempt: attempt, Delay: delay}); err != nil {
				return nil, err
			}
			if err := l.cfg.Sleep(ctx, delay); err != nil {
				return nil, err
			}

		case errors.As(err, &overflow):
			l.transition(c, Recovering)
			if err := l.recoverOverflow(ctx, c, err); err != nil {
				return nil, err
			}

		default:
			return nil, err
		}
	}
}

// stream runs one backend request through the normalizer.
func (l *Loop) stream(ctx context.Context, c *cycle, req *provider.Request) (*streaming.Result, error) {
	stream, err := l.cfg.Backend.Stream(ctx, req)
	if err != nil {
		return nil, provider.ClassifyError(err)
	}
	defer stream.Close()

	res, err := streaming.Normalize(ctx, stream, c.inv.Events.Deltas(c.n))
	if err != nil {
		return nil, provider.ClassifyError(err)
	}
	return res, nil
}

// recoverOverflow hands an overflow to the conversation manager.
func (l *Loop) recoverOverflow(ctx context.Context, c *cycle, overflow error) error {
	manager := l.cfg.Manager
	before := c.inv.Store.Len()
	removedBefore := manager.State().RemovedMessageCount

	if err := manager.Recover(ctx, c.inv.Store, overflow); err != nil {
		l.cfg.Metrics.ObserveRecovery(manager.Name(), false, 0)
		l.logger.Warn().
			Err(err).
			Str("manager", manager.Name()).
			Int("cycle", c.n).
			Msg("context overflow is not recoverable")
		return err
	}

	state := manager.State()
	after := c.inv.Store.Len()
	l.cfg.Metrics.ObserveRecovery(manager.Name(), true, state.RemovedMessageCount-removedBefore)
	l.logger.Info().
		Str("manager", manager.Name()).
		Int("cycle", c.n).
		Int("before", before).
		Int("after", after).
		Msg("reduced context after overflow")

	return c.inv.Events.Emit(event.ContextReduced{
		Cycle:               c.n,
		Manager:             manager.Name(),
		MessagesBefore:      before,
		MessagesAfter:       after,
		RemovedMessageCount: state.RemovedMessageCount,
	})
}

func (l *Loop) appendMessage(ctx context.Context, store *history.Store, msg types.Message) types.Message {
	stored := store.Append(msg)
	l.cfg.Hooks.FireMessageAdded(ctx, &hook.MessageAdded{Message: stored.Clone()})
	return stored
}

func (l *Loop) observeModelCall(res *streaming.Result, err error, d time.Duration) {
	model := l.cfg.Backend.ID()
	if err == nil {
		l.cfg.Metrics.ObserveModelCall(model, metrics.StatusSuccess, "", res.Usage, d)
		return
	}
	l.cfg.Metrics.ObserveModelCall(model, metrics.StatusError, errorType(err), types.Usage{}, d)
}

func (l *Loop) transition(c *cycle, to State) {
	from := c.state
	c.state = to
	l.logger.Debug().
		Str("invocation", c.inv.ID).
		Int("cycle", c.n).
		Stringer("from", from).
		Stringer("to", to).
		Msg("state transition")
	if l.cfg.OnTransition != nil {
		l.cfg.OnTransition(c.n, from, to)
	}
}

func errorType(err error) string {
	var (
		throttled  *types.ThrottlingError
		overflow   *types.ContextOverflowError
		normalized *types.NormalizationError
	)
	switch {
	case errors.As(err, &throttled):
		return "throttling"
	case errors.As(err, &overflow):
		return "context_overflow"
	case errors.As(err, &normalized):
		return "protocol"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
