package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/strands-agents/sdk-go/internal/conversation"
	"github.com/strands-agents/sdk-go/internal/event"
	"github.com/strands-agents/sdk-go/internal/eventloop"
	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ErrInvocationInProgress is returned under the Reject policy when the agent is busy.
var ErrInvocationInProgress = errors.New("an invocation is already in progress")

// Result is the aggregate outcome of an invocation.
type Result = types.InvocationResult

// Agent owns a conversation history and runs invocations against it, one at a time.
type Agent struct {
	id       string
	backend  provider.Backend
	loop     *eventloop.Loop
	store    *history.Store
	manager  conversation.Manager
	tools    *tool.Registry
	hooks    *hook.Registry
	bus      *event.Bus
	sessions *SessionStore
	policy   ConcurrencyPolicy
	logger   zerolog.Logger

	// slot holds a token while an invocation runs.
	slot chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates an agent over backend.
func New(backend provider.Backend, opts ...Option) (*Agent, error) {
	if backend == nil {
		return nil, fmt.Errorf("agent requires a model backend")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.id == "" {
		o.id = ulid.Make().String()
	}
	if o.manager == nil {
		o.manager = conversation.NewSlidingWindow(conversation.DefaultWindowSize, true)
	}
	if o.hooks == nil {
		o.hooks = hook.NewRegistry()
	}
	for _, p := range o.hookProviders {
		p.RegisterHooks(o.hooks)
	}

	registry := o.registry
	if registry == nil {
		registry = tool.NewRegistry()
	}
	for _, t := range o.tools {
		registry.Register(t)
	}
	if len(o.toolPatterns) > 0 {
		registry = registry.Select(o.toolPatterns...)
	}

	execOpts := []tool.ExecutorOption{tool.WithHooks(o.hooks)}
	if o.maxToolWorkers > 0 {
		execOpts = append(execOpts, tool.WithMaxConcurrency(o.maxToolWorkers))
	}

	a := &Agent{
		id:       o.id,
		backend:  backend,
		store:    history.New(o.messages...),
		manager:  o.manager,
		tools:    registry,
		hooks:    o.hooks,
		bus:      o.bus,
		sessions: o.sessions,
		policy:   o.concurrency,
		logger:   logging.Component("agent").With().Str("agent", o.id).Logger(),
		slot:     make(chan struct{}, 1),
	}
	a.loop = eventloop.New(eventloop.Config{
		Backend:      backend,
		Tools:        tool.NewExecutor(registry, execOpts...),
		Manager:      o.manager,
		Hooks:        o.hooks,
		SystemPrompt: o.systemPrompt,
		Model:        o.model,
		Retry:        o.retry,
		Metrics:      o.metrics,
		Sleep:        o.sleep,
		MaxCycles:    o.maxCycles,
	})
	return a, nil
}

// ID returns the agent ID.
func (a *Agent) ID() string { return a.id }

// Messages returns a copy of the history.
func (a *Agent) Messages() []types.Message { return a.store.Messages() }

// Manager returns the conversation manager.
func (a *Agent) Manager() conversation.Manager { return a.manager }

// Tools returns the tools exposed to the model.
func (a *Agent) Tools() *tool.Registry { return a.tools }

// Hooks returns the hook registry.
func (a *Agent) Hooks() *hook.Registry { return a.hooks }

// Bus returns the event bus, or nil.
func (a *Agent) Bus() *event.Bus { return a.bus }

// Busy reports whether an invocation is running.
func (a *Agent) Busy() bool { return len(a.slot) > 0 }

// Stream starts an invocation with a text prompt.
func (a *Agent) Stream(ctx context.Context, prompt string) *Stream {
	return a.StreamMessage(ctx, types.NewUserMessage(prompt))
}

// StreamMessage starts an invocation with an arbitrary user message. Failures to start,
// such as ErrInvocationInProgress, are reported by Stream.Wait.
func (a *Agent) StreamMessage(ctx context.Context, prompt types.Message) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := newStream(cancel)

	acquired := false
	if a.policy == Reject {
		select {
		case a.slot <- struct{}{}:
			acquired = true
		default:
			cancel()
			s.finish(nil, ErrInvocationInProgress)
			return s
		}
	}

	go func() {
		if !acquired {
			select {
			case a.slot <- struct{}{}:
			case <-ctx.Done():
				cancel()
				s.finish(nil, ctx.Err())
				return
			}
		}

		res, err := a.run(ctx, cancel, prompt, s.events)
		cancel()
		// The slot is free before Wait returns so a follow-up call is never rejected.
		<-a.slot
		s.finish(res, err)
	}()
	return s
}

// Invoke runs an invocation to completion and returns its result.
func (a *Agent) Invoke(ctx context.Context, prompt string) (*Result, error) {
	return a.Stream(ctx, prompt).Wait()
}

// Abort cancels the running invocation. It reports false when none is running.
func (a *Agent) Abort() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return false
	}
	a.cancel()
	return true
}

func (a *Agent) run(ctx context.Context, cancel context.CancelFunc, prompt types.Message, events chan<- event.Event) (*Result, error) {
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
	}()

	invocationID := ulid.Make().String()
	a.hooks.FireBeforeInvocation(ctx, &hook.BeforeInvocation{
		InvocationID: invocationID,
		Messages:     a.store.Messages(),
	})

	res, err := a.loop.Run(ctx, &eventloop.Invocation{
		ID:     invocationID,
		Store:  a.store,
		Prompt: &prompt,
		Events: event.NewProjector(ctx, events, a.bus),
	})

	a.hooks.FireAfterInvocation(ctx, &hook.AfterInvocation{
		InvocationID: invocationID,
		Result:       res,
		Err:          err,
	})

	if err != nil {
		a.logger.Warn().Err(err).Str("invocation", invocationID).Msg("invocation failed")
	} else {
		a.logger.Info().
			Str("invocation", invocationID).
			Int("cycles", res.Cycles).
			Str("stop_reason", string(res.StopReason)).
			Msg("invocation completed")
	}

	if a.sessions != nil {
		// Saved even after failure: the history was rolled back and is consistent.
		if serr := a.sessions.Save(context.WithoutCancel(ctx), a.Snapshot()); serr != nil {
			a.logger.Error().Err(serr).Msg("failed to save session")
		}
	}
	return res, err
}

// Snapshot captures the history and conversation manager state.
func (a *Agent) Snapshot() types.SessionSnapshot {
	return types.SessionSnapshot{
		ID:       a.id,
		Messages: a.store.Messages(),
		Manager:  a.manager.State(),
	}
}

// RestoreSnapshot replaces the history and manager state. It fails while an invocation is
// running or when the snapshot belongs to a different manager variant.
func (a *Agent) RestoreSnapshot(snap types.SessionSnapshot) error {
	select {
	case a.slot <- struct{}{}:
	default:
		return ErrInvocationInProgress
	}
	defer func() { <-a.slot }()

	if err := a.manager.Restore(snap.Manager); err != nil {
		return fmt.Errorf("restore conversation manager: %w", err)
	}
	a.store.Replace(snap.Messages)
	return nil
}

// LoadSession restores the snapshot stored under the agent's ID. A missing session leaves
// the agent unchanged and returns false.
func (a *Agent) LoadSession(ctx context.Context) (bool, error) {
	if a.sessions == nil {
		return false, fmt.Errorf("agent has no session store")
	}
	snap, err := a.sessions.Load(ctx, a.id)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, a.RestoreSnapshot(snap)
}
