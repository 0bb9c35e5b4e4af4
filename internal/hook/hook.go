// Package hook provides the explicit callback registry passed to an agent at construction.
//
// Callbacks for one event run in registration order on the invocation's goroutine. Events
// carrying messages hold copies; mutating them never changes the conversation history.
// BeforeToolCall and AfterToolCall are the only mutable events.
package hook

import (
	"context"
	"sync"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// BeforeInvocation fires once, before the prompt is appended.
type BeforeInvocation struct {
	InvocationID string
	Messages     []types.Message
}

// AfterInvocation fires once per invocation, on success and on failure.
type AfterInvocation struct {
	InvocationID string
	Result       *types.InvocationResult
	Err          error
}

// MessageAdded fires after a message is appended to the history.
type MessageAdded struct {
	Message types.Message
}

// BeforeModelCall fires before each backend request, retries included.
type BeforeModelCall struct {
	Cycle    int
	Attempt  int
	Messages []types.Message
}

// AfterModelCall fires after each backend response has been normalized or has failed.
type AfterModelCall struct {
	Cycle      int
	StopReason types.StopReason
	Message    *types.Message
	Err        error
}

// BeforeToolCall fires before a tool runs. Callbacks may replace Input, or set
// CancelMessage to skip the tool and produce an error result with that text.
type BeforeToolCall struct {
	ToolUseID     string
	Name          string
	Input         map[string]any
	CancelMessage string
}

// Cancel skips the tool call.
func (e *BeforeToolCall) Cancel(message string) {
	if message == "" {
		message = "tool call cancelled"
	}
	e.CancelMessage = message
}

// Cancelled reports whether a callback cancelled the call.
func (e *BeforeToolCall) Cancelled() bool {
	return e.CancelMessage != ""
}

// AfterToolCall fires after a tool returns. Callbacks may replace Result.
type AfterToolCall struct {
	ToolUseID string
	Name      string
	Input     map[string]any
	Result    *types.ToolResultBlock
	Err       error
}

// Provider registers a group of related callbacks.
type Provider interface {
	RegisterHooks(r *Registry)
}

// Registry holds callbacks per event. The zero value and a nil *Registry are usable and
// fire nothing.
type Registry struct {
	mu sync.RWMutex

	beforeInvocation []func(context.Context, *BeforeInvocation)
	afterInvocation  []func(context.Context, *AfterInvocation)
	messageAdded     []func(context.Context, *MessageAdded)
	beforeModelCall  []func(context.Context, *BeforeModelCall)
	afterModelCall   []func(context.Context, *AfterModelCall)
	beforeToolCall   []func(context.Context, *BeforeToolCall)
	afterToolCall    []func(context.Context, *AfterToolCall)
}

// NewRegistry creates a registry and lets each provider register into it.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	for _, p := range providers {
		p.RegisterHooks(r)
	}
	return r
}

func (r *Registry) OnBeforeInvocation(fn func(context.Context, *BeforeInvocation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeInvocation = append(r.beforeInvocation, fn)
}

func (r *Registry) OnAfterInvocation(fn func(context.Context, *AfterInvocation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterInvocation = append(r.afterInvocation, fn)
}

func (r *Registry) OnMessageAdded(fn func(context.Context, *MessageAdded)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messageAdded = append(r.messageAdded, fn)
}

func (r *Registry) OnBeforeModelCall(fn func(context.Context, *BeforeModelCall)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeModelCall = append(r.beforeModelCall, fn)
}

func (r *Registry) OnAfterModelCall(fn func(context.Context, *AfterModelCall)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterModelCall = append(r.afterModelCall, fn)
}

func (r *Registry) OnBeforeToolCall(fn func(context.Context, *BeforeToolCall)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeToolCall = append(r.beforeToolCall, fn)
}

func (r *Registry) OnAfterToolCall(fn func(context.Context, *AfterToolCall)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterToolCall = append(r.afterToolCall, fn)
}

// fire runs fns in order against e.
func fire[E any](ctx context.Context, mu *sync.RWMutex, fns *[]func(context.Context, *E), e *E) {
	mu.RLock()
	snapshot := make([]func(context.Context, *E), len(*fns))
	copy(snapshot, *fns)
	mu.RUnlock()

	for _, fn := range snapshot {
		fn(ctx, e)
	}
}

func (r *Registry) FireBeforeInvocation(ctx context.Context, e *BeforeInvocation) {
	if r != nil {
		fire(ctx, &r.mu, &r.beforeInvocation, e)
	}
}

func (r *Registry) FireAfterInvocation(ctx context.Context, e *AfterInvocation) {
	if r != nil {
		fire(ctx, &r.mu, &r.afterInvocation, e)
	}
}

func (r *Registry) FireMessageAdded(ctx context.Context, e *MessageAdded) {
	if r != nil {
		fire(ctx, &r.mu, &r.messageAdded, e)
	}
}

func (r *Registry) FireBeforeModelCall(ctx context.Context, e *BeforeModelCall) {
	if r != nil {
		fire(ctx, &r.mu, &r.beforeModelCall, e)
	}
}

func (r *Registry) FireAfterModelCall(ctx context.Context, e *AfterModelCall) {
	if r != nil {
		fire(ctx, &r.mu, &r.afterModelCall, e)
	}
}

func (r *Registry) FireBeforeToolCall(ctx context.Context, e *BeforeToolCall) {
	if r != nil {
		fire(ctx, &r.mu, &r.beforeToolCall, e)
	}
}

func (r *Registry) FireAfterToolCall(ctx context.Context, e *AfterToolCall) {
	if r != nil {
		fire(ctx, &r.mu, &r.afterToolCall, e)
	}
}
