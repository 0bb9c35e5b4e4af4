package agent

import (
	"github.com/strands-agents/sdk-go/internal/conversation"
	"github.com/strands-agents/sdk-go/internal/event"
	"github.com/strands-agents/sdk-go/internal/eventloop"
	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/metrics"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ConcurrencyPolicy decides what happens when an invocation starts while another is running
// on the same agent.
type ConcurrencyPolicy int

const (
	// Reject fails the new invocation with ErrInvocationInProgress.
	Reject ConcurrencyPolicy = iota
	// Serialize queues the new invocation until the running one finishes.
	Serialize
)

type options struct {
	id             string
	systemPrompt   string
	model          provider.RequestConfig
	tools          []tool.Tool
	registry       *tool.Registry
	toolPatterns   []string
	maxToolWorkers int
	manager        conversation.Manager
	hookProviders  []hook.Provider
	hooks          *hook.Registry
	bus            *event.Bus
	metrics        metrics.Recorder
	retry          eventloop.RetryPolicy
	sleep          eventloop.SleepFunc
	maxCycles      int
	concurrency    ConcurrencyPolicy
	messages       []types.Message
	sessions       *SessionStore
}

// Option configures an Agent.
type Option func(*options)

// WithID sets the agent ID used as the session key. A ULID is generated by default.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithSystemPrompt sets the system prompt sent with every cycle.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) { o.systemPrompt = prompt }
}

// WithModelConfig sets generation parameters.
func WithModelConfig(cfg provider.RequestConfig) Option {
	return func(o *options) { o.model = cfg }
}

// WithTools adds tools.
func WithTools(tools ...tool.Tool) Option {
	return func(o *options) { o.tools = append(o.tools, tools...) }
}

// WithToolRegistry uses registry as the base tool set. Tools added with WithTools are
// registered into it.
func WithToolRegistry(registry *tool.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithToolFilter exposes only the tools matching the doublestar patterns. A leading "!"
// excludes.
func WithToolFilter(patterns ...string) Option {
	return func(o *options) { o.toolPatterns = append(o.toolPatterns, patterns...) }
}

// WithMaxToolConcurrency bounds how many tools of one message run at once.
func WithMaxToolConcurrency(n int) Option {
	return func(o *options) { o.maxToolWorkers = n }
}

// WithConversationManager sets the history bound. A sliding window is used by default.
func WithConversationManager(m conversation.Manager) Option {
	return func(o *options) { o.manager = m }
}

// WithHooks registers hook providers.
func WithHooks(providers ...hook.Provider) Option {
	return func(o *options) { o.hookProviders = append(o.hookProviders, providers...) }
}

// WithHookRegistry uses an existing hook registry.
func WithHookRegistry(r *hook.Registry) Option {
	return func(o *options) { o.hooks = r }
}

// WithBus mirrors every event to bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithMetrics records loop metrics.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

// WithRetryPolicy overrides the throttle retry schedule.
func WithRetryPolicy(p eventloop.RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithSleep replaces the wait between throttle retries.
func WithSleep(fn eventloop.SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// WithMaxCycles bounds the cycles of one invocation.
func WithMaxCycles(n int) Option {
	return func(o *options) { o.maxCycles = n }
}

// WithConcurrencyPolicy sets how overlapping invocations are handled.
func WithConcurrencyPolicy(p ConcurrencyPolicy) Option {
	return func(o *options) { o.concurrency = p }
}

// WithMessages seeds the history.
func WithMessages(msgs ...types.Message) Option {
	return func(o *options) { o.messages = append(o.messages, msgs...) }
}

// WithSessionStore saves a snapshot after every invocation.
func WithSessionStore(s *SessionStore) Option {
	return func(o *options) { o.sessions = s }
}
