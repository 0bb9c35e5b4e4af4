package types

// Config represents the strands configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Model selection
	Model string `json:"model,omitempty" yaml:"model,omitempty"` // "anthropic/claude-sonnet-4"

	// System prompt sent with every cycle
	SystemPrompt string `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`

	// Generation parameters
	MaxTokens   int      `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// Provider configs
	Provider map[string]ProviderConfig `json:"provider,omitempty" yaml:"provider,omitempty"`

	// History bounding
	Conversation *ConversationConfig `json:"conversation,omitempty" yaml:"conversation,omitempty"`

	// Tool name patterns exposed to the model (doublestar globs)
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`

	// MCP server configs
	MCP map[string]MCPConfig `json:"mcp,omitempty" yaml:"mcp,omitempty"`

	// Tool call guard rules
	Permission *PermissionConfig `json:"permission,omitempty" yaml:"permission,omitempty"`

	// Throttle retry schedule
	Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`

	// Logging
	Log *LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// Model/Endpoint ID (for providers like ARK that require endpoint specification)
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Request timeout in ms, nil = default, 0 = disabled
	Timeout *int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Disable provider
	Disable bool `json:"disable,omitempty" yaml:"disable,omitempty"`
}

// Conversation manager names.
const (
	ManagerSlidingWindow = "sliding_window"
	ManagerSummarizing   = "summarizing"
	ManagerNull          = "null"
)

// ConversationConfig selects and configures the conversation manager.
type ConversationConfig struct {
	Manager string `json:"manager,omitempty" yaml:"manager,omitempty"` // "sliding_window"|"summarizing"|"null"

	// Sliding window
	WindowSize            int   `json:"windowSize,omitempty" yaml:"windowSize,omitempty"`
	ShouldTruncateResults *bool `json:"shouldTruncateResults,omitempty" yaml:"shouldTruncateResults,omitempty"`

	// Summarizing
	SummaryPrompt  string `json:"summaryPrompt,omitempty" yaml:"summaryPrompt,omitempty"`
	PreserveRecent int    `json:"preserveRecent,omitempty" yaml:"preserveRecent,omitempty"`
}

// TruncateResults reports the effective should_truncate_results setting (default true).
func (c *ConversationConfig) TruncateResults() bool {
	if c == nil || c.ShouldTruncateResults == nil {
		return true
	}
	return *c.ShouldTruncateResults
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Type        string            `json:"type,omitempty" yaml:"type,omitempty"` // "local"|"remote"
	Command     []string          `json:"command,omitempty" yaml:"command,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Timeout     int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Permission actions.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
	PermissionAsk   = "ask"
)

// PermissionConfig guards tool calls. Tools maps tool name globs to an action; Shell maps
// command patterns such as "git *" or "rm" to an action for each command the shell tool
// would run. DoomLoop is applied when the same call repeats three times in a row.
type PermissionConfig struct {
	Tools    map[string]string `json:"tools,omitempty" yaml:"tools,omitempty"`
	Shell    map[string]string `json:"shell,omitempty" yaml:"shell,omitempty"`
	DoomLoop string            `json:"doomLoop,omitempty" yaml:"doomLoop,omitempty"`
}

// RetryConfig overrides the throttle backoff schedule.
type RetryConfig struct {
	MaxAttempts    int `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
	InitialDelayMs int `json:"initialDelayMs,omitempty" yaml:"initialDelayMs,omitempty"`
	MaxDelayMs     int `json:"maxDelayMs,omitempty" yaml:"maxDelayMs,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Pretty bool   `json:"pretty,omitempty" yaml:"pretty,omitempty"`
}

// Model represents an LLM model available from a provider.
type Model struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProviderID      string `json:"providerID"`
	ContextLength   int    `json:"contextLength"`
	MaxOutputTokens int    `json:"maxOutputTokens,omitempty"`
	SupportsTools   bool   `json:"supportsTools"`
}
