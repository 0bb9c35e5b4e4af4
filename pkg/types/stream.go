package types

import "encoding/json"

// StopReason is the normalized reason a model stopped generating.
type StopReason string

const (
	StopEndTurn             StopReason = "end_turn"
	StopToolUse             StopReason = "tool_use"
	StopMaxTokens           StopReason = "max_tokens"
	StopSequence            StopReason = "stop_sequence"
	StopContentFiltered     StopReason = "content_filtered"
	StopGuardrailIntervened StopReason = "guardrail_intervened"
)

// Usage holds token counts reported by the backend.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Add accumulates another usage report.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// Metrics holds timing measured for one model call.
type Metrics struct {
	LatencyMs int64 `json:"latencyMs"`
}

// ToolSpec describes a tool to the model.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// InvocationResult is the aggregate outcome of one agent invocation.
type InvocationResult struct {
	StopReason StopReason `json:"stopReason"`
	Message    Message    `json:"message"`
	Usage      Usage      `json:"usage"`
	Metrics    Metrics    `json:"metrics"`
	Cycles     int        `json:"cycles"`
}
