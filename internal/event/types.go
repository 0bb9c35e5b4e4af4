package event

import (
	"encoding/json"
	"time"

	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// Kind is the tag of an event.
type Kind string

const (
	KindLoopInitialized      Kind = "loop.initialized"
	KindCycleStarted         Kind = "cycle.started"
	KindRawChunk             Kind = "chunk.received"
	KindTextDelta            Kind = "delta.text"
	KindToolInputDelta       Kind = "delta.toolInput"
	KindReasoningDelta       Kind = "delta.reasoning"
	KindCitationDelta        Kind = "delta.citation"
	KindMessageCompleted     Kind = "message.completed"
	KindToolResultsCompleted Kind = "toolResults.completed"
	KindThrottleNotice       Kind = "throttle.notice"
	KindContextReduced       Kind = "context.reduced"
	KindFinalResult          Kind = "result.final"
	KindCycleStopped         Kind = "cycle.stopped"
)

// Event is one element of the caller-facing sequence. The set of payload types is closed;
// callers switch on the concrete type or on Kind().
type Event interface {
	Kind() Kind
	event()
}

// LoopInitialized is the first event of every invocation.
type LoopInitialized struct {
	InvocationID string `json:"invocationID"`
}

// CycleStarted opens a cycle.
type CycleStarted struct {
	Cycle int `json:"cycle"`
}

// RawChunk carries a backend chunk as received.
type RawChunk struct {
	Cycle int            `json:"cycle"`
	Chunk provider.Chunk `json:"-"`
}

// TextDelta is streamed text.
type TextDelta struct {
	Cycle int    `json:"cycle"`
	Text  string `json:"text"`
}

// ToolInputDelta is a raw fragment of a tool input.
type ToolInputDelta struct {
	Cycle     int    `json:"cycle"`
	ToolUseID string `json:"toolUseId"`
	Name      string `json:"name"`
	Delta     string `json:"delta"`
}

// ReasoningDelta is streamed reasoning text or signature.
type ReasoningDelta struct {
	Cycle     int    `json:"cycle"`
	Text      string `json:"text,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// CitationDelta is a citation attached to streamed text.
type CitationDelta struct {
	Cycle    int            `json:"cycle"`
	Citation types.Citation `json:"citation"`
}

// MessageCompleted reports the assistant message appended to the history.
type MessageCompleted struct {
	Cycle   int           `json:"cycle"`
	Message types.Message `json:"message"`
}

// ToolResultsCompleted reports the tool-result message appended to the history.
type ToolResultsCompleted struct {
	Cycle   int           `json:"cycle"`
	Message types.Message `json:"message"`
}

// ThrottleNotice is emitted before each throttle retry.
type ThrottleNotice struct {
	Cycle   int           `json:"cycle"`
	Attempt int           `json:"attempt"`
	Delay   time.Duration `json:"delay"`
}

// ContextReduced is emitted after a successful overflow recovery.
type ContextReduced struct {
	Cycle               int    `json:"cycle"`
	Manager             string `json:"manager"`
	MessagesBefore      int    `json:"messagesBefore"`
	MessagesAfter       int    `json:"messagesAfter"`
	RemovedMessageCount int    `json:"removedMessageCount"`
}

// FinalResult is the terminal event of a successful invocation.
type FinalResult struct {
	Result types.InvocationResult `json:"result"`
}

// CycleStopped closes the last cycle of an invocation.
type CycleStopped struct {
	Cycle      int              `json:"cycle"`
	StopReason types.StopReason `json:"stopReason"`
}

func (LoopInitialized) Kind() Kind      { return KindLoopInitialized }
func (CycleStarted) Kind() Kind         { return KindCycleStarted }
func (RawChunk) Kind() Kind             { return KindRawChunk }
func (TextDelta) Kind() Kind            { return KindTextDelta }
func (ToolInputDelta) Kind() Kind       { return KindToolInputDelta }
func (ReasoningDelta) Kind() Kind       { return KindReasoningDelta }
func (CitationDelta) Kind() Kind        { return KindCitationDelta }
func (MessageCompleted) Kind() Kind     { return KindMessageCompleted }
func (ToolResultsCompleted) Kind() Kind { return KindToolResultsCompleted }
func (ThrottleNotice) Kind() Kind       { return KindThrottleNotice }
func (ContextReduced) Kind() Kind       { return KindContextReduced }
func (FinalResult) Kind() Kind          { return KindFinalResult }
func (CycleStopped) Kind() Kind         { return KindCycleStopped }

func (LoopInitialized) event()      {}
func (CycleStarted) event()         {}
func (RawChunk) event()             {}
func (TextDelta) event()            {}
func (ToolInputDelta) event()       {}
func (ReasoningDelta) event()       {}
func (CitationDelta) event()        {}
func (MessageCompleted) event()     {}
func (ToolResultsCompleted) event() {}
func (ThrottleNotice) event()       {}
func (ContextReduced) event()       {}
func (FinalResult) event()          {}
func (CycleStopped) event()         {}

// MarshalJSON encodes the chunk with its own type tag.
func (e RawChunk) MarshalJSON() ([]byte, error) {
	chunk, err := provider.MarshalChunk(e.Chunk)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Cycle int             `json:"cycle"`
		Chunk json.RawMessage `json:"chunk"`
	}{Cycle: e.Cycle, Chunk: chunk})
}

// Marshal encodes an event as {"type":kind,"data":payload}.
func Marshal(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type Kind            `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: e.Kind(), Data: data})
}
