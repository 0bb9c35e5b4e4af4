// Package provider defines the model backend interface consumed by the event loop and its
// eino-based implementations.
package provider

import (
	"context"
	"encoding/json"
	"io"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// Backend is a streaming model backend.
//
// Stream invokes the model with the request and returns its output as normalized chunks.
// Throttling and context overflow are reported as *types.ThrottlingError and
// *types.ContextOverflowError, either from Stream or from ChunkStream.Recv. Output
// exhaustion is a max_tokens stop reason, never an error.
type Backend interface {
	ID() string
	Stream(ctx context.Context, req *Request) (ChunkStream, error)
}

// Provider is a Backend that can describe the models it serves.
type Provider interface {
	Backend

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the list of available models.
	Models() []types.Model
}

// Request is one model invocation.
type Request struct {
	Messages     []types.Message  `json:"messages"`
	ToolSpecs    []types.ToolSpec `json:"toolSpecs,omitempty"`
	SystemPrompt string           `json:"systemPrompt,omitempty"`
	Config       RequestConfig    `json:"config"`
}

// RequestConfig holds generation parameters.
type RequestConfig struct {
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ChunkStream is an ordered sequence of normalized chunks. Recv returns io.EOF after the
// last chunk. Close releases the underlying connection and may be called at any time.
type ChunkStream interface {
	Recv() (Chunk, error)
	Close() error
}

// Chunk kinds.
const (
	ChunkMessageStart = "messageStart"
	ChunkBlockStart   = "blockStart"
	ChunkBlockDelta   = "blockDelta"
	ChunkBlockStop    = "blockStop"
	ChunkMessageStop  = "messageStop"
	ChunkMetadata     = "metadata"
)

// Chunk is one normalized stream element. The set of implementations is closed.
type Chunk interface {
	Kind() string
	chunk()
}

// MessageStart opens the message and sets its role.
type MessageStart struct {
	Role types.Role `json:"role"`
}

// BlockKind identifies the kind of content block being opened.
type BlockKind string

const (
	BlockText      BlockKind = "text"
	BlockToolUse   BlockKind = "toolUse"
	BlockReasoning BlockKind = "reasoning"
)

// BlockStart opens a content block. ToolUseID and Name are set for tool-use blocks.
type BlockStart struct {
	Block     BlockKind `json:"block"`
	ToolUseID string    `json:"toolUseId,omitempty"`
	Name      string    `json:"name,omitempty"`
}

// BlockDelta appends to the open block. Exactly one field is set.
type BlockDelta struct {
	Text          string          `json:"text,omitempty"`
	ToolInput     string          `json:"toolInput,omitempty"`
	ReasoningText string          `json:"reasoningText,omitempty"`
	Signature     string          `json:"signature,omitempty"`
	Citation      *types.Citation `json:"citation,omitempty"`
}

// BlockStop closes the open block.
type BlockStop struct{}

// MessageStop ends the message.
type MessageStop struct {
	StopReason types.StopReason `json:"stopReason"`
}

// Metadata reports usage; it may arrive anywhere in the stream.
type Metadata struct {
	Usage   types.Usage    `json:"usage"`
	Metrics *types.Metrics `json:"metrics,omitempty"`
}

func (MessageStart) Kind() string { return ChunkMessageStart }
func (BlockStart) Kind() string   { return ChunkBlockStart }
func (BlockDelta) Kind() string   { return ChunkBlockDelta }
func (BlockStop) Kind() string    { return ChunkBlockStop }
func (MessageStop) Kind() string  { return ChunkMessageStop }
func (Metadata) Kind() string     { return ChunkMetadata }

func (MessageStart) chunk() {}
func (BlockStart) chunk()   {}
func (BlockDelta) chunk()   {}
func (BlockStop) chunk()    {}
func (MessageStop) chunk()  {}
func (Metadata) chunk()     {}

// MarshalChunk encodes a chunk as {"type":kind,"data":payload}.
func MarshalChunk(c Chunk) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: c.Kind(), Data: data})
}

// SliceStream replays a fixed chunk sequence, optionally ending with an error instead of io.EOF.
type SliceStream struct {
	chunks []Chunk
	err    error
	pos    int
	closed bool
}

// NewSliceStream creates a stream over chunks. If err is non-nil it is returned after the
// last chunk.
func NewSliceStream(chunks []Chunk, err error) *SliceStream {
	return &SliceStream{chunks: chunks, err: err}
}

func (s *SliceStream) Recv() (Chunk, error) {
	if s.closed {
		return nil, io.ErrClosedPipe
	}
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
