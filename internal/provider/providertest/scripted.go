// Package providertest provides a deterministic provider.Backend for tests.
package providertest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// Turn scripts one call to Stream.
type Turn struct {
	// Err is returned by Stream itself.
	Err error
	// Chunks are replayed by Recv in order.
	Chunks []provider.Chunk
	// RecvErr is returned by Recv after the last chunk instead of io.EOF.
	RecvErr error
	// Hold makes Recv block after the last chunk until the context is cancelled.
	Hold bool
}

// ScriptedBackend replays scripted turns and records every request it receives.
type ScriptedBackend struct {
	mu       sync.Mutex
	turns    []Turn
	requests []*provider.Request
	closed   atomic.Int32
}

// New creates a backend that answers successive Stream calls with turns.
func New(turns ...Turn) *ScriptedBackend {
	return &ScriptedBackend{turns: turns}
}

// Add appends turns to the script.
func (b *ScriptedBackend) Add(turns ...Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = append(b.turns, turns...)
}

func (b *ScriptedBackend) ID() string { return "scripted" }

// Stream implements provider.Backend.
func (b *ScriptedBackend) Stream(ctx context.Context, req *provider.Request) (provider.ChunkStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *req
	cp.Messages = types.CloneMessages(req.Messages)
	cp.ToolSpecs = append([]types.ToolSpec(nil), req.ToolSpecs...)
	b.requests = append(b.requests, &cp)

	call := len(b.requests)
	if call > len(b.turns) {
		return nil, fmt.Errorf("scripted backend: no turn for call %d", call)
	}
	turn := b.turns[call-1]
	if turn.Err != nil {
		return nil, turn.Err
	}
	return &scriptedStream{ctx: ctx, turn: turn, closed: &b.closed}, nil
}

// Requests returns the requests received so far.
func (b *ScriptedBackend) Requests() []*provider.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*provider.Request(nil), b.requests...)
}

// Calls returns the number of Stream calls.
func (b *ScriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Closed returns how many streams have been closed.
func (b *ScriptedBackend) Closed() int { return int(b.closed.Load()) }

type scriptedStream struct {
	ctx    context.Context
	turn   Turn
	pos    int
	closed *atomic.Int32
	once   sync.Once
}

func (s *scriptedStream) Recv() (provider.Chunk, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos < len(s.turn.Chunks) {
		c := s.turn.Chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.turn.Hold {
		<-s.ctx.Done()
		return nil, s.ctx.Err()
	}
	if s.turn.RecvErr != nil {
		return nil, s.turn.RecvErr
	}
	return nil, io.EOF
}

func (s *scriptedStream) Close() error {
	s.once.Do(func() { s.closed.Add(1) })
	return nil
}

// Text scripts an assistant reply holding one text block.
func Text(text string) Turn {
	return Turn{Chunks: TextChunks(text, types.StopEndTurn)}
}

// TextChunks builds the chunk sequence of a single text block ending with stop.
func TextChunks(text string, stop types.StopReason) []provider.Chunk {
	return []provider.Chunk{
		provider.MessageStart{Role: types.RoleAssistant},
		provider.BlockStart{Block: provider.BlockText},
		provider.BlockDelta{Text: text},
		provider.BlockStop{},
		provider.MessageStop{StopReason: stop},
		provider.Metadata{Usage: types.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
	}
}

// ToolCall scripts an assistant reply requesting one tool invocation.
func ToolCall(id, name, inputJSON string) Turn {
	return Turn{Chunks: []provider.Chunk{
		provider.MessageStart{Role: types.RoleAssistant},
		provider.BlockStart{Block: provider.BlockToolUse, ToolUseID: id, Name: name},
		provider.BlockDelta{ToolInput: inputJSON},
		provider.BlockStop{},
		provider.MessageStop{StopReason: types.StopToolUse},
	}}
}

// Throttle scripts a throttled call.
func Throttle() Turn {
	return Turn{Err: &types.ThrottlingError{Message: "429 too many requests"}}
}

// Overflow scripts a call rejected for context overflow.
func Overflow() Turn {
	return Turn{Err: &types.ContextOverflowError{Message: "prompt is too long"}}
}

// MaxTokens scripts a reply truncated by the output ceiling.
func MaxTokens(text string) Turn {
	return Turn{Chunks: TextChunks(text, types.StopMaxTokens)}
}
