// Package streaming folds a backend chunk stream into a finished assistant message.
package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// BlankTextPlaceholder replaces blank text in messages that carry no tool use.
const BlankTextPlaceholder = "[blank text]"

// Delta is a progress notification produced while a stream is folded.
type Delta interface {
	delta()
}

// RawChunk carries every chunk as received, before it is folded.
type RawChunk struct {
	Chunk provider.Chunk
}

// TextDelta is a text fragment of the open text block.
type TextDelta struct {
	Text string
}

// ToolInputDelta is a raw JSON fragment of the open tool-use block.
type ToolInputDelta struct {
	ToolUseID string
	Name      string
	Input     string
}

// ReasoningDelta is a reasoning fragment or signature of the open reasoning block.
type ReasoningDelta struct {
	Text      string
	Signature string
}

// CitationDelta is a citation attached to the open text block.
type CitationDelta struct {
	Citation types.Citation
}

func (RawChunk) delta()       {}
func (TextDelta) delta()      {}
func (ToolInputDelta) delta() {}
func (ReasoningDelta) delta() {}
func (CitationDelta) delta()  {}

// Emitter receives deltas in arrival order. A non-nil error aborts normalization.
type Emitter func(Delta) error

// Result is the outcome of one folded stream.
type Result struct {
	Message    types.Message
	StopReason types.StopReason
	Usage      types.Usage
	Metrics    types.Metrics
}

// now is replaced in tests.
var now = time.Now

// Normalize drains stream, emitting deltas as they arrive, and assembles the final message.
// Errors returned by the stream (throttling, overflow, cancellation) pass through unchanged;
// protocol violations are reported as *types.NormalizationError.
func Normalize(ctx context.Context, stream provider.ChunkStream, emit Emitter) (*Result, error) {
	if emit == nil {
		emit = func(Delta) error { return nil }
	}

	acc := &accumulator{}
	start := now()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if err := emit(RawChunk{Chunk: chunk}); err != nil {
			return nil, err
		}
		d, err := acc.fold(chunk)
		if err != nil {
			return nil, err
		}
		if acc.stopped && acc.latency == 0 {
			acc.latency = now().Sub(start)
		}
		if d != nil {
			if err := emit(d); err != nil {
				return nil, err
			}
		}
	}

	if !acc.stopped {
		return nil, &types.NormalizationError{Reason: "stream ended before message stop"}
	}

	result := &Result{
		Message:    acc.message(),
		StopReason: acc.stopReason,
		Usage:      acc.usage,
		Metrics:    types.Metrics{LatencyMs: acc.latency.Milliseconds()},
	}
	if acc.metrics != nil {
		result.Metrics = *acc.metrics
	}
	return result, nil
}

// accumulator holds the state of one stream. It is never shared between calls.
type accumulator struct {
	started    bool
	stopped    bool
	role       types.Role
	content    []types.ContentBlock
	open       provider.BlockKind
	text       strings.Builder
	citations  []types.Citation
	toolUse    *types.ToolUseBlock
	toolInput  strings.Builder
	reasoning  strings.Builder
	signature  string
	inputErr   error
	stopReason types.StopReason
	usage      types.Usage
	metrics    *types.Metrics
	latency    time.Duration
}

func violation(format string, args ...any) error {
	return &types.NormalizationError{Reason: fmt.Sprintf(format, args...)}
}

func (a *accumulator) fold(chunk provider.Chunk) (Delta, error) {
	if md, ok := chunk.(provider.Metadata); ok {
		a.usage = md.Usage
		if md.Metrics != nil {
			m := *md.Metrics
			a.metrics = &m
		}
		return nil, nil
	}
	if a.stopped {
		return nil, violation("%s after message stop", chunk.Kind())
	}

	switch c := chunk.(type) {
	case provider.MessageStart:
		if a.started {
			return nil, violation("duplicate message start")
		}
		a.started = true
		a.role = c.Role
		if a.role == "" {
			a.role = types.RoleAssistant
		}
		return nil, nil
	}

	if !a.started {
		return nil, violation("%s before message start", chunk.Kind())
	}

	switch c := chunk.(type) {
	case provider.BlockStart:
		return nil, a.startBlock(c)
	case provider.BlockDelta:
		return a.appendDelta(c)
	case provider.BlockStop:
		if a.open == "" {
			return nil, violation("block stop without block start")
		}
		return nil, a.closeBlock()
	case provider.MessageStop:
		return nil, a.stop(c.StopReason)
	default:
		return nil, violation("unknown chunk %T", chunk)
	}
}

func (a *accumulator) startBlock(c provider.BlockStart) error {
	if a.open != "" {
		return violation("block start while %s block is open", a.open)
	}
	switch c.Block {
	case provider.BlockText, provider.BlockReasoning:
	case provider.BlockToolUse:
		if c.Name == "" {
			return violation("tool use block without a name")
		}
		a.toolUse = &types.ToolUseBlock{ToolUseID: c.ToolUseID, Name: c.Name}
	default:
		return violation("unknown block kind %q", c.Block)
	}
	a.open = c.Block
	return nil
}

func (a *accumulator) appendDelta(c provider.BlockDelta) (Delta, error) {
	if a.open == "" {
		return nil, violation("block delta without block start")
	}

	switch {
	case c.Text != "":
		if a.open != provider.BlockText {
			return nil, violation("text delta in %s block", a.open)
		}
		a.text.WriteString(c.Text)
		return TextDelta{Text: c.Text}, nil

	case c.Citation != nil:
		if a.open != provider.BlockText {
			return nil, violation("citation delta in %s block", a.open)
		}
		a.citations = append(a.citations, *c.Citation)
		return CitationDelta{Citation: *c.Citation}, nil

	case c.ToolInput != "":
		if a.open != provider.BlockToolUse {
			return nil, violation("tool input delta in %s block", a.open)
		}
		a.toolInput.WriteString(c.ToolInput)
		return ToolInputDelta{ToolUseID: a.toolUse.ToolUseID, Name: a.toolUse.Name, Input: c.ToolInput}, nil

	case c.ReasoningText != "" || c.Signature != "":
		if a.open != provider.BlockReasoning {
			return nil, violation("reasoning delta in %s block", a.open)
		}
		a.reasoning.WriteString(c.ReasoningText)
		a.signature += c.Signature
		return ReasoningDelta{Text: c.ReasoningText, Signature: c.Signature}, nil
	}

	return nil, nil
}

// closeBlock finalizes the open block. Tool input is parsed here and nowhere else; a
// malformed input is held until the stop reason is known.
func (a *accumulator) closeBlock() error {
	switch a.open {
	case provider.BlockText:
		if len(a.citations) > 0 {
			a.content = append(a.content, &types.CitationBlock{Text: a.text.String(), Citations: a.citations})
		} else {
			a.content = append(a.content, &types.TextBlock{Text: a.text.String()})
		}
		a.text.Reset()
		a.citations = nil

	case provider.BlockToolUse:
		input, err := parseToolInput(a.toolInput.String())
		if err != nil && a.inputErr == nil {
			a.inputErr = &types.NormalizationError{
				Reason: fmt.Sprintf("malformed input for tool %s", a.toolUse.Name),
				Cause:  err,
			}
		}
		a.toolUse.Input = input
		a.content = append(a.content, a.toolUse)
		a.toolUse = nil
		a.toolInput.Reset()

	case provider.BlockReasoning:
		a.content = append(a.content, &types.ReasoningBlock{Text: a.reasoning.String(), Signature: a.signature})
		a.reasoning.Reset()
		a.signature = ""
	}
	a.open = ""
	return nil
}

// stop ends the message. A max_tokens stop tolerates an open block and malformed tool
// input because the truncated message is only reported, never committed.
func (a *accumulator) stop(reason types.StopReason) error {
	truncated := reason == types.StopMaxTokens
	if a.open != "" {
		if !truncated {
			return violation("message stop while %s block is open", a.open)
		}
		if err := a.closeBlock(); err != nil {
			return err
		}
	}
	if a.inputErr != nil && !truncated {
		return a.inputErr
	}
	if reason == "" {
		reason = types.StopEndTurn
	}
	a.stopReason = reason
	a.stopped = true
	return nil
}

func parseToolInput(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, err
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}

// message applies the blank-text policy: blank text is dropped next to a tool use and
// replaced by a placeholder otherwise. A message never ends up without content.
func (a *accumulator) message() types.Message {
	hasToolUse := false
	for _, b := range a.content {
		if _, ok := b.(*types.ToolUseBlock); ok {
			hasToolUse = true
			break
		}
	}

	content := make([]types.ContentBlock, 0, len(a.content))
	for _, b := range a.content {
		if tb, ok := b.(*types.TextBlock); ok && strings.TrimSpace(tb.Text) == "" {
			if hasToolUse {
				continue
			}
			tb.Text = BlankTextPlaceholder
		}
		content = append(content, b)
	}
	if len(content) == 0 {
		content = append(content, &types.TextBlock{Text: BlankTextPlaceholder})
	}

	return types.Message{Role: a.role, Content: content}
}

// RecoverTruncatedToolUse returns a copy of a max_tokens-truncated message with every
// tool use replaced by a text block explaining that the tool use was incomplete.
func RecoverTruncatedToolUse(msg types.Message) types.Message {
	out := msg.Clone()
	for i, b := range out.Content {
		if tu, ok := b.(*types.ToolUseBlock); ok {
			out.Content[i] = &types.TextBlock{
				Text: fmt.Sprintf("The selected tool %s's tool use was incomplete due to maximum token limits being reached.", tu.Name),
			}
		}
	}
	return out
}
