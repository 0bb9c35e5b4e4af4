package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/strands-agents/sdk-go/internal/history"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/internal/streaming"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// DefaultSummaryInstruction is sent with the span being summarized when no instruction is
// configured.
const DefaultSummaryInstruction = `Summarize the conversation so far.

Include the user's goals, decisions that were made, tool calls and their important results,
and any open tasks. Write the summary so the conversation can continue from it without the
original messages.`

const summarySystemPrompt = `You are a conversation summarizer. Produce a concise, factual summary of the
conversation you are given. Do not answer questions from the conversation and do not call tools.`

// Summarizer condenses a span of messages into text.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []types.Message, instruction string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, msgs []types.Message, instruction string) (string, error)

// Summarize implements Summarizer.
func (f SummarizerFunc) Summarize(ctx context.Context, msgs []types.Message, instruction string) (string, error) {
	return f(ctx, msgs, instruction)
}

// ModelSummarizer summarizes through a model backend.
type ModelSummarizer struct {
	Backend provider.Backend
	Config  provider.RequestConfig
}

// Summarize sends msgs followed by the instruction and returns the model's text reply.
func (s *ModelSummarizer) Summarize(ctx context.Context, msgs []types.Message, instruction string) (string, error) {
	req := &provider.Request{
		Messages:     withInstruction(msgs, instruction),
		SystemPrompt: summarySystemPrompt,
		Config:       s.Config,
	}

	stream, err := s.Backend.Stream(ctx, req)
	if err != nil {
		return "", provider.ClassifyError(err)
	}
	defer stream.Close()

	result, err := streaming.Normalize(ctx, stream, nil)
	if err != nil {
		return "", provider.ClassifyError(err)
	}

	text := strings.TrimSpace(result.Message.Text())
	if text == "" || text == streaming.BlankTextPlaceholder {
		return "", fmt.Errorf("summarizer returned no text (stop reason %s)", result.StopReason)
	}
	return text, nil
}

// withInstruction appends the instruction as user text, merging into a trailing user
// message so roles keep alternating.
func withInstruction(msgs []types.Message, instruction string) []types.Message {
	out := types.CloneMessages(msgs)
	if n := len(out); n > 0 && out[n-1].Role == types.RoleUser {
		out[n-1].Content = append(out[n-1].Content, &types.TextBlock{Text: instruction})
		return out
	}
	return append(out, types.NewUserMessage(instruction))
}

// SummarizingOptions configures a Summarizing manager.
type SummarizingOptions struct {
	// Instruction is sent to the summarizer. Empty selects DefaultSummaryInstruction.
	Instruction string
	// PreserveRecent is the number of newest messages kept out of the summary.
	PreserveRecent int
}

// Summarizing replaces older history with a single summary message on overflow.
type Summarizing struct {
	mu           sync.Mutex
	summarizer   Summarizer
	opts         SummarizingOptions
	summaryIndex *int
	logger       zerolog.Logger
}

// NewSummarizing creates a summarizing manager.
func NewSummarizing(summarizer Summarizer, opts SummarizingOptions) *Summarizing {
	if opts.Instruction == "" {
		opts.Instruction = DefaultSummaryInstruction
	}
	if opts.PreserveRecent < 0 {
		opts.PreserveRecent = 0
	}
	return &Summarizing{
		summarizer: summarizer,
		opts:       opts,
		logger:     logging.Component("conversation"),
	}
}

func (s *Summarizing) Name() string { return types.ManagerSummarizing }

// ApplyBound is a no-op; this manager only reacts to overflow.
func (s *Summarizing) ApplyBound(ctx context.Context, store *history.Store) error {
	return ctx.Err()
}

// Recover summarizes the existing summary and every message after it, except the
// preserved tail, into one assistant message placed first in the history.
func (s *Summarizing) Recover(ctx context.Context, store *history.Store, overflow error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := store.Messages()
	end := len(msgs) - s.opts.PreserveRecent
	for end > 0 && !history.ValidBoundary(msgs, end) {
		end--
	}

	// A span holding only the previous summary has nothing new to fold in.
	minSpan := 1
	if s.summaryIndex != nil {
		minSpan = 2
	}
	if end < minSpan {
		return cannotReduce(overflow, "no messages to summarize")
	}

	text, err := s.summarizer.Summarize(ctx, msgs[:end], s.opts.Instruction)
	if err != nil {
		return cannotReduce(overflow, fmt.Sprintf("summarize: %v", err))
	}

	summary := types.NewAssistantMessage(text)
	var ok bool
	store.Update(func(live []types.Message) []types.Message {
		// The store must not have changed while the summarizer ran.
		if len(live) != len(msgs) {
			return live
		}
		out := make([]types.Message, 0, len(live)-end+1)
		out = append(out, summary)
		out = append(out, live[end:]...)
		ok = true
		return out
	})
	if !ok {
		return cannotReduce(overflow, "history changed during summarization")
	}

	idx := 0
	s.summaryIndex = &idx
	s.logger.Debug().
		Int("summarized", end).
		Int("kept", len(msgs)-end).
		Msg("summarized history after context overflow")
	return nil
}

// State implements Manager.
func (s *Summarizing) State() types.ManagerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.ManagerState{Name: s.Name(), SummaryIndex: s.summaryIndex}.Clone()
}

// Restore implements Manager.
func (s *Summarizing) Restore(state types.ManagerState) error {
	if err := checkState(s, state); err != nil {
		return err
	}
	s.mu.Lock()
	s.summaryIndex = state.Clone().SummaryIndex
	s.mu.Unlock()
	return nil
}
