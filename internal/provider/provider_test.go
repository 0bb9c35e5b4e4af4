package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strands-agents/sdk-go/pkg/types"
)

func TestParseModelString(t *testing.T) {
	tests := []struct {
		input        string
		wantProvider string
		wantModel    string
	}{
		{"anthropic/claude-3-opus", "anthropic", "claude-3-opus"},
		{"openai/gpt-4o", "openai", "gpt-4o"},
		{"bedrock/anthropic.claude-3", "bedrock", "anthropic.claude-3"},
		{"claude-3-opus", "", "claude-3-opus"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, m := ParseModelString(tt.input)
			assert.Equal(t, tt.wantProvider, p)
			assert.Equal(t, tt.wantModel, m)
		})
	}
}

func TestConvertToEinoTools(t *testing.T) {
	specs := []types.ToolSpec{
		{
			Name:        "read_file",
			Description: "Reads a file",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "File path"},
					"limit": {"type": "integer", "description": "Max lines"}
				},
				"required": ["path"]
			}`),
		},
		{Name: "noop", Description: "Does nothing"},
	}

	result := ConvertToEinoTools(specs)
	require.Len(t, result, 2)
	assert.Equal(t, "read_file", result[0].Name)
	assert.Equal(t, "Reads a file", result[0].Desc)
	assert.Equal(t, "noop", result[1].Name)
}

func TestParseJSONSchemaToParams(t *testing.T) {
	params := parseJSONSchemaToParams(json.RawMessage(`{
		"type": "object",
		"properties": {
			"s": {"type": "string", "description": "A string"},
			"i": {"type": "integer"},
			"n": {"type": "number"},
			"b": {"type": "boolean"},
			"a": {"type": "array"},
			"o": {"type": "object"}
		},
		"required": ["s", "i"]
	}`))
	require.NotNil(t, params)

	assert.Equal(t, schema.String, params["s"].Type)
	assert.Equal(t, "A string", params["s"].Desc)
	assert.True(t, params["s"].Required)
	assert.Equal(t, schema.Integer, params["i"].Type)
	assert.True(t, params["i"].Required)
	assert.Equal(t, schema.Number, params["n"].Type)
	assert.False(t, params["n"].Required)
	assert.Equal(t, schema.Boolean, params["b"].Type)
	assert.Equal(t, schema.Array, params["a"].Type)
	assert.Equal(t, schema.Object, params["o"].Type)

	assert.Nil(t, parseJSONSchemaToParams(json.RawMessage(`invalid json`)))
	assert.Empty(t, parseJSONSchemaToParams(json.RawMessage(`{}`)))
}

func TestConvertToEinoMessages(t *testing.T) {
	msgs := []types.Message{
		types.NewUserMessage("what is 2+2?"),
		{Role: types.RoleAssistant, Content: []types.ContentBlock{
			&types.ReasoningBlock{Text: "simple math"},
			&types.TextBlock{Text: "Let me check."},
			&types.ToolUseBlock{ToolUseID: "t1", Name: "calc", Input: map[string]any{"expr": "2+2"}},
		}},
		{Role: types.RoleUser, Content: []types.ContentBlock{
			types.NewTextResult("t1", "4", types.ToolResultSuccess),
		}},
		{Role: types.RoleUser, Content: []types.ContentBlock{
			types.NewTextResult("t2", "boom", types.ToolResultError),
		}},
	}

	out := ConvertToEinoMessages("be brief", msgs)
	require.Len(t, out, 5)

	assert.Equal(t, schema.System, out[0].Role)
	assert.Equal(t, "be brief", out[0].Content)

	assert.Equal(t, schema.User, out[1].Role)
	assert.Equal(t, "what is 2+2?", out[1].Content)

	assert.Equal(t, schema.Assistant, out[2].Role)
	assert.Equal(t, "Let me check.", out[2].Content)
	assert.Equal(t, "simple math", out[2].ReasoningContent)
	require.Len(t, out[2].ToolCalls, 1)
	assert.Equal(t, "t1", out[2].ToolCalls[0].ID)
	assert.Equal(t, "calc", out[2].ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"expr":"2+2"}`, out[2].ToolCalls[0].Function.Arguments)

	assert.Equal(t, schema.Tool, out[3].Role)
	assert.Equal(t, "t1", out[3].ToolCallID)
	assert.Equal(t, "4", out[3].Content)

	assert.Equal(t, "Error: boom", out[4].Content)
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		reason  string
		sawTool bool
		want    types.StopReason
	}{
		{"stop", false, types.StopEndTurn},
		{"end_turn", false, types.StopEndTurn},
		{"stop", true, types.StopToolUse},
		{"tool_calls", false, types.StopToolUse},
		{"tool_use", false, types.StopToolUse},
		{"length", false, types.StopMaxTokens},
		{"max_tokens", true, types.StopMaxTokens},
		{"stop_sequence", false, types.StopSequence},
		{"content_filter", false, types.StopContentFiltered},
		{"", false, types.StopEndTurn},
		{"", true, types.StopToolUse},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.reason, tt.sawTool), func(t *testing.T) {
			assert.Equal(t, tt.want, MapFinishReason(tt.reason, tt.sawTool))
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		throttle bool
		overflow bool
	}{
		{"http 429", errors.New("error, status code: 429, message: slow down"), true, false},
		{"rate limit", errors.New("Rate limit reached for requests"), true, false},
		{"overloaded", errors.New("overloaded_error: Overloaded"), true, false},
		{"prompt too long", errors.New("prompt is too long: 210000 tokens > 200000 maximum"), false, true},
		{"openai overflow", errors.New("code: context_length_exceeded"), false, true},
		{"other", errors.New("connection reset"), false, false},
		{"http status line", errors.New("HTTP/1.1 429 Too Many"), true, false},
		{"429 inside a number", errors.New("max_tokens 4290 exceeds the limit"), false, false},
		{"429 as a value", errors.New("invalid max_tokens: 429 is not allowed"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			var te *types.ThrottlingError
			var oe *types.ContextOverflowError
			assert.Equal(t, tt.throttle, errors.As(got, &te))
			assert.Equal(t, tt.overflow, errors.As(got, &oe))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, ClassifyError(nil))
	assert.Equal(t, context.Canceled, ClassifyError(context.Canceled))
}

func TestClassifyError_RetryAfter(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
	}{
		{"status code: 429, retry-after: 12", 12 * time.Second},
		{"rate limit reached, please retry after 1500ms", 1500 * time.Millisecond},
		{`{"error":"throttled","retry_after":2.5}`, 2500 * time.Millisecond},
		{"429 too many requests", 0},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			var te *types.ThrottlingError
			require.ErrorAs(t, ClassifyError(errors.New(tt.msg)), &te)
			assert.Equal(t, tt.want, te.RetryAfter)
		})
	}
}

func collect(t *testing.T, s ChunkStream) []Chunk {
	t.Helper()
	var chunks []Chunk
	for {
		c, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
}

func intPtr(i int) *int { return &i }

func TestEinoStream_SynthesizesBlocks(t *testing.T) {
	sr := schema.StreamReaderFromArray([]*schema.Message{
		{Role: schema.Assistant, ReasoningContent: "hmm"},
		{Role: schema.Assistant, Content: "Hello"},
		{Role: schema.Assistant, Content: " world"},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{Index: intPtr(0), ID: "call_1", Function: schema.FunctionCall{Name: "calc", Arguments: `{"x":`}}}},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{Index: intPtr(0), Function: schema.FunctionCall{Arguments: `1}`}}}},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{Index: intPtr(1), ID: "call_2", Function: schema.FunctionCall{Name: "echo", Arguments: `{}`}}}},
		{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{
			FinishReason: "tool_calls",
			Usage:        &schema.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
		}},
	})

	chunks := collect(t, newEinoStream(sr))

	want := []Chunk{
		MessageStart{Role: types.RoleAssistant},
		BlockStart{Block: BlockReasoning},
		BlockDelta{ReasoningText: "hmm"},
		BlockStop{},
		BlockStart{Block: BlockText},
		BlockDelta{Text: "Hello"},
		BlockDelta{Text: " world"},
		BlockStop{},
		BlockStart{Block: BlockToolUse, ToolUseID: "call_1", Name: "calc"},
		BlockDelta{ToolInput: `{"x":`},
		BlockDelta{ToolInput: `1}`},
		BlockStop{},
		BlockStart{Block: BlockToolUse, ToolUseID: "call_2", Name: "echo"},
		BlockDelta{ToolInput: `{}`},
		Metadata{Usage: types.Usage{InputTokens: 7, OutputTokens: 3, TotalTokens: 10}},
		BlockStop{},
		MessageStop{StopReason: types.StopToolUse},
	}
	assert.Equal(t, want, chunks)
}

func TestEinoStream_ClassifiesMidStreamErrors(t *testing.T) {
	sr, sw := schema.Pipe[*schema.Message](4)
	go func() {
		defer sw.Close()
		sw.Send(&schema.Message{Role: schema.Assistant, Content: "partial"}, nil)
		sw.Send(nil, errors.New("429 Too Many Requests"))
	}()

	s := newEinoStream(sr)
	defer s.Close()

	var err error
	for err == nil {
		_, err = s.Recv()
	}
	var te *types.ThrottlingError
	assert.ErrorAs(t, err, &te)
}

type recordedCall struct {
	input []*schema.Message
	tools []*schema.ToolInfo
	opts  *model.Options
}

type fakeChatModel struct {
	chunks []*schema.Message
	err    error
	tools  []*schema.ToolInfo
	calls  *[]recordedCall
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	*f.calls = append(*f.calls, recordedCall{input: input, tools: f.tools, opts: model.GetCommonOptions(nil, opts...)})
	if f.err != nil {
		return nil, f.err
	}
	return schema.StreamReaderFromArray(f.chunks), nil
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	cp := *f
	cp.tools = tools
	return &cp, nil
}

func TestEinoBackend_Stream(t *testing.T) {
	var calls []recordedCall
	fake := &fakeChatModel{
		chunks: []*schema.Message{{Role: schema.Assistant, Content: "hi", ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}}},
		calls:  &calls,
	}
	b := NewEinoBackend("fake", "Fake", fake, nil)

	temp := 0.5
	stream, err := b.Stream(context.Background(), &Request{
		Messages:     []types.Message{types.NewUserMessage("hello")},
		ToolSpecs:    []types.ToolSpec{{Name: "calc", Description: "math"}},
		SystemPrompt: "sys",
		Config:       RequestConfig{MaxTokens: 128, Temperature: &temp},
	})
	require.NoError(t, err)
	chunks := collect(t, stream)
	require.NoError(t, stream.Close())

	assert.Equal(t, MessageStop{StopReason: types.StopEndTurn}, chunks[len(chunks)-1])

	require.Len(t, calls, 1)
	assert.Len(t, calls[0].input, 2)
	require.Len(t, calls[0].tools, 1)
	assert.Equal(t, "calc", calls[0].tools[0].Name)
	require.NotNil(t, calls[0].opts.MaxTokens)
	assert.Equal(t, 128, *calls[0].opts.MaxTokens)
	require.NotNil(t, calls[0].opts.Temperature)
	assert.InDelta(t, 0.5, *calls[0].opts.Temperature, 1e-6)
}

func TestEinoBackend_StreamClassifiesErrors(t *testing.T) {
	var calls []recordedCall
	fake := &fakeChatModel{err: errors.New("maximum context length is 8192 tokens"), calls: &calls}
	b := NewEinoBackend("fake", "Fake", fake, nil)

	_, err := b.Stream(context.Background(), &Request{Messages: []types.Message{types.NewUserMessage("x")}})
	var oe *types.ContextOverflowError
	assert.ErrorAs(t, err, &oe)
}

func TestSliceStream(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream([]Chunk{MessageStart{Role: types.RoleAssistant}}, boom)

	c, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, ChunkMessageStart, c.Kind())

	_, err = s.Recv()
	assert.ErrorIs(t, err, boom)
}

func TestMarshalChunk(t *testing.T) {
	data, err := MarshalChunk(BlockDelta{Text: "hi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"blockDelta","data":{"text":"hi"}}`, string(data))
}
