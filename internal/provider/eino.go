package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/oklog/ulid/v2"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// EinoBackend adapts an eino ToolCallingChatModel to the Backend interface.
type EinoBackend struct {
	id        string
	name      string
	chatModel model.ToolCallingChatModel
	models    []types.Model
	options   func(RequestConfig) []model.Option
}

// NewEinoBackend wraps chatModel. Generation options default to model.WithMaxTokens and
// model.WithTemperature.
func NewEinoBackend(id, name string, chatModel model.ToolCallingChatModel, models []types.Model) *EinoBackend {
	return &EinoBackend{
		id:        id,
		name:      name,
		chatModel: chatModel,
		models:    models,
		options:   defaultOptions,
	}
}

// ID returns the provider identifier.
func (b *EinoBackend) ID() string { return b.id }

// Name returns the human-readable provider name.
func (b *EinoBackend) Name() string { return b.name }

// Models returns the list of available models.
func (b *EinoBackend) Models() []types.Model { return b.models }

// ChatModel returns the wrapped eino model.
func (b *EinoBackend) ChatModel() model.ToolCallingChatModel { return b.chatModel }

// Stream implements Backend.
func (b *EinoBackend) Stream(ctx context.Context, req *Request) (ChunkStream, error) {
	chatModel := b.chatModel
	if len(req.ToolSpecs) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(ConvertToEinoTools(req.ToolSpecs))
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	reader, err := chatModel.Stream(ctx, ConvertToEinoMessages(req.SystemPrompt, req.Messages), b.options(req.Config)...)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("failed to create stream: %w", err))
	}
	return newEinoStream(reader), nil
}

func defaultOptions(cfg RequestConfig) []model.Option {
	var opts []model.Option
	if cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*cfg.Temperature)))
	}
	return opts
}

// einoStream converts eino message chunks into normalized chunks. eino has no explicit
// block boundaries, so a block is opened whenever the delta kind changes and closed when
// the next one opens or the stream ends.
type einoStream struct {
	reader  *schema.StreamReader[*schema.Message]
	pending []Chunk
	started bool
	open    BlockKind
	toolKey string
	sawTool bool
	finish  string
	done    bool
}

func newEinoStream(reader *schema.StreamReader[*schema.Message]) *einoStream {
	return &einoStream{reader: reader}
}

func (s *einoStream) Recv() (Chunk, error) {
	for len(s.pending) == 0 {
		if s.done {
			return nil, io.EOF
		}
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.finishMessage()
			s.done = true
			continue
		}
		if err != nil {
			return nil, ClassifyError(err)
		}
		s.fold(msg)
	}

	c := s.pending[0]
	s.pending = s.pending[1:]
	return c, nil
}

func (s *einoStream) Close() error {
	s.reader.Close()
	return nil
}

func (s *einoStream) fold(msg *schema.Message) {
	if msg == nil {
		return
	}
	s.start()

	if msg.ReasoningContent != "" {
		s.ensure(BlockReasoning)
		s.push(BlockDelta{ReasoningText: msg.ReasoningContent})
	}
	if msg.Content != "" {
		s.ensure(BlockText)
		s.push(BlockDelta{Text: msg.Content})
	}

	for _, tc := range msg.ToolCalls {
		key := tc.ID
		if tc.Index != nil {
			key = strconv.Itoa(*tc.Index)
		}
		if s.open != BlockToolUse || (key != "" && key != s.toolKey) {
			s.close()
			id := tc.ID
			if id == "" {
				id = "tooluse_" + ulid.Make().String()
			}
			s.push(BlockStart{Block: BlockToolUse, ToolUseID: id, Name: tc.Function.Name})
			s.open = BlockToolUse
			s.toolKey = key
			s.sawTool = true
		}
		if tc.Function.Arguments != "" {
			s.push(BlockDelta{ToolInput: tc.Function.Arguments})
		}
	}

	if meta := msg.ResponseMeta; meta != nil {
		if meta.FinishReason != "" {
			s.finish = meta.FinishReason
		}
		if meta.Usage != nil {
			s.push(Metadata{Usage: types.Usage{
				InputTokens:  meta.Usage.PromptTokens,
				OutputTokens: meta.Usage.CompletionTokens,
				TotalTokens:  meta.Usage.TotalTokens,
			}})
		}
	}
}

func (s *einoStream) finishMessage() {
	s.start()
	s.close()
	s.push(MessageStop{StopReason: MapFinishReason(s.finish, s.sawTool)})
}

func (s *einoStream) start() {
	if !s.started {
		s.started = true
		s.push(MessageStart{Role: types.RoleAssistant})
	}
}

func (s *einoStream) ensure(kind BlockKind) {
	if s.open == kind {
		return
	}
	s.close()
	s.push(BlockStart{Block: kind})
	s.open = kind
}

func (s *einoStream) close() {
	if s.open != "" {
		s.push(BlockStop{})
		s.open = ""
		s.toolKey = ""
	}
}

func (s *einoStream) push(c Chunk) {
	s.pending = append(s.pending, c)
}

// MapFinishReason maps provider finish reasons onto StopReason.
func MapFinishReason(reason string, sawTool bool) types.StopReason {
	switch strings.ToLower(reason) {
	case "stop", "end_turn":
		if sawTool {
			return types.StopToolUse
		}
		return types.StopEndTurn
	case "tool_calls", "tool_use", "function_call":
		return types.StopToolUse
	case "length", "max_tokens":
		return types.StopMaxTokens
	case "stop_sequence":
		return types.StopSequence
	case "content_filter", "content_filtered", "refusal":
		return types.StopContentFiltered
	case "guardrail_intervened":
		return types.StopGuardrailIntervened
	default:
		if sawTool {
			return types.StopToolUse
		}
		return types.StopEndTurn
	}
}

// ConvertToEinoTools converts tool specs to eino format.
func ConvertToEinoTools(specs []types.ToolSpec) []*schema.ToolInfo {
	result := make([]*schema.ToolInfo, len(specs))
	for i, t := range specs {
		var params map[string]*schema.ParameterInfo
		if len(t.InputSchema) > 0 {
			params = parseJSONSchemaToParams(t.InputSchema)
		}

		result[i] = &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		}
	}
	return result
}

// parseJSONSchemaToParams converts JSON Schema to eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}

// ConvertToEinoMessages converts history to eino format. Tool results become tool-role
// messages placed before any user text of the same message.
func ConvertToEinoMessages(systemPrompt string, messages []types.Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages)+1)
	if systemPrompt != "" {
		result = append(result, &schema.Message{Role: schema.System, Content: systemPrompt})
	}

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleUser:
			for _, tr := range msg.ToolResults() {
				result = append(result, &schema.Message{
					Role:       schema.Tool,
					Content:    toolResultText(tr),
					ToolCallID: tr.ToolUseID,
				})
			}
			if text := msg.Text(); text != "" {
				result = append(result, &schema.Message{Role: schema.User, Content: text})
			}

		case types.RoleAssistant:
			einoMsg := &schema.Message{Role: schema.Assistant, Content: msg.Text()}
			for _, block := range msg.Content {
				switch b := block.(type) {
				case *types.ReasoningBlock:
					einoMsg.ReasoningContent += b.Text
				case *types.ToolUseBlock:
					inputJSON, _ := json.Marshal(b.Input)
					einoMsg.ToolCalls = append(einoMsg.ToolCalls, schema.ToolCall{
						ID:   b.ToolUseID,
						Type: "function",
						Function: schema.FunctionCall{
							Name:      b.Name,
							Arguments: string(inputJSON),
						},
					})
				}
			}
			result = append(result, einoMsg)
		}
	}

	return result
}

func toolResultText(tr *types.ToolResultBlock) string {
	var parts []string
	for _, c := range tr.Content {
		if c.JSON != nil {
			data, err := json.Marshal(c.JSON)
			if err == nil {
				parts = append(parts, string(data))
				continue
			}
		}
		parts = append(parts, c.Text)
	}
	text := strings.Join(parts, "\n")
	if tr.Status == types.ToolResultError && !strings.HasPrefix(text, "Error") {
		text = "Error: " + text
	}
	return text
}
