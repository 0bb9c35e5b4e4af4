package types

import (
	"encoding/json"
	"fmt"
)

// Block type discriminators used in the JSON form of a content block.
const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "toolUse"
	BlockTypeToolResult = "toolResult"
	BlockTypeReasoning  = "reasoning"
	BlockTypeCitation   = "citation"
)

// ContentBlock is one element of a message's content.
// The set of implementations is closed: TextBlock, ToolUseBlock, ToolResultBlock,
// ReasoningBlock and CitationBlock.
type ContentBlock interface {
	BlockType() string
	cloneBlock() ContentBlock
}

// TextBlock is plain model or user text.
type TextBlock struct {
	Text string `json:"text"`
}

func (b *TextBlock) BlockType() string { return BlockTypeText }

func (b *TextBlock) cloneBlock() ContentBlock {
	c := *b
	return &c
}

// ToolUseBlock is a tool invocation requested by the model.
type ToolUseBlock struct {
	ToolUseID string         `json:"toolUseId"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
}

func (b *ToolUseBlock) BlockType() string { return BlockTypeToolUse }

func (b *ToolUseBlock) cloneBlock() ContentBlock { return b.Clone() }

// Clone returns a deep copy of the block.
func (b *ToolUseBlock) Clone() *ToolUseBlock {
	c := *b
	c.Input = cloneMap(b.Input)
	return &c
}

// ToolResultStatus reports whether a tool invocation succeeded.
type ToolResultStatus string

const (
	ToolResultSuccess ToolResultStatus = "success"
	ToolResultError   ToolResultStatus = "error"
)

// ToolResultContent is one item of a tool result. Exactly one of Text or JSON is set.
type ToolResultContent struct {
	Text string `json:"text,omitempty"`
	JSON any    `json:"json,omitempty"`
}

// ToolResultBlock carries the output of a tool invocation back to the model.
type ToolResultBlock struct {
	ToolUseID string              `json:"toolUseId"`
	Content   []ToolResultContent `json:"content"`
	Status    ToolResultStatus    `json:"status"`
}

func (b *ToolResultBlock) BlockType() string { return BlockTypeToolResult }

func (b *ToolResultBlock) cloneBlock() ContentBlock {
	c := *b
	c.Content = make([]ToolResultContent, len(b.Content))
	for i, item := range b.Content {
		c.Content[i] = ToolResultContent{Text: item.Text, JSON: cloneValue(item.JSON)}
	}
	return &c
}

// NewTextResult builds a tool result holding a single text item.
func NewTextResult(toolUseID, text string, status ToolResultStatus) *ToolResultBlock {
	return &ToolResultBlock{
		ToolUseID: toolUseID,
		Content:   []ToolResultContent{{Text: text}},
		Status:    status,
	}
}

// ReasoningBlock is extended-thinking output. Signature is opaque and must be replayed verbatim.
type ReasoningBlock struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

func (b *ReasoningBlock) BlockType() string { return BlockTypeReasoning }

func (b *ReasoningBlock) cloneBlock() ContentBlock {
	c := *b
	return &c
}

// Span locates cited text inside a source document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Citation references a source supporting generated text.
type Citation struct {
	Ref  string `json:"ref"`
	Span Span   `json:"span"`
}

// CitationBlock is generated text annotated with the sources it cites.
type CitationBlock struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

func (b *CitationBlock) BlockType() string { return BlockTypeCitation }

func (b *CitationBlock) cloneBlock() ContentBlock {
	c := *b
	c.Citations = append([]Citation(nil), b.Citations...)
	return &c
}

// MarshalBlock encodes a block with its type discriminator.
func MarshalBlock(block ContentBlock) ([]byte, error) {
	data, err := json.Marshal(block)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{Type: block.BlockType(), Data: data})
}

// UnmarshalBlock decodes a block previously encoded with MarshalBlock.
func UnmarshalBlock(data []byte) (ContentBlock, error) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	var block ContentBlock
	switch envelope.Type {
	case BlockTypeText:
		block = &TextBlock{}
	case BlockTypeToolUse:
		block = &ToolUseBlock{}
	case BlockTypeToolResult:
		block = &ToolResultBlock{}
	case BlockTypeReasoning:
		block = &ReasoningBlock{}
	case BlockTypeCitation:
		block = &CitationBlock{}
	default:
		return nil, fmt.Errorf("unknown content block type: %q", envelope.Type)
	}

	if err := json.Unmarshal(envelope.Data, block); err != nil {
		return nil, err
	}
	return block, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
