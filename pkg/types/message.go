package types

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation history.
// Identity is positional within the history; ID is only an index aid.
type Message struct {
	ID      string
	Role    Role
	Content []ContentBlock
}

// NewUserMessage creates a user message holding a single text block.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{&TextBlock{Text: text}}}
}

// NewAssistantMessage creates an assistant message holding a single text block.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{&TextBlock{Text: text}}}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := Message{ID: m.ID, Role: m.Role}
	if m.Content != nil {
		out.Content = make([]ContentBlock, len(m.Content))
		for i, block := range m.Content {
			out.Content[i] = block.cloneBlock()
		}
	}
	return out
}

// ToolUses returns the tool-use blocks of the message in order.
func (m Message) ToolUses() []*ToolUseBlock {
	var uses []*ToolUseBlock
	for _, block := range m.Content {
		if tu, ok := block.(*ToolUseBlock); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}

// ToolResults returns the tool-result blocks of the message in order.
func (m Message) ToolResults() []*ToolResultBlock {
	var results []*ToolResultBlock
	for _, block := range m.Content {
		if tr, ok := block.(*ToolResultBlock); ok {
			results = append(results, tr)
		}
	}
	return results
}

func (m Message) HasToolUse() bool    { return len(m.ToolUses()) > 0 }
func (m Message) HasToolResult() bool { return len(m.ToolResults()) > 0 }

// Text concatenates all text-bearing blocks.
func (m Message) Text() string {
	var sb strings.Builder
	for _, block := range m.Content {
		switch b := block.(type) {
		case *TextBlock:
			sb.WriteString(b.Text)
		case *CitationBlock:
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// CloneMessages deep copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// MarshalJSON encodes content blocks with their type discriminators.
func (m Message) MarshalJSON() ([]byte, error) {
	content := make([]json.RawMessage, 0, len(m.Content))
	for _, block := range m.Content {
		data, err := MarshalBlock(block)
		if err != nil {
			return nil, err
		}
		content = append(content, data)
	}
	return json.Marshal(struct {
		ID      string            `json:"id,omitempty"`
		Role    Role              `json:"role"`
		Content []json.RawMessage `json:"content"`
	}{ID: m.ID, Role: m.Role, Content: content})
}

// UnmarshalJSON decodes a message produced by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID      string            `json:"id,omitempty"`
		Role    Role              `json:"role"`
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.ID = aux.ID
	m.Role = aux.Role
	m.Content = make([]ContentBlock, 0, len(aux.Content))
	for _, raw := range aux.Content {
		block, err := UnmarshalBlock(raw)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, block)
	}
	return nil
}
