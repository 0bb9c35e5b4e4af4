// Package tool provides the tool framework used by the event loop to execute tool uses.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/strands-agents/sdk-go/internal/provider"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// Tool defines the interface for all tools.
type Tool interface {
	// Spec returns the name, description and input schema sent to the model.
	Spec() types.ToolSpec

	// Invoke runs the tool for one tool use. A returned error becomes a failed tool result.
	Invoke(ctx context.Context, use *types.ToolUseBlock) (*types.ToolResultBlock, error)
}

// Func is the body of a FuncTool.
type Func func(ctx context.Context, input map[string]any) (string, error)

// FuncTool adapts a plain Go function to Tool.
type FuncTool struct {
	spec types.ToolSpec
	fn   Func
}

// NewFuncTool creates a tool from fn. inputSchema may be nil for tools without parameters.
func NewFuncTool(name, description string, inputSchema json.RawMessage, fn Func) *FuncTool {
	if inputSchema == nil {
		inputSchema = json.RawMessage(`{"type": "object", "properties": {}}`)
	}
	return &FuncTool{
		spec: types.ToolSpec{Name: name, Description: description, InputSchema: inputSchema},
		fn:   fn,
	}
}

func (t *FuncTool) Spec() types.ToolSpec { return t.spec }

func (t *FuncTool) Invoke(ctx context.Context, use *types.ToolUseBlock) (*types.ToolResultBlock, error) {
	out, err := t.fn(ctx, use.Input)
	if err != nil {
		return nil, err
	}
	return types.NewTextResult(use.ToolUseID, out, types.ToolResultSuccess), nil
}

// TypedFunc is the body of a tool whose input decodes into In.
type TypedFunc[In any] func(ctx context.Context, input In) (*types.ToolResultBlock, error)

type typedTool[In any] struct {
	spec types.ToolSpec
	fn   TypedFunc[In]
}

// NewTypedTool creates a tool that decodes the tool-use input into In before calling fn.
func NewTypedTool[In any](name, description string, inputSchema json.RawMessage, fn TypedFunc[In]) Tool {
	return &typedTool[In]{
		spec: types.ToolSpec{Name: name, Description: description, InputSchema: inputSchema},
		fn:   fn,
	}
}

func (t *typedTool[In]) Spec() types.ToolSpec { return t.spec }

func (t *typedTool[In]) Invoke(ctx context.Context, use *types.ToolUseBlock) (*types.ToolResultBlock, error) {
	var in In
	if err := DecodeInput(use.Input, &in); err != nil {
		return nil, err
	}
	res, err := t.fn(ctx, in)
	if err != nil {
		return nil, err
	}
	res.ToolUseID = use.ToolUseID
	return res, nil
}

// DecodeInput converts a parsed tool input into a typed struct.
func DecodeInput(input map[string]any, v any) error {
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}

// Success builds a successful text result. The executor fills in the tool use ID.
func Success(text string) *types.ToolResultBlock {
	return types.NewTextResult("", text, types.ToolResultSuccess)
}

// Failure builds a failed text result.
func Failure(text string) *types.ToolResultBlock {
	return types.NewTextResult("", text, types.ToolResultError)
}

// EinoTool exposes t as an eino InvokableTool, for use in eino graphs and agents.
func EinoTool(t Tool) einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// einoToolWrapper wraps a Tool to implement Eino's InvokableTool interface.
type einoToolWrapper struct {
	tool Tool
}

// Info returns the tool information.
func (w *einoToolWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	infos := provider.ConvertToEinoTools([]types.ToolSpec{w.tool.Spec()})
	return infos[0], nil
}

// InvokableRun executes the tool and flattens its result to text.
func (w *einoToolWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	input := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &input); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}

	result, err := w.tool.Invoke(ctx, &types.ToolUseBlock{Name: w.tool.Spec().Name, Input: input})
	if err != nil {
		return "", err
	}
	text := resultText(result)
	if result.Status == types.ToolResultError {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}

func resultText(r *types.ToolResultBlock) string {
	var sb strings.Builder
	for i, c := range r.Content {
		if i > 0 {
			sb.WriteString("\n")
		}
		if c.JSON != nil {
			data, _ := json.Marshal(c.JSON)
			sb.Write(data)
			continue
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}
