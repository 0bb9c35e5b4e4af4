// Package calculator provides a small MCP server exposing arithmetic tools. It backs the
// calculator-mcp command and the MCP client tests.
package calculator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates the calculator MCP server.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"calculator",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	for _, op := range []struct {
		name, desc string
		fn         func(a, b float64) (float64, error)
	}{
		{"add", "Adds b to a", func(a, b float64) (float64, error) { return a + b, nil }},
		{"subtract", "Subtracts b from a", func(a, b float64) (float64, error) { return a - b, nil }},
		{"multiply", "Multiplies a by b", func(a, b float64) (float64, error) { return a * b, nil }},
		{"divide", "Divides a by b", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return a / b, nil
		}},
	} {
		tool := mcp.NewTool(op.name,
			mcp.WithDescription(op.desc),
			mcp.WithNumber("a", mcp.Required(), mcp.Description("Left operand")),
			mcp.WithNumber("b", mcp.Required(), mcp.Description("Right operand")),
		)
		s.AddTool(tool, binaryHandler(op.fn))
	}

	sumTool := mcp.NewTool("sum",
		mcp.WithDescription("Calculates the sum of an array of numbers"),
		mcp.WithArray("numbers",
			mcp.Required(),
			mcp.Description("Array of numbers to sum"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	)
	s.AddTool(sumTool, sumHandler)

	return s
}

func binaryHandler(fn func(a, b float64) (float64, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, err := request.RequireFloat("a")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		b, err := request.RequireFloat("b")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, err := fn(a, b)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatFloat(v)), nil
	}
}

func sumHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	numbersArg, ok := request.GetArguments()["numbers"]
	if !ok {
		return mcp.NewToolResultError("numbers argument is required"), nil
	}

	var sum float64
	switch arr := numbersArg.(type) {
	case []float64:
		for _, n := range arr {
			sum += n
		}
	case []any:
		for i, elem := range arr {
			n, ok := elem.(float64)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("invalid numbers: element %d is not a number: %T", i, elem)), nil
			}
			sum += n
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid numbers: expected array, got %T", numbersArg)), nil
	}
	return mcp.NewToolResultText(formatFloat(sum)), nil
}

// formatFloat formats f without trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
