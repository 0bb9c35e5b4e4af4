package mcp

import (
	"context"
	"sort"

	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// serverTool exposes one MCP server tool as a tool.Tool. Its name is the sanitized server
// name and tool name joined by an underscore.
type serverTool struct {
	client *Client
	server string
	info   ToolInfo
	name   string
}

func (t *serverTool) Spec() types.ToolSpec {
	return types.ToolSpec{
		Name:        t.name,
		Description: t.info.Description,
		InputSchema: t.info.InputSchema,
	}
}

func (t *serverTool) Invoke(ctx context.Context, use *types.ToolUseBlock) (*types.ToolResultBlock, error) {
	res, err := t.client.CallTool(ctx, t.server, t.info.Name, use.Input)
	if err != nil {
		return nil, err
	}
	res.ToolUseID = use.ToolUseID
	return res, nil
}

// Tools returns the tools of every connected server, ordered by server then tool name.
func (c *Client) Tools() []tool.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var tools []tool.Tool
	for _, name := range names {
		server := c.servers[name]
		if server.status != StatusConnected {
			continue
		}
		for _, info := range server.tools {
			tools = append(tools, &serverTool{
				client: c,
				server: name,
				info:   info,
				name:   sanitizeToolName(name) + "_" + sanitizeToolName(info.Name),
			})
		}
	}
	return tools
}

// RegisterTools registers the tools of all connected servers into registry.
func RegisterTools(client *Client, registry *tool.Registry) int {
	if client == nil || registry == nil {
		return 0
	}
	tools := client.Tools()
	for _, t := range tools {
		registry.Register(t)
	}
	return len(tools)
}
