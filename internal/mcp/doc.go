// Package mcp connects to Model Context Protocol servers with the official MCP Go SDK and
// exposes their tools to the agent's tool registry.
//
// Servers are configured through types.MCPConfig. Local servers run as a subprocess over
// stdio; remote servers are reached over streamable HTTP, falling back to SSE.
//
//	client := mcp.NewClient()
//	defer client.Close()
//
//	err := client.AddServer(ctx, "calc", types.MCPConfig{
//		Type:    mcp.TransportTypeLocal,
//		Command: []string{"calculator-mcp"},
//	})
//
//	mcp.RegisterTools(client, registry) // registers calc_add, calc_divide, ...
//
// Tool names are prefixed with the sanitized server name. A call result flagged IsError by
// the server becomes a tool result with error status; it never fails the cycle.
package mcp
