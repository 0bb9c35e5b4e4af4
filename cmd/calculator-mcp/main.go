// Command calculator-mcp runs the calculator MCP server over stdio.
package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/strands-agents/sdk-go/pkg/mcpserver/calculator"
)

func main() {
	if err := server.ServeStdio(calculator.NewServer()); err != nil {
		log.Fatal(err)
	}
}
