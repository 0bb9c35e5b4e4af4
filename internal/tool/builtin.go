package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strands-agents/sdk-go/pkg/types"
)

var currentTimeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"timezone": {"type": "string", "description": "IANA zone name, default UTC"}
	}
}`)

// CurrentTimeInput represents the input for the current_time tool.
type CurrentTimeInput struct {
	Timezone string `json:"timezone,omitempty"`
}

// now is replaced in tests.
var now = time.Now

// NewCurrentTimeTool creates the current_time tool.
func NewCurrentTimeTool() Tool {
	return NewTypedTool("current_time", "Returns the current time in RFC 3339 format.", currentTimeSchema,
		func(ctx context.Context, in CurrentTimeInput) (*types.ToolResultBlock, error) {
			zone := in.Timezone
			if zone == "" {
				zone = "UTC"
			}
			loc, err := time.LoadLocation(zone)
			if err != nil {
				return nil, fmt.Errorf("unknown timezone %q", zone)
			}
			return Success(now().In(loc).Format(time.RFC3339)), nil
		})
}

// Builtins returns the built-in tool set rooted at workDir.
func Builtins(workDir string) []Tool {
	return []Tool{
		NewCurrentTimeTool(),
		NewFileReadTool(workDir),
		NewFileWriteTool(workDir),
		NewEditorTool(workDir),
		NewShellTool(workDir),
		NewHTTPRequestTool(nil),
	}
}

// DefaultRegistry creates a registry holding the built-in tools.
func DefaultRegistry(workDir string) *Registry {
	return NewRegistry(Builtins(workDir)...)
}
