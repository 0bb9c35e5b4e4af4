package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/strands-agents/sdk-go/pkg/types"
)

const (
	DefaultShellTimeout = 120 * time.Second
	MaxShellTimeout     = 10 * time.Minute
	MaxOutputLength     = 30000
)

const shellDescription = `Executes a shell command and returns its combined output.

Usage:
- command is required
- Optional timeout in milliseconds (max 600000)
- Commands run in an embedded POSIX shell rooted at the working directory
- A non-zero exit status is reported as a failed result`

var shellSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {
			"type": "string",
			"description": "The command to execute"
		},
		"timeout": {
			"type": "integer",
			"description": "Optional timeout in milliseconds (max 600000)"
		}
	},
	"required": ["command"]
}`)

// ShellInput represents the input for the shell tool.
type ShellInput struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// NewShellTool creates the shell tool. Commands are interpreted in-process, so the tool
// behaves the same on every platform.
func NewShellTool(workDir string) Tool {
	return NewTypedTool("shell", shellDescription, shellSchema, func(ctx context.Context, in ShellInput) (*types.ToolResultBlock, error) {
		return runShell(ctx, workDir, in)
	})
}

func runShell(ctx context.Context, workDir string, in ShellInput) (*types.ToolResultBlock, error) {
	if strings.TrimSpace(in.Command) == "" {
		return nil, fmt.Errorf("command is required")
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(in.Command), "")
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}

	timeout := DefaultShellTimeout
	if in.Timeout > 0 {
		timeout = min(time.Duration(in.Timeout)*time.Millisecond, MaxShellTimeout)
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	opts := []interp.RunnerOption{
		interp.StdIO(nil, &out, &out),
		interp.Env(expand.ListEnviron(os.Environ()...)),
	}
	if workDir != "" {
		opts = append(opts, interp.Dir(workDir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create shell: %w", err)
	}

	runErr := runner.Run(cmdCtx, file)

	output := out.String()
	if len(output) > MaxOutputLength {
		output = output[:MaxOutputLength] + "\n\n(Output truncated)"
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return Failure(output + fmt.Sprintf("\n\n(Command timed out after %v)", timeout)), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var status interp.ExitStatus
	switch {
	case runErr == nil:
		return Success(output), nil
	case errors.As(runErr, &status):
		return Failure(fmt.Sprintf("%s\n\n(Exit status %d)", output, uint8(status))), nil
	default:
		return nil, runErr
	}
}
