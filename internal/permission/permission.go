package permission

import (
	"errors"
	"fmt"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// Action is the outcome a rule assigns to a tool call.
type Action string

const (
	ActionAllow Action = types.PermissionAllow
	ActionDeny  Action = types.PermissionDeny
	ActionAsk   Action = types.PermissionAsk
)

// ParseAction converts a configured action. The empty string yields def.
func ParseAction(s string, def Action) (Action, error) {
	switch Action(s) {
	case "":
		return def, nil
	case ActionAllow, ActionDeny, ActionAsk:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown permission action %q", s)
}

// Type classifies what a permission request is about.
type Type string

const (
	TypeTool     Type = "tool"
	TypeShell    Type = "shell"
	TypeDoomLoop Type = "doom_loop"
)

// Request describes a tool call that needs approval.
type Request struct {
	Type      Type           `json:"type"`
	Tool      string         `json:"tool"`
	ToolUseID string         `json:"toolUseId,omitempty"`
	Pattern   []string       `json:"pattern,omitempty"`
	Title     string         `json:"title"`
	Input     map[string]any `json:"input,omitempty"`
}

// Reply is an approver's answer to a Request.
type Reply string

const (
	ReplyOnce   Reply = "once"
	ReplyAlways Reply = "always"
	ReplyReject Reply = "reject"
)

// RejectedError is returned when a tool call is denied.
type RejectedError struct {
	Type      Type
	Tool      string
	ToolUseID string
	Message   string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// IsRejectedError checks if an error is a permission rejection.
func IsRejectedError(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}
