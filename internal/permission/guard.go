package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/pkg/types"
)

// ShellTool is the name of the tool whose commands are checked against shell rules.
const ShellTool = "shell"

// Approver decides an ask request. It blocks until the request is answered or ctx ends.
type Approver func(ctx context.Context, req Request) (Reply, error)

// Guard checks every tool call against the configured rules before it runs. A denied
// call is cancelled, so the model receives an error result instead of the tool's output.
type Guard struct {
	tools    map[string]Action
	shell    map[string]Action
	doomLoop Action
	approver Approver
	doom     *DoomLoopDetector
	logger   zerolog.Logger

	mu       sync.Mutex
	approved map[string]bool // type + ":" + pattern
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithApprover sets the function that answers ask rules. Without one, ask means deny.
func WithApprover(fn Approver) GuardOption {
	return func(g *Guard) { g.approver = fn }
}

// NewGuard builds a guard from configured rules. Unmatched tools and commands are
// allowed; a detected doom loop defaults to ask.
func NewGuard(cfg types.PermissionConfig, opts ...GuardOption) (*Guard, error) {
	g := &Guard{
		tools:    make(map[string]Action, len(cfg.Tools)),
		shell:    make(map[string]Action, len(cfg.Shell)),
		doom:     NewDoomLoopDetector(),
		logger:   logging.Component("permission"),
		approved: make(map[string]bool),
	}
	for _, src := range []struct {
		rules map[string]string
		dst   map[string]Action
	}{{cfg.Tools, g.tools}, {cfg.Shell, g.shell}} {
		for pattern, s := range src.rules {
			action, err := ParseAction(s, ActionAsk)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pattern, err)
			}
			src.dst[pattern] = action
		}
	}
	action, err := ParseAction(cfg.DoomLoop, ActionAsk)
	if err != nil {
		return nil, fmt.Errorf("doomLoop: %w", err)
	}
	g.doomLoop = action

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// RegisterHooks implements hook.Provider.
func (g *Guard) RegisterHooks(r *hook.Registry) {
	r.OnBeforeInvocation(func(context.Context, *hook.BeforeInvocation) {
		g.doom.Reset()
	})
	r.OnBeforeToolCall(func(ctx context.Context, e *hook.BeforeToolCall) {
		if e.Cancelled() {
			return
		}
		if err := g.Check(ctx, e.ToolUseID, e.Name, e.Input); err != nil {
			g.logger.Info().Str("tool", e.Name).Str("toolUseId", e.ToolUseID).Err(err).Msg("tool call blocked")
			e.Cancel(err.Error())
		}
	})
}

// Check returns nil when the call may run, a *RejectedError when a rule or the approver
// refuses it, or the approver's error.
func (g *Guard) Check(ctx context.Context, toolUseID, name string, input map[string]any) error {
	base := Request{Tool: name, ToolUseID: toolUseID, Input: input}

	if g.doom.Check(name, input) {
		req := base
		req.Type = TypeDoomLoop
		req.Pattern = []string{name}
		req.Title = fmt.Sprintf("%s called %d times in a row with the same input", name, DoomLoopThreshold)
		if err := g.decide(ctx, req, g.doomLoop); err != nil {
			return err
		}
	}

	if action, ok := MatchTool(name, g.tools); ok {
		req := base
		req.Type = TypeTool
		req.Pattern = []string{name}
		req.Title = "run " + name
		if err := g.decide(ctx, req, action); err != nil {
			return err
		}
	}

	if name == ShellTool && len(g.shell) > 0 {
		return g.checkShell(ctx, base)
	}
	return nil
}

// checkShell applies shell rules to every command of the script. A script that does not
// parse is left to the shell tool to reject.
func (g *Guard) checkShell(ctx context.Context, base Request) error {
	script, _ := base.Input["command"].(string)
	commands, err := ParseCommands(script)
	if err != nil {
		return nil
	}

	var ask []Command
	for _, cmd := range commands {
		action, ok := MatchCommand(cmd, g.shell)
		if !ok {
			continue
		}
		switch action {
		case ActionDeny:
			req := base
			req.Type = TypeShell
			req.Pattern = []string{CommandPattern(cmd)}
			return g.decide(ctx, req, ActionDeny)
		case ActionAsk:
			ask = append(ask, cmd)
		}
	}
	if len(ask) == 0 {
		return nil
	}

	req := base
	req.Type = TypeShell
	req.Pattern = CommandPatterns(ask)
	req.Title = script
	return g.decide(ctx, req, ActionAsk)
}

func (g *Guard) decide(ctx context.Context, req Request, action Action) error {
	switch action {
	case ActionDeny:
		return g.reject(req, "denied by configuration")
	case ActionAsk:
		return g.ask(ctx, req)
	}
	return nil
}

func (g *Guard) ask(ctx context.Context, req Request) error {
	if g.isApproved(req) {
		return nil
	}
	if g.approver == nil {
		return g.reject(req, "requires approval and no approver is configured")
	}

	reply, err := g.approver(ctx, req)
	if err != nil {
		return err
	}
	switch reply {
	case ReplyOnce:
		return nil
	case ReplyAlways:
		g.approve(req)
		return nil
	}
	return g.reject(req, "rejected")
}

func (g *Guard) reject(req Request, reason string) *RejectedError {
	return &RejectedError{
		Type:      req.Type,
		Tool:      req.Tool,
		ToolUseID: req.ToolUseID,
		Message:   fmt.Sprintf("permission %s: %s (%s)", reason, req.Tool, strings.Join(req.Pattern, ", ")),
	}
}

func (g *Guard) isApproved(req Request) bool {
	if len(req.Pattern) == 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range req.Pattern {
		if !g.approved[string(req.Type)+":"+p] {
			return false
		}
	}
	return true
}

func (g *Guard) approve(req Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range req.Pattern {
		g.approved[string(req.Type)+":"+p] = true
	}
}
