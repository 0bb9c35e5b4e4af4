package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/pkg/types"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []Command
	}{
		{"simple", "ls -la", []Command{{Name: "ls", Args: []string{"-la"}}}},
		{"no args", "pwd", []Command{{Name: "pwd"}}},
		{"pipeline", "cat f | grep x", []Command{
			{Name: "cat", Args: []string{"f"}, Subcommand: "f"},
			{Name: "grep", Args: []string{"x"}, Subcommand: "x"},
		}},
		{"chain", "cd src && git commit -m 'fix bug'", []Command{
			{Name: "cd", Args: []string{"src"}, Subcommand: "src"},
			{Name: "git", Args: []string{"commit", "-m", "fix bug"}, Subcommand: "commit"},
		}},
		{"subshell", "(rm -rf tmp)", []Command{{Name: "rm", Args: []string{"-rf", "tmp"}, Subcommand: "tmp"}}},
		{"expansion", "echo $HOME", []Command{{Name: "echo", Args: []string{"$HOME"}, Subcommand: "$HOME"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommands(tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommands_Invalid(t *testing.T) {
	_, err := ParseCommands("echo 'unterminated")
	assert.Error(t, err)
}

func TestMatchCommand(t *testing.T) {
	rules := map[string]Action{
		"git *":         ActionAllow,
		"git push *":    ActionAsk,
		"rm *":          ActionDeny,
		"pwd":           ActionAllow,
		"npm install *": ActionAsk,
	}

	tests := []struct {
		cmd    Command
		want   Action
		wantOK bool
	}{
		{Command{Name: "git", Subcommand: "status"}, ActionAllow, true},
		{Command{Name: "git", Subcommand: "push"}, ActionAsk, true},
		{Command{Name: "rm", Subcommand: "x"}, ActionDeny, true},
		{Command{Name: "pwd"}, ActionAllow, true},
		{Command{Name: "ls"}, "", false},
	}
	for _, tt := range tests {
		got, ok := MatchCommand(tt.cmd, rules)
		assert.Equal(t, tt.wantOK, ok, tt.cmd.Name)
		assert.Equal(t, tt.want, got, tt.cmd.Name)
	}

	rules["*"] = ActionAsk
	got, ok := MatchCommand(Command{Name: "ls"}, rules)
	assert.True(t, ok)
	assert.Equal(t, ActionAsk, got)
}

func TestCommandPatterns(t *testing.T) {
	cmds := []Command{
		{Name: "cd", Subcommand: "src"},
		{Name: "git", Subcommand: "commit"},
		{Name: "ls"},
		{Name: "git", Subcommand: "commit"},
	}
	assert.Equal(t, []string{"git commit *", "ls *"}, CommandPatterns(cmds))
}

func TestMatchTool(t *testing.T) {
	rules := map[string]Action{
		"file_*":     ActionAsk,
		"file_read":  ActionAllow,
		"mcp_**":     ActionDeny,
		"mcp_calc_*": ActionAllow,
	}

	for name, want := range map[string]Action{
		"file_read":    ActionAllow,
		"file_write":   ActionAsk,
		"mcp_calc_add": ActionAllow,
		"mcp_web_get":  ActionDeny,
	} {
		got, ok := MatchTool(name, rules)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := MatchTool("shell", rules)
	assert.False(t, ok)
}

func TestDoomLoopDetector(t *testing.T) {
	d := NewDoomLoopDetector()
	input := map[string]any{"path": "a.txt"}

	assert.False(t, d.Check("file_read", input))
	assert.False(t, d.Check("file_read", input))
	assert.True(t, d.Check("file_read", input))
	assert.True(t, d.Check("file_read", input))

	assert.False(t, d.Check("file_read", map[string]any{"path": "b.txt"}))
	assert.False(t, d.Check("shell", input))

	d.Reset()
	assert.False(t, d.Check("file_read", input))
	assert.False(t, d.Check("file_read", input))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("", ActionAsk)
	require.NoError(t, err)
	assert.Equal(t, ActionAsk, a)

	a, err = ParseAction("deny", ActionAsk)
	require.NoError(t, err)
	assert.Equal(t, ActionDeny, a)

	_, err = ParseAction("maybe", ActionAsk)
	assert.Error(t, err)
}

func TestNewGuard_InvalidAction(t *testing.T) {
	_, err := NewGuard(types.PermissionConfig{Tools: map[string]string{"shell": "perhaps"}})
	assert.Error(t, err)
	_, err = NewGuard(types.PermissionConfig{DoomLoop: "never"})
	assert.Error(t, err)
}

func TestGuard_ToolRules(t *testing.T) {
	g, err := NewGuard(types.PermissionConfig{Tools: map[string]string{
		"file_write": "deny",
		"http_*":     "ask",
	}})
	require.NoError(t, err)
	ctx := context.Background()

	err = g.Check(ctx, "t1", "file_write", map[string]any{"path": "x"})
	require.Error(t, err)
	assert.True(t, IsRejectedError(err))
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, TypeTool, rejected.Type)
	assert.Equal(t, "t1", rejected.ToolUseID)

	// ask without an approver denies
	assert.True(t, IsRejectedError(g.Check(ctx, "t2", "http_request", nil)))

	assert.NoError(t, g.Check(ctx, "t3", "file_read", map[string]any{"path": "x"}))
}

func TestGuard_ShellRules(t *testing.T) {
	var asked []Request
	g, err := NewGuard(types.PermissionConfig{Shell: map[string]string{
		"rm *":       "deny",
		"git push *": "ask",
		"git *":      "allow",
	}}, WithApprover(func(_ context.Context, req Request) (Reply, error) {
		asked = append(asked, req)
		return ReplyOnce, nil
	}))
	require.NoError(t, err)
	ctx := context.Background()
	shell := func(script string) error {
		return g.Check(ctx, "", ShellTool, map[string]any{"command": script})
	}

	assert.NoError(t, shell("git status && ls"))
	assert.Empty(t, asked)

	err = shell("git add . && rm -rf build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rm *")

	assert.NoError(t, shell("git push origin main"))
	require.Len(t, asked, 1)
	assert.Equal(t, TypeShell, asked[0].Type)
	assert.Equal(t, []string{"git push *"}, asked[0].Pattern)

	// other tools ignore shell rules, and unparsable scripts are left to the tool
	assert.NoError(t, g.Check(ctx, "", "file_read", map[string]any{"command": "rm -rf /"}))
	assert.NoError(t, shell("echo 'unterminated"))
}

func TestGuard_ApproverReplies(t *testing.T) {
	replies := []Reply{ReplyAlways, ReplyReject}
	calls := 0
	g, err := NewGuard(types.PermissionConfig{Tools: map[string]string{"shell": "ask"}},
		WithApprover(func(context.Context, Request) (Reply, error) {
			r := replies[calls]
			calls++
			return r, nil
		}))
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, g.Check(ctx, "", "shell", map[string]any{"command": "ls"}))
	assert.NoError(t, g.Check(ctx, "", "shell", map[string]any{"command": "pwd"}))
	assert.Equal(t, 1, calls, "always approval is remembered")

	g2, err := NewGuard(types.PermissionConfig{Tools: map[string]string{"editor": "ask"}},
		WithApprover(func(context.Context, Request) (Reply, error) { return ReplyReject, nil }))
	require.NoError(t, err)
	assert.True(t, IsRejectedError(g2.Check(ctx, "", "editor", nil)))

	g3, err := NewGuard(types.PermissionConfig{Tools: map[string]string{"editor": "ask"}},
		WithApprover(func(ctx context.Context, _ Request) (Reply, error) { return "", context.Canceled }))
	require.NoError(t, err)
	assert.ErrorIs(t, g3.Check(ctx, "", "editor", nil), context.Canceled)
}

func TestGuard_DoomLoop(t *testing.T) {
	g, err := NewGuard(types.PermissionConfig{})
	require.NoError(t, err)
	ctx := context.Background()
	input := map[string]any{"path": "same.txt"}

	require.NoError(t, g.Check(ctx, "1", "file_read", input))
	require.NoError(t, g.Check(ctx, "2", "file_read", input))
	err = g.Check(ctx, "3", "file_read", input)
	require.Error(t, err)
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, TypeDoomLoop, rejected.Type)

	allow, err := NewGuard(types.PermissionConfig{DoomLoop: "allow"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.NoError(t, allow.Check(ctx, "", "file_read", input))
	}
}

func TestGuard_Hooks(t *testing.T) {
	g, err := NewGuard(types.PermissionConfig{Tools: map[string]string{"shell": "deny"}})
	require.NoError(t, err)
	reg := hook.NewRegistry(g)
	ctx := context.Background()

	denied := &hook.BeforeToolCall{ToolUseID: "t1", Name: "shell", Input: map[string]any{"command": "ls"}}
	reg.FireBeforeToolCall(ctx, denied)
	assert.True(t, denied.Cancelled())
	assert.Contains(t, denied.CancelMessage, "denied")

	allowed := &hook.BeforeToolCall{ToolUseID: "t2", Name: "file_read", Input: map[string]any{"path": "a"}}
	reg.FireBeforeToolCall(ctx, allowed)
	assert.False(t, allowed.Cancelled())

	// a new invocation forgets earlier calls
	for i := 0; i < 2; i++ {
		reg.FireBeforeToolCall(ctx, &hook.BeforeToolCall{Name: "file_read", Input: map[string]any{"path": "a"}})
	}
	reg.FireBeforeInvocation(ctx, &hook.BeforeInvocation{})
	again := &hook.BeforeToolCall{Name: "file_read", Input: map[string]any{"path": "a"}}
	reg.FireBeforeToolCall(ctx, again)
	assert.False(t, again.Cancelled())
}
