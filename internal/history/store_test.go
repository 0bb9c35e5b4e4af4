package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strands-agents/sdk-go/pkg/types"
)

func toolUse(id string) types.Message {
	return types.Message{Role: types.RoleAssistant, Content: []types.ContentBlock{
		&types.ToolUseBlock{ToolUseID: id, Name: "calc", Input: map[string]any{}},
	}}
}

func toolResult(id string) types.Message {
	return types.Message{Role: types.RoleUser, Content: []types.ContentBlock{
		types.NewTextResult(id, "ok", types.ToolResultSuccess),
	}}
}

func TestStore_AppendAssignsIDAndCopies(t *testing.T) {
	s := New()
	msg := types.NewUserMessage("hi")

	stored := s.Append(msg)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, 1, s.Len())

	// Mutating the caller's copy must not reach the store.
	msg.Content[0].(*types.TextBlock).Text = "changed"
	got := s.Messages()
	assert.Equal(t, "hi", got[0].Text())

	got[0].Content[0].(*types.TextBlock).Text = "changed again"
	assert.Equal(t, "hi", s.Messages()[0].Text())
}

func TestStore_SnapshotRestore(t *testing.T) {
	s := New(types.NewUserMessage("a"), types.NewAssistantMessage("b"))
	snap := s.Snapshot()

	s.Append(types.NewUserMessage("c"))
	s.Update(func(msgs []types.Message) []types.Message { return msgs[2:] })
	require.Equal(t, 1, s.Len())

	s.Restore(snap)
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Text())
	assert.Equal(t, "b", msgs[1].Text())
}

func TestStore_LastEmpty(t *testing.T) {
	_, err := New().Last()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestValidBoundary(t *testing.T) {
	msgs := []types.Message{
		types.NewUserMessage("q"),
		toolUse("t1"),
		toolResult("t1"),
		types.NewAssistantMessage("a"),
	}

	tests := []struct {
		name     string
		boundary int
		want     bool
	}{
		{"keep all", 0, true},
		{"drop prompt", 1, true},
		{"split pair", 2, false},
		{"drop whole pair", 3, true},
		{"drop all", 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidBoundary(msgs, tt.boundary))
		})
	}
}

func TestOrphans(t *testing.T) {
	t.Run("paired history", func(t *testing.T) {
		uses, results := Orphans([]types.Message{toolUse("t1"), toolResult("t1")})
		assert.Empty(t, uses)
		assert.Empty(t, results)
	})

	t.Run("stranded result", func(t *testing.T) {
		uses, results := Orphans([]types.Message{toolResult("t1"), types.NewAssistantMessage("a")})
		assert.Empty(t, uses)
		assert.Equal(t, []string{"t1"}, results)
	})

	t.Run("stranded use", func(t *testing.T) {
		uses, _ := Orphans([]types.Message{toolUse("t1"), types.NewUserMessage("q"), types.NewAssistantMessage("a")})
		assert.Equal(t, []string{"t1"}, uses)
	})

	t.Run("pending trailing use", func(t *testing.T) {
		uses, results := Orphans([]types.Message{types.NewUserMessage("q"), toolUse("t1")})
		assert.Empty(t, uses)
		assert.Empty(t, results)
	})
}
