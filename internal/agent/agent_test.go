package agent_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strands-agents/sdk-go/internal/agent"
	"github.com/strands-agents/sdk-go/internal/conversation"
	"github.com/strands-agents/sdk-go/internal/event"
	"github.com/strands-agents/sdk-go/internal/hook"
	"github.com/strands-agents/sdk-go/internal/provider/providertest"
	"github.com/strands-agents/sdk-go/internal/storage"
	"github.com/strands-agents/sdk-go/internal/tool"
	"github.com/strands-agents/sdk-go/pkg/types"
)

func namedTool(name string) tool.Tool {
	return tool.NewFuncTool(name, "test tool", nil, func(context.Context, map[string]any) (string, error) {
		return name, nil
	})
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := agent.New(nil)
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	a, err := agent.New(providertest.New())
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID())
	assert.Empty(t, a.Messages())
	assert.False(t, a.Busy())
	require.IsType(t, &conversation.SlidingWindow{}, a.Manager())
	assert.Equal(t, conversation.DefaultWindowSize, a.Manager().(*conversation.SlidingWindow).WindowSize())
}

func TestStream_EventOrder(t *testing.T) {
	a, err := agent.New(providertest.New(providertest.Text("hello")))
	require.NoError(t, err)

	s := a.Stream(context.Background(), "hi")
	var kinds []event.Kind
	var final *event.FinalResult
	for e := range s.Events() {
		if e.Kind() == event.KindRawChunk {
			continue
		}
		kinds = append(kinds, e.Kind())
		if f, ok := e.(event.FinalResult); ok {
			final = &f
		}
	}

	res, err := s.Wait()
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Message.Text())
	assert.Equal(t, types.StopEndTurn, res.StopReason)

	assert.Equal(t, []event.Kind{
		event.KindLoopInitialized,
		event.KindCycleStarted,
		event.KindTextDelta,
		event.KindMessageCompleted,
		event.KindCycleStopped,
		event.KindFinalResult,
	}, kinds)
	require.NotNil(t, final)
	assert.Equal(t, *res, final.Result)
}

func TestStream_CloseAbandonsInvocation(t *testing.T) {
	backend := providertest.New(providertest.Turn{Hold: true})
	a, err := agent.New(backend, agent.WithMessages(
		types.NewUserMessage("before"),
		types.NewAssistantMessage("reply"),
	))
	require.NoError(t, err)
	before := a.Messages()

	s := a.Stream(context.Background(), "hang")
	first := <-s.Events()
	assert.Equal(t, event.KindLoopInitialized, first.Kind())
	<-s.Events()

	s.Close()
	<-s.Done()

	_, err = s.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, a.Messages())
	assert.Equal(t, 1, backend.Closed())
	assert.False(t, a.Busy())

	_, open := <-s.Events()
	assert.False(t, open)
}

func TestInvoke_RejectsOverlap(t *testing.T) {
	backend := providertest.New(providertest.Turn{Hold: true})
	a, err := agent.New(backend)
	require.NoError(t, err)

	s := a.Stream(context.Background(), "first")
	<-s.Events()
	assert.True(t, a.Busy())

	_, err = a.Invoke(context.Background(), "second")
	assert.ErrorIs(t, err, agent.ErrInvocationInProgress)

	s.Close()
	assert.Equal(t, 1, backend.Calls())
}

func TestInvoke_SerializeWaits(t *testing.T) {
	backend := providertest.New(providertest.Turn{Hold: true}, providertest.Text("second answer"))
	a, err := agent.New(backend, agent.WithConcurrencyPolicy(agent.Serialize))
	require.NoError(t, err)

	first := a.Stream(context.Background(), "first")
	<-first.Events()

	second := a.Stream(context.Background(), "second")

	first.Close()
	res, err := second.Wait()
	require.NoError(t, err)
	assert.Equal(t, "second answer", res.Message.Text())

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Text())
}

func TestInvoke_SerializeGivesUpOnCancel(t *testing.T) {
	backend := providertest.New(providertest.Turn{Hold: true})
	a, err := agent.New(backend, agent.WithConcurrencyPolicy(agent.Serialize))
	require.NoError(t, err)

	first := a.Stream(context.Background(), "first")
	<-first.Events()

	ctx, cancel := context.WithCancel(context.Background())
	second := a.Stream(ctx, "second")
	cancel()
	_, err = second.Wait()
	assert.ErrorIs(t, err, context.Canceled)

	first.Close()
	assert.Equal(t, 1, backend.Calls())
}

func TestAbort(t *testing.T) {
	a, err := agent.New(providertest.New(providertest.Turn{Hold: true}))
	require.NoError(t, err)
	assert.False(t, a.Abort())

	s := a.Stream(context.Background(), "hang")
	<-s.Events()
	assert.True(t, a.Abort())

	_, err = s.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, a.Messages())
}

func TestInvocationHooks(t *testing.T) {
	hooks := hook.NewRegistry()
	var mu sync.Mutex
	var before, after []string
	var afterErr error
	hooks.OnBeforeInvocation(func(_ context.Context, e *hook.BeforeInvocation) {
		mu.Lock()
		defer mu.Unlock()
		before = append(before, e.InvocationID)
	})
	hooks.OnAfterInvocation(func(_ context.Context, e *hook.AfterInvocation) {
		mu.Lock()
		defer mu.Unlock()
		after = append(after, e.InvocationID)
		afterErr = e.Err
	})

	a, err := agent.New(providertest.New(providertest.Text("ok"), providertest.MaxTokens("cut")), agent.WithHookRegistry(hooks))
	require.NoError(t, err)
	assert.Same(t, hooks, a.Hooks())

	_, err = a.Invoke(context.Background(), "one")
	require.NoError(t, err)
	_, err = a.Invoke(context.Background(), "two")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, before, 2)
	assert.Equal(t, before, after)
	assert.NotEqual(t, before[0], before[1])
	var oe *types.OutputExhaustedError
	assert.ErrorAs(t, afterErr, &oe)
}

func TestBusMirrorsEvents(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var seen []event.Kind
	unsubscribe := bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Kind())
	})
	defer unsubscribe()

	a, err := agent.New(providertest.New(providertest.Text("ok")), agent.WithBus(bus))
	require.NoError(t, err)
	_, err = a.Invoke(context.Background(), "hi")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, event.KindFinalResult)
	assert.Equal(t, event.KindLoopInitialized, seen[0])
}

func TestWithToolFilter(t *testing.T) {
	a, err := agent.New(providertest.New(),
		agent.WithTools(namedTool("file_read"), namedTool("file_write"), namedTool("shell")),
		agent.WithToolFilter("file_*"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"file_read", "file_write"}, a.Tools().Names())
}

func TestSnapshotRoundTrip(t *testing.T) {
	backend := providertest.New(providertest.Text("a0"), providertest.Text("a1"))
	a, err := agent.New(backend, agent.WithConversationManager(conversation.NewSlidingWindow(2, true)))
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "q0")
	require.NoError(t, err)
	_, err = a.Invoke(context.Background(), "q1")
	require.NoError(t, err)

	snap := a.Snapshot()
	assert.Equal(t, a.ID(), snap.ID)
	assert.Equal(t, types.ManagerSlidingWindow, snap.Manager.Name)
	assert.Equal(t, 2, snap.Manager.RemovedMessageCount)

	restored, err := agent.New(providertest.New(), agent.WithConversationManager(conversation.NewSlidingWindow(2, true)))
	require.NoError(t, err)
	require.NoError(t, restored.RestoreSnapshot(snap))
	assert.Equal(t, a.Messages(), restored.Messages())
	assert.Equal(t, 2, restored.Manager().(*conversation.SlidingWindow).RemovedMessageCount())
}

func TestRestoreSnapshot_ManagerMismatch(t *testing.T) {
	a, err := agent.New(providertest.New(), agent.WithConversationManager(conversation.NewNull()))
	require.NoError(t, err)

	err = a.RestoreSnapshot(types.SessionSnapshot{
		Messages: []types.Message{types.NewUserMessage("x")},
		Manager:  types.ManagerState{Name: types.ManagerSlidingWindow},
	})
	assert.Error(t, err)
	assert.Empty(t, a.Messages())
}

func TestRestoreSnapshot_WhileBusy(t *testing.T) {
	a, err := agent.New(providertest.New(providertest.Turn{Hold: true}))
	require.NoError(t, err)

	s := a.Stream(context.Background(), "hang")
	<-s.Events()
	assert.ErrorIs(t, a.RestoreSnapshot(a.Snapshot()), agent.ErrInvocationInProgress)
	s.Close()
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	sessions := agent.NewSessionStore(storage.New(t.TempDir()))

	ids, err := sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = sessions.Load(ctx, "missing")
	assert.ErrorIs(t, err, agent.ErrSessionNotFound)

	assert.Error(t, sessions.Save(ctx, types.SessionSnapshot{}))

	snap := types.SessionSnapshot{
		ID:       "s1",
		Messages: []types.Message{types.NewUserMessage("hello")},
		Manager:  types.ManagerState{Name: types.ManagerNull},
	}
	require.NoError(t, sessions.Save(ctx, snap))

	first, err := sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotZero(t, first.Time.Created)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, "hello", first.Messages[0].Text())

	require.NoError(t, sessions.Save(ctx, types.SessionSnapshot{ID: "s1", Manager: snap.Manager}))
	second, err := sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, first.Time.Created, second.Time.Created)
	assert.GreaterOrEqual(t, second.Time.Updated, first.Time.Updated)
	assert.NotNil(t, second.Messages)
	assert.Empty(t, second.Messages)

	require.NoError(t, sessions.Save(ctx, types.SessionSnapshot{ID: "s0"}))
	ids, err = sessions.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0", "s1"}, ids)

	require.NoError(t, sessions.Delete(ctx, "s1"))
	_, err = sessions.Load(ctx, "s1")
	assert.ErrorIs(t, err, agent.ErrSessionNotFound)
}

func TestLoadSession(t *testing.T) {
	ctx := context.Background()
	sessions := agent.NewSessionStore(storage.New(t.TempDir()))

	a, err := agent.New(providertest.New(providertest.Text("remembered")),
		agent.WithID("s1"),
		agent.WithSessionStore(sessions),
	)
	require.NoError(t, err)
	_, err = a.Invoke(ctx, "remember this")
	require.NoError(t, err)

	resumed, err := agent.New(providertest.New(), agent.WithID("s1"), agent.WithSessionStore(sessions))
	require.NoError(t, err)
	found, err := resumed.LoadSession(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, a.Messages(), resumed.Messages())

	fresh, err := agent.New(providertest.New(), agent.WithID("s2"), agent.WithSessionStore(sessions))
	require.NoError(t, err)
	found, err = fresh.LoadSession(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	bare, err := agent.New(providertest.New())
	require.NoError(t, err)
	_, err = bare.LoadSession(ctx)
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	backend := providertest.New(providertest.Text("ok"))
	opts, err := agent.ConfigOptions(&types.Config{
		SystemPrompt: "be brief",
		MaxTokens:    512,
		Conversation: &types.ConversationConfig{Manager: types.ManagerNull},
		Tools:        []string{"calc*"},
	}, backend)
	require.NoError(t, err)

	opts = append(opts, agent.WithTools(namedTool("calculator"), namedTool("shell")))
	a, err := agent.New(backend, opts...)
	require.NoError(t, err)

	assert.Equal(t, types.ManagerNull, a.Manager().Name())
	assert.Equal(t, []string{"calculator"}, a.Tools().Names())

	_, err = a.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	req := backend.Requests()[0]
	assert.Equal(t, "be brief", req.SystemPrompt)
	assert.Equal(t, 512, req.Config.MaxTokens)
}

func TestConfigOptions_PermissionGuard(t *testing.T) {
	backend := providertest.New(
		providertest.ToolCall("t1", "shell", `{"command": "rm -rf build"}`),
		providertest.Text("gave up"),
	)
	opts, err := agent.ConfigOptions(&types.Config{
		Permission: &types.PermissionConfig{Shell: map[string]string{"rm *": types.PermissionDeny}},
	}, backend)
	require.NoError(t, err)

	opts = append(opts, agent.WithTools(namedTool("shell")))
	a, err := agent.New(backend, opts...)
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "clean up")
	require.NoError(t, err)

	results := a.Messages()[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, types.ToolResultError, results[0].Status)
	assert.Contains(t, results[0].Content[0].Text, "rm *")
}

func TestConfigOptions_Errors(t *testing.T) {
	opts, err := agent.ConfigOptions(nil, providertest.New())
	require.NoError(t, err)
	assert.Empty(t, opts)

	_, err = agent.ConfigOptions(&types.Config{
		Conversation: &types.ConversationConfig{Manager: "lru"},
	}, providertest.New())
	assert.Error(t, err)

	_, err = agent.ConfigOptions(&types.Config{
		Permission: &types.PermissionConfig{DoomLoop: "sometimes"},
	}, providertest.New())
	assert.Error(t, err)
}
