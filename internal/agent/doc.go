// Package agent is the public facade of the runtime.
//
// An Agent owns a conversation history, a conversation manager and a tool registry, and
// runs invocations through the event loop:
//
//	a, err := agent.New(backend,
//		agent.WithSystemPrompt("You are terse."),
//		agent.WithTools(tool.Builtins(".")...),
//		agent.WithConversationManager(conversation.NewSlidingWindow(20, true)),
//	)
//	res, err := a.Invoke(ctx, "What time is it in Tokyo?")
//
// # Streaming
//
// Stream returns a live, single-pass sequence of typed events produced by a goroutine as
// the invocation progresses. The producer blocks until the consumer takes each event.
// Close abandons the invocation: the backend stream and any retry timer are released and
// the history is rolled back to the start of the interrupted cycle. Wait drains the
// remaining events and returns the result; Invoke is Stream followed by Wait.
//
// # Concurrency
//
// The history is never mutated by two invocations at once. Under the Reject policy (the
// default) an overlapping invocation fails with ErrInvocationInProgress; under Serialize it
// waits for the running one.
//
// # Persistence
//
// Snapshot captures the messages together with the conversation manager's variant and
// state, which is enough to resume bounding decisions after a restart. A SessionStore
// keeps snapshots as JSON documents on disk.
package agent
