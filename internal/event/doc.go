/*
Package event defines the typed events produced by an agent invocation and the plumbing
that delivers them.

# Event Kinds

Every invocation yields one ordered, single-pass sequence:

  - loop.initialized: invocation accepted
  - cycle.started: a model round begins
  - chunk.received: raw backend chunk
  - delta.text, delta.toolInput, delta.reasoning, delta.citation: streamed content
  - throttle.notice: a throttled call will be retried after a delay
  - context.reduced: the conversation manager shrank the history after an overflow
  - message.completed: assistant message appended to the history
  - toolResults.completed: tool-result message appended to the history
  - cycle.stopped: the last cycle ended with a non-tool stop reason
  - result.final: aggregate result, always last on success

Within a cycle, deltas of a block precede message.completed, and message.completed
precedes the next cycle.started.

# Projector

A Projector writes events to the caller's channel, blocking until the consumer takes each
one or the invocation context is cancelled. Nothing is buffered beyond the channel.

# Bus

Bus mirrors projected events to observers. Direct subscribers get typed events:

	unsub := bus.Subscribe(event.KindTextDelta, func(e event.Event) {
	    fmt.Print(e.(event.TextDelta).Text)
	})
	defer unsub()

Stream consumers get {"type":kind,"data":payload} JSON through a watermill gochannel
topic, which the HTTP server relays as server-sent events.
*/
package event
