package agent

import (
	"context"
	"sync"

	"github.com/strands-agents/sdk-go/internal/event"
)

// Stream is the live event sequence of one invocation. It is single-pass: events are
// delivered once, in order, and the channel closes when the invocation ends.
type Stream struct {
	events chan event.Event
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	result *Result
	err    error
}

func newStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		events: make(chan event.Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (s *Stream) finish(res *Result, err error) {
	s.once.Do(func() {
		s.result, s.err = res, err
		close(s.events)
		close(s.done)
	})
}

// Events returns the event channel. It is closed after the last event.
func (s *Stream) Events() <-chan event.Event { return s.events }

// Done is closed when the invocation has ended.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Wait discards any undelivered events, waits for the invocation to end and returns its
// outcome.
func (s *Stream) Wait() (*Result, error) {
	for range s.events {
	}
	<-s.done
	return s.result, s.err
}

// Close abandons the invocation and waits for it to stop. The backend connection and any
// pending retry timer are released, and the history is left as it was before the
// interrupted cycle.
func (s *Stream) Close() {
	s.cancel()
	s.Wait()
}
