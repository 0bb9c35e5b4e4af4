package event

import (
	"context"

	"github.com/strands-agents/sdk-go/internal/streaming"
)

// Projector delivers events to the caller in arrival order and mirrors them to a bus.
//
// Emit blocks until the consumer takes the event or ctx is done, so the producer never
// runs ahead of the consumer by more than the channel capacity.
type Projector struct {
	ctx context.Context
	out chan<- Event
	bus *Bus
}

// NewProjector creates a projector writing to out. out and bus may be nil.
func NewProjector(ctx context.Context, out chan<- Event, bus *Bus) *Projector {
	return &Projector{ctx: ctx, out: out, bus: bus}
}

// Emit delivers e. It returns ctx.Err() if the consumer abandoned the sequence.
func (p *Projector) Emit(e Event) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	if p.bus != nil {
		p.bus.PublishSync(e)
	}
	if p.out == nil {
		return nil
	}
	select {
	case p.out <- e:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Deltas returns a streaming.Emitter that projects normalizer output for one cycle.
func (p *Projector) Deltas(cycle int) streaming.Emitter {
	return func(d streaming.Delta) error {
		switch d := d.(type) {
		case streaming.RawChunk:
			return p.Emit(RawChunk{Cycle: cycle, Chunk: d.Chunk})
		case streaming.TextDelta:
			return p.Emit(TextDelta{Cycle: cycle, Text: d.Text})
		case streaming.ToolInputDelta:
			return p.Emit(ToolInputDelta{Cycle: cycle, ToolUseID: d.ToolUseID, Name: d.Name, Delta: d.Input})
		case streaming.ReasoningDelta:
			return p.Emit(ReasoningDelta{Cycle: cycle, Text: d.Text, Signature: d.Signature})
		case streaming.CitationDelta:
			return p.Emit(CitationDelta{Cycle: cycle, Citation: d.Citation})
		}
		return nil
	}
}
