// Package progress carries render progress events from the worker
// goroutine to whatever foreground wants them. Reporting never blocks
// the worker: slow consumers lose events, they do not stall renders.
package progress

// Indeterminate marks events with no meaningful percentage.
const Indeterminate = -1

// Render stages, in the order the pipeline runs them.
const (
	StageFetch    = "fetch"
	StageLoad     = "load"
	StageCompose  = "compose"
	StageSequence = "sequence"
	StageExport   = "export"
	StageDone     = "done"
)

// Event is one progress update.
type Event struct {
	Stage   string
	Message string
	// Percent is overall completion 0-100, or Indeterminate.
	Percent float64
}

// Reporter receives events. Implementations must not block.
type Reporter interface {
	Report(Event)
}

// Func adapts a plain callback to a Reporter. A nil Func discards.
type Func func(Event)

func (f Func) Report(e Event) {
	if f != nil {
		f(e)
	}
}

// Discard drops every event.
var Discard Reporter = Func(nil)

// Channel buffers events for a consuming goroutine. When the buffer is
// full new events are dropped so the producer never waits.
type Channel struct {
	ch chan Event
}

// NewChannel creates a channel reporter with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer < 1 {
		buffer = 1
	}
	return &Channel{ch: make(chan Event, buffer)}
}

func (c *Channel) Report(e Event) {
	select {
	case c.ch <- e:
	default:
	}
}

// Events exposes the consuming side.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Close ends the stream. Report must not be called after Close.
func (c *Channel) Close() {
	close(c.ch)
}
