package eventloop

import "sync/atomic"

// Target is the context handed to handlers alongside each event. A handler
// uses it to ask the source to stop; the loop itself never does.
type Target interface {
	// Exit asks the source to stop once the current event has been handled
	Exit()
	// Exiting reports whether Exit has been called
	Exiting() bool
}

// Source is the external event source. Run must call fn once per produced
// event, sequentially and in delivery order, and block until the source's own
// termination condition is met.
type Source[T any] interface {
	Run(fn func(ev *Event[T], target Target)) error
}

// Builder constructs a configured Source, possibly with a custom payload type
type Builder[T any] interface {
	Build() (Source[T], error)
}

// BuilderFunc adapts a constructor function to the Builder interface
type BuilderFunc[T any] func() (Source[T], error)

// Build calls f()
func (f BuilderFunc[T]) Build() (Source[T], error) {
	return f()
}

// Sender is implemented by sources that accept user events from outside the
// loop. Payloads are delivered as KindUser events.
type Sender[T any] interface {
	Send(payload T) error
}

// ExitFlag is a ready-made Target for source implementations. The zero value
// is ready to use and safe for concurrent use.
type ExitFlag struct {
	exiting atomic.Bool
}

// Exit marks the flag
func (f *ExitFlag) Exit() {
	f.exiting.Store(true)
}

// Exiting reports whether Exit has been called
func (f *ExitFlag) Exiting() bool {
	return f.exiting.Load()
}

var _ Target = (*ExitFlag)(nil)
