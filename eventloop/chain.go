package eventloop

// Handler observes and possibly consumes events. E is the caller-chosen
// application error type.
type Handler[T, E any] interface {
	HandleEvent(ev *Event[T], target Target) Outcome[E]
}

// HandlerFunc adapts an ordinary function to the Handler interface
type HandlerFunc[T, E any] func(ev *Event[T], target Target) Outcome[E]

// HandleEvent calls f(ev, target)
func (f HandlerFunc[T, E]) HandleEvent(ev *Event[T], target Target) Outcome[E] {
	return f(ev, target)
}

// ErrorHandler adapts a function with the conventional (captured, err)
// return shape. A non-nil error wins over captured.
type ErrorHandler[T any] func(ev *Event[T], target Target) (bool, error)

// HandleEvent calls f(ev, target) and converts the result to an Outcome
func (f ErrorHandler[T]) HandleEvent(ev *Event[T], target Target) Outcome[error] {
	captured, err := f(ev, target)
	if err != nil {
		return Fail(err)
	}
	if captured {
		return Capture[error]()
	}
	return Continue[error]()
}

// Chain is an ordered, fixed sequence of handlers
type Chain[T, E any] struct {
	handlers []Handler[T, E]
}

// NewChain copies handlers into a new chain, dropping nil entries. The
// caller's slice can be reused freely afterwards.
func NewChain[T, E any](handlers ...Handler[T, E]) *Chain[T, E] {
	owned := make([]Handler[T, E], 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			owned = append(owned, h)
		}
	}
	return &Chain[T, E]{handlers: owned}
}

// Len returns the number of handlers in the chain
func (c *Chain[T, E]) Len() int {
	return len(c.handlers)
}

// Dispatch routes ev through the handlers in order. The first handler to
// capture or fail ends routing for this event; handlers before it have
// already run and their mutations of ev are kept. An empty chain, or one in
// which no handler consumes the event, yields Continue.
func (c *Chain[T, E]) Dispatch(ev *Event[T], target Target) Outcome[E] {
	for _, h := range c.handlers {
		out := h.HandleEvent(ev, target)
		if !out.Continued() {
			return out
		}
	}
	return Continue[E]()
}
