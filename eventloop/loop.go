package eventloop

import (
	"errors"
	"sync/atomic"

	zap "go.uber.org/zap"
)

// State is the lifecycle state of an EventLoop
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateTerminated
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats counts what happened to the events of a run
type Stats struct {
	Dispatched uint64
	Captured   uint64
	Continued  uint64
	Failed     uint64
	Skipped    uint64
}

// EventLoop wraps an external event source and routes every event it
// produces through a chain of handlers.
type EventLoop[T, E any] struct {
	source Source[T]
	opts   options
	state  atomic.Int32

	dispatched atomic.Uint64
	captured   atomic.Uint64
	continued  atomic.Uint64
	failed     atomic.Uint64
	skipped    atomic.Uint64
}

// runState holds everything scoped to a single Run call
type runState[T, E any] struct {
	chain *Chain[T, E]
	err   *LoopError[E]
}

// New creates an event loop on the default source: the first available
// provider in the registry. The loop carries no user payload.
func New[E any](opts ...Option) (*EventLoop[Unit, E], error) {
	provider, err := DetectProvider()
	if err != nil {
		return nil, &SourceInitError{Err: err}
	}

	opts = append([]Option{WithSourceName(provider.Name())}, opts...)
	return FromBuilder[Unit, E](BuilderFunc[Unit](provider.Build), opts...)
}

// FromBuilder creates an event loop on a source produced by builder, which
// may carry a custom payload type and its own configuration.
func FromBuilder[T, E any](builder Builder[T], opts ...Option) (*EventLoop[T, E], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if builder == nil {
		return nil, &SourceInitError{Source: o.sourceName, Err: errors.New("nil builder")}
	}

	source, err := builder.Build()
	if err != nil {
		var initErr *SourceInitError
		if errors.As(err, &initErr) {
			return nil, initErr
		}
		return nil, &SourceInitError{Source: o.sourceName, Err: err}
	}
	if source == nil {
		return nil, &SourceInitError{Source: o.sourceName, Err: errors.New("builder returned no source")}
	}

	o.logger.Debug("event loop created", zap.String("source", o.sourceName))

	return &EventLoop[T, E]{
		source: source,
		opts:   o,
	}, nil
}

// Source returns the underlying event source
func (l *EventLoop[T, E]) Source() Source[T] {
	return l.source
}

// State returns the current lifecycle state
func (l *EventLoop[T, E]) State() State {
	return State(l.state.Load())
}

// Stats returns the event counters of the run
func (l *EventLoop[T, E]) Stats() Stats {
	return Stats{
		Dispatched: l.dispatched.Load(),
		Captured:   l.captured.Load(),
		Continued:  l.continued.Load(),
		Failed:     l.failed.Load(),
		Skipped:    l.skipped.Load(),
	}
}

// Run takes ownership of handlers and blocks in the source's run call,
// dispatching every produced event through them in order.
//
// The first handler error is latched and ends all further dispatching for
// the run, but the source keeps running until it decides to stop (unless
// WithExitOnError was given). Run then returns nil if nothing failed, the
// latched *LoopError with ErrorKindHandler, or a *LoopError with
// ErrorKindSource if the source itself failed. A handler error recorded
// earlier always wins over a later source error.
//
// If the source never returns control, Run never returns either and a
// latched handler error is never observed.
//
// A loop can be run once; later calls return ErrAlreadyRun.
func (l *EventLoop[T, E]) Run(handlers []Handler[T, E]) error {
	if !l.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return ErrAlreadyRun
	}
	defer l.state.Store(int32(StateTerminated))

	run := &runState[T, E]{chain: NewChain(handlers...)}
	log := l.opts.logger.With(zap.String("source", l.opts.sourceName))
	log.Debug("event loop running", zap.Int("handlers", run.chain.Len()))

	srcErr := l.source.Run(func(ev *Event[T], target Target) {
		l.dispatch(run, ev, target)
	})

	if run.err != nil {
		if srcErr != nil {
			log.Debug("source error ignored after handler error", zap.Error(srcErr))
		}
		log.Debug("event loop terminated with handler error", zap.Error(run.err))
		return run.err
	}
	if srcErr != nil {
		log.Debug("event loop terminated with source error", zap.Error(srcErr))
		return newSourceError[E](srcErr)
	}

	log.Debug("event loop terminated")
	return nil
}

func (l *EventLoop[T, E]) dispatch(run *runState[T, E], ev *Event[T], target Target) {
	if run.err != nil {
		l.skipped.Add(1)
		l.observe(ev, ResultSkipped)
		return
	}

	l.dispatched.Add(1)
	out := run.chain.Dispatch(ev, target)

	switch out.Result() {
	case ResultCaptured:
		l.captured.Add(1)
	case ResultContinue:
		l.continued.Add(1)
	case ResultFailed:
		l.failed.Add(1)
		err, _ := out.Err()
		run.err = newHandlerError(err)
		l.opts.logger.Debug("handler failed, dispatch halted",
			zap.Uint64("seq", ev.Seq),
			zap.Stringer("kind", ev.Kind),
			zap.Error(run.err))
		if l.opts.exitOnError && target != nil {
			target.Exit()
		}
	}

	l.observe(ev, out.Result())
}

func (l *EventLoop[T, E]) observe(ev *Event[T], result Result) {
	if l.opts.observer != nil {
		l.opts.observer(ev.Seq, ev.Kind, result)
	}
}
