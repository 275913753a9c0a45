package eventloop

import zap "go.uber.org/zap"

// Observer is notified after every event the loop receives, with the
// classification of what happened to it.
type Observer func(seq uint64, kind Kind, result Result)

type options struct {
	logger      *zap.Logger
	exitOnError bool
	observer    Observer
	sourceName  string
}

// Option configures an EventLoop
type Option func(*options)

func defaultOptions() options {
	return options{
		logger: zap.L(),
	}
}

// WithLogger sets the logger used for dispatch tracing
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithExitOnError makes the loop call Target.Exit when the first handler
// error is latched. Without it the loop only stops routing events and leaves
// termination entirely to the source.
func WithExitOnError() Option {
	return func(o *options) {
		o.exitOnError = true
	}
}

// WithObserver registers a per-event observer
func WithObserver(fn Observer) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithSourceName labels the source in logs and initialization errors
func WithSourceName(name string) Option {
	return func(o *options) {
		o.sourceName = name
	}
}
