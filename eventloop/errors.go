package eventloop

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProvider is wrapped by New when no registered provider is available
	ErrNoProvider = errors.New("no event source provider available")

	// ErrAlreadyRun is returned by Run when the loop has already been run
	ErrAlreadyRun = errors.New("event loop has already been run")
)

// SourceInitError reports that the event source could not be initialized.
// It is returned synchronously by New and FromBuilder and is never recovered.
type SourceInitError struct {
	Source string
	Err    error
}

// Error implements the error interface
func (e *SourceInitError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("failed to initialize event source: %v", e.Err)
	}
	return fmt.Sprintf("failed to initialize event source %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying initialization error
func (e *SourceInitError) Unwrap() error {
	return e.Err
}

// ErrorKind distinguishes the two variants of LoopError
type ErrorKind int

const (
	// ErrorKindSource means the event source itself failed during Run
	ErrorKindSource ErrorKind = iota + 1
	// ErrorKindHandler means a handler reported an application error
	ErrorKindHandler
)

// String returns the lowercase name of the kind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindSource:
		return "source"
	case ErrorKindHandler:
		return "handler"
	default:
		return "unknown"
	}
}

// LoopError is the terminal error of a run. Exactly one of Source (for
// ErrorKindSource) or Handler (for ErrorKindHandler) is meaningful.
type LoopError[E any] struct {
	Kind ErrorKind

	// Source is the description of the event source's own error
	Source string

	// Handler is the application error reported by a handler
	Handler E

	cause error
}

func newSourceError[E any](err error) *LoopError[E] {
	return &LoopError[E]{
		Kind:   ErrorKindSource,
		Source: err.Error(),
		cause:  err,
	}
}

func newHandlerError[E any](err E) *LoopError[E] {
	return &LoopError[E]{
		Kind:    ErrorKindHandler,
		Handler: err,
	}
}

// Error implements the error interface
func (e *LoopError[E]) Error() string {
	if e.Kind == ErrorKindSource {
		return fmt.Sprintf("an error occurred during the event source run: %s", e.Source)
	}
	return fmt.Sprintf("a handler error occurred: %v", e.Handler)
}

// Unwrap returns the source's error, or the handler error when E is an error
func (e *LoopError[E]) Unwrap() error {
	if e.Kind == ErrorKindSource {
		return e.cause
	}
	if err, ok := any(e.Handler).(error); ok {
		return err
	}
	return nil
}

// IsSource reports whether the event source failed
func (e *LoopError[E]) IsSource() bool {
	return e.Kind == ErrorKindSource
}

// IsHandler reports whether a handler failed
func (e *LoopError[E]) IsHandler() bool {
	return e.Kind == ErrorKindHandler
}
