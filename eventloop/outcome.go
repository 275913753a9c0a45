package eventloop

// Result is the untyped classification of an Outcome, used for observation
type Result int

const (
	ResultContinue Result = iota
	ResultCaptured
	ResultFailed
	// ResultSkipped marks events delivered after a handler error was latched
	ResultSkipped
)

// String returns the lowercase name of the result
func (r Result) String() string {
	switch r {
	case ResultContinue:
		return "continue"
	case ResultCaptured:
		return "captured"
	case ResultFailed:
		return "failed"
	case ResultSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the tri-state result of invoking a handler or dispatching an
// event through a chain: continue, captured or failed with an error of the
// caller's type E.
type Outcome[E any] struct {
	result Result
	err    E
}

// Continue reports that the event was not consumed
func Continue[E any]() Outcome[E] {
	return Outcome[E]{result: ResultContinue}
}

// Capture reports that the event was fully handled
func Capture[E any]() Outcome[E] {
	return Outcome[E]{result: ResultCaptured}
}

// Fail reports a handler failure carrying err
func Fail[E any](err E) Outcome[E] {
	return Outcome[E]{result: ResultFailed, err: err}
}

// Result returns the classification of the outcome
func (o Outcome[E]) Result() Result {
	return o.result
}

// Captured reports whether the event was consumed
func (o Outcome[E]) Captured() bool {
	return o.result == ResultCaptured
}

// Continued reports whether the event was left for later handlers
func (o Outcome[E]) Continued() bool {
	return o.result == ResultContinue
}

// Failed reports whether a handler returned an error
func (o Outcome[E]) Failed() bool {
	return o.result == ResultFailed
}

// Err returns the handler error and whether the outcome is a failure
func (o Outcome[E]) Err() (E, bool) {
	return o.err, o.result == ResultFailed
}

// String returns the name of the outcome's result
func (o Outcome[E]) String() string {
	return o.result.String()
}
