// Package terminal implements an event source on top of a bubbletea program.
//
// Every bubbletea message with an event equivalent is translated and handed
// to the dispatch callback from the program's Update method, so handlers run
// on bubbletea's event goroutine. Calling Exit on the target makes Update
// return tea.Quit.
package terminal

import (
	"errors"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	eventloop "github.com/inference-gateway/modui/eventloop"
)

// SourceName identifies this backend in errors and logs
const SourceName = "terminal"

var (
	// ErrRunning is returned by Run when the source is already running or has run
	ErrRunning = errors.New("terminal source can only be run once")
	// ErrClosed is returned by Send once the program has stopped
	ErrClosed = errors.New("terminal source is closed")
)

// Source drives a bubbletea program. It implements eventloop.Source and
// eventloop.Sender.
type Source[T any] struct {
	program *tea.Program
	view    func() string

	fn      func(ev *eventloop.Event[T], target eventloop.Target)
	target  eventloop.ExitFlag
	seq     uint64
	started atomic.Bool
	stopped atomic.Bool
}

var (
	_ eventloop.Source[eventloop.Unit] = (*Source[eventloop.Unit])(nil)
	_ eventloop.Sender[eventloop.Unit] = (*Source[eventloop.Unit])(nil)
)

// NewBuilder returns a builder for terminal sources with payload type T
func NewBuilder[T any](opts ...Option) eventloop.Builder[T] {
	return eventloop.BuilderFunc[T](func() (eventloop.Source[T], error) {
		src, err := New[T](opts...)
		if err != nil {
			return nil, err
		}
		return src, nil
	})
}

// New validates opts and prepares a program. Option errors are reported as
// *eventloop.SourceInitError.
func New[T any](opts ...Option) (*Source[T], error) {
	s := &settings{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, &eventloop.SourceInitError{Source: SourceName, Err: err}
		}
	}

	src := &Source[T]{view: s.view}
	src.program = tea.NewProgram(model[T]{src: src}, s.programOptions()...)
	return src, nil
}

// Run starts the program and blocks until it quits. A program stopped by
// its context, a signal or a panic returns the corresponding bubbletea error.
func (s *Source[T]) Run(fn func(ev *eventloop.Event[T], target eventloop.Target)) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	s.fn = fn
	defer s.stopped.Store(true)

	_, err := s.program.Run()
	return err
}

// Send delivers payload as a KindUser event. It blocks until the running
// program accepts the message and returns ErrClosed once the program has
// stopped.
func (s *Source[T]) Send(payload T) error {
	if s.stopped.Load() {
		return ErrClosed
	}
	s.program.Send(userMsg[T]{payload: payload})
	return nil
}

// Quit stops the program from outside the event loop
func (s *Source[T]) Quit() {
	s.program.Quit()
}

func (s *Source[T]) deliver(msg tea.Msg) tea.Cmd {
	ev, ok := translate[T](msg)
	if !ok || s.fn == nil {
		return nil
	}

	s.seq++
	ev.Seq = s.seq
	ev.Time = time.Now()
	s.fn(&ev, &s.target)

	if s.target.Exiting() {
		return tea.Quit
	}
	return nil
}

type model[T any] struct {
	src *Source[T]
}

func (m model[T]) Init() tea.Cmd {
	return nil
}

func (m model[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, m.src.deliver(msg)
}

func (m model[T]) View() string {
	if m.src.view == nil {
		return ""
	}
	return m.src.view()
}

// Provider registers the terminal backend as a default event source
type Provider struct {
	Options []Option
}

// Name returns the backend name
func (p *Provider) Name() string {
	return SourceName
}

// IsAvailable reports whether stdin is attached to a terminal
func (p *Provider) IsAvailable() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Build creates a terminal source without user payloads
func (p *Provider) Build() (eventloop.Source[eventloop.Unit], error) {
	src, err := New[eventloop.Unit](p.Options...)
	if err != nil {
		return nil, err
	}
	return src, nil
}

var _ eventloop.Provider = (*Provider)(nil)
