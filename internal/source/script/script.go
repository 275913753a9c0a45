// Package script provides a deterministic event source that replays events
// described in a YAML file.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	eventloop "github.com/inference-gateway/modui/eventloop"
	yaml "gopkg.in/yaml.v3"
)

// SourceName identifies this backend in errors and logs
const SourceName = "script"

var (
	// ErrFinished is returned by Send once the script has been fully replayed
	ErrFinished = errors.New("script source has finished")
	// ErrRunning is returned by Run when the source is already running or has run
	ErrRunning = errors.New("script source can only be run once")
)

// Script is the on-disk description of a replay session
type Script struct {
	Name string `yaml:"name"`
	// Error, when set, is returned by Run after the last event is replayed
	Error  string `yaml:"error,omitempty"`
	Events []Step `yaml:"events"`
}

// Step describes one scripted event. Repeat is the number of extra copies
// replayed after the step, so repeat: 2 delivers it three times.
type Step struct {
	Kind   string    `yaml:"kind"`
	Key    string    `yaml:"key,omitempty"`
	Mods   []string  `yaml:"mods,omitempty"`
	X      int       `yaml:"x,omitempty"`
	Y      int       `yaml:"y,omitempty"`
	Button string    `yaml:"button,omitempty"`
	Width  int       `yaml:"width,omitempty"`
	Height int       `yaml:"height,omitempty"`
	Text   string    `yaml:"text,omitempty"`
	User   yaml.Node `yaml:"user,omitempty"`
	Repeat int       `yaml:"repeat,omitempty"`
}

// Parse decodes a script document
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, step := range s.Events {
		if _, ok := eventloop.ParseKind(step.Kind); !ok {
			return nil, fmt.Errorf("event %d: unknown kind %q", i, step.Kind)
		}
		if step.Repeat < 0 {
			return nil, fmt.Errorf("event %d: repeat must not be negative", i)
		}
	}
	return &s, nil
}

// Load reads and parses a script file
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// Option configures a script source
type Option func(*settings)

type settings struct {
	delay time.Duration
	now   func() time.Time
}

// WithDelay pauses between consecutive events
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		s.delay = d
	}
}

// WithClock overrides the timestamp source for events
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// Source replays a script. It implements eventloop.Source and eventloop.Sender.
type Source[T any] struct {
	name    string
	failure error
	cfg     settings

	mu       sync.Mutex
	queue    []eventloop.Event[T]
	finished bool

	started atomic.Bool
}

var (
	_ eventloop.Source[eventloop.Unit] = (*Source[eventloop.Unit])(nil)
	_ eventloop.Sender[eventloop.Unit] = (*Source[eventloop.Unit])(nil)
)

// New converts a parsed script into a source. User payloads are decoded into T.
func New[T any](s *Script, opts ...Option) (*Source[T], error) {
	cfg := settings{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	src := &Source[T]{name: s.Name, cfg: cfg}
	if s.Error != "" {
		src.failure = errors.New(s.Error)
	}

	for i, step := range s.Events {
		ev, err := toEvent[T](step)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		for n := 0; n <= step.Repeat; n++ {
			copied := ev
			copied.Runes = append([]rune(nil), ev.Runes...)
			src.queue = append(src.queue, copied)
		}
	}
	return src, nil
}

// NewBuilder returns a builder that loads the script at path
func NewBuilder[T any](path string, opts ...Option) eventloop.Builder[T] {
	return eventloop.BuilderFunc[T](func() (eventloop.Source[T], error) {
		s, err := Load(path)
		if err != nil {
			return nil, &eventloop.SourceInitError{Source: SourceName, Err: err}
		}
		src, err := New[T](s, opts...)
		if err != nil {
			return nil, &eventloop.SourceInitError{Source: SourceName, Err: err}
		}
		return src, nil
	})
}

// Name returns the script name
func (s *Source[T]) Name() string {
	return s.name
}

// Pending returns the number of events not yet delivered
func (s *Source[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Send queues a user event behind the remaining scripted events
func (s *Source[T]) Send(payload T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrFinished
	}
	s.queue = append(s.queue, eventloop.Event[T]{Kind: eventloop.KindUser, User: payload})
	return nil
}

// Run delivers every queued event to fn. It returns nil when a handler asks
// to exit, otherwise the scripted error (if any) once the queue drains.
func (s *Source[T]) Run(fn func(ev *eventloop.Event[T], target eventloop.Target)) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.finish()

	var target eventloop.ExitFlag
	var seq uint64
	for {
		ev, ok := s.next()
		if !ok {
			return s.failure
		}

		seq++
		ev.Seq = seq
		ev.Time = s.cfg.now()
		fn(&ev, &target)

		if target.Exiting() {
			return nil
		}
		if s.cfg.delay > 0 {
			time.Sleep(s.cfg.delay)
		}
	}
}

func (s *Source[T]) next() (eventloop.Event[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return eventloop.Event[T]{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *Source[T]) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
}

func toEvent[T any](step Step) (eventloop.Event[T], error) {
	kind, ok := eventloop.ParseKind(step.Kind)
	if !ok {
		return eventloop.Event[T]{}, fmt.Errorf("unknown kind %q", step.Kind)
	}

	mods, err := parseMods(step.Mods)
	if err != nil {
		return eventloop.Event[T]{}, err
	}

	ev := eventloop.Event[T]{
		Kind:   kind,
		Key:    step.Key,
		Mods:   mods,
		X:      step.X,
		Y:      step.Y,
		Button: step.Button,
		Width:  step.Width,
		Height: step.Height,
		Text:   step.Text,
	}

	if kind == eventloop.KindKey && len([]rune(step.Key)) == 1 {
		ev.Runes = []rune(step.Key)
	}
	if kind == eventloop.KindPaste && step.Text != "" {
		ev.Runes = []rune(step.Text)
	}

	if !step.User.IsZero() {
		if err := step.User.Decode(&ev.User); err != nil {
			return eventloop.Event[T]{}, fmt.Errorf("failed to decode user payload: %w", err)
		}
	}
	return ev, nil
}

func parseMods(names []string) (eventloop.Modifier, error) {
	var mods eventloop.Modifier
	for _, name := range names {
		switch strings.ToLower(name) {
		case "shift":
			mods |= eventloop.ModShift
		case "ctrl", "control":
			mods |= eventloop.ModCtrl
		case "alt", "meta":
			mods |= eventloop.ModAlt
		case "super":
			mods |= eventloop.ModSuper
		default:
			return 0, fmt.Errorf("unknown modifier %q", name)
		}
	}
	return mods, nil
}
