// Package modules provides the UI modules that share an event loop. Each
// module is an independent eventloop handler; Build assembles the enabled
// ones into an ordered set.
package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	zap "go.uber.org/zap"
)

// ErrUnknownModule is returned by Build for names without a module
var ErrUnknownModule = errors.New("unknown module")

// Module is a handler participating in a shared event loop
type Module[T any] interface {
	eventloop.Handler[T, error]
	Name() string
	Close() error
}

// Viewer is implemented by modules contributing to the rendered screen
type Viewer interface {
	View() string
}

// Env carries per-run values shared by all modules
type Env struct {
	RunID  string
	Logger *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Info describes a module for listings
type Info struct {
	Name        string
	Description string
	Backend     string
}

// Available lists every module Build understands
func Available() []Info {
	return []Info{
		{Name: "keymap", Description: "Binds keys to quit or swallow actions; quits on window close", Backend: "-"},
		{Name: "trace", Description: "Logs every event at debug level; never captures", Backend: "zap"},
		{Name: "status", Description: "Renders a status line with event counters", Backend: "lipgloss"},
		{Name: "journal", Description: "Persists every event for later inspection", Backend: "sqlite, postgres, redis, memory"},
		{Name: "broadcast", Description: "Publishes events as JSON on a Redis channel", Backend: "redis"},
		{Name: "mirror", Description: "Streams events to websocket clients", Backend: "websocket"},
	}
}

// Set is an ordered collection of built modules
type Set[T any] struct {
	modules []Module[T]
}

// NewSet wraps already constructed modules, keeping their order
func NewSet[T any](modules ...Module[T]) *Set[T] {
	return &Set[T]{modules: modules}
}

// Build constructs the modules named in cfg.Enabled, in that order. Modules
// built before a failure are closed.
func Build[T any](ctx context.Context, cfg config.ModulesConfig, env Env) (*Set[T], error) {
	set := &Set[T]{}
	for _, name := range cfg.Enabled {
		m, err := build[T](ctx, name, cfg, env)
		if err != nil {
			_ = set.Close()
			return nil, fmt.Errorf("failed to build module %s: %w", name, err)
		}
		set.modules = append(set.modules, m)
		env.logger().Debug("module ready", zap.String("module", name))
	}
	return set, nil
}

func build[T any](ctx context.Context, name string, cfg config.ModulesConfig, env Env) (Module[T], error) {
	switch name {
	case "keymap":
		return NewKeymap[T](cfg.Keymap.Bindings, cfg.Keymap.QuitOnClose)
	case "trace":
		return NewTrace[T](env.logger()), nil
	case "status":
		return NewStatus[T](cfg.Status, env.RunID), nil
	case "journal":
		return OpenJournal[T](ctx, cfg.Journal, env)
	case "broadcast":
		return DialBroadcast[T](ctx, cfg.Broadcast, env)
	case "mirror":
		return ListenMirror[T](ctx, cfg.Mirror, env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
}

// Names returns the module names in dispatch order
func (s *Set[T]) Names() []string {
	names := make([]string, 0, len(s.modules))
	for _, m := range s.modules {
		names = append(names, m.Name())
	}
	return names
}

// Handlers returns the modules as a handler list for eventloop.Run
func (s *Set[T]) Handlers() []eventloop.Handler[T, error] {
	handlers := make([]eventloop.Handler[T, error], 0, len(s.modules))
	for _, m := range s.modules {
		handlers = append(handlers, m)
	}
	return handlers
}

// View joins the output of every module implementing Viewer
func (s *Set[T]) View() string {
	var parts []string
	for _, m := range s.modules {
		if v, ok := m.(Viewer); ok {
			if out := v.View(); out != "" {
				parts = append(parts, out)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Close closes every module in reverse order
func (s *Set[T]) Close() error {
	var errs []error
	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.modules[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
