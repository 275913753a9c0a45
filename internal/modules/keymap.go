package modules

import (
	"fmt"

	eventloop "github.com/inference-gateway/modui/eventloop"
)

// Action is what a key binding does
type Action string

const (
	// ActionQuit asks the source to stop and captures the key
	ActionQuit Action = "quit"
	// ActionSwallow captures the key so later modules never see it
	ActionSwallow Action = "swallow"
)

// Keymap captures bound keys
type Keymap[T any] struct {
	bindings    map[string]Action
	quitOnClose bool
}

// NewKeymap validates bindings of key name to action name
func NewKeymap[T any](bindings map[string]string, quitOnClose bool) (*Keymap[T], error) {
	k := &Keymap[T]{bindings: make(map[string]Action, len(bindings)), quitOnClose: quitOnClose}
	for key, action := range bindings {
		switch a := Action(action); a {
		case ActionQuit, ActionSwallow:
			k.bindings[key] = a
		default:
			return nil, fmt.Errorf("invalid action %q for key %q", action, key)
		}
	}
	return k, nil
}

// Name returns "keymap"
func (k *Keymap[T]) Name() string {
	return "keymap"
}

// Binding returns the action bound to key
func (k *Keymap[T]) Binding(key string) (Action, bool) {
	a, ok := k.bindings[key]
	return a, ok
}

// HandleEvent captures bound keys and, when configured, window close requests
func (k *Keymap[T]) HandleEvent(ev *eventloop.Event[T], target eventloop.Target) eventloop.Outcome[error] {
	switch ev.Kind {
	case eventloop.KindClose:
		if !k.quitOnClose {
			return eventloop.Continue[error]()
		}
		target.Exit()
		ev.Handled = true
		return eventloop.Capture[error]()

	case eventloop.KindKey:
		action, ok := k.bindings[ev.Key]
		if !ok {
			return eventloop.Continue[error]()
		}
		if action == ActionQuit {
			target.Exit()
		}
		ev.Handled = true
		return eventloop.Capture[error]()
	}
	return eventloop.Continue[error]()
}

// Close is a no-op
func (k *Keymap[T]) Close() error {
	return nil
}
