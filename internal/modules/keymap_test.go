package modules

import (
	"testing"

	eventloop "github.com/inference-gateway/modui/eventloop"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func TestKeymap(t *testing.T) {
	bindings := map[string]string{"q": "quit", "ctrl+l": "swallow"}

	tests := []struct {
		name        string
		quitOnClose bool
		event       *eventloop.Event[string]
		result      eventloop.Result
		exiting     bool
		handled     bool
	}{
		{
			name:    "quit key exits and captures",
			event:   keyEvent(1, "q"),
			result:  eventloop.ResultCaptured,
			exiting: true,
			handled: true,
		},
		{
			name:    "swallowed key captures without exit",
			event:   keyEvent(1, "ctrl+l"),
			result:  eventloop.ResultCaptured,
			handled: true,
		},
		{
			name:   "unbound key continues",
			event:  keyEvent(1, "j"),
			result: eventloop.ResultContinue,
		},
		{
			name:        "close quits when configured",
			quitOnClose: true,
			event:       &eventloop.Event[string]{Kind: eventloop.KindClose},
			result:      eventloop.ResultCaptured,
			exiting:     true,
			handled:     true,
		},
		{
			name:   "close passes through otherwise",
			event:  &eventloop.Event[string]{Kind: eventloop.KindClose},
			result: eventloop.ResultContinue,
		},
		{
			name:   "mouse events continue",
			event:  &eventloop.Event[string]{Kind: eventloop.KindMouse, Key: "q"},
			result: eventloop.ResultContinue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKeymap[string](bindings, tt.quitOnClose)
			require.NoError(t, err)

			var target eventloop.ExitFlag
			out := k.HandleEvent(tt.event, &target)

			assert.Equal(t, tt.result, out.Result())
			assert.Equal(t, tt.exiting, target.Exiting())
			assert.Equal(t, tt.handled, tt.event.Handled)
		})
	}
}

func TestKeymapRejectsUnknownAction(t *testing.T) {
	_, err := NewKeymap[string](map[string]string{"x": "explode"}, false)
	assert.ErrorContains(t, err, `invalid action "explode"`)
}

func TestKeymapBinding(t *testing.T) {
	k, err := NewKeymap[string](map[string]string{"esc": "quit"}, false)
	require.NoError(t, err)

	action, ok := k.Binding("esc")
	assert.True(t, ok)
	assert.Equal(t, ActionQuit, action)

	_, ok = k.Binding("enter")
	assert.False(t, ok)
}
