package x11

import (
	"errors"
	"fmt"
	"testing"

	xgb "github.com/BurntSushi/xgb"
	xproto "github.com/BurntSushi/xgb/xproto"
	eventloop "github.com/inference-gateway/modui/eventloop"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func newTestTranslator() *translator[string] {
	keysyms := map[xproto.Keycode]string{
		24: "q",
		36: "Return",
		9:  "Escape",
		38: "a",
		23: "Tab",
	}
	return &translator[string]{
		wmProtocols: 100,
		wmDelete:    101,
		lookup: func(_ uint16, code xproto.Keycode) string {
			return keysyms[code]
		},
		width:  640,
		height: 480,
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		xev    xgb.Event
		ok     bool
		expect func(t *testing.T, ev eventloop.Event[string])
	}{
		{
			name: "printable key",
			xev:  xproto.KeyPressEvent{Detail: 24},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindKey, ev.Kind)
				assert.Equal(t, "q", ev.Key)
				assert.Equal(t, []rune("q"), ev.Runes)
			},
		},
		{
			name: "named key",
			xev:  xproto.KeyPressEvent{Detail: 36},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, "enter", ev.Key)
				assert.Empty(t, ev.Runes)
			},
		},
		{
			name: "ctrl and alt",
			xev:  xproto.KeyPressEvent{Detail: 38, State: xproto.KeyButMaskControl | xproto.KeyButMaskMod1},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, "ctrl+alt+a", ev.Key)
				assert.True(t, ev.Mods.Has(eventloop.ModCtrl|eventloop.ModAlt))
			},
		},
		{
			name: "shift on named key",
			xev:  xproto.KeyPressEvent{Detail: 23, State: xproto.KeyButMaskShift},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, "shift+tab", ev.Key)
			},
		},
		{
			name: "unmapped keycode",
			xev:  xproto.KeyPressEvent{Detail: 200},
		},
		{
			name: "button press",
			xev:  xproto.ButtonPressEvent{Detail: 3, EventX: 10, EventY: 20},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindMouse, ev.Kind)
				assert.Equal(t, "right", ev.Button)
				assert.Equal(t, "press", ev.Text)
				assert.Equal(t, 10, ev.X)
				assert.Equal(t, 20, ev.Y)
			},
		},
		{
			name: "button release",
			xev:  xproto.ButtonReleaseEvent{Detail: 1},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, "left", ev.Button)
				assert.Equal(t, "release", ev.Text)
			},
		},
		{
			name: "motion",
			xev:  xproto.MotionNotifyEvent{EventX: 5, EventY: 6},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, "motion", ev.Text)
				assert.Equal(t, 5, ev.X)
			},
		},
		{
			name: "resize",
			xev:  xproto.ConfigureNotifyEvent{Width: 800, Height: 600},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindResize, ev.Kind)
				assert.Equal(t, 800, ev.Width)
				assert.Equal(t, 600, ev.Height)
			},
		},
		{
			name: "move without resize",
			xev:  xproto.ConfigureNotifyEvent{X: 50, Width: 640, Height: 480},
		},
		{
			name: "focus in",
			xev:  xproto.FocusInEvent{},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindFocus, ev.Kind)
			},
		},
		{
			name: "focus out",
			xev:  xproto.FocusOutEvent{},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindBlur, ev.Kind)
			},
		},
		{
			name: "last expose",
			xev:  xproto.ExposeEvent{Width: 640, Height: 480},
			ok:   true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindRedraw, ev.Kind)
			},
		},
		{
			name: "intermediate expose",
			xev:  xproto.ExposeEvent{Count: 2},
		},
		{
			name: "delete window",
			xev: xproto.ClientMessageEvent{
				Format: 32,
				Type:   100,
				Data:   xproto.ClientMessageDataUnionData32New([]uint32{101, 0, 0, 0, 0}),
			},
			ok: true,
			expect: func(t *testing.T, ev eventloop.Event[string]) {
				assert.Equal(t, eventloop.KindClose, ev.Kind)
			},
		},
		{
			name: "other client message",
			xev: xproto.ClientMessageEvent{
				Format: 32,
				Type:   100,
				Data:   xproto.ClientMessageDataUnionData32New([]uint32{7, 0, 0, 0, 0}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := newTestTranslator().translate(tt.xev)
			require.Equal(t, tt.ok, ok)
			if tt.expect != nil {
				tt.expect(t, ev)
			}
		})
	}
}

func TestNewFailsWithoutServer(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "malformed display", opts: Options{Display: "bogus", Width: 10, Height: 10}},
		{name: "invalid size", opts: Options{Display: ":0", Width: 0, Height: 10}},
		{name: "oversized window", opts: Options{Display: ":0", Width: 70000, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder[eventloop.Unit](tt.opts).Build()

			var initErr *eventloop.SourceInitError
			require.True(t, errors.As(err, &initErr))
			assert.Equal(t, SourceName, initErr.Source)

			_, err = eventloop.FromBuilder[eventloop.Unit, error](NewBuilder[eventloop.Unit](tt.opts))
			assert.True(t, errors.As(err, &initErr))
		})
	}
}

func TestNewRejectsSizesBeyondProtocolRange(t *testing.T) {
	for _, opts := range []Options{
		{Display: ":0", Width: 65536, Height: 480},
		{Display: ":0", Width: 640, Height: 1 << 20},
	} {
		_, err := New[eventloop.Unit](opts)
		assert.ErrorContains(t, err, fmt.Sprintf("invalid window size %dx%d", opts.Width, opts.Height))
	}
}

func TestProviderAvailability(t *testing.T) {
	t.Setenv("DISPLAY", "")
	assert.False(t, (&Provider{}).IsAvailable())
	assert.True(t, (&Provider{Options: Options{Display: ":1"}}).IsAvailable())

	t.Setenv("DISPLAY", ":0")
	assert.True(t, (&Provider{}).IsAvailable())
	assert.Equal(t, SourceName, (&Provider{}).Name())
}
