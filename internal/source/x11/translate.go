package x11

import (
	"strings"

	xgb "github.com/BurntSushi/xgb"
	xproto "github.com/BurntSushi/xgb/xproto"
	eventloop "github.com/inference-gateway/modui/eventloop"
)

// keyNames maps X keysym names to the names used by the terminal backend so
// keymaps work with either source
var keyNames = map[string]string{
	"Return":    "enter",
	"KP_Enter":  "enter",
	"Escape":    "esc",
	"BackSpace": "backspace",
	"Tab":       "tab",
	"space":     " ",
	"Delete":    "delete",
	"Insert":    "insert",
	"Home":      "home",
	"End":       "end",
	"Prior":     "pgup",
	"Next":      "pgdown",
	"Up":        "up",
	"Down":      "down",
	"Left":      "left",
	"Right":     "right",
}

var buttonNames = map[xproto.Button]string{
	1: "left",
	2: "middle",
	3: "right",
	4: "wheel_up",
	5: "wheel_down",
	6: "wheel_left",
	7: "wheel_right",
	8: "backward",
	9: "forward",
}

// translator converts X events into loop events. lookup resolves a keycode
// with its modifier state to a keysym name.
type translator[T any] struct {
	wmProtocols xproto.Atom
	wmDelete    xproto.Atom
	lookup      func(state uint16, code xproto.Keycode) string

	width  int
	height int
}

func modifiers(state uint16) eventloop.Modifier {
	var mods eventloop.Modifier
	if state&xproto.KeyButMaskShift != 0 {
		mods |= eventloop.ModShift
	}
	if state&xproto.KeyButMaskControl != 0 {
		mods |= eventloop.ModCtrl
	}
	if state&xproto.KeyButMaskMod1 != 0 {
		mods |= eventloop.ModAlt
	}
	if state&xproto.KeyButMaskMod4 != 0 {
		mods |= eventloop.ModSuper
	}
	return mods
}

// keyName builds a normalized "ctrl+alt+x" style key name
func keyName(sym string, mods eventloop.Modifier) string {
	name, ok := keyNames[sym]
	if !ok {
		name = sym
		if len([]rune(sym)) > 1 {
			name = strings.ToLower(sym)
		}
	}

	var prefix strings.Builder
	if mods.Has(eventloop.ModCtrl) {
		prefix.WriteString("ctrl+")
	}
	if mods.Has(eventloop.ModAlt) {
		prefix.WriteString("alt+")
	}
	if mods.Has(eventloop.ModSuper) {
		prefix.WriteString("super+")
	}
	// Shift is already folded into printable keysyms
	if mods.Has(eventloop.ModShift) && len([]rune(name)) > 1 {
		prefix.WriteString("shift+")
	}
	return prefix.String() + name
}

func (t *translator[T]) translate(xev xgb.Event) (ev eventloop.Event[T], ok bool) {
	switch e := xev.(type) {
	case xproto.KeyPressEvent:
		sym := ""
		if t.lookup != nil {
			sym = t.lookup(e.State, e.Detail)
		}
		if sym == "" {
			return ev, false
		}
		mods := modifiers(e.State)
		ev = eventloop.Event[T]{Kind: eventloop.KindKey, Key: keyName(sym, mods), Mods: mods}
		if len([]rune(sym)) == 1 {
			ev.Runes = []rune(sym)
		}
		return ev, true

	case xproto.ButtonPressEvent:
		return t.pointer(e.EventX, e.EventY, e.State, buttonNames[e.Detail], "press"), true

	case xproto.ButtonReleaseEvent:
		return t.pointer(e.EventX, e.EventY, e.State, buttonNames[e.Detail], "release"), true

	case xproto.MotionNotifyEvent:
		return t.pointer(e.EventX, e.EventY, e.State, "none", "motion"), true

	case xproto.ConfigureNotifyEvent:
		w, h := int(e.Width), int(e.Height)
		if w == t.width && h == t.height {
			return ev, false
		}
		t.width, t.height = w, h
		return eventloop.Event[T]{Kind: eventloop.KindResize, Width: w, Height: h}, true

	case xproto.FocusInEvent:
		return eventloop.Event[T]{Kind: eventloop.KindFocus}, true

	case xproto.FocusOutEvent:
		return eventloop.Event[T]{Kind: eventloop.KindBlur}, true

	case xproto.ExposeEvent:
		if e.Count != 0 {
			return ev, false
		}
		return eventloop.Event[T]{
			Kind:   eventloop.KindRedraw,
			X:      int(e.X),
			Y:      int(e.Y),
			Width:  int(e.Width),
			Height: int(e.Height),
		}, true

	case xproto.ClientMessageEvent:
		if e.Type != t.wmProtocols || e.Format != 32 || len(e.Data.Data32) == 0 {
			return ev, false
		}
		if xproto.Atom(e.Data.Data32[0]) != t.wmDelete {
			return ev, false
		}
		return eventloop.Event[T]{Kind: eventloop.KindClose}, true
	}
	return ev, false
}

func (t *translator[T]) pointer(x, y int16, state uint16, button, action string) eventloop.Event[T] {
	return eventloop.Event[T]{
		Kind:   eventloop.KindMouse,
		X:      int(x),
		Y:      int(y),
		Mods:   modifiers(state),
		Button: button,
		Text:   action,
	}
}
