package terminal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	eventloop "github.com/inference-gateway/modui/eventloop"
)

// userMsg carries a payload injected with Send
type userMsg[T any] struct {
	payload T
}

var mouseButtons = map[tea.MouseButton]string{
	tea.MouseButtonNone:       "none",
	tea.MouseButtonLeft:       "left",
	tea.MouseButtonMiddle:     "middle",
	tea.MouseButtonRight:      "right",
	tea.MouseButtonWheelUp:    "wheel_up",
	tea.MouseButtonWheelDown:  "wheel_down",
	tea.MouseButtonWheelLeft:  "wheel_left",
	tea.MouseButtonWheelRight: "wheel_right",
	tea.MouseButtonBackward:   "backward",
	tea.MouseButtonForward:    "forward",
}

var mouseActions = map[tea.MouseAction]string{
	tea.MouseActionPress:   "press",
	tea.MouseActionRelease: "release",
	tea.MouseActionMotion:  "motion",
}

// translate converts a bubbletea message into an event. Messages with no
// event equivalent report false.
func translate[T any](msg tea.Msg) (eventloop.Event[T], bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return translateKey[T](msg), true

	case tea.MouseMsg:
		var mods eventloop.Modifier
		if msg.Shift {
			mods |= eventloop.ModShift
		}
		if msg.Ctrl {
			mods |= eventloop.ModCtrl
		}
		if msg.Alt {
			mods |= eventloop.ModAlt
		}
		return eventloop.Event[T]{
			Kind:   eventloop.KindMouse,
			X:      msg.X,
			Y:      msg.Y,
			Mods:   mods,
			Button: mouseButtons[msg.Button],
			Text:   mouseActions[msg.Action],
		}, true

	case tea.WindowSizeMsg:
		return eventloop.Event[T]{
			Kind:   eventloop.KindResize,
			Width:  msg.Width,
			Height: msg.Height,
		}, true

	case tea.FocusMsg:
		return eventloop.Event[T]{Kind: eventloop.KindFocus}, true

	case tea.BlurMsg:
		return eventloop.Event[T]{Kind: eventloop.KindBlur}, true

	case userMsg[T]:
		return eventloop.Event[T]{Kind: eventloop.KindUser, User: msg.payload}, true
	}
	return eventloop.Event[T]{}, false
}

func translateKey[T any](msg tea.KeyMsg) eventloop.Event[T] {
	runes := append([]rune(nil), msg.Runes...)
	if msg.Paste {
		return eventloop.Event[T]{
			Kind:  eventloop.KindPaste,
			Runes: runes,
			Text:  string(runes),
		}
	}

	name := msg.String()
	var mods eventloop.Modifier
	if msg.Alt {
		mods |= eventloop.ModAlt
	}
	bare := strings.TrimPrefix(name, "alt+")
	if strings.HasPrefix(bare, "ctrl+") {
		mods |= eventloop.ModCtrl
	}
	if strings.HasPrefix(bare, "shift+") || strings.Contains(bare, "+shift+") {
		mods |= eventloop.ModShift
	}

	return eventloop.Event[T]{
		Kind:  eventloop.KindKey,
		Key:   name,
		Runes: runes,
		Mods:  mods,
	}
}
