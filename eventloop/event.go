package eventloop

import (
	"strings"
	"time"
)

// Unit is the payload type of loops built with New, which carry no user events
type Unit = struct{}

// Kind identifies the class of an event delivered by a Source
type Kind int

const (
	KindUnknown Kind = iota
	KindKey
	KindMouse
	KindResize
	KindFocus
	KindBlur
	KindPaste
	KindRedraw
	KindClose
	KindUser
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindKey:     "key",
	KindMouse:   "mouse",
	KindResize:  "resize",
	KindFocus:   "focus",
	KindBlur:    "blur",
	KindPaste:   "paste",
	KindRedraw:  "redraw",
	KindClose:   "close",
	KindUser:    "user",
}

// String returns the lowercase name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind parses a kind name as produced by String
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// Modifier is a bitmask of keyboard modifiers held during an event
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Has reports whether all bits of o are set in m
func (m Modifier) Has(o Modifier) bool {
	return m&o == o
}

// String renders the modifiers in a "ctrl+alt" style
func (m Modifier) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "shift")
	}
	if m.Has(ModSuper) {
		parts = append(parts, "super")
	}
	return strings.Join(parts, "+")
}

// Event is a single occurrence produced by a Source.
//
// Handlers receive a pointer and may mutate it: every handler later in the
// chain observes the change. What the source does with the mutated value
// afterwards is up to the source.
type Event[T any] struct {
	// Seq is the position of the event in the source's stream, starting at 1
	Seq  uint64
	Kind Kind
	Time time.Time

	// Key is the normalized key name, e.g. "q", "enter" or "ctrl+c"
	Key   string
	Runes []rune
	Mods  Modifier

	// Pointer position and button for mouse events
	X      int
	Y      int
	Button string

	// New dimensions for resize events
	Width  int
	Height int

	// Text carries pasted text or a free-form description
	Text string

	// User is the caller payload of KindUser events
	User T

	// Handled is a flag handlers may set for the benefit of later handlers
	Handled bool
}
