package modules

import (
	"fmt"
	"strings"
	"sync"

	lipgloss "github.com/charmbracelet/lipgloss"
	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	truncate "github.com/muesli/reflow/truncate"
)

// Status keeps event counters and renders them as a one-line status bar
type Status[T any] struct {
	style lipgloss.Style
	runID string

	mu     sync.Mutex
	total  int
	counts map[eventloop.Kind]int
	last   string
	width  int
}

// NewStatus creates a status module styled by cfg
func NewStatus[T any](cfg config.StatusConfig, runID string) *Status[T] {
	style := lipgloss.NewStyle().Padding(0, 1)
	if cfg.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cfg.Foreground))
	}
	if cfg.Background != "" {
		style = style.Background(lipgloss.Color(cfg.Background))
	}
	return &Status[T]{
		style:  style,
		runID:  runID,
		counts: make(map[eventloop.Kind]int),
	}
}

// Name returns "status"
func (s *Status[T]) Name() string {
	return "status"
}

// HandleEvent records ev and lets it through
func (s *Status[T]) HandleEvent(ev *eventloop.Event[T], _ eventloop.Target) eventloop.Outcome[error] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.counts[ev.Kind]++
	if ev.Kind == eventloop.KindResize {
		s.width = ev.Width
	}
	s.last = describe(ev)
	return eventloop.Continue[error]()
}

// Count returns how many events of kind were seen
func (s *Status[T]) Count(kind eventloop.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

// Line returns the unstyled status text
func (s *Status[T]) Line() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line()
}

func (s *Status[T]) line() string {
	parts := []string{"modui"}
	if s.runID != "" {
		id := s.runID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, id)
	}
	parts = append(parts,
		fmt.Sprintf("%d events", s.total),
		fmt.Sprintf("keys %d", s.counts[eventloop.KindKey]),
		fmt.Sprintf("mouse %d", s.counts[eventloop.KindMouse]),
	)
	if s.last != "" {
		parts = append(parts, "last: "+s.last)
	}
	return strings.Join(parts, " │ ")
}

// View renders the status bar, truncated to the last known width
func (s *Status[T]) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.line()
	style := s.style
	if s.width > 0 {
		inner := s.width - style.GetHorizontalFrameSize()
		if inner < 1 {
			inner = 1
		}
		text = truncate.StringWithTail(text, uint(inner), "…")
		style = style.Width(s.width)
	}
	return style.Render(text)
}

// Close is a no-op
func (s *Status[T]) Close() error {
	return nil
}

func describe[T any](ev *eventloop.Event[T]) string {
	switch ev.Kind {
	case eventloop.KindKey:
		return "key " + ev.Key
	case eventloop.KindMouse:
		return fmt.Sprintf("mouse %s %s %d,%d", ev.Button, ev.Text, ev.X, ev.Y)
	case eventloop.KindResize:
		return fmt.Sprintf("resize %dx%d", ev.Width, ev.Height)
	case eventloop.KindPaste:
		return fmt.Sprintf("paste %d chars", len(ev.Runes))
	default:
		return ev.Kind.String()
	}
}
