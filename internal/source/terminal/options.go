package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Option configures a terminal source. Options are validated when the
// source is built.
type Option func(*settings) error

type settings struct {
	input           io.Reader
	customInput     bool
	output          io.Writer
	ctx             context.Context
	view            func() string
	altScreen       bool
	mouse           bool
	reportFocus     bool
	fps             int
	noSignalHandler bool
	noRenderer      bool
}

// WithInput reads terminal input from r. A nil reader disables input.
func WithInput(r io.Reader) Option {
	return func(s *settings) error {
		s.input = r
		s.customInput = true
		return nil
	}
}

// WithOutput renders to w instead of stdout
func WithOutput(w io.Writer) Option {
	return func(s *settings) error {
		if w == nil {
			return errors.New("output writer cannot be nil")
		}
		s.output = w
		return nil
	}
}

// WithContext stops the source with an error when ctx is cancelled
func WithContext(ctx context.Context) Option {
	return func(s *settings) error {
		if ctx == nil {
			return errors.New("context cannot be nil")
		}
		s.ctx = ctx
		return nil
	}
}

// WithView sets the function rendering the screen after every event
func WithView(view func() string) Option {
	return func(s *settings) error {
		s.view = view
		return nil
	}
}

// WithAltScreen runs the source in the terminal's alternate screen buffer
func WithAltScreen() Option {
	return func(s *settings) error {
		s.altScreen = true
		return nil
	}
}

// WithMouse enables mouse press, release and motion events
func WithMouse() Option {
	return func(s *settings) error {
		s.mouse = true
		return nil
	}
}

// WithReportFocus enables focus and blur events
func WithReportFocus() Option {
	return func(s *settings) error {
		s.reportFocus = true
		return nil
	}
}

// WithFPS caps the renderer frame rate
func WithFPS(fps int) Option {
	return func(s *settings) error {
		if fps < 1 || fps > 120 {
			return fmt.Errorf("fps must be between 1 and 120, got %d", fps)
		}
		s.fps = fps
		return nil
	}
}

// WithoutSignalHandler leaves SIGINT and SIGTERM to the caller
func WithoutSignalHandler() Option {
	return func(s *settings) error {
		s.noSignalHandler = true
		return nil
	}
}

// WithoutRenderer disables rendering entirely, e.g. for tests or pipes
func WithoutRenderer() Option {
	return func(s *settings) error {
		s.noRenderer = true
		return nil
	}
}

func (s *settings) programOptions() []tea.ProgramOption {
	var opts []tea.ProgramOption
	if s.customInput {
		opts = append(opts, tea.WithInput(s.input))
	}
	if s.output != nil {
		opts = append(opts, tea.WithOutput(s.output))
	}
	if s.ctx != nil {
		opts = append(opts, tea.WithContext(s.ctx))
	}
	if s.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if s.mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	if s.reportFocus {
		opts = append(opts, tea.WithReportFocus())
	}
	if s.fps > 0 {
		opts = append(opts, tea.WithFPS(s.fps))
	}
	if s.noSignalHandler {
		opts = append(opts, tea.WithoutSignalHandler())
	}
	if s.noRenderer {
		opts = append(opts, tea.WithoutRenderer())
	}
	return opts
}
