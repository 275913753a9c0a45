// Package x11 implements an event source backed by an X11 window.
package x11

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	xgb "github.com/BurntSushi/xgb"
	xproto "github.com/BurntSushi/xgb/xproto"
	xgbutil "github.com/BurntSushi/xgbutil"
	keybind "github.com/BurntSushi/xgbutil/keybind"
	eventloop "github.com/inference-gateway/modui/eventloop"
)

// SourceName identifies this backend in errors and logs
const SourceName = "x11"

var (
	// ErrRunning is returned by Run when the source is already running or has run
	ErrRunning = errors.New("x11 source can only be run once")
	// ErrConnectionClosed is returned by Run when the X server goes away
	ErrConnectionClosed = errors.New("x11 connection closed")
	// ErrClosed is returned by Send once the source has stopped
	ErrClosed = errors.New("x11 source is closed")
)

const windowEventMask = xproto.EventMaskExposure |
	xproto.EventMaskKeyPress |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskFocusChange

// Options configures the window opened by the source
type Options struct {
	// Display overrides $DISPLAY
	Display string
	Width   int
	Height  int
	Title   string
}

// Source reads events from its own X11 window. It implements
// eventloop.Source and eventloop.Sender.
type Source[T any] struct {
	xu     *xgbutil.XUtil
	conn   *xgb.Conn
	window xproto.Window
	tr     translator[T]

	user      chan T
	done      chan struct{}
	closeOnce sync.Once
	started   atomic.Bool
}

var (
	_ eventloop.Source[eventloop.Unit] = (*Source[eventloop.Unit])(nil)
	_ eventloop.Sender[eventloop.Unit] = (*Source[eventloop.Unit])(nil)
)

// NewBuilder returns a builder connecting to the X server described by opts
func NewBuilder[T any](opts Options) eventloop.Builder[T] {
	return eventloop.BuilderFunc[T](func() (eventloop.Source[T], error) {
		src, err := New[T](opts)
		if err != nil {
			return nil, err
		}
		return src, nil
	})
}

// New connects to the X server and maps a window. Any failure is reported as
// *eventloop.SourceInitError.
func New[T any](opts Options) (*Source[T], error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > math.MaxUint16 || opts.Height > math.MaxUint16 {
		return nil, initError(fmt.Errorf("invalid window size %dx%d", opts.Width, opts.Height))
	}

	xu, err := xgbutil.NewConnDisplay(opts.Display)
	if err != nil {
		return nil, initError(fmt.Errorf("failed to connect to X11 display %q: %w", opts.Display, err))
	}
	keybind.Initialize(xu)

	src := &Source[T]{
		xu:   xu,
		conn: xu.Conn(),
		user: make(chan T, 16),
		done: make(chan struct{}),
	}
	src.tr.lookup = func(state uint16, code xproto.Keycode) string {
		return keybind.LookupString(xu, state, code)
	}

	if err := src.openWindow(opts); err != nil {
		src.conn.Close()
		return nil, initError(err)
	}
	return src, nil
}

func initError(err error) error {
	return &eventloop.SourceInitError{Source: SourceName, Err: err}
}

func (s *Source[T]) openWindow(opts Options) error {
	screen := s.xu.Screen()

	wid, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = xproto.CreateWindowChecked(s.conn, screen.RootDepth, wid, screen.Root,
		0, 0, uint16(opts.Width), uint16(opts.Height), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{screen.WhitePixel, windowEventMask}).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	s.window = wid

	if opts.Title != "" {
		xproto.ChangeProperty(s.conn, xproto.PropModeReplace, wid, xproto.AtomWmName,
			xproto.AtomString, 8, uint32(len(opts.Title)), []byte(opts.Title))
	}

	protocols, err := s.internAtom("WM_PROTOCOLS")
	if err != nil {
		return err
	}
	deleteWindow, err := s.internAtom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	s.tr.wmProtocols = protocols
	s.tr.wmDelete = deleteWindow

	data := make([]byte, 4)
	xgb.Put32(data, uint32(deleteWindow))
	xproto.ChangeProperty(s.conn, xproto.PropModeReplace, wid, protocols, xproto.AtomAtom, 32, 1, data)

	s.tr.width, s.tr.height = opts.Width, opts.Height
	return xproto.MapWindowChecked(s.conn, wid).Check()
}

func (s *Source[T]) internAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}

// Window returns the id of the window the source reads from
func (s *Source[T]) Window() xproto.Window {
	return s.window
}

// Send delivers payload as a KindUser event
func (s *Source[T]) Send(payload T) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.user <- payload:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Run dispatches window events until a handler exits, the window manager
// closes the connection or the server reports a protocol error. The window
// and connection are released when Run returns.
func (s *Source[T]) Run(fn func(ev *eventloop.Event[T], target eventloop.Target)) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.Close()

	events := make(chan xgb.Event)
	errs := make(chan error, 1)
	go s.pump(events, errs)

	var target eventloop.ExitFlag
	var seq uint64
	for {
		var ev eventloop.Event[T]
		select {
		case xev, ok := <-events:
			if !ok {
				return ErrConnectionClosed
			}
			translated, ok := s.tr.translate(xev)
			if !ok {
				continue
			}
			ev = translated
		case err := <-errs:
			return fmt.Errorf("x11 protocol error: %w", err)
		case payload := <-s.user:
			ev = eventloop.Event[T]{Kind: eventloop.KindUser, User: payload}
		}

		seq++
		ev.Seq = seq
		ev.Time = time.Now()
		fn(&ev, &target)

		if target.Exiting() {
			return nil
		}
	}
}

func (s *Source[T]) pump(events chan<- xgb.Event, errs chan<- error) {
	defer close(events)
	for {
		xev, xerr := s.conn.WaitForEvent()
		if xev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			select {
			case errs <- xerr:
			default:
			}
			continue
		}
		select {
		case events <- xev:
		case <-s.done:
			return
		}
	}
}

// Close destroys the window and closes the connection. It is safe to call
// more than once.
func (s *Source[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.window != 0 {
			xproto.DestroyWindow(s.conn, s.window)
		}
		s.conn.Close()
	})
}

// Provider registers the X11 backend as a default event source
type Provider struct {
	Options Options
}

// Name returns the backend name
func (p *Provider) Name() string {
	return SourceName
}

// IsAvailable reports whether an X display is configured
func (p *Provider) IsAvailable() bool {
	return p.Options.Display != "" || os.Getenv("DISPLAY") != ""
}

// Build opens a window without user payloads
func (p *Provider) Build() (eventloop.Source[eventloop.Unit], error) {
	src, err := New[eventloop.Unit](p.Options)
	if err != nil {
		return nil, err
	}
	return src, nil
}

var _ eventloop.Provider = (*Provider)(nil)
