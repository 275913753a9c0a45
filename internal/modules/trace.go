package modules

import (
	eventloop "github.com/inference-gateway/modui/eventloop"
	zap "go.uber.org/zap"
)

// Trace logs every event it sees
type Trace[T any] struct {
	logger *zap.Logger
}

// NewTrace creates a trace module writing to logger
func NewTrace[T any](logger *zap.Logger) *Trace[T] {
	return &Trace[T]{logger: logger.Named("trace")}
}

// Name returns "trace"
func (t *Trace[T]) Name() string {
	return "trace"
}

// HandleEvent logs ev and lets it through
func (t *Trace[T]) HandleEvent(ev *eventloop.Event[T], target eventloop.Target) eventloop.Outcome[error] {
	if ce := t.logger.Check(zap.DebugLevel, "event"); ce != nil {
		fields := []zap.Field{
			zap.Uint64("seq", ev.Seq),
			zap.Stringer("kind", ev.Kind),
			zap.Bool("handled", ev.Handled),
			zap.Bool("exiting", target.Exiting()),
		}
		switch ev.Kind {
		case eventloop.KindKey:
			fields = append(fields, zap.String("key", ev.Key), zap.Stringer("mods", ev.Mods))
		case eventloop.KindMouse:
			fields = append(fields, zap.Int("x", ev.X), zap.Int("y", ev.Y), zap.String("button", ev.Button), zap.String("action", ev.Text))
		case eventloop.KindResize, eventloop.KindRedraw:
			fields = append(fields, zap.Int("width", ev.Width), zap.Int("height", ev.Height))
		case eventloop.KindPaste:
			fields = append(fields, zap.Int("length", len(ev.Runes)))
		case eventloop.KindUser:
			fields = append(fields, zap.Any("payload", ev.User))
		}
		ce.Write(fields...)
	}
	return eventloop.Continue[error]()
}

// Close flushes the logger
func (t *Trace[T]) Close() error {
	_ = t.logger.Sync()
	return nil
}
