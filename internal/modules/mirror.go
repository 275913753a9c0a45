package modules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	websocket "github.com/gorilla/websocket"
	config "github.com/inference-gateway/modui/config"
	eventloop "github.com/inference-gateway/modui/eventloop"
	zap "go.uber.org/zap"
	errgroup "golang.org/x/sync/errgroup"
)

const (
	mirrorClientBuffer  = 64
	mirrorWriteTimeout  = 5 * time.Second
	mirrorShutdownGrace = 2 * time.Second
)

// Mirror serves a websocket endpoint streaming every event to connected
// clients. Slow clients lose events instead of blocking dispatch.
type Mirror[T any] struct {
	runID    string
	logger   *zap.Logger
	path     string
	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	cancel context.CancelFunc
	group  *errgroup.Group

	mu      sync.Mutex
	closed  bool
	clients map[*mirrorClient]struct{}
	writers sync.WaitGroup
	dropped atomic.Uint64
}

type mirrorClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ListenMirror starts serving on cfg.Addr. Port 0 picks a free port; see Addr.
func ListenMirror[T any](ctx context.Context, cfg config.MirrorConfig, env Env) (*Mirror[T], error) {
	path := cfg.Path
	if path == "" {
		path = "/events"
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)

	m := &Mirror[T]{
		runID:    env.RunID,
		logger:   env.logger().Named("mirror"),
		path:     path,
		listener: listener,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		cancel:  cancel,
		group:   group,
		clients: make(map[*mirrorClient]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, m.handleWebSocket)
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group.Go(func() error {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mirror server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), mirrorShutdownGrace)
		defer cancel()
		return m.server.Shutdown(shutdownCtx)
	})

	m.logger.Info("mirror listening", zap.String("url", m.URL()))
	return m, nil
}

// Name returns "mirror"
func (m *Mirror[T]) Name() string {
	return "mirror"
}

// Addr returns the address the server listens on
func (m *Mirror[T]) Addr() net.Addr {
	return m.listener.Addr()
}

// URL returns the websocket URL clients connect to
func (m *Mirror[T]) URL() string {
	return fmt.Sprintf("ws://%s%s", m.listener.Addr().String(), m.path)
}

// ClientCount returns the number of connected clients
func (m *Mirror[T]) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Dropped returns how many messages were discarded for slow clients
func (m *Mirror[T]) Dropped() uint64 {
	return m.dropped.Load()
}

// HandleEvent fans ev out to every client and lets it through
func (m *Mirror[T]) HandleEvent(ev *eventloop.Event[T], _ eventloop.Target) eventloop.Outcome[error] {
	rec, err := NewRecord(m.runID, ev)
	if err != nil {
		return eventloop.Fail(fmt.Errorf("mirror: %w", err))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return eventloop.Fail(fmt.Errorf("mirror: %w", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		select {
		case c.send <- data:
		default:
			m.dropped.Add(1)
		}
	}
	return eventloop.Continue[error]()
}

func (m *Mirror[T]) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &mirrorClient{conn: conn, send: make(chan []byte, mirrorClientBuffer)}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.clients[c] = struct{}{}
	m.writers.Add(1)
	m.mu.Unlock()
	m.logger.Debug("websocket connected", zap.String("remote", r.RemoteAddr))

	go m.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	m.remove(c)
	m.logger.Debug("websocket disconnected", zap.String("remote", r.RemoteAddr))
}

func (m *Mirror[T]) writeLoop(c *mirrorClient) {
	defer m.writers.Done()
	defer func() { _ = c.conn.Close() }()

	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(mirrorWriteTimeout)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			m.logger.Debug("websocket write failed", zap.Error(err))
			m.remove(c)
			return
		}
	}

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// remove unregisters c and stops its writer. It is a no-op for clients
// already removed.
func (m *Mirror[T]) remove(c *mirrorClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; !ok {
		return
	}
	delete(m.clients, c)
	close(c.send)
}

// Close stops the server and disconnects every client
func (m *Mirror[T]) Close() error {
	m.cancel()
	err := m.group.Wait()

	m.mu.Lock()
	m.closed = true
	for c := range m.clients {
		delete(m.clients, c)
		close(c.send)
	}
	m.mu.Unlock()

	m.writers.Wait()
	return err
}
