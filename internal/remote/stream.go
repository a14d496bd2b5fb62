package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/sitehub/internal/logfields"
)

// eventStream is a lazily dialed WebSocket session delivering JSON events of
// type T to registered observers, one at a time and in arrival order.
//
// The session is usable until it is torn down: the dial fails, the remote
// closes the connection, or close is called. A torn-down stream never
// reconnects; its owner is expected to be replaced.
type eventStream[T any] struct {
	handle   string
	instance string
	url      string
	dialer   *websocket.Dialer
	logger   *slog.Logger

	mu        sync.Mutex
	observers []func(T)
	started   bool
	conn      *websocket.Conn

	dead   atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func newEventStream[T any](handle, baseURL string, dialer *websocket.Dialer, logger *slog.Logger) *eventStream[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &eventStream[T]{
		handle:   handle,
		instance: uuid.NewString(),
		url:      streamURL(baseURL),
		dialer:   dialer,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// streamURL maps an http(s) base URL to the ws(s) events endpoint below it.
// Unparseable input is passed through so the dial reports the problem.
func streamURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	return u.String()
}

// subscribe registers fn and starts the session on first use.
func (s *eventStream[T]) subscribe(fn func(T)) Subscription {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	start := !s.started
	s.started = true
	s.mu.Unlock()

	if start {
		go s.run()
	}
	return Subscription{ID: uuid.NewString(), Handle: s.handle, Instance: s.instance}
}

func (s *eventStream[T]) alive() bool {
	return !s.dead.Load()
}

func (s *eventStream[T]) run() {
	log := s.logger.With(logfields.Handle(s.handle), logfields.InstanceID(s.instance), logfields.URL(s.url))
	defer s.dead.Store(true)

	conn, resp, err := s.dialer.DialContext(s.ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if s.ctx.Err() == nil {
			log.Warn("Event stream dial failed", logfields.Error(err))
		}
		return
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()
	log.Debug("Event stream connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !isNormalClose(err) && s.ctx.Err() == nil {
				log.Warn("Event stream terminated", logfields.Error(err))
			} else {
				log.Debug("Event stream closed")
			}
			return
		}
		var evt T
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Warn("Dropping malformed event", logfields.Error(err))
			continue
		}
		s.dispatch(evt, log)
	}
}

func (s *eventStream[T]) dispatch(evt T, log *slog.Logger) {
	s.mu.Lock()
	observers := make([]func(T), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Event observer panicked", "panic", r)
				}
			}()
			fn(evt)
		}()
	}
}

// close tears the session down. It is safe to call more than once.
func (s *eventStream[T]) close() error {
	s.dead.Store(true)
	s.cancel()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func isNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
