package broadcast

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/metrics"
)

// Message is the JSON body of one SSE event.
type Message struct {
	Signal  string `json:"signal"`
	Payload any    `json:"payload,omitempty"`
}

// Hub manages SSE clients per channel. Broadcast never blocks: a client whose
// buffer is full is disconnected.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[bridge.Channel]map[int]*sseClient
	closed  bool

	buffer    int
	heartbeat time.Duration
	recorder  metrics.Recorder
	logger    *slog.Logger
}

type sseClient struct {
	id   int
	ch   chan []byte
	done chan struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithClientBuffer sets the per-client queue length.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithHeartbeat sets the keep-alive comment interval.
func WithHeartbeat(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func WithHubRecorder(r metrics.Recorder) HubOption { return func(h *Hub) { h.recorder = r } }
func WithHubLogger(l *slog.Logger) HubOption       { return func(h *Hub) { h.logger = l } }

var _ bridge.Sink = (*Hub)(nil)

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:   map[bridge.Channel]map[int]*sseClient{},
		buffer:    32,
		heartbeat: 30 * time.Second,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handler returns the SSE endpoint for channel.
func (h *Hub) Handler(channel bridge.Channel) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(channel, w, r)
	})
}

func (h *Hub) serve(channel bridge.Channel, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	client, ok := h.addClient(channel)
	if !ok {
		http.Error(w, "broadcast hub shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.removeClient(channel, client.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	write := func(frame string) bool {
		if _, err := bw.WriteString(frame); err != nil {
			h.logger.Debug("SSE write failed", logfields.Channel(string(channel)), logfields.Error(err))
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !write(": connected\n\n") {
		return
	}

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !write(": ping\n\n") {
				return
			}
		case frame := <-client.ch:
			if !write(string(frame)) {
				return
			}
		}
	}
}

func (h *Hub) addClient(channel bridge.Channel) (*sseClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &sseClient{id: h.nextID, ch: make(chan []byte, h.buffer), done: make(chan struct{})}
	h.nextID++
	if h.clients[channel] == nil {
		h.clients[channel] = map[int]*sseClient{}
	}
	h.clients[channel][c.id] = c
	h.recorder.SetSubscribers(string(channel), len(h.clients[channel]))
	return c, true
}

func (h *Hub) removeClient(channel bridge.Channel, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[channel][id]
	if !ok {
		return
	}
	delete(h.clients[channel], id)
	close(c.done)
	h.recorder.SetSubscribers(string(channel), len(h.clients[channel]))
}

// Subscribers returns the number of connected clients on channel.
func (h *Hub) Subscribers(channel bridge.Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// Broadcast queues the signal for every client of channel. A nil payload is
// omitted from the event body.
func (h *Hub) Broadcast(channel bridge.Channel, signal string, payload any) error {
	body, err := json.Marshal(Message{Signal: signal, Payload: payload})
	if err != nil {
		return ferrors.BroadcastError("encode broadcast payload").
			WithCause(err).
			WithContext("channel", string(channel)).
			WithContext("signal", signal).
			Build()
	}
	frame := []byte("event: " + signal + "\ndata: " + string(body) + "\n\n")

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return nil
	}
	snapshot := make([]*sseClient, 0, len(h.clients[channel]))
	for _, c := range h.clients[channel] {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- frame:
		default:
			dropped++
			h.recorder.IncSubscriberDropped(string(channel))
			h.removeClient(channel, c.id)
		}
	}
	h.logger.Debug("SSE broadcast",
		logfields.Channel(string(channel)), logfields.Signal(signal),
		"clients", len(snapshot), "dropped", dropped)
	return nil
}

// Shutdown disconnects all clients and turns later broadcasts into no-ops.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[bridge.Channel]map[int]*sseClient{}
	h.mu.Unlock()

	for channel, set := range clients {
		for _, c := range set {
			close(c.done)
		}
		h.recorder.SetSubscribers(string(channel), 0)
	}
}
