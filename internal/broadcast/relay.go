package broadcast

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
	ferrors "git.home.luguber.info/inful/sitehub/internal/foundation/errors"
	"git.home.luguber.info/inful/sitehub/internal/logfields"
)

// Publisher is the subset of *nats.Conn the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Relay republishes broadcasts to NATS on "<prefix>.<channel>.<signal>".
// nats.Conn.Publish buffers, so Broadcast does not wait on the server.
type Relay struct {
	pub    Publisher
	prefix string
	conn   *nats.Conn
}

var _ bridge.Sink = (*Relay)(nil)

// NewRelay wraps an existing publisher.
func NewRelay(pub Publisher, prefix string) *Relay {
	return &Relay{pub: pub, prefix: strings.Trim(prefix, ".")}
}

// DialRelay connects to the NATS server at url.
func DialRelay(url, prefix string, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("sitehub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", logfields.URL(c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, ferrors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	logger.Info("NATS relay connected", logfields.URL(url), "subject_prefix", prefix)
	r := NewRelay(conn, prefix)
	r.conn = conn
	return r, nil
}

// Subject returns the subject used for channel and signal.
func (r *Relay) Subject(channel bridge.Channel, signal string) string {
	parts := []string{string(channel), signal}
	if r.prefix != "" {
		parts = append([]string{r.prefix}, parts...)
	}
	return strings.Join(parts, ".")
}

func (r *Relay) Broadcast(channel bridge.Channel, signal string, payload any) error {
	body, err := json.Marshal(Message{Signal: signal, Payload: payload})
	if err != nil {
		return ferrors.BroadcastError("encode relay payload").WithCause(err).Build()
	}
	subject := r.Subject(channel, signal)
	if err := r.pub.Publish(subject, body); err != nil {
		return ferrors.BroadcastError("publish to NATS").
			WithCause(err).
			WithContext("subject", subject).
			Build()
	}
	return nil
}

// Close drains the connection if the relay dialed it.
func (r *Relay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}
