package bridge

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitehub/internal/logfields"
	"git.home.luguber.info/inful/sitehub/internal/metrics"
	"git.home.luguber.info/inful/sitehub/internal/remote"
)

// Bridge attaches event forwarding to freshly constructed handles.
type Bridge struct {
	sink     Sink
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// Option configures a Bridge.
type Option func(*Bridge)

func WithLogger(l *slog.Logger) Option       { return func(b *Bridge) { b.logger = l } }
func WithRecorder(r metrics.Recorder) Option { return func(b *Bridge) { b.recorder = r } }
func withClock(now func() time.Time) Option  { return func(b *Bridge) { b.now = now } }

// New returns a Bridge publishing to sink.
func New(sink Sink, opts ...Option) *Bridge {
	b := &Bridge{
		sink:     sink,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Attachment is the forwarding subscription of one handle instance.
type Attachment struct {
	site         string
	channel      Channel
	subscription remote.Subscription

	// mu is held across the retired check and the broadcast, so Retire
	// waits for an in-flight event and nothing is forwarded once it returns.
	mu      sync.Mutex
	retired bool
}

// Subscription returns the source-side subscription backing this attachment.
func (a *Attachment) Subscription() remote.Subscription { return a.subscription }

// Retire stops forwarding. It blocks until an event being forwarded has
// reached the sink; every later event is dropped.
func (a *Attachment) Retire() {
	a.mu.Lock()
	a.retired = true
	a.mu.Unlock()
}

// Retired reports whether Retire was called.
func (a *Attachment) Retired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retired
}

// AttachDeployment forwards every status change of dm to the source-control
// channel as a DeployResultView.
func (b *Bridge) AttachDeployment(site string, dm remote.DeploymentManager) *Attachment {
	a := &Attachment{site: site, channel: SourceControl}
	a.subscription = dm.OnStatusChanged(func(r remote.DeployResult) {
		b.forward(a, SignalUpdateDeployStatus, NewDeployResultView(r, b.now()))
	})
	return a
}

// AttachCommand forwards command events of ce to the command-line channel:
// completion becomes a payload-less done signal, anything else carries its data.
func (b *Bridge) AttachCommand(site string, ce remote.CommandExecutor) *Attachment {
	a := &Attachment{site: site, channel: CommandLine}
	a.subscription = ce.OnCommandEvent(func(e remote.CommandEvent) {
		if e.EventType == remote.CommandComplete {
			b.forward(a, SignalDone, nil)
			return
		}
		b.forward(a, SignalData, e.Data)
	})
	return a
}

// forward runs on the handle's delivery goroutine. Nothing it does may fail
// or panic back into the handle.
func (b *Bridge) forward(a *Attachment, signal string, payload any) {
	channel := string(a.channel)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retired {
		b.recorder.IncForwardDropped(channel)
		b.logger.Debug("Dropping event from retired handle",
			logfields.Site(a.site), logfields.Channel(channel), logfields.Signal(signal))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.recorder.IncBroadcast(channel, signal, false)
			b.logger.Error("Broadcast sink panicked",
				logfields.Site(a.site), logfields.Channel(channel), logfields.Signal(signal), "panic", r)
		}
	}()

	if err := b.sink.Broadcast(a.channel, signal, payload); err != nil {
		b.recorder.IncBroadcast(channel, signal, false)
		b.logger.Warn("Broadcast failed",
			logfields.Site(a.site), logfields.Channel(channel), logfields.Signal(signal), logfields.Error(err))
		return
	}
	b.recorder.IncBroadcast(channel, signal, true)
}
