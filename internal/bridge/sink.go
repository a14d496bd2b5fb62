package bridge

// Channel names a real-time broadcast group.
type Channel string

const (
	SourceControl Channel = "source-control"
	CommandLine   Channel = "command-line"
)

// Signals sent on the broadcast channels.
const (
	SignalUpdateDeployStatus = "updateDeployStatus"
	SignalDone               = "done"
	SignalData               = "onData"
)

// Sink delivers a signal with an optional payload to every subscriber of a
// channel. Implementations must not block on slow subscribers.
type Sink interface {
	Broadcast(channel Channel, signal string, payload any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(channel Channel, signal string, payload any) error

func (f SinkFunc) Broadcast(channel Channel, signal string, payload any) error {
	return f(channel, signal, payload)
}
