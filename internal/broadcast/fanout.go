package broadcast

import (
	"errors"

	"git.home.luguber.info/inful/sitehub/internal/bridge"
)

// Fanout delivers each broadcast to every sink in order. All sinks are tried
// even if one fails; the failures are joined.
type Fanout []bridge.Sink

var _ bridge.Sink = Fanout(nil)

func (f Fanout) Broadcast(channel bridge.Channel, signal string, payload any) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Broadcast(channel, signal, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
