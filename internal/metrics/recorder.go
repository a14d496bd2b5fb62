package metrics

import "time"

// LookupResult labels the outcome of one registry lookup.
type LookupResult string

const (
	LookupHit      LookupResult = "hit"       // cached bundle reused as-is
	LookupMiss     LookupResult = "miss"      // bundle constructed and inserted
	LookupRaceLost LookupResult = "race_lost" // constructed bundle discarded for a concurrent winner
	LookupReplaced LookupResult = "replaced"  // stale deployment pair replaced
	LookupFailed   LookupResult = "failed"    // construction or replacement failed
)

// Recorder defines observability hooks for the registry and bridge. All
// methods must be safe on the NoopRecorder so injection stays optional.
type Recorder interface {
	IncLookup(result LookupResult)
	ObserveConstruction(kind string, d time.Duration)
	IncBroadcast(channel, signal string, success bool)
	IncForwardDropped(channel string)
	SetCachedSites(n int)
	SetSubscribers(channel string, n int)
	IncSubscriberDropped(channel string)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncLookup(LookupResult)                        {}
func (NoopRecorder) ObserveConstruction(string, time.Duration)     {}
func (NoopRecorder) IncBroadcast(string, string, bool)             {}
func (NoopRecorder) IncForwardDropped(string)                      {}
func (NoopRecorder) SetCachedSites(int)                            {}
func (NoopRecorder) SetSubscribers(string, int)                    {}
func (NoopRecorder) IncSubscriberDropped(string)                   {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
