// Package broadcast provides bridge.Sink implementations: an SSE Hub serving
// one stream per channel, a NATS Relay, and Fanout to combine them.
package broadcast
