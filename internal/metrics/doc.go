// Package metrics defines the Recorder used by the site registry and the
// event bridge, with a no-op default and a Prometheus implementation.
package metrics
