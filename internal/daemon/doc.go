// Package daemon runs the background parts of the sitehub server: periodic
// site warm-up on a gocron scheduler and configuration reload on file change.
package daemon
