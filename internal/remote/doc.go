// Package remote contains the client handles used to operate on a site's
// management service: repository, file system, deployment manager,
// repository manager and command executor.
//
// Handles are cheap to construct and never touch the network until used.
// The deployment manager and command executor additionally carry a
// WebSocket event session that is dialed when the first observer registers;
// the deployment manager reports whether that session is still usable via
// IsActive.
package remote
