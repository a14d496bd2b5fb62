// Package site caches the remote handles needed to operate on a site.
//
// A Registry keeps one entry per site name. Repository, file-system and
// repository-manager handles are created once per entry and reused for the
// life of the process. The deployment manager and command executor form a
// pair that is rebuilt together whenever the deployment manager reports that
// its event session is gone. Each live pair has its events forwarded to the
// broadcast sink exactly once; a replaced pair stops forwarding.
package site
