// Package bridge forwards events from a site's deployment manager and command
// executor to real-time broadcast channels.
//
// Forwarding is attached once per handle instance and can never be
// unsubscribed at the source. When the registry replaces a handle pair it
// retires the old attachments instead; a retired attachment drops whatever
// its dying handle still emits.
package bridge
