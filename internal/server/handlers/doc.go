// Package handlers contains HTTP handlers for the sitehub admin API.
//
// Site handlers resolve a site by name from the directory, look its handles
// up in the registry and call through to the site service. Errors are
// written by the foundation/errors HTTP adapter; payloads are defined in
// server/responses.
package handlers
