// Package httpapi is the HTTP surface of portmail: the user-scoped job
// management API, the port template list, the sweep trigger endpoint and the
// health and metrics endpoints.
//
// Errors from the domain packages are mapped to *Error values and rendered
// as JSON by a single renderer:
//
//	{"error": "job not found", "code": "not_found", "request_id": "..."}
package httpapi
