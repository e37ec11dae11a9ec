// Package health serves the liveness and readiness probes.
//
// Liveness only reports that the process answers. Readiness runs every
// registered check concurrently under one deadline and reports each result
// with its latency:
//
//	{"status":"degraded","checks":[{"name":"database","status":"up","latency_ms":2}, ...]}
//
// A single failing check turns the probe into a 503.
package health
