// Package app assembles portmail from its configuration: the database pool,
// object storage, attachment cache, mailer and dispatcher, and on top of them
// the HTTP server, the job manager running the scheduled sweep, and the
// development self-trigger.
package app
