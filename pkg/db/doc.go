// Package db connects to PostgreSQL through pgxpool and applies goose
// migrations embedded in the binary.
//
// Environment:
//
//	DATABASE_CONN_URL           PostgreSQL URL (required)
//	DATABASE_AUTO_MIGRATE       apply migrations when serving (default false)
//	DATABASE_MAX_OPEN_CONNS     pool size (default 10)
//	DATABASE_RETRY_ATTEMPTS     connection attempts at startup (default 3)
package db
