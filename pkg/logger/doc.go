// Package logger builds the application *slog.Logger.
//
// Records are written as JSON (or text) to stdout, optionally teed into a
// rotated file, and optionally forwarded to Sentry when SENTRY_DSN is set.
// Context extractors add request-scoped attributes such as request_id on
// every call:
//
//	log, closeLog := logger.New(cfg.Log, httpapi.RequestIDExtractor())
//	defer closeLog()
//
//	log.InfoContext(ctx, "sweep finished", slog.Int("sent", 3))
//	// {"level":"INFO","msg":"sweep finished","sent":3,"request_id":"..."}
package logger
