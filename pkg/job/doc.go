// Package job runs background tasks on River, a PostgreSQL-backed queue.
//
// Every task travels under one River job kind and is dispatched by name to
// the handler registered with WithTask or WithScheduledTask. Scheduled tasks
// use robfig/cron expressions and are inserted by River's elected leader, so
// running several replicas still produces one run per tick.
//
//	manager, err := job.NewManager(pool,
//		job.WithLogger(log),
//		job.WithTask[jobs.CleanupPayload](cleanup),
//		job.WithScheduledTask(sweep),
//	)
package job
