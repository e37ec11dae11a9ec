// Package jobs owns the scheduled email job: its model and status values, the
// PostgreSQL store with the conditional transitions used by the dispatcher and
// by user actions, the user-facing service, and the background task that
// removes a deleted job's attachment files.
//
// Every status write is a conditional update on the expected current status,
// so a job claimed by one sweep cannot be claimed by another, and a cancel or
// retry never overwrites a transition made in between.
package jobs
