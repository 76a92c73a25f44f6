// Package cron schedules recurring maintenance tasks inside a digest
// process: purging old terminal jobs, logging stats snapshots, topping
// up demo jobs.
//
// # Task
//
// A [Task] pairs a name with a cron expression and a function:
//   - Schedule: standard 5-field cron expression (e.g., "0 * * * *")
//     or a descriptor like "@every 5m"
//   - Func: called on each fire; errors are logged, never fatal
//
// # Scheduler
//
// The [Scheduler] evaluates due tasks on every tick and runs them
// inline. Tasks run one at a time per scheduler; a slow task delays
// later ones rather than overlapping itself.
package cron
