// Package reconcile turns recent billing state changes into one
// transactional notification per user and transition.
//
// A run queries the store for records whose UpdatedAt falls inside the
// window, once per Transition (pro_started: status pro of any type;
// pro_cancelled: status cancelled with type free), looks up each user's
// email and hands one notification per record to a notify.Dispatcher on a
// bounded worker pool. The Report counts attempts, successes and failures
// per transition.
//
// Runs are started either by Reconciler.Loop on an in-process schedule,
// whose windows follow the actual run times, or through TriggerHandler by
// an external cron. External schedules whose cadence is shorter than the
// window should attach a Ledger (RedisLedger or MemoryLedger) so overlapping
// windows do not notify the same change twice.
//
// The package only reads billing state. Failed notifications are not
// retried.
package reconcile
