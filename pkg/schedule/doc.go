// Package schedule describes recurring trigger times for in-process jobs
// such as the daily reconciliation run.
package schedule
