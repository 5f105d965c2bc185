// Package audit provides best-effort, append-only audit logging for
// authorization decisions and permission mutations.
//
// Entries flow through a Sink. The production wiring wraps a DBSink (or
// FileSink) in a BestEffortSink, which detaches writes from the caller and
// swallows failures: an audit outage must never change an authorization
// result. Retention is handled by Purger on a cron schedule; nothing else
// deletes or mutates entries.
package audit
