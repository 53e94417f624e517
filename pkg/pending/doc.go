// Package pending implements the single-flight slot that synchronous
// client operations wait on.
//
// The client issues one synchronous operation at a time: it arms the
// tracker for the (SUID, kind) pair it expects a result indication for,
// sends the command, and waits. The dispatcher, running on the
// transport's reader goroutine, offers every inbound report to the
// tracker via Satisfy; a match deposits the decoded result and wakes
// the waiter, a miss tells the dispatcher to forward the report to the
// event callback instead.
//
// Arming while a request is already armed is caller misuse and panics.
// Disarm is idempotent and must run on every exit path, including
// timeouts and send failures, so a stale armed slot can never block
// later operations.
package pending
