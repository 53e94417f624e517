// Package hubclient turns the hub's asynchronous, indication-based
// protocol into blocking calls with bounded timeouts.
//
// The client owns a sensor registry, a single-flight pending slot, and
// one or more transport handles. Synchronous operations (FindSensors,
// Attributes, Register, Configure) follow one shape: arm the pending
// slot for the expected result indication, send the command, wait, and
// always disarm on the way out. The dispatcher runs on the transport's
// reader goroutine: it decodes every inbound report, satisfies the
// pending slot when the report matches the armed (SUID, kind) pair, and
// otherwise forwards the decoded event to the configured callback once
// per logical type registered for that SUID.
//
// The client is not safe for concurrent synchronous operations; callers
// issue them serially. The dispatcher synchronizes with the caller
// through the pending slot and the registry, both internally locked.
package hubclient
