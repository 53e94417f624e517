// Package registry maps sensor SUIDs to logical sensor types and the
// transport handles used to address them.
//
// One physical sensor (one SUID) may serve several logical types. Each
// (SUID, type) pair gets its own registry entry; when a SUID is
// registered under a second type, the registry provisions a dedicated
// transport handle for the new entry so the hub can tell the two
// streams apart. Entries are only ever removed all at once, at
// teardown, which also releases every distinct handle exactly once.
//
// The dispatcher reads the registry on every inbound indication while
// the client mutates it during registration, so all access is
// mutex-guarded.
package registry
