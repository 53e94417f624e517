package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/senshub-protocol/senshub-go/pkg/model"
	"github.com/senshub-protocol/senshub-go/pkg/transport"
	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// Registry errors.
var (
	ErrUnknownSensorType = errors.New("unknown sensor type")
	ErrNoPrimaryHandle   = errors.New("no primary handle")
)

// HandleOpener provisions an additional transport handle for an entry
// that cannot share an existing one.
type HandleOpener func(ctx context.Context) (transport.Handle, error)

// Entry binds one logical sensor type of one physical sensor to the
// transport handle used to address it.
type Entry struct {
	// Suid identifies the physical sensor.
	Suid wire.SUID

	// SensorType is the logical type this entry serves.
	SensorType model.SensorType

	// Handle is the transport connection commands for this entry go out on.
	Handle transport.Handle
}

// Registry tracks registered sensors and owns the transport handle set.
// handles[0] is the primary handle every first registration shares;
// later slots hold disambiguation handles opened per additional type.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	handles []transport.Handle
	opener  HandleOpener
}

// New creates an empty registry. opener is invoked when a SUID is
// registered under a second logical type and needs its own handle;
// a nil opener makes such registrations fail.
func New(opener HandleOpener) *Registry {
	return &Registry{opener: opener}
}

// SetPrimary installs the shared handle used by first registrations.
// Called once during client initialization.
func (r *Registry) SetPrimary(h transport.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.handles) == 0 {
		r.handles = append(r.handles, h)
		return
	}
	r.handles[0] = h
}

// Primary returns the shared handle, if one is installed.
func (r *Registry) Primary() (transport.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.handles) == 0 || r.handles[0] == nil {
		return nil, false
	}
	return r.handles[0], true
}

// Register adds the (suid, sensorType) pair. Registering an existing
// pair is a no-op reporting alreadyRegistered = true. Registering a
// SUID that is already bound to a different type provisions a new
// transport handle for the new entry; if opening it fails, nothing is
// added. The unknown sensor type is always rejected.
func (r *Registry) Register(ctx context.Context, sensorType model.SensorType, suid wire.SUID) (alreadyRegistered bool, err error) {
	if !sensorType.IsValid() || sensorType == model.SensorTypeUnknown {
		return false, fmt.Errorf("%w: %d", ErrUnknownSensorType, sensorType)
	}

	r.mu.Lock()
	suidSeen := false
	for _, e := range r.entries {
		if e.Suid != suid {
			continue
		}
		if e.SensorType == sensorType {
			r.mu.Unlock()
			return true, nil
		}
		suidSeen = true
	}

	if !suidSeen {
		if len(r.handles) == 0 || r.handles[0] == nil {
			r.mu.Unlock()
			return false, ErrNoPrimaryHandle
		}
		r.entries = append(r.entries, Entry{Suid: suid, SensorType: sensorType, Handle: r.handles[0]})
		r.mu.Unlock()
		return false, nil
	}

	// Same SUID, new type: the entry needs its own handle so the hub
	// can disambiguate the two streams. Open outside the lock; the
	// service wait can block.
	opener := r.opener
	r.mu.Unlock()

	if opener == nil {
		return false, fmt.Errorf("cannot disambiguate %s: no handle opener", suid)
	}
	h, err := opener(ctx)
	if err != nil {
		return false, fmt.Errorf("opening disambiguation handle for %s: %w", suid, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another registration may have raced in while the lock was
	// released; re-check the pair before inserting.
	for _, e := range r.entries {
		if e.Suid == suid && e.SensorType == sensorType {
			h.Close()
			return true, nil
		}
	}

	r.handles = append(r.handles, h)
	r.entries = append(r.entries, Entry{Suid: suid, SensorType: sensorType, Handle: h})
	return false, nil
}

// EntriesFor returns every entry registered for suid, in registration
// order. The slice is the caller's to keep.
func (r *Registry) EntriesFor(suid wire.SUID) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.Suid == suid {
			out = append(out, e)
		}
	}
	return out
}

// TypesFor returns the logical types registered for suid.
func (r *Registry) TypesFor(suid wire.SUID) []model.SensorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.SensorType
	for _, e := range r.entries {
		if e.Suid == suid {
			out = append(out, e.SensorType)
		}
	}
	return out
}

// HandleFor returns the transport handle and SUID registered for the
// given logical type.
func (r *Registry) HandleFor(sensorType model.SensorType) (transport.Handle, wire.SUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.SensorType == sensorType {
			return e.Handle, e.Suid, true
		}
	}
	return nil, wire.SUID{}, false
}

// IsRegistered reports whether any entry exists for the logical type.
func (r *Registry) IsRegistered(sensorType model.SensorType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.SensorType == sensorType {
			return true
		}
	}
	return false
}

// Entries returns a copy of all entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear empties the registry. With release set, every handle the
// registry holds is closed exactly once, shared handles included.
// Safe to call on a partially initialized registry, and again after.
func (r *Registry) Clear(release bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	if release {
		for _, h := range r.handles {
			if h == nil {
				continue
			}
			if err := h.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	r.entries = nil
	r.handles = nil
	return firstErr
}
