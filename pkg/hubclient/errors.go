package hubclient

import "errors"

// Client errors.
var (
	// ErrNotRegistered is returned by Configure when the requested
	// sensor type has no registry entry. Nothing is sent.
	ErrNotRegistered = errors.New("sensor type not registered")

	// ErrAlreadyInit is returned by Init on an initialized client.
	ErrAlreadyInit = errors.New("client already initialized")

	// ErrNotInitialized is returned by operations that need a primary
	// handle before Init has succeeded.
	ErrNotInitialized = errors.New("client not initialized")
)
