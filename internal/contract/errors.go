package contract

import "errors"

// Sentinel errors shared across packages. Wrap them with fmt.Errorf("...: %w")
// and match with errors.Is.
var (
	// ErrConfiguration is fatal: the process cannot run with the given settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound means an upstream has no data for the requested area.
	ErrNotFound = errors.New("not found")

	// ErrTransient covers upstream timeouts, 5xx responses and open breakers.
	ErrTransient = errors.New("transient upstream failure")

	// ErrCacheCorruption marks a cache entry that could not be decoded.
	ErrCacheCorruption = errors.New("cache entry corrupt")

	// ErrInvalidInput is reported back to the caller.
	ErrInvalidInput = errors.New("invalid input")
)
