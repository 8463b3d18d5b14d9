package lazy

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrCircularLoad is returned when a loader requires a resource that is
	// already loading further up its own dependency chain.
	ErrCircularLoad = errors.New("lazy: circular load")

	// ErrMissingLoader is returned by Get for a name with no registered loader.
	ErrMissingLoader = errors.New("lazy: no loader registered")

	// ErrAlreadyRegistered is returned by Register for a name that already has a loader.
	ErrAlreadyRegistered = errors.New("lazy: loader already registered")

	// ErrInvalidRegistration is returned by Register for an empty name or nil loader.
	ErrInvalidRegistration = errors.New("lazy: invalid registration")

	// ErrLoaderPanic wraps a panic raised by a loader.
	ErrLoaderPanic = errors.New("lazy: loader panicked")

	// ErrWrongType is returned by GetAs when the loaded value has another type.
	ErrWrongType = errors.New("lazy: loaded value has unexpected type")
)
