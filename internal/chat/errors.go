package chat

import "errors"

// Sentinel errors for conversation operations.
// These are part of the package's public API; check with errors.Is().
var (
	// ErrNotInitialized indicates a turn was submitted before a
	// document and model were loaded.
	ErrNotInitialized = errors.New("no document loaded")

	// ErrProviderInvocation indicates the model invocation failed,
	// including mid-stream.
	ErrProviderInvocation = errors.New("provider invocation failed")
)
