package domain

import "errors"

var (
	// ErrBackendUnavailable indicates a transport failure, timeout or non-2xx status from a backend.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnknownProviderKind indicates a provider name that is not registered.
	ErrUnknownProviderKind = errors.New("unknown provider kind")

	// ErrProviderUnavailable indicates a capability with no valid backend, e.g. a missing credential.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidMessage indicates a request missing its user id or text.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNormalizationSkipped marks a malformed stream frame that was dropped.
	ErrNormalizationSkipped = errors.New("stream frame skipped")
)
