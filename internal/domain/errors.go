package domain

import "errors"

var (
	// ErrAuth: no credential, or the remote side refused it.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork: transient transport failure.
	ErrNetwork = errors.New("network error")
	// ErrValidation: a record was rejected before persistence.
	ErrValidation = errors.New("validation rejected")
	// ErrIntegrity: structural records are missing after seeding.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrMutexConflict: hydration for another user is in flight.
	ErrMutexConflict = errors.New("hydration already in progress for another user")
	ErrNotReady      = errors.New("hydration not ready")
	ErrNotFound      = errors.New("not found")
)
