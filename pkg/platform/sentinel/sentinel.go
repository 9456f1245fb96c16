// Package sentinel holds the errors stores raise about resource state. They
// describe facts (a code is gone, a token was spent), not validation
// failures; stores wrap them with %w and services translate them into the
// protocol error the endpoint needs.
package sentinel

import "errors"

var (
	// ErrNotFound: the record does not exist. Expired records read as
	// not-found so callers cannot distinguish expiry from absence.
	ErrNotFound = errors.New("not found")
	// ErrExpired: the record exists but its lifetime has passed. Only
	// raised where the caller needs expiry semantics (refresh tokens,
	// device polls); single-use codes collapse this into ErrNotFound.
	ErrExpired = errors.New("expired")
	// ErrAlreadyUsed: a single-use artifact was consumed before. Replay
	// detection keys off this.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the record is in the wrong lifecycle state for the
	// requested transition.
	ErrInvalidState = errors.New("invalid state")
)
