package domain

import "errors"

var (
	// ErrInvalidIntent signals a search intent without a usable query.
	ErrInvalidIntent = errors.New("invalid search intent")
	// ErrRequestNotFound signals a missing request record.
	ErrRequestNotFound = errors.New("request not found")
	// ErrNoProviders signals that no configured provider matched the call.
	ErrNoProviders = errors.New("no providers available")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrPersistence signals that persisting search output failed after retry.
	// Search results are still returned to the caller when this occurs.
	ErrPersistence = errors.New("persistence failed")
)
