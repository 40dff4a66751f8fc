package usecase

import "errors"

// Sentinel errors shared by the services. The HTTP layer maps each one to a
// status code, so wrap them rather than inventing new categories.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrRateLimited           = errors.New("rate limited")
)
