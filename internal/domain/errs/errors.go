// Package errs holds the domain-wide sentinel errors shared by repositories,
// application services and transport adapters.
package errs

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input data is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when the requester could not be identified
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an action is forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrExpired is returned when a time-bounded resource outlived its window
	ErrExpired = errors.New("resource expired")

	// ErrConcurrentModification is returned when a version conflict occurs
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidState is returned when aggregate state is invalid
	ErrInvalidState = errors.New("invalid aggregate state")
)
