// Package common defines shared constants, sentinel errors and small helpers
// used across the client packages. Callers should use errors.Is to match the
// sentinel values; package-level errors elsewhere wrap them.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Remote side could not be reached or answered with a server error.
	ErrorUnavailable = errors.New("remote unavailable")

	// Remote side refused the request.
	ErrorRejected = errors.New("rejected")

	// Validation errors.
	ErrorValidation = errors.New("validation error")
)
