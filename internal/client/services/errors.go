// Package services holds the client controllers: the sign-in flow and the
// profile editing flow. Each controller owns one state machine, publishes
// its state through a statex.Value and exposes blocking entry points that
// the host runs on its own goroutines.
package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophprofile/internal/common"
)

var (
	// ErrBusy is returned when another operation of the same controller is
	// still in flight.
	ErrBusy = errors.New("operation already in progress")

	// ErrInvalidPhase is returned when an entry point is not allowed in the
	// current phase.
	ErrInvalidPhase = errors.New("not allowed in current state")

	// ErrClosed is returned by every entry point after Close.
	ErrClosed = errors.New("controller closed")

	ErrIncompleteProfile = fmt.Errorf("username and full name are required: %w", common.ErrorValidation)

	ErrNotAuthenticated = errors.New("not signed in")
)
