package domain

import "errors"

// Sentinel errors shared across usecases. The service layer translates
// these into user-facing notices; they never escape as crashes.
var (
	// ErrAlreadyOwned is returned by a claim attempt after an owner exists.
	ErrAlreadyOwned = errors.New("bot already has an owner")

	// ErrAlreadyAdmin is returned when adding an identity that is already
	// an admin.
	ErrAlreadyAdmin = errors.New("already an admin")

	// ErrAlreadyExists is returned when adding a command whose name is
	// already taken.
	ErrAlreadyExists = errors.New("command already exists")

	// ErrNotFound is returned when removing an entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned for malformed command names.
	ErrInvalidName = errors.New("invalid command name")

	// ErrUnauthorized is returned when the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrWizardBusy is returned when a provisioning dialog is already in
	// flight and a fresh one is requested.
	ErrWizardBusy = errors.New("a command is already being added")
)
