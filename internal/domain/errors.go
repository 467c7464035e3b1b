package domain

import "errors"

// Error taxonomy shared by services and the HTTP layer.
var (
	// ErrValidation is returned for missing or malformed input.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized is returned when an admin credential is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a referenced code, market or row is absent.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when a client exceeded its request window.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict is returned on a duplicate referral code or feedback submission.
	ErrConflict = errors.New("conflict")

	// ErrIntegrityFault marks a unit of work that must be skipped, e.g. a
	// withdraw exceeding the position balance or an unknown event signature.
	ErrIntegrityFault = errors.New("integrity fault")

	// ErrNotEligible is returned when a proxy never deposited.
	ErrNotEligible = errors.New("not eligible")
)
