// Package ledger implements the business rules of the recycling ledger:
// deposit validation and reward accrual, redemption, certified collection,
// and authority-gated administration. This file centralizes the operation-level
// error values so callers can match on them with errors.Is; translation into
// exit codes or user-facing messages belongs to the cmd layer.
package ledger

import "errors"

// Validation errors (caller input malformed or out of policy).
var (
	// ErrUsernameTooLong is returned when a username exceeds 32 characters.
	ErrUsernameTooLong = errors.New("username too long (max 32 characters)")

	// ErrContainerIDTooLong is returned when a container id exceeds 32 characters.
	ErrContainerIDTooLong = errors.New("container id too long (max 32 characters)")

	// ErrLocationTooLong is returned when a container location exceeds 64 characters.
	ErrLocationTooLong = errors.New("location too long (max 64 characters)")

	// ErrProductIDTooLong is returned when a product id exceeds 32 characters.
	ErrProductIDTooLong = errors.New("product id too long (max 32 characters)")

	// ErrWeightTooLow is returned when a deposit is below the configured
	// minimum weight.
	ErrWeightTooLow = errors.New("deposit weight below the required minimum")
)

// State-conflict errors.
var (
	// ErrContainerInactive is returned when depositing into or collecting
	// from a deactivated container.
	ErrContainerInactive = errors.New("container is inactive")

	// ErrContainerFull is returned when a deposit would exceed the
	// container's capacity.
	ErrContainerFull = errors.New("container is full")

	// ErrContainerEmpty is returned when collecting a container that holds
	// no weight.
	ErrContainerEmpty = errors.New("container is empty")

	// ErrInsufficientTokens is returned when a redemption exceeds the user's
	// live token balance.
	ErrInsufficientTokens = errors.New("insufficient ECOC tokens")
)

// Authorization and lifecycle errors.
var (
	// ErrUnauthorized is returned when the caller is not the configured
	// authority for an authority-gated operation.
	ErrUnauthorized = errors.New("caller is not the configured authority")

	// ErrAlreadyInitialized is returned when Initialize runs against an
	// already-initialized ledger.
	ErrAlreadyInitialized = errors.New("ledger already initialized")

	// ErrNotInitialized is returned when an operation runs before Initialize.
	ErrNotInitialized = errors.New("ledger not initialized")

	// ErrUserExists is returned when registering a user that already has a
	// profile.
	ErrUserExists = errors.New("user already registered")

	// ErrContainerExists is returned when registering a container id that is
	// already taken.
	ErrContainerExists = errors.New("container already registered")
)

// Arithmetic errors.
var (
	// ErrArithmeticOverflow is returned when a checked counter or balance
	// addition would wrap.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
