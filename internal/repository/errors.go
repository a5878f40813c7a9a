// Package repository defines the data access layer of the gateway.  Sentinel
// errors declared here let handlers choose the HTTP status without looking at
// driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not act on the row.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such as
// a receipt that was already recorded.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by signup for an address already registered.
var ErrEmailExists = errors.New("email already exists")

// Redemption failures.
var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrOutOfStock         = errors.New("reward out of stock")
	ErrTierTooLow         = errors.New("tier too low for reward")
	ErrAccountInactive    = errors.New("loyalty account not active")
)

// OTP verification failures.
var (
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeMismatch    = errors.New("code mismatch")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrResendTooSoon   = errors.New("code requested too recently")
)
