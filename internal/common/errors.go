// Package common defines shared constants and sentinel errors used across
// the cookiegate server and tooling. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. Callers never learn which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEntropyUnavailable means the secure random source could not be
	// read. Salt generation must fail rather than fall back to a weaker
	// generator.
	ErrEntropyUnavailable = errors.New("entropy source unavailable")

	// Session token lifecycle errors.
	ErrInvalidSessionToken = errors.New("invalid session token")
	ErrSessionExpired      = errors.New("session expired")
)
