// Package shared holds cross-cutting domain types: sentinel errors,
// pagination, the permission scope taxonomy, and partial-update merge rules.
package shared

import "errors"

var (
	// ErrNotFound indicates the record is absent or soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates an active record with the same unique key exists.
	ErrDuplicate = errors.New("already exists")
	// ErrChildRecords blocks a delete while non-deleted children reference the record.
	ErrChildRecords = errors.New("child records exist")
	// ErrInvalidReference indicates a foreign key points at a missing or deleted record.
	ErrInvalidReference = errors.New("referenced record not found")
	// ErrValidation indicates malformed input rejected before business logic.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials collapses every login-chain failure into one message.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshToken indicates a missing, invalid, or expired refresh token.
	ErrRefreshToken = errors.New("invalid refresh token")
	// ErrUserGone indicates the refresh token subject no longer exists.
	ErrUserGone = errors.New("the user belonging to this token no longer exists")
	// ErrSelfAction rejects administrative operations a user aims at their own account.
	ErrSelfAction = errors.New("operation not permitted on own account")
	// ErrUnauthorized indicates a missing or unverifiable access token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates valid credentials without the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrTooManyAttempts indicates the login throttle tripped.
	ErrTooManyAttempts = errors.New("too many login attempts")
)
