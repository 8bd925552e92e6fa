// Package common holds the error taxonomy shared by stores, services and handlers.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for missing or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAuthFailure is returned for bad credentials or a missing/invalid token.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNotFound is returned for a missing entity, or one the caller does not own.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrAlreadyRated is returned when the (photo, rater) pair is already in the ledger.
	ErrAlreadyRated = errors.New("photo already rated")
	// ErrSelfRating is returned when an owner tries to rate their own photo.
	ErrSelfRating = errors.New("cannot rate your own photo")
	// ErrInsufficientBalance is returned when activating a photo with no points left.
	ErrInsufficientBalance = errors.New("not enough points to activate photo")
	// ErrUnavailable is returned when the storage dependency cannot be reached.
	ErrUnavailable = errors.New("service unavailable")
)

// Kind names the error class of err, or "internal" when it is not one of ours.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrAuthFailure):
		return "auth_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrAlreadyRated):
		return "conflict"
	case errors.Is(err, ErrSelfRating):
		return "invalid_operation"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}

// ValidationError is an ErrInvalidArgument whose text is safe to show to
// the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
