package service

import (
	"errors"

	"intan/internal/storage"
)

var (
	// ErrNoCurrentUser is returned when an operation needs a user id and the session has none
	ErrNoCurrentUser = errors.New("no current user")
	// ErrProfileNotFound is returned when no profile is stored for the resolved id
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProgressNotFound is returned when no progress is stored for the resolved id
	ErrProgressNotFound = errors.New("progress not found")
	// ErrNoSession is returned by Login, Logout and Register when called with a nil session
	ErrNoSession = errors.New("session is required")
)

// Status classifies the outcome of a progress operation
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusUnavailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

// StatusOf maps an error returned by this package to a Status.
// A missing current user counts as a missing record.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, storage.ErrUnavailable):
		return StatusUnavailable
	case errors.Is(err, ErrNoCurrentUser),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrProgressNotFound):
		return StatusNotFound
	default:
		return StatusFailed
	}
}
