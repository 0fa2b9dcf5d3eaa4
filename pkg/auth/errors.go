package auth

import "errors"

// Login failure taxonomy. Callers match with errors.Is: in particular,
// ErrInvalidCredentials distinguishes "wrong password" from transient
// failures so retry logic is never applied to bad credentials.
var (
	// ErrLaunchFailure means the browser resource could not be acquired.
	// Fatal for the attempt, never retried internally.
	ErrLaunchFailure = errors.New("browser launch failed")

	// ErrFieldNotFound means a required form field or control was missing
	// after exhausting every selector candidate.
	ErrFieldNotFound = errors.New("login form field not found")

	// ErrInvalidCredentials means the platform rejected the credentials:
	// a 401/4xx from its domain or an inline error banner.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIncompleteData means no error signal arrived but the token or
	// user id never showed up before the deadline.
	ErrIncompleteData = errors.New("authentication incomplete: token or user data never arrived")

	// ErrTimeout means the overall login timer elapsed with no settlement
	// and no partial progress.
	ErrTimeout = errors.New("login timed out")
)
