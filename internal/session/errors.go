package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the site answers with its logon
	// page. The session is Expired and the next request logs in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrLoginInProgress is returned when a login handshake is already
	// running on the session.
	ErrLoginInProgress = errors.New("login already in progress")
)

// LoginError means the site refused the credentials.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string {
	if e.Message == "" {
		return "login rejected"
	}
	return "login rejected: " + e.Message
}

// VerificationFailedError means no valid verification code was entered
// within the allowed attempts.
type VerificationFailedError struct {
	Attempts int
	Message  string
}

func (e *VerificationFailedError) Error() string {
	msg := fmt.Sprintf("identity verification failed after %d attempt(s)", e.Attempts)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
