package contact

import (
	"errors"
	"net/http"
)

// Error is a rejection returned to the submitter. Reason is one of a small
// closed set of strings and never carries internal detail.
type Error struct {
	Status int
	Code   string
	Reason string
}

func (err *Error) Error() string {
	return err.Reason
}

var (
	ErrMethodNotAllowed = &Error{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Reason: "Method not allowed"}
	ErrBadRequest       = &Error{Status: http.StatusBadRequest, Code: "bad_request", Reason: "Bad request"}
	ErrMissingFields    = &Error{Status: http.StatusBadRequest, Code: "missing_fields", Reason: "Missing fields"}
	ErrInvalidEmail     = &Error{Status: http.StatusBadRequest, Code: "invalid_email", Reason: "Invalid email"}
	ErrRateLimited      = &Error{Status: http.StatusTooManyRequests, Code: "rate_limited", Reason: "Rate limited"}
	ErrNotConfigured    = &Error{Status: http.StatusInternalServerError, Code: "not_configured", Reason: "Email not configured"}
	ErrSendFailed       = &Error{Status: http.StatusInternalServerError, Code: "send_failed", Reason: "Send failed"}
)

// AsError extracts the rejection from err, mapping anything unexpected to
// ErrSendFailed.
func AsError(err error) *Error {
	var contactErr *Error
	if errors.As(err, &contactErr) {
		return contactErr
	}
	return ErrSendFailed
}
