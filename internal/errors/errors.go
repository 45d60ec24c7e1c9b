package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an lcsync error code.
type ErrorCode string

const (
	ErrChallengeProtocol  ErrorCode = "CHALLENGE_PROTOCOL"  // 401 without a usable challenge
	ErrChallengeExhausted ErrorCode = "CHALLENGE_EXHAUSTED" // retry bound reached
	ErrRemote             ErrorCode = "REMOTE"              // any other non-2xx
	ErrDecode             ErrorCode = "DECODE"              // malformed payload
	ErrTransport          ErrorCode = "TRANSPORT"           // request never completed
	ErrNoActiveSession    ErrorCode = "NO_ACTIVE_SESSION"   // mutation without a user
	ErrBusy               ErrorCode = "BUSY"                // session slot taken (reject mode)
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// SyncError represents a structured error with code, status, and details.
// Status is the remote HTTP status when one was received, otherwise a
// representative HTTP status for the condition.
type SyncError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SyncError) Unwrap() error {
	return e.cause
}

// NewChallengeProtocol creates an error for a 401 that carried no usable
// challenge/token pair.
func NewChallengeProtocol(status int, body string) *SyncError {
	return &SyncError{
		Code:    ErrChallengeProtocol,
		Status:  status,
		Message: "unauthorized without a usable challenge",
		Details: map[string]any{"body": body},
	}
}

// NewChallengeExhausted creates an error for a server that kept issuing
// challenges past the configured attempt count or time budget.
func NewChallengeExhausted(attempts int, limit string) *SyncError {
	return &SyncError{
		Code:    ErrChallengeExhausted,
		Status:  401,
		Message: fmt.Sprintf("gave up after %d challenges (%s)", attempts, limit),
		Details: map[string]any{"attempts": attempts, "limit": limit},
	}
}

// NewRemote creates an error for a non-success remote status.
func NewRemote(status int, body string) *SyncError {
	return &SyncError{
		Code:    ErrRemote,
		Status:  status,
		Message: fmt.Sprintf("remote returned status %d", status),
		Details: map[string]any{"body": body},
	}
}

// NewDecode creates an error for a response body that is not the declared payload.
func NewDecode(err error) *SyncError {
	return &SyncError{
		Code:    ErrDecode,
		Status:  502,
		Message: fmt.Sprintf("malformed payload: %v", err),
		cause:   err,
	}
}

// NewTransport creates an error for a request that did not complete.
func NewTransport(err error) *SyncError {
	return &SyncError{
		Code:    ErrTransport,
		Status:  503,
		Message: fmt.Sprintf("request failed: %v", err),
		cause:   err,
	}
}

// NewNoActiveSession creates an error for a mutation requested with no known user.
func NewNoActiveSession() *SyncError {
	return &SyncError{
		Code:    ErrNoActiveSession,
		Status:  409,
		Message: "no active user session",
	}
}

// NewBusy creates an error for a session operation rejected because another
// one is in flight.
func NewBusy(op string) *SyncError {
	return &SyncError{
		Code:    ErrBusy,
		Status:  409,
		Message: fmt.Sprintf("%s rejected: another session operation is in flight", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SyncError {
	return &SyncError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing local snapshot.
func NewNotFound(username string) *SyncError {
	return &SyncError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("no snapshot stored for user %q", username),
		Details: map[string]any{"username": username},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SyncError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SyncError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// As returns the SyncError in err's chain, if any.
func As(err error) (*SyncError, bool) {
	var sErr *SyncError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Is checks if an error is a SyncError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := As(err); ok {
		return sErr.Code == code
	}
	return false
}
