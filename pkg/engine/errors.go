package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a terminal reconciliation failure.
type ErrorKind string

const (
	// KindRequest indicates a non-2xx response in a non-retryable context.
	KindRequest ErrorKind = "request"

	// KindTimeout indicates a retry budget exhausted against the wall clock.
	KindTimeout ErrorKind = "timeout"

	// KindUpload indicates a package upload that never became visible.
	KindUpload ErrorKind = "upload"

	// KindInstall indicates a package install that kept failing until the
	// retry budget ran out.
	KindInstall ErrorKind = "install"

	// KindDecode indicates a response body that could not be decoded.
	KindDecode ErrorKind = "decode"

	// KindFileNotFound indicates a local package file that could not be
	// resolved for upload.
	KindFileNotFound ErrorKind = "file_not_found"

	// KindOperation indicates any other unrecoverable remote failure,
	// such as a single-attempt uninstall or delete being rejected.
	KindOperation ErrorKind = "operation"

	// KindTransient marks a failed attempt inside a retry loop. It never
	// escapes a loop: Retry keeps going while the error is transient, and
	// the loop's owner wraps the last transient error into its
	// operation-specific kind once the budget runs out.
	KindTransient ErrorKind = "transient"
)

// Error is the classified error every cqctl operation fails with. It is
// always terminal for the invocation: no caller converts one kind into a
// different outcome, the message surfaces verbatim on exit.
type Error struct {
	// Kind is the failure classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Operation is the remote operation being performed, if applicable.
	Operation string `json:"operation,omitempty"`

	// Status is the last observed HTTP status code, if applicable.
	Status int `json:"status,omitempty"`

	// Body is the last observed response body, truncated by the transport.
	Body string `json:"body,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("[%s] %s (operation=%s)", e.Kind, e.Message, e.Operation)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d %s", msg, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two engine errors match when
// their kinds match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithResponse records the last observed HTTP status and body.
func (e *Error) WithResponse(status int, body string) *Error {
	e.Status = status
	e.Body = body
	return e
}

// NewRequestError creates a request error for a non-2xx response outside any
// retry loop.
func NewRequestError(message string, err error) *Error {
	return &Error{Kind: KindRequest, Message: message, Err: err}
}

// NewTimeoutError creates a timeout error for an exhausted retry budget.
func NewTimeoutError(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Err: err}
}

// NewUploadError creates an upload error.
func NewUploadError(message string, err error) *Error {
	return &Error{Kind: KindUpload, Message: message, Err: err}
}

// NewInstallError creates an install error.
func NewInstallError(message string, err error) *Error {
	return &Error{Kind: KindInstall, Message: message, Err: err}
}

// NewDecodeError creates a decode error for a malformed response body.
func NewDecodeError(message string, err error) *Error {
	return &Error{Kind: KindDecode, Message: message, Err: err}
}

// NewFileNotFoundError creates an error for an unresolvable local file.
func NewFileNotFoundError(message string) *Error {
	return &Error{Kind: KindFileNotFound, Message: message}
}

// NewOperationError creates a generic unrecoverable operation error.
func NewOperationError(message string, err error) *Error {
	return &Error{Kind: KindOperation, Message: message, Err: err}
}

// NewTransientError creates a retryable attempt error.
func NewTransientError(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// KindOf returns the kind of an engine error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTimeout returns true if the error is a retry-budget timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// IsRetryable returns true if the error is a transient attempt failure.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// IsRequest returns true if the error is a non-retryable request failure.
func IsRequest(err error) bool {
	return KindOf(err) == KindRequest
}

// IsDecode returns true if the error is a response decode failure.
func IsDecode(err error) bool {
	return KindOf(err) == KindDecode
}

// IsFileNotFound returns true if the error is a local file resolution
// failure.
func IsFileNotFound(err error) bool {
	return KindOf(err) == KindFileNotFound
}
