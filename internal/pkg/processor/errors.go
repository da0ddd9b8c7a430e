package processor

import "fmt"

// Reason classifies a processing failure.
type Reason int

const (
	// ReasonFailed marks a generic internal processing failure.
	ReasonFailed Reason = iota
	// ReasonPermissionDenied marks an authorization rejection.
	ReasonPermissionDenied
)

// Error is the closed error type returned by Processor implementations.
// The dispatcher maps it onto a terminal stream status.
type Error struct {
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonPermissionDenied:
		return fmt.Sprintf("permission denied: %s", e.Message)
	default:
		return fmt.Sprintf("processing failed: %s", e.Message)
	}
}

// Failed returns a generic processing error.
func Failed(message string) *Error {
	return &Error{Reason: ReasonFailed, Message: message}
}

// Failedf returns a generic processing error with a formatted message.
func Failedf(format string, args ...interface{}) *Error {
	return Failed(fmt.Sprintf(format, args...))
}

// PermissionDenied returns an authorization rejection.
func PermissionDenied(message string) *Error {
	return &Error{Reason: ReasonPermissionDenied, Message: message}
}

// PermissionDeniedf returns an authorization rejection with a formatted message.
func PermissionDeniedf(format string, args ...interface{}) *Error {
	return PermissionDenied(fmt.Sprintf(format, args...))
}
