/*
Package errors provides the node's single error type, AppError, with a
closed set of string codes covering both ordinary application errors
and the protocol-specific rejections proposeValue can raise.
*/
package errors

import (
	"errors"
	"fmt"
)

// Error codes. The first three are generic; the protocol-specific ones
// below them name the protocol's rejections and failures. pkg/node
// returns SequenceMismatch and ValueAlreadyProposed from ProposeValue
// and TransportClosed from a publish without a transport; its message
// dispatch logs and drops malformed or unrecognized frames without
// returning an error.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"

	// CodeSequenceMismatch is returned by proposeValue when the caller's
	// sequence number does not match the node's current one.
	CodeSequenceMismatch = "SEQUENCE_MISMATCH"

	// CodeValueAlreadyProposed is returned by proposeValue when the
	// current instance already has a value in flight.
	CodeValueAlreadyProposed = "VALUE_ALREADY_PROPOSED"

	// CodeMalformedMessage marks an inbound frame that failed decoding
	// or lacked a recognizable type tag.
	CodeMalformedMessage = "MALFORMED_MESSAGE"

	// CodeUnknownMessageType marks an inbound frame whose type tag has
	// no registered handler.
	CodeUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"

	// CodeTransportClosed marks use of a Node's transport after
	// Shutdown; a programming error, not a runtime condition to retry.
	CodeTransportClosed = "TRANSPORT_CLOSED"
)

// AppError is the node's error type: a stable code, a human message,
// and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New creates an AppError with the given code, message, and cause.
func New(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Wrap annotates err with msg, preserving the error chain.
func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain assignable to target.
func As(err error, target any) bool { return errors.As(err, target) }

// SequenceMismatch reports that proposeValue was called with a
// sequence number that does not match the node's currentSeq.
func SequenceMismatch(currentSeq uint64) *AppError {
	return New(CodeSequenceMismatch, fmt.Sprintf("sequence number mismatch, current is %d", currentSeq), nil)
}

// ValueAlreadyProposed reports that the current instance already has
// a value in flight.
func ValueAlreadyProposed() *AppError {
	return New(CodeValueAlreadyProposed, "value already proposed for this instance", nil)
}

// MalformedMessage reports an inbound frame that failed to decode.
func MalformedMessage(err error) *AppError {
	return New(CodeMalformedMessage, "malformed message", err)
}

// UnknownMessageType reports an inbound frame with an unrecognized type tag.
func UnknownMessageType(msgType string) *AppError {
	return New(CodeUnknownMessageType, fmt.Sprintf("unknown message type %q", msgType), nil)
}

// TransportClosed reports use of a Node's transport after Shutdown.
func TransportClosed() *AppError {
	return New(CodeTransportClosed, "transport is closed", nil)
}
