package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	ErrBackendRejected  = errors.New("backend rejected request")
	ErrBackendThrottled = errors.New("backend throttled request")
	ErrBackendTransient = errors.New("transient backend failure")
)

type ErrorKind int

const (
	KindRejected ErrorKind = iota
	KindThrottled
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindThrottled:
		return "throttled"
	case KindTransient:
		return "transient"
	default:
		return "rejected"
	}
}

// Error is a classified backend failure.
type Error struct {
	Kind    ErrorKind
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrBackendRejected:
		return e.Kind == KindRejected
	case ErrBackendThrottled:
		return e.Kind == KindThrottled
	case ErrBackendTransient:
		return e.Kind == KindTransient
	}
	return false
}

// Retryable reports whether err is worth another submission attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackendThrottled) || errors.Is(err, ErrBackendTransient)
}

// Rejected builds a non-retryable error, used for engine-side failures that
// are not API errors (for example a query reported as Failed).
func Rejected(op, code, msg string) *Error {
	return &Error{Kind: KindRejected, Op: op, Code: code, Message: msg}
}

// Transient builds a retryable error.
func Transient(op, code, msg string) *Error {
	return &Error{Kind: KindTransient, Op: op, Code: code, Message: msg}
}

var throttleCodes = map[string]bool{
	"ThrottlingException":                    true,
	"Throttling":                             true,
	"TooManyRequestsException":               true,
	"RequestLimitExceeded":                   true,
	"LimitExceededException":                 true,
	"RequestThrottledException":              true,
	"ProvisionedThroughputExceededException": true,
}

var transientCodes = map[string]bool{
	"ServiceUnavailableException": true,
	"ServiceUnavailable":          true,
	"InternalFailure":             true,
	"InternalServerError":         true,
	"RequestTimeout":              true,
	"RequestTimeoutException":     true,
	"OperationAbortedException":   true,
}

// classify maps an SDK or transport error onto the backend taxonomy. Context
// errors are returned unchanged so callers can tell cancellation apart.
// Without an API error code only connection failures are worth retrying.
func classify(op string, err error, code, message string, fault bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case code != "" && throttleCodes[code]:
		return &Error{Kind: KindThrottled, Op: op, Code: code, Message: message, Err: err}
	case code != "" && (transientCodes[code] || fault):
		return &Error{Kind: KindTransient, Op: op, Code: code, Message: message, Err: err}
	case code != "":
		return &Error{Kind: KindRejected, Op: op, Code: code, Message: message, Err: err}
	case connectionFailure(err):
		return &Error{Kind: KindTransient, Op: op, Err: err}
	}
	return &Error{Kind: KindRejected, Op: op, Err: err}
}

// connectionFailure reports whether the request never reached the service.
func connectionFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr interface{ ConnectionError() bool }
	return errors.As(err, &connErr) && connErr.ConnectionError()
}
