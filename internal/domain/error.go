package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeInternal         ErrorCode = "INTERNAL"
	CodeCanceled         ErrorCode = "CANCELED"
	CodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
)

var (
	// ErrBackendUnavailable covers transport failures, timeouts and non-2xx
	// answers from the tool service.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrToolNotFound is returned for invocations of unregistered tools.
	ErrToolNotFound = errors.New("tool not found")
	// ErrMalformedCatalog marks a catalog payload of unexpected shape.
	ErrMalformedCatalog = errors.New("malformed catalog")
	// ErrStreamTransport reports a write failure or a vanished peer.
	ErrStreamTransport = errors.New("stream transport error")
	// ErrStaleCatalog accompanies a stale catalog served after a failed refresh.
	ErrStaleCatalog = errors.New("stale catalog")
	// ErrInvalidArguments rejects invocation params that are not an object.
	ErrInvalidArguments = errors.New("invalid arguments")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	Meta    map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

// Unavailable builds a backend failure that matches ErrBackendUnavailable
// and still unwraps to cause.
func Unavailable(op string, cause error) *Error {
	wrapped := ErrBackendUnavailable
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", ErrBackendUnavailable, cause)
	}
	return E(CodeUnavailable, op, "", wrapped)
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
			Meta:    existing.Meta,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrToolNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrInvalidArguments):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrStreamTransport):
		return CodeUnavailable, true
	case errors.Is(err, ErrMalformedCatalog):
		return CodeInternal, true
	case errors.Is(err, context.Canceled):
		return CodeCanceled, true
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded, true
	default:
		return "", false
	}
}
