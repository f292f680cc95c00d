// Package errs defines the driver's two-kind error taxonomy: faults local
// to the driver (Driver) and errors decoded from a server response
// (Runtime). It is named errs, not errors, so callers can still import the
// standard library's errors package alongside it.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"rethinkdriver/internal/proto"
)

// Sentinel Driver errors usable with errors.Is. These carry no payload of
// their own; wrap them with fmt.Errorf("...: %w", ErrConnectionBroken) when
// a cause is available.
var (
	ErrConnectionBroken = errors.New("rethinkdriver: connection broken")
	ErrConnectionLocked = errors.New("rethinkdriver: connection locked by an open change feed")
	ErrTimeout          = errors.New("rethinkdriver: timeout")
)

// DriverAuthError reports a handshake authentication failure.
type DriverAuthError struct{ Msg string }

func (e *DriverAuthError) Error() string { return "rethinkdriver: auth: " + e.Msg }

// DriverIoError wraps a socket I/O failure.
type DriverIoError struct {
	Msg   string
	Cause error
}

func (e *DriverIoError) Error() string { return "rethinkdriver: io: " + e.Msg }
func (e *DriverIoError) Unwrap() error { return e.Cause }

// DriverJsonError reports malformed JSON received from the server.
type DriverJsonError struct {
	Msg   string
	Cause error
}

func (e *DriverJsonError) Error() string { return "rethinkdriver: json: " + e.Msg }
func (e *DriverJsonError) Unwrap() error { return e.Cause }

// DriverOtherError is a catch-all for driver faults with no dedicated variant.
type DriverOtherError struct{ Msg string }

func (e *DriverOtherError) Error() string { return "rethinkdriver: " + e.Msg }

// AvailabilityKind distinguishes the two RUNTIME_ERROR / availability subtypes.
type AvailabilityKind int

const (
	OpFailed AvailabilityKind = iota
	OpIndeterminate
)

func (k AvailabilityKind) String() string {
	if k == OpIndeterminate {
		return "op_indeterminate"
	}
	return "op_failed"
}

// QueryLogicKind distinguishes RUNTIME_ERROR / query-logic subtypes.
type QueryLogicKind int

const (
	NonExistence QueryLogicKind = iota
)

func (k QueryLogicKind) String() string { return "non_existence" }

// RuntimeCompileError is COMPILE_ERROR (response type 17).
type RuntimeCompileError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeCompileError) Error() string { return formatMsg("compile", e.Msg, e.backtrace) }

// RuntimeClientError is CLIENT_ERROR (response type 16).
type RuntimeClientError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeClientError) Error() string { return formatMsg("client", e.Msg, e.backtrace) }

// RuntimeServerError is a RUNTIME_ERROR with no more specific ErrorType mapping.
type RuntimeServerError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeServerError) Error() string { return formatMsg("server", e.Msg, e.backtrace) }

// RuntimeUserError is a RUNTIME_ERROR with ErrorType ErrorUser (raised by r.error()).
type RuntimeUserError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeUserError) Error() string { return formatMsg("user", e.Msg, e.backtrace) }

// RuntimeAvailabilityError is a RUNTIME_ERROR with ErrorType OpFailed/OpIndeterminate.
type RuntimeAvailabilityError struct {
	Kind      AvailabilityKind
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeAvailabilityError) Error() string {
	return formatMsg("availability:"+e.Kind.String(), e.Msg, e.backtrace)
}

// RuntimeQueryLogicError is a RUNTIME_ERROR with ErrorType ErrorNonExistence.
type RuntimeQueryLogicError struct {
	Kind      QueryLogicKind
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeQueryLogicError) Error() string {
	return formatMsg("query_logic:"+e.Kind.String(), e.Msg, e.backtrace)
}

// RuntimeInternalError is a RUNTIME_ERROR with ErrorType ErrorInternal.
type RuntimeInternalError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeInternalError) Error() string { return formatMsg("internal", e.Msg, e.backtrace) }

// RuntimeResourceLimitError is a RUNTIME_ERROR with ErrorType ErrorResourceLimit.
type RuntimeResourceLimitError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimeResourceLimitError) Error() string {
	return formatMsg("resource_limit", e.Msg, e.backtrace)
}

// RuntimePermissionError is a RUNTIME_ERROR with ErrorType ErrorPermission.
type RuntimePermissionError struct {
	Msg       string
	backtrace []json.RawMessage
}

func (e *RuntimePermissionError) Error() string { return formatMsg("permission", e.Msg, e.backtrace) }

// MapError converts a server error response into a typed Go error and logs it
// once, at the point it is first observed. Returns nil for non-error response types.
func MapError(respType proto.ResponseType, errType proto.ErrorType, results, backtrace []json.RawMessage) error {
	if !respType.IsError() {
		return nil
	}
	msg := extractMessage(results)

	var err error
	switch respType {
	case proto.ResponseClientError:
		err = &RuntimeClientError{Msg: msg, backtrace: backtrace}
	case proto.ResponseCompileError:
		err = &RuntimeCompileError{Msg: msg, backtrace: backtrace}
	case proto.ResponseRuntimeError:
		err = mapRuntimeError(msg, errType, backtrace)
	default:
		err = fmt.Errorf("rethinkdriver: unknown error response type %d: %s", respType, msg)
	}
	logrus.Debugf("rethinkdriver: server error mapped: %v", err)
	return err
}

func mapRuntimeError(msg string, errType proto.ErrorType, bt []json.RawMessage) error {
	switch errType {
	case proto.ErrorNonExistence:
		return &RuntimeQueryLogicError{Kind: NonExistence, Msg: msg, backtrace: bt}
	case proto.ErrorPermission:
		return &RuntimePermissionError{Msg: msg, backtrace: bt}
	case proto.ErrorOpFailed:
		return &RuntimeAvailabilityError{Kind: OpFailed, Msg: msg, backtrace: bt}
	case proto.ErrorOpIndeterminate:
		return &RuntimeAvailabilityError{Kind: OpIndeterminate, Msg: msg, backtrace: bt}
	case proto.ErrorInternal:
		return &RuntimeInternalError{Msg: msg, backtrace: bt}
	case proto.ErrorResourceLimit:
		return &RuntimeResourceLimitError{Msg: msg, backtrace: bt}
	case proto.ErrorUser:
		return &RuntimeUserError{Msg: msg, backtrace: bt}
	case proto.ErrorQueryLogic:
		return &RuntimeServerError{Msg: msg, backtrace: bt}
	default:
		return &RuntimeServerError{Msg: msg, backtrace: bt}
	}
}

// extractMessage returns the first string result from the results array.
func extractMessage(results []json.RawMessage) string {
	if len(results) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(results[0], &s); err != nil {
		return string(results[0])
	}
	return s
}

// formatMsg prefixes the error kind and appends backtrace frames when present.
func formatMsg(kind, msg string, bt []json.RawMessage) string {
	base := fmt.Sprintf("rethinkdriver: %s: %s", kind, msg)
	if len(bt) == 0 {
		return base
	}
	frames := make([]string, len(bt))
	for i, f := range bt {
		frames[i] = string(f)
	}
	return fmt.Sprintf("%s\nbacktrace: %s", base, strings.Join(frames, ", "))
}
