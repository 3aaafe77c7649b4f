package javaobj

import (
	"strconv"

	"github.com/pkg/errors"
)

// Sentinel errors for the taxonomy described by the wire protocol. Call
// sites wrap these with errors.Wrap so errors.Cause(err) still recovers the
// sentinel while the message chain keeps enough context (byte offset,
// top-of-stack class name) to diagnose the failure.
var (
	// ErrMalformedStream covers bad magic/version, unknown content tags,
	// field-type mismatches and malformed modified-UTF-8.
	ErrMalformedStream = errors.New("malformed stream")

	// ErrTruncated means the byte source ended mid-record.
	ErrTruncated = errors.New("truncated stream")

	// ErrUnknownHandle means a back-reference pointed at a handle that was
	// never assigned (or assigned to an entity of the wrong kind).
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrUnsupported covers protocol-v1 external content without a
	// transformer hook, and class-descriptor flag combinations this reader
	// does not implement.
	ErrUnsupported = errors.New("unsupported stream feature")

	// ErrTransformerFailed means a transformer declined to load
	// block-data, or otherwise reported a structural failure.
	ErrTransformerFailed = errors.New("transformer failed")

	// ErrNumericArrayUnavailable means the caller requested numeric-array
	// acceleration without supplying a NumericArrayDecoder.
	ErrNumericArrayUnavailable = errors.New("numeric array acceleration unavailable")
)

// parseError wraps a sentinel with the byte offset and current class
// context, giving callers a single place to look for "where did this fail".
type parseError struct {
	cause     error
	offset    int64
	className string
}

func (e *parseError) Error() string {
	msg := e.cause.Error()
	if e.className != "" {
		msg += " (class " + e.className + ")"
	}
	return msg + " at offset " + strconv.FormatInt(e.offset, 10)
}

func (e *parseError) Cause() error { return e.cause }

func (e *parseError) Unwrap() error { return e.cause }

// wrapAt annotates err (if non-nil) with stream position and the class
// currently being decoded, preserving errors.Cause compatibility.
func wrapAt(err error, offset int64, className string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&parseError{cause: err, offset: offset, className: className})
}
