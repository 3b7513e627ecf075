package slp

import (
	"fmt"
)

// ErrorKind classifies why a decode stopped
type ErrorKind int

const (
	// KindMalformedContainer means the UBJSON envelope was not recognized. No Replay is produced.
	KindMalformedContainer ErrorKind = iota + 1
	// KindMissingCatalog means the stream did not start with the payload size table. No Replay is produced.
	KindMissingCatalog
	// KindUnknownEventKind means an event code had no cataloged length, so the stream cannot be resynchronized.
	KindUnknownEventKind
	// KindTruncatedStream means the stream ended early. The partial Replay is returned.
	KindTruncatedStream
	// KindVersionPolicyViolation means a field read had no policy for the declared version.
	KindVersionPolicyViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedContainer:
		return "malformed container"
	case KindMissingCatalog:
		return "missing catalog"
	case KindUnknownEventKind:
		return "unknown event kind"
	case KindTruncatedStream:
		return "truncated stream"
	case KindVersionPolicyViolation:
		return "version policy violation"
	default:
		return "unknown decode error"
	}
}

// Sentinel errors for errors.Is checks
var (
	ErrMalformedContainer     = &DecodeError{Kind: KindMalformedContainer, Offset: -1}
	ErrMissingCatalog         = &DecodeError{Kind: KindMissingCatalog, Offset: -1}
	ErrUnknownEventKind       = &DecodeError{Kind: KindUnknownEventKind, Offset: -1}
	ErrTruncatedStream        = &DecodeError{Kind: KindTruncatedStream, Offset: -1}
	ErrVersionPolicyViolation = &DecodeError{Kind: KindVersionPolicyViolation, Offset: -1}
)

// DecodeError describes where and why decoding stopped
type DecodeError struct {
	Kind   ErrorKind
	Offset int  // byte offset into the event stream, -1 if not applicable
	Code   byte // event code being processed, 0 if none
	Msg    string
	Err    error // underlying cause, if any
}

func (e *DecodeError) Error() string {
	s := e.Kind.String()
	if e.Code != 0 {
		s += fmt.Sprintf(" (event 0x%02x)", e.Code)
	}
	if e.Offset >= 0 {
		s += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches any DecodeError of the same kind, so the package sentinels work with errors.Is
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Fatal reports whether no Replay accompanies this error
func (e *DecodeError) Fatal() bool {
	return e.Kind == KindMalformedContainer || e.Kind == KindMissingCatalog
}

func newDecodeError(kind ErrorKind, offset int, code byte, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Kind:   kind,
		Offset: offset,
		Code:   code,
		Msg:    fmt.Sprintf(format, args...),
	}
}
