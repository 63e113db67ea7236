package mtx

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is matched by every MalformedHeaderError.
	ErrMalformedHeader = errors.New("malformed matrix market header")
	// ErrElementDecode is matched by every ElementDecodeError.
	ErrElementDecode = errors.New("matrix element could not be decoded")
)

// MalformedHeaderError reports a shape line that cannot describe a matrix.
// The load is aborted and no partial preview is produced.
type MalformedHeaderError struct {
	Line   int    // 1-based line number, 0 when the input ended before a shape line
	Text   string // offending line content
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed header: %s", e.Reason)
	}
	return fmt.Sprintf("malformed header at line %d (%q): %s", e.Line, e.Text, e.Reason)
}

// Is reports whether target is ErrMalformedHeader.
func (e *MalformedHeaderError) Is(target error) bool {
	return target == ErrMalformedHeader
}

// ElementDecodeError reports an element line that could not be decoded or
// placed. It is only returned under the strict element policy; the permissive
// policy records a Fallback instead.
type ElementDecodeError struct {
	Line   int
	Token  string
	Reason string
	Err    error
}

func (e *ElementDecodeError) Error() string {
	msg := fmt.Sprintf("line %d: cannot decode element %q", e.Line, e.Token)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error, if any.
func (e *ElementDecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrElementDecode.
func (e *ElementDecodeError) Is(target error) bool {
	return target == ErrElementDecode
}

// Fallback records an element that was replaced by 0 (or skipped, for
// out-of-range coordinates) under the permissive policy.
type Fallback struct {
	Line   int    `json:"line"`
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

func (f Fallback) String() string {
	return fmt.Sprintf("line %d: %q (%s)", f.Line, f.Token, f.Reason)
}
