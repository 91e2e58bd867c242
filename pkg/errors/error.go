package errors

import (
	"errors"
	"fmt"

	"github.com/edgequill/netload/pkg/log"
	"github.com/hashicorp/go-multierror"
)

// Code classifies a request failure into one of the categories a loader can
// act on. The set is closed; anything that does not fit a more specific
// category is reported as CodeFailed.
type Code int

const (
	CodeOK Code = iota

	// CodeFailed covers write failures and protocol-level read failures
	// where no better diagnostic is preserved
	CodeFailed

	// CodeInvalidArgument is reported before any network activity, e.g. a
	// method outside the allowed set or an unparseable URL
	CodeInvalidArgument

	CodeNameNotResolved
	CodeConnectionFailed
	CodeHandshakeNotCompleted

	// CodeInvalidResponse means the peer sent something that does not
	// parse as an HTTP status line, or a redirect without a usable target
	CodeInvalidResponse
)

var codeNames = map[Code]string{
	CodeOK:                    "OK",
	CodeFailed:                "FAILED",
	CodeInvalidArgument:       "INVALID_ARGUMENT",
	CodeNameNotResolved:       "NAME_NOT_RESOLVED",
	CodeConnectionFailed:      "CONNECTION_FAILED",
	CodeHandshakeNotCompleted: "HANDSHAKE_NOT_COMPLETED",
	CodeInvalidResponse:       "INVALID_RESPONSE",
}

func (c Code) String() string {
	if v, ok := codeNames[c]; ok {
		return v
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// Error ties a categorical Code to the operation that produced it and the
// underlying cause. The cause is preserved for logging but callers are
// expected to branch on the Code only.
type Error struct {
	Code Code
	Op   string // the operation that failed, e.g. "resolve host"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches a code and operation to an underlying cause. err may be nil
// when the category alone carries all the information
func Wrap(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// New creates a coded error with a literal message and no underlying cause
func New(code Code, op string, msg string) *Error {
	return &Error{Code: code, Op: op, Err: errors.New(msg)}
}

// CodeOf extracts the categorical code from an error chain. Errors that do
// not carry a code report CodeFailed; nil reports CodeOK
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeFailed
}

// IsCode reports whether the error chain carries the given code
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// prefixFromDepth will create the indent prefix for a certain depth
// of string, e.g. 2 will yield "  " * 2 -> "    "
func prefixFromDepth(depth int) string {
	var p []byte
	for i := 0; i < depth; i++ {
		p = append(p, "  "...)
	}
	return string(p)
}

// PrintError will traverse a nested error and recursively log any coded
// errors found. If a multierror.Error is found, each member is printed at
// the next depth
func PrintError(err error, depth int) {
	var (
		merr *multierror.Error
		nerr *Error
	)

	if errors.As(err, &merr) {
		for _, v := range merr.Errors {
			PrintError(v, depth+1)
		}
	} else if errors.As(err, &nerr) {
		nerr.LogError(depth)
	} else {
		log.Debug().Err(err).Msg(prefixFromDepth(depth) + "error")
	}
}

// LogError will log to Debug() the context surrounding the error.
// the depth argument modifies the indentation depth of the pretty printed error
func (e *Error) LogError(depth int) {
	var (
		merr *multierror.Error
		nerr *Error
	)
	base := log.Debug().
		Str("code", e.Code.String()).
		Str("op", e.Op)

	if errors.As(e.Err, &merr) {
		base.Msg(prefixFromDepth(depth))
		PrintError(merr, depth+1)
	} else if errors.As(e.Err, &nerr) {
		base.Msg(prefixFromDepth(depth))
		nerr.LogError(depth + 1)
	} else {
		base.Err(e.Err).Msg(prefixFromDepth(depth))
	}
}
