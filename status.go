// status.go implements the status taxonomy returned by the engine.
//
// Reference: RocksDB include/rocksdb/status.h, util/status.cc
package widekv

import "errors"

// Code classifies a Status.
type Code uint8

const (
	CodeOK Code = iota
	CodeNotFound
	CodeCorruption
	CodeNotSupported
	CodeInvalidArgument
	CodeIOError
	CodeIncomplete
	CodeBusy
	CodeTimedOut
	CodeAborted
	CodeUnknown
)

var codePrefixes = [...]string{
	CodeOK:              "OK",
	CodeNotFound:        "NotFound: ",
	CodeCorruption:      "Corruption: ",
	CodeNotSupported:    "Not implemented: ",
	CodeInvalidArgument: "Invalid argument: ",
	CodeIOError:         "IO error: ",
	CodeIncomplete:      "Result incomplete: ",
	CodeBusy:            "Resource busy: ",
	CodeTimedOut:        "Operation timed out: ",
	CodeAborted:         "Operation aborted: ",
	CodeUnknown:         "",
}

// String returns the RocksDB rendering prefix of c without the trailing
// separator, e.g. "IO error".
func (c Code) String() string {
	switch {
	case c == CodeOK:
		return "OK"
	case c == CodeUnknown || int(c) >= len(codePrefixes):
		return "Unknown"
	}
	p := codePrefixes[c]
	return p[:len(p)-2]
}

// Status is an error carrying a Code and a message. Error renders it the
// way RocksDB's Status::ToString does.
type Status struct {
	code  Code
	msg   string
	cause error
}

// Sentinels for errors.Is. A Status matches a sentinel of the same code
// regardless of its message.
var (
	ErrNotFound        = &Status{code: CodeNotFound}
	ErrCorruption      = &Status{code: CodeCorruption}
	ErrNotSupported    = &Status{code: CodeNotSupported}
	ErrInvalidArgument = &Status{code: CodeInvalidArgument}
	ErrIOError         = &Status{code: CodeIOError}
	ErrBusy            = &Status{code: CodeBusy}
	ErrAborted         = &Status{code: CodeAborted}
)

// NewStatus returns a Status with the given code and message.
func NewStatus(code Code, msg string) *Status {
	return &Status{code: code, msg: msg}
}

func NotFound(msg string) *Status        { return NewStatus(CodeNotFound, msg) }
func Corruption(msg string) *Status      { return NewStatus(CodeCorruption, msg) }
func NotSupported(msg string) *Status    { return NewStatus(CodeNotSupported, msg) }
func InvalidArgument(msg string) *Status { return NewStatus(CodeInvalidArgument, msg) }
func IOError(msg string) *Status         { return NewStatus(CodeIOError, msg) }
func Busy(msg string) *Status            { return NewStatus(CodeBusy, msg) }
func Aborted(msg string) *Status         { return NewStatus(CodeAborted, msg) }

// WrapStatus converts err into a Status with the given code, keeping err
// reachable through errors.Unwrap. A nil err yields nil and an err that
// already is a Status is returned unchanged.
func WrapStatus(code Code, err error) error {
	if err == nil {
		return nil
	}
	var s *Status
	if errors.As(err, &s) {
		return err
	}
	return &Status{code: code, msg: err.Error(), cause: err}
}

// Code returns the status code.
func (s *Status) Code() Code {
	if s == nil {
		return CodeOK
	}
	return s.code
}

// Message returns the message without the code prefix.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.msg
}

func (s *Status) Error() string {
	if s == nil || s.code == CodeOK {
		return "OK"
	}
	if int(s.code) >= len(codePrefixes) {
		return s.msg
	}
	return codePrefixes[s.code] + s.msg
}

func (s *Status) Unwrap() error { return s.cause }

// Is reports whether target is a message-less sentinel of the same code.
func (s *Status) Is(target error) bool {
	t, ok := target.(*Status)
	if !ok || t == nil || s == nil {
		return false
	}
	return t.msg == "" && t.cause == nil && t.code == s.code
}

// CodeOf returns the code of err: CodeOK for nil, the code of the first
// Status in its chain, or CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var s *Status
	if errors.As(err, &s) {
		return s.Code()
	}
	return CodeUnknown
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
