// errslot.go implements the caller-owned error channel of the entry points.
package widekv

// ErrorSink receives the failure of an entry point. Report is called only
// with a non-nil error and returns whether it was recorded.
type ErrorSink interface {
	Report(err error) bool
}

// ErrorSlot is a caller-owned, last-write-wins error channel. It is either
// empty or holding one message. A successful call never clears it.
//
// The zero value is an empty slot. Release, when set, is called once for
// every held message that is discarded by a later Report or by Clear.
type ErrorSlot struct {
	Release func(msg string)

	err error
	msg string
}

// Report replaces the held message with err's. A nil err is ignored.
func (s *ErrorSlot) Report(err error) bool {
	if s == nil || err == nil {
		return false
	}
	s.discard()
	s.err = err
	s.msg = err.Error()
	return true
}

// Holding reports whether the slot holds a message.
func (s *ErrorSlot) Holding() bool { return s != nil && s.err != nil }

// Message returns the held message, or "" when empty.
func (s *ErrorSlot) Message() string {
	if s == nil {
		return ""
	}
	return s.msg
}

// Err returns the held error, or nil when empty.
func (s *ErrorSlot) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Take empties the slot and hands the held message to the caller. Release
// is not called for it.
func (s *ErrorSlot) Take() (string, bool) {
	if !s.Holding() {
		return "", false
	}
	msg := s.msg
	s.err, s.msg = nil, ""
	return msg, true
}

// Clear empties the slot, releasing the held message.
func (s *ErrorSlot) Clear() {
	if s == nil {
		return
	}
	s.discard()
}

func (s *ErrorSlot) discard() {
	if s.err == nil {
		return
	}
	if s.Release != nil {
		s.Release(s.msg)
	}
	s.err, s.msg = nil, ""
}

// report forwards a non-nil err to sink. A nil sink drops it.
func report(sink ErrorSink, err error) {
	if err == nil || sink == nil {
		return
	}
	sink.Report(err)
}
