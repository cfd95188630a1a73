// Package sdberr implements the single failure kind used across the
// debugger core. Callers distinguish failure modes by inspecting the
// message, not by a secondary error code.
package sdberr

import (
	"fmt"
	"syscall"
)

// Error is the one failure kind every core operation returns.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

// Send reports a plain failure.
func Send(message string) error {
	return &Error{msg: message}
}

// Sendf reports a plain failure, formatting like fmt.Sprintf.
func Sendf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// SendErrno reports a syscall failure, appending the current errno's
// system-error string so the message reads "<prefix>: <errno-string>".
func SendErrno(prefix string, err error) error {
	if errno, ok := err.(syscall.Errno); ok {
		return &Error{msg: prefix + ": " + errno.Error()}
	}
	return &Error{msg: prefix + ": " + err.Error()}
}
