// Package readline binds libreadline for the command shell's line
// editing and history, adapted from delve's goreadline package.
package readline

/*
#include <stdio.h>
#include <stdlib.h>
#include <readline/readline.h>
#include <readline/history.h>
#cgo LDFLAGS: -lreadline
*/
import "C"

import (
	"os"
	"os/signal"
	"syscall"
	"unsafe"
)

func init() {
	C.rl_catch_sigwinch = 0
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGWINCH)
	go func() {
		for range c {
			Resize()
		}
	}()
}

// Resize tells readline the terminal dimensions changed.
func Resize() {
	C.rl_resize_terminal()
}

// ReadLine prints prompt and blocks for one line of input, returning
// nil at EOF (Ctrl-D).
func ReadLine(prompt string) *string {
	cPrompt := C.CString(prompt)
	defer C.free(unsafe.Pointer(cPrompt))

	cLine := C.readline(cPrompt)
	if cLine == nil {
		return nil
	}
	defer C.free(unsafe.Pointer(cLine))

	line := C.GoString(cLine)
	return &line
}

// AddHistory appends line to the in-memory history list.
func AddHistory(line string) {
	cLine := C.CString(line)
	defer C.free(unsafe.Pointer(cLine))
	C.add_history(cLine)
}

// HistoryLen reports how many entries are in the history list.
func HistoryLen() int {
	return int(C.history_length)
}

// LastHistoryLine returns the most recently added history entry, or
// "" if history is empty.
func LastHistoryLine() string {
	if C.history_length == 0 {
		return ""
	}
	entry := C.history_get(C.history_base + C.history_length - 1)
	if entry == nil {
		return ""
	}
	return C.GoString(entry.line)
}

// LoadHistoryFromFile reads a saved history file into memory, mirroring
// the original's use of read_history before the REPL's first prompt.
func LoadHistoryFromFile(fileName string) {
	cFileName := C.CString(fileName)
	defer C.free(unsafe.Pointer(cFileName))
	C.read_history(cFileName)
}

// WriteHistoryToFile persists the in-memory history list to fileName.
func WriteHistoryToFile(fileName string) error {
	cFileName := C.CString(fileName)
	defer C.free(unsafe.Pointer(cFileName))
	if errno := C.write_history(cFileName); errno != 0 {
		return syscall.Errno(errno)
	}
	return nil
}
