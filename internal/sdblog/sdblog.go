// Package sdblog wires up per-component logrus loggers, gated the same
// way delve's logflags package gates its own subsystems: off by
// default (PanicLevel), enabled by name through Setup.
package sdblog

import (
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	proc       = false
	breakpoint = false
	repl       = false
)

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Proc returns true if the proc package should log ptrace calls and
// state transitions.
func Proc() bool { return proc }

// ProcLogger returns a logger for the proc package.
func ProcLogger() *logrus.Entry {
	return makeLogger(proc, logrus.Fields{"layer": "proc"})
}

// Breakpoint returns true if the breakpoint package should log site
// enable/disable transitions.
func Breakpoint() bool { return breakpoint }

// BreakpointLogger returns a logger for the breakpoint package.
func BreakpointLogger() *logrus.Entry {
	return makeLogger(breakpoint, logrus.Fields{"layer": "breakpoint"})
}

// REPL returns true if the command shell should log dispatched commands.
func REPL() bool { return repl }

// REPLLogger returns a logger for the command shell.
func REPLLogger() *logrus.Entry {
	return makeLogger(repl, logrus.Fields{"layer": "repl"})
}

// Setup enables logging for the comma-separated component names in
// logstr ("proc,breakpoint,repl"), mirroring the SDB_LOG environment
// variable's contents.
func Setup(logstr string) {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if logstr == "" {
		return
	}
	for _, name := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(name) {
		case "proc":
			proc = true
		case "breakpoint":
			breakpoint = true
		case "repl":
			repl = true
		}
	}
}
