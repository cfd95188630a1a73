// Package pipe implements a small scoped pipe, used to capture a
// target's stdout during tests and, historically in the original
// library, to relay launch errors from a forked child. Go's exec
// package already relays exec(2) failures through cmd.Start's error,
// so this package's only remaining job is stdout capture.
package pipe

import (
	"os"
	"syscall"

	"github.com/fanyingfx/sdb/internal/sdberr"
)

// Pipe wraps a read/write fd pair, closable independently on either
// end, the way the original's pipe type is closed from both the
// parent and the (conceptual) child side.
type Pipe struct {
	read  *os.File
	write *os.File
}

// New creates a pipe. If closeOnExec is true, both ends are marked
// FD_CLOEXEC so a child that inherits them doesn't hold them open
// across its own exec.
func New(closeOnExec bool) (*Pipe, error) {
	var fds [2]int
	flags := 0
	if closeOnExec {
		flags = syscall.O_CLOEXEC
	}
	if err := syscall.Pipe2(fds[:], flags); err != nil {
		return nil, sdberr.SendErrno("pipe failed", err)
	}
	return &Pipe{
		read:  os.NewFile(uintptr(fds[0]), "pipe-read"),
		write: os.NewFile(uintptr(fds[1]), "pipe-write"),
	}, nil
}

// ReadFd returns the read end's file descriptor, for wiring into a
// child's inherited fd table.
func (p *Pipe) ReadFd() uintptr { return p.read.Fd() }

// WriteFd returns the write end's file descriptor.
func (p *Pipe) WriteFd() uintptr { return p.write.Fd() }

// ReadFile exposes the read end as an *os.File, for reading back what
// was written into the pipe.
func (p *Pipe) ReadFile() *os.File { return p.read }

// WriteFile exposes the write end as an *os.File, for use as an
// exec.Cmd.Stdout target.
func (p *Pipe) WriteFile() *os.File { return p.write }

// CloseRead closes the read end only.
func (p *Pipe) CloseRead() {
	if p.read != nil {
		p.read.Close()
		p.read = nil
	}
}

// CloseWrite closes the write end only.
func (p *Pipe) CloseWrite() {
	if p.write != nil {
		p.write.Close()
		p.write = nil
	}
}

// Close closes whichever ends remain open.
func (p *Pipe) Close() {
	p.CloseRead()
	p.CloseWrite()
}

// Read drains the read end to EOF.
func (p *Pipe) Read() ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := p.read.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return out, nil
}
