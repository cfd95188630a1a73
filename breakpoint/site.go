package breakpoint

import (
	"github.com/fanyingfx/sdb/internal/sdberr"
	"github.com/fanyingfx/sdb/internal/sdblog"
)

// int3Opcode is the byte that traps to the debugger on x86-64: INT 3.
const int3Opcode = 0xcc

// MemoryAccess is the subset of proc.Process a breakpoint site needs
// to patch and restore the instruction byte at its address. Declaring
// it here, rather than importing proc, keeps proc free to depend on
// this package for its breakpoint registry without a cycle.
type MemoryAccess interface {
	ReadMemory(addr VirtAddr, size int) ([]byte, error)
	WriteMemory(addr VirtAddr, data []byte) error
}

// Site is a single software breakpoint: an address, the original
// instruction byte that lived there, and whether the 0xCC patch is
// currently installed.
type Site struct {
	id       int
	mem      MemoryAccess
	address  VirtAddr
	enabled  bool
	savedData byte
}

func newSite(id int, mem MemoryAccess, address VirtAddr) *Site {
	return &Site{id: id, mem: mem, address: address}
}

// ID returns the site's monotonic id, assigned when it was created.
func (s *Site) ID() int { return s.id }

// Address returns the address this site patches.
func (s *Site) Address() VirtAddr { return s.address }

// IsEnabled reports whether the 0xCC patch is currently installed.
func (s *Site) IsEnabled() bool { return s.enabled }

// Enable patches the instruction byte at the site's address with
// INT3, saving the original byte so Disable can restore it.
func (s *Site) Enable() error {
	if s.enabled {
		return nil
	}
	saved, err := s.mem.ReadMemory(s.address, 1)
	if err != nil {
		return err
	}
	if len(saved) != 1 {
		return sdberr.Send("short read while enabling breakpoint site")
	}
	s.savedData = saved[0]
	if err := s.mem.WriteMemory(s.address, []byte{int3Opcode}); err != nil {
		return err
	}
	s.enabled = true
	if sdblog.Breakpoint() {
		sdblog.BreakpointLogger().Debugf("enabled site %d at %s", s.id, s.address)
	}
	return nil
}

// Disable restores the original instruction byte.
func (s *Site) Disable() error {
	if !s.enabled {
		return nil
	}
	if err := s.mem.WriteMemory(s.address, []byte{s.savedData}); err != nil {
		return err
	}
	s.enabled = false
	if sdblog.Breakpoint() {
		sdblog.BreakpointLogger().Debugf("disabled site %d at %s", s.id, s.address)
	}
	return nil
}
