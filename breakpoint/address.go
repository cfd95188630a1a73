package breakpoint

import "fmt"

// VirtAddr is a virtual address inside the inferior's address space.
type VirtAddr uint64

func (a VirtAddr) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// Add returns the address offset by n bytes.
func (a VirtAddr) Add(n int64) VirtAddr { return VirtAddr(int64(a) + n) }
