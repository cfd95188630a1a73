package regs

import (
	"encoding/binary"
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/fanyingfx/sdb/internal/sdberr"
	"github.com/fanyingfx/sdb/internal/sdbval"
)

// FPRegs mirrors the kernel's user_fpregs_struct for x86-64, as filled
// in by PTRACE_GETFPREGS.
type FPRegs struct {
	Cwd      uint16
	Swd      uint16
	Ftw      uint16
	Fop      uint16
	Rip      uint64
	Rdp      uint64
	Mxcsr    uint32
	MxcrMask uint32
	StSpace  [32]uint32  // 8 x 80-bit ST/MM registers, 4 uint32 words each
	XmmSpace [64]uint32  // 16 x 128-bit XMM registers, 4 uint32 words each
	Padding  [24]uint32
}

// Bank holds one inferior thread's full register state: GPRs as read
// via PTRACE_GETREGS, FPRs as read via PTRACE_GETFPREGS, and the debug
// registers dr0-dr7 as read one at a time via PTRACE_PEEKUSER. Writes
// are buffered here and flushed back with the matching PTRACE_SET*
// call, the way the original splits "read everything on stop" from
// "write one register at a time".
type Bank struct {
	pid int

	// Run executes fn and is how every ptrace(2) call in this bank is
	// issued. Process sets this to a function that runs fn on the one
	// OS thread locked for the inferior's lifetime, since ptrace
	// requires all calls after PTRACE_ATTACH/TRACEME to come from that
	// thread. New sets it to a function that just calls fn directly,
	// which is what tests that never touch a live process use.
	Run func(fn func())

	gpr sys.PtraceRegs
	fpr FPRegs
	dr  [8]uint64
}

// New returns a Bank bound to pid. Callers must call ReadAll once
// before any Read, and after the inferior stops.
func New(pid int) *Bank {
	return &Bank{pid: pid, Run: func(fn func()) { fn() }}
}

// ReadAll refreshes every register class from the kernel, mirroring
// read_all_registers: GPRs, FPRs, and then dr0-dr7 one at a time.
func (b *Bank) ReadAll() error {
	var err error
	b.Run(func() {
		if err = sys.PtraceGetRegs(b.pid, &b.gpr); err != nil {
			return
		}
		if err = b.getFPRegs(); err != nil {
			return
		}
		for i := 0; i < 8; i++ {
			id := Dr0 + ID(i)
			var data uint64
			data, err = b.peekUser(UserAreaOffset(id))
			if err != nil {
				return
			}
			b.dr[i] = data
		}
	})
	if err != nil {
		return sdberr.SendErrno("Could not read registers", err)
	}
	return nil
}

func (b *Bank) getFPRegs() error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, sys.PTRACE_GETFPREGS, uintptr(b.pid), 0, uintptr(unsafe.Pointer(&b.fpr)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (b *Bank) setFPRegs() error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PTRACE, sys.PTRACE_SETFPREGS, uintptr(b.pid), 0, uintptr(unsafe.Pointer(&b.fpr)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func (b *Bank) peekUser(offset uintptr) (uint64, error) {
	var out [8]byte
	_, err := sys.PtracePeekUser(b.pid, offset, out[:])
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(out[:]), nil
}

func (b *Bank) pokeUser(offset uintptr, data uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], data)
	_, err := sys.PtracePokeUser(b.pid, offset, buf[:])
	return err
}

// PC returns the current instruction pointer.
func (b *Bank) PC() uint64 { return b.gpr.Rip }

// SetPC sets the in-memory RIP without flushing to the kernel; callers
// flush explicitly with WriteByID(Rip, ...).
func (b *Bank) SetPC(addr uint64) { b.gpr.Rip = addr }

// ReadByID returns the current value of a register as an sdbval.Value,
// reading from the in-memory mirror (callers must have called ReadAll
// first for a fresh snapshot).
func (b *Bank) ReadByID(id ID) (sdbval.Value, error) {
	info, ok := ByID(id)
	if !ok {
		return sdbval.Value{}, sdberr.Send("unknown register")
	}
	buf, err := b.readBytes(info)
	if err != nil {
		return sdbval.Value{}, err
	}
	return bytesToValue(info, buf)
}

// WriteByID writes v into the register, flushing it to the kernel via
// the matching PTRACE_SET* call, mirroring write_gprs/write_fprs/
// write_user_area's one-register-at-a-time semantics.
func (b *Bank) WriteByID(id ID, v sdbval.Value) error {
	info, ok := ByID(id)
	if !ok {
		return sdberr.Send("unknown register")
	}
	raw := v.AsBytes()
	if len(raw) != info.Size {
		return sdberr.Sendf("wrong number of bytes for register %s (%d)", info.Name, len(raw))
	}
	var err error
	switch info.Class {
	case ClassGPR, ClassSubGPR:
		b.writeGPRBytes(info, raw)
		b.Run(func() { err = sys.PtraceSetRegs(b.pid, &b.gpr) })
		if err != nil {
			return sdberr.SendErrno("Could not write general purpose registers", err)
		}
	case ClassFPR:
		b.writeFPRBytes(info, raw)
		b.Run(func() { err = b.setFPRegs() })
		if err != nil {
			return sdberr.SendErrno("Could not write floating point registers", err)
		}
	case ClassDebug:
		data := binary.LittleEndian.Uint64(raw)
		b.dr[id-Dr0] = data
		b.Run(func() { err = b.pokeUser(UserAreaOffset(id), data) })
		if err != nil {
			return sdberr.SendErrno("Could not write to user area", err)
		}
	}
	return nil
}

// gprOffsets gives the byte offset of each GPR (and its
// sub-registers alias) within sys.PtraceRegs, in declaration order
// matching user_regs_struct.
var gprOffsets = map[ID]uintptr{
	Rax: unsafe.Offsetof(sys.PtraceRegs{}.Rax), Rbx: unsafe.Offsetof(sys.PtraceRegs{}.Rbx),
	Rcx: unsafe.Offsetof(sys.PtraceRegs{}.Rcx), Rdx: unsafe.Offsetof(sys.PtraceRegs{}.Rdx),
	Rdi: unsafe.Offsetof(sys.PtraceRegs{}.Rdi), Rsi: unsafe.Offsetof(sys.PtraceRegs{}.Rsi),
	Rbp: unsafe.Offsetof(sys.PtraceRegs{}.Rbp), Rsp: unsafe.Offsetof(sys.PtraceRegs{}.Rsp),
	R8: unsafe.Offsetof(sys.PtraceRegs{}.R8), R9: unsafe.Offsetof(sys.PtraceRegs{}.R9),
	R10: unsafe.Offsetof(sys.PtraceRegs{}.R10), R11: unsafe.Offsetof(sys.PtraceRegs{}.R11),
	R12: unsafe.Offsetof(sys.PtraceRegs{}.R12), R13: unsafe.Offsetof(sys.PtraceRegs{}.R13),
	R14: unsafe.Offsetof(sys.PtraceRegs{}.R14), R15: unsafe.Offsetof(sys.PtraceRegs{}.R15),
	Rip: unsafe.Offsetof(sys.PtraceRegs{}.Rip), Eflags: unsafe.Offsetof(sys.PtraceRegs{}.Eflags),
	Cs: unsafe.Offsetof(sys.PtraceRegs{}.Cs), Ss: unsafe.Offsetof(sys.PtraceRegs{}.Ss),
	Ds: unsafe.Offsetof(sys.PtraceRegs{}.Ds), Es: unsafe.Offsetof(sys.PtraceRegs{}.Es),
	Fs: unsafe.Offsetof(sys.PtraceRegs{}.Fs), Gs: unsafe.Offsetof(sys.PtraceRegs{}.Gs),
	OrigRax: unsafe.Offsetof(sys.PtraceRegs{}.Orig_rax), FsBase: unsafe.Offsetof(sys.PtraceRegs{}.Fs_base),
	GsBase: unsafe.Offsetof(sys.PtraceRegs{}.Gs_base),
}

// subGPRParent maps a sub-register to the 64-bit register it aliases.
var subGPRParent = map[ID]ID{
	Eax: Rax, Ax: Rax, Ah: Rax, Al: Rax,
	Ebx: Rbx, Bx: Rbx, Bh: Rbx, Bl: Rbx,
	Ecx: Rcx, Cx: Rcx, Ch: Rcx, Cl: Rcx,
	Edx: Rdx, Dx: Rdx, Dh: Rdx, Dl: Rdx,
	Edi: Rdi, Di: Rdi, Dil: Rdi,
	Esi: Rsi, Si: Rsi, Sil: Rsi,
	Ebp: Rbp, Bp: Rbp, Bpl: Rbp,
	Esp: Rsp, Sp: Rsp, Spl: Rsp,
	R8d: R8, R8w: R8, R8b: R8,
	R9d: R9, R9w: R9, R9b: R9,
	R10d: R10, R10w: R10, R10b: R10,
	R11d: R11, R11w: R11, R11b: R11,
	R12d: R12, R12w: R12, R12b: R12,
	R13d: R13, R13w: R13, R13b: R13,
	R14d: R14, R14w: R14, R14b: R14,
	R15d: R15, R15w: R15, R15b: R15,
}

// subGPRHighByte lists the "high byte" 8-bit sub-registers (ah/bh/ch/dh)
// that alias bits 8-15 of their parent rather than bits 0-7.
var subGPRHighByte = map[ID]bool{Ah: true, Bh: true, Ch: true, Dh: true}

func (b *Bank) gprSlice() []byte {
	return (*[unsafe.Sizeof(sys.PtraceRegs{})]byte)(unsafe.Pointer(&b.gpr))[:]
}

func (b *Bank) readBytes(info Info) ([]byte, error) {
	switch info.Class {
	case ClassGPR:
		off := gprOffsets[info.ID]
		buf := make([]byte, 8)
		copy(buf, b.gprSlice()[off:off+8])
		return buf, nil
	case ClassSubGPR:
		parent := subGPRParent[info.ID]
		off := gprOffsets[parent]
		if subGPRHighByte[info.ID] {
			off++
		}
		buf := make([]byte, info.Size)
		copy(buf, b.gprSlice()[off:off+uintptr(info.Size)])
		return buf, nil
	case ClassFPR:
		return b.readFPRBytes(info), nil
	case ClassDebug:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, b.dr[info.ID-Dr0])
		return buf, nil
	default:
		return nil, sdberr.Send("unknown register class")
	}
}

func (b *Bank) fprSlice() []byte {
	return (*[unsafe.Sizeof(FPRegs{})]byte)(unsafe.Pointer(&b.fpr))[:]
}

const (
	fprOffCwd     = 0
	fprOffSwd     = 2
	fprOffFtw     = 4
	fprOffFop     = 6
	fprOffRip     = 8
	fprOffRdp     = 16
	fprOffMxcsr   = 24
	fprOffMxcr    = 28
	fprOffStSpace = 32
	fprOffXmm     = fprOffStSpace + 32*4
)

func (b *Bank) readFPRBytes(info Info) []byte {
	s := b.fprSlice()
	switch info.ID {
	case Fcw:
		return s[fprOffCwd : fprOffCwd+2]
	case Fsw:
		return s[fprOffSwd : fprOffSwd+2]
	case Ftw:
		return s[fprOffFtw : fprOffFtw+2]
	case Fop:
		return s[fprOffFop : fprOffFop+2]
	case Frip:
		return s[fprOffRip : fprOffRip+8]
	case Frdp:
		return s[fprOffRdp : fprOffRdp+8]
	case Mxcsr:
		return s[fprOffMxcsr : fprOffMxcsr+4]
	case MxcsrMask:
		return s[fprOffMxcr : fprOffMxcr+4]
	}
	if info.ID >= St0 && info.ID <= St7 {
		n := int(info.ID - St0)
		off := fprOffStSpace + n*16
		buf := make([]byte, 10)
		copy(buf, s[off:off+10])
		return buf
	}
	if info.ID >= Mm0 && info.ID <= Mm7 {
		n := int(info.ID - Mm0)
		off := fprOffStSpace + n*16
		buf := make([]byte, 8)
		copy(buf, s[off:off+8])
		return buf
	}
	if info.ID >= Xmm0 && info.ID <= Xmm15 {
		n := int(info.ID - Xmm0)
		off := fprOffXmm + n*16
		buf := make([]byte, 16)
		copy(buf, s[off:off+16])
		return buf
	}
	return nil
}

func (b *Bank) writeGPRBytes(info Info, raw []byte) {
	s := b.gprSlice()
	switch info.Class {
	case ClassGPR:
		off := gprOffsets[info.ID]
		copy(s[off:off+8], raw)
	case ClassSubGPR:
		parent := subGPRParent[info.ID]
		off := gprOffsets[parent]
		if subGPRHighByte[info.ID] {
			off++
		}
		copy(s[off:off+uintptr(info.Size)], raw)
	}
}

func (b *Bank) writeFPRBytes(info Info, raw []byte) {
	s := b.fprSlice()
	switch info.ID {
	case Fcw:
		copy(s[fprOffCwd:fprOffCwd+2], raw)
	case Fsw:
		copy(s[fprOffSwd:fprOffSwd+2], raw)
	case Ftw:
		copy(s[fprOffFtw:fprOffFtw+2], raw)
	case Fop:
		copy(s[fprOffFop:fprOffFop+2], raw)
	case Frip:
		copy(s[fprOffRip:fprOffRip+8], raw)
	case Frdp:
		copy(s[fprOffRdp:fprOffRdp+8], raw)
	case Mxcsr:
		copy(s[fprOffMxcsr:fprOffMxcsr+4], raw)
	case MxcsrMask:
		copy(s[fprOffMxcr:fprOffMxcr+4], raw)
	default:
		if info.ID >= St0 && info.ID <= St7 {
			n := int(info.ID - St0)
			off := fprOffStSpace + n*16
			copy(s[off:off+10], raw)
		} else if info.ID >= Mm0 && info.ID <= Mm7 {
			n := int(info.ID - Mm0)
			off := fprOffStSpace + n*16
			copy(s[off:off+8], raw)
		} else if info.ID >= Xmm0 && info.ID <= Xmm15 {
			n := int(info.ID - Xmm0)
			off := fprOffXmm + n*16
			copy(s[off:off+16], raw)
		}
	}
}

func bytesToValue(info Info, buf []byte) (sdbval.Value, error) {
	switch info.Format {
	case sdbval.FormatUint:
		switch info.Size {
		case 1:
			return sdbval.FromBytes(sdbval.KindU8, buf)
		case 2:
			return sdbval.FromBytes(sdbval.KindU16, buf)
		case 4:
			return sdbval.FromBytes(sdbval.KindU32, buf)
		case 8:
			return sdbval.FromBytes(sdbval.KindU64, buf)
		}
	case sdbval.FormatLongDouble:
		return sdbval.FromBytes(sdbval.KindLongDouble, buf)
	case sdbval.FormatVector:
		switch info.Size {
		case 8:
			return sdbval.FromBytes(sdbval.KindByte8, buf)
		case 16:
			return sdbval.FromBytes(sdbval.KindByte16, buf)
		}
	}
	return sdbval.Value{}, sdberr.Sendf("no byte mapping for register %s", info.Name)
}
