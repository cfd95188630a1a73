// Package regs implements the static register catalogue and the live
// register bank that mirrors an inferior's GPR/FPR/debug-register state.
package regs

import "github.com/fanyingfx/sdb/internal/sdbval"

// ID names a single register the debugger knows how to read or write.
// Sub-registers (Eax, Ax, Al, ...) are distinct IDs that alias into the
// same underlying 64-bit slot at a byte offset.
type ID int

const (
	Rax ID = iota
	Rbx
	Rcx
	Rdx
	Rdi
	Rsi
	Rbp
	Rsp
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	Rip
	Eflags
	Cs
	Ss
	Ds
	Es
	Fs
	Gs
	OrigRax
	FsBase
	GsBase

	Eax
	Ebx
	Ecx
	Edx
	Edi
	Esi
	Ebp
	Esp
	R8d
	R9d
	R10d
	R11d
	R12d
	R13d
	R14d
	R15d

	Ax
	Bx
	Cx
	Dx
	Di
	Si
	Bp
	Sp
	R8w
	R9w
	R10w
	R11w
	R12w
	R13w
	R14w
	R15w

	Ah
	Bh
	Ch
	Dh
	Al
	Bl
	Cl
	Dl
	Dil
	Sil
	Bpl
	Spl
	R8b
	R9b
	R10b
	R11b
	R12b
	R13b
	R14b
	R15b

	Fcw
	Fsw
	Ftw
	Fop
	Frip
	Frdp
	Mxcsr
	MxcsrMask

	St0
	St1
	St2
	St3
	St4
	St5
	St6
	St7

	Mm0
	Mm1
	Mm2
	Mm3
	Mm4
	Mm5
	Mm6
	Mm7

	Xmm0
	Xmm1
	Xmm2
	Xmm3
	Xmm4
	Xmm5
	Xmm6
	Xmm7
	Xmm8
	Xmm9
	Xmm10
	Xmm11
	Xmm12
	Xmm13
	Xmm14
	Xmm15

	Dr0
	Dr1
	Dr2
	Dr3
	Dr4
	Dr5
	Dr6
	Dr7
)

// Class groups registers by the kernel struct/API they're read or
// written through.
type Class int

const (
	ClassGPR Class = iota
	ClassSubGPR
	ClassFPR
	ClassDebug
)

// Info describes one catalogue entry: its name, width, DWARF number
// (informational only; no code path reads it), storage class, and the
// sdbval.Format the CLI uses to parse/print it.
type Info struct {
	ID       ID
	Name     string
	DwarfID  int
	Size     int
	Class    Class
	Format   sdbval.Format
}

const noDwarfID = -1

var catalogue = []Info{
	{Rax, "rax", 0, 8, ClassGPR, sdbval.FormatUint},
	{Rdx, "rdx", 1, 8, ClassGPR, sdbval.FormatUint},
	{Rcx, "rcx", 2, 8, ClassGPR, sdbval.FormatUint},
	{Rbx, "rbx", 3, 8, ClassGPR, sdbval.FormatUint},
	{Rsi, "rsi", 4, 8, ClassGPR, sdbval.FormatUint},
	{Rdi, "rdi", 5, 8, ClassGPR, sdbval.FormatUint},
	{Rbp, "rbp", 6, 8, ClassGPR, sdbval.FormatUint},
	{Rsp, "rsp", 7, 8, ClassGPR, sdbval.FormatUint},
	{R8, "r8", 8, 8, ClassGPR, sdbval.FormatUint},
	{R9, "r9", 9, 8, ClassGPR, sdbval.FormatUint},
	{R10, "r10", 10, 8, ClassGPR, sdbval.FormatUint},
	{R11, "r11", 11, 8, ClassGPR, sdbval.FormatUint},
	{R12, "r12", 12, 8, ClassGPR, sdbval.FormatUint},
	{R13, "r13", 13, 8, ClassGPR, sdbval.FormatUint},
	{R14, "r14", 14, 8, ClassGPR, sdbval.FormatUint},
	{R15, "r15", 15, 8, ClassGPR, sdbval.FormatUint},
	{Rip, "rip", 16, 8, ClassGPR, sdbval.FormatUint},
	{Eflags, "eflags", 49, 8, ClassGPR, sdbval.FormatUint},
	{Cs, "cs", 51, 8, ClassGPR, sdbval.FormatUint},
	{Ss, "ss", 52, 8, ClassGPR, sdbval.FormatUint},
	{Ds, "ds", 53, 8, ClassGPR, sdbval.FormatUint},
	{Es, "es", 54, 8, ClassGPR, sdbval.FormatUint},
	{Fs, "fs", 55, 8, ClassGPR, sdbval.FormatUint},
	{Gs, "gs", 56, 8, ClassGPR, sdbval.FormatUint},
	{OrigRax, "orig_rax", noDwarfID, 8, ClassGPR, sdbval.FormatUint},
	{FsBase, "fs_base", 58, 8, ClassGPR, sdbval.FormatUint},
	{GsBase, "gs_base", 59, 8, ClassGPR, sdbval.FormatUint},

	{Eax, "eax", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Ebx, "ebx", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Ecx, "ecx", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Edx, "edx", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Edi, "edi", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Esi, "esi", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Ebp, "ebp", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{Esp, "esp", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R8d, "r8d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R9d, "r9d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R10d, "r10d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R11d, "r11d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R12d, "r12d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R13d, "r13d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R14d, "r14d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},
	{R15d, "r15d", noDwarfID, 4, ClassSubGPR, sdbval.FormatUint},

	{Ax, "ax", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Bx, "bx", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Cx, "cx", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Dx, "dx", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Di, "di", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Si, "si", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Bp, "bp", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{Sp, "sp", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R8w, "r8w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R9w, "r9w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R10w, "r10w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R11w, "r11w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R12w, "r12w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R13w, "r13w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R14w, "r14w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},
	{R15w, "r15w", noDwarfID, 2, ClassSubGPR, sdbval.FormatUint},

	{Ah, "ah", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Bh, "bh", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Ch, "ch", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Dh, "dh", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Al, "al", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Bl, "bl", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Cl, "cl", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Dl, "dl", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Dil, "dil", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Sil, "sil", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Bpl, "bpl", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{Spl, "spl", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R8b, "r8b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R9b, "r9b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R10b, "r10b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R11b, "r11b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R12b, "r12b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R13b, "r13b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R14b, "r14b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},
	{R15b, "r15b", noDwarfID, 1, ClassSubGPR, sdbval.FormatUint},

	{Fcw, "fcw", 65, 2, ClassFPR, sdbval.FormatUint},
	{Fsw, "fsw", 66, 2, ClassFPR, sdbval.FormatUint},
	{Ftw, "ftw", noDwarfID, 2, ClassFPR, sdbval.FormatUint},
	{Fop, "fop", noDwarfID, 2, ClassFPR, sdbval.FormatUint},
	{Frip, "frip", noDwarfID, 8, ClassFPR, sdbval.FormatUint},
	{Frdp, "frdp", noDwarfID, 8, ClassFPR, sdbval.FormatUint},
	{Mxcsr, "mxcsr", 64, 4, ClassFPR, sdbval.FormatUint},
	{MxcsrMask, "mxcsr_mask", noDwarfID, 4, ClassFPR, sdbval.FormatUint},

	{St0, "st0", 33, 10, ClassFPR, sdbval.FormatLongDouble},
	{St1, "st1", 34, 10, ClassFPR, sdbval.FormatLongDouble},
	{St2, "st2", 35, 10, ClassFPR, sdbval.FormatLongDouble},
	{St3, "st3", 36, 10, ClassFPR, sdbval.FormatLongDouble},
	{St4, "st4", 37, 10, ClassFPR, sdbval.FormatLongDouble},
	{St5, "st5", 38, 10, ClassFPR, sdbval.FormatLongDouble},
	{St6, "st6", 39, 10, ClassFPR, sdbval.FormatLongDouble},
	{St7, "st7", 40, 10, ClassFPR, sdbval.FormatLongDouble},

	{Mm0, "mm0", 41, 8, ClassFPR, sdbval.FormatVector},
	{Mm1, "mm1", 42, 8, ClassFPR, sdbval.FormatVector},
	{Mm2, "mm2", 43, 8, ClassFPR, sdbval.FormatVector},
	{Mm3, "mm3", 44, 8, ClassFPR, sdbval.FormatVector},
	{Mm4, "mm4", 45, 8, ClassFPR, sdbval.FormatVector},
	{Mm5, "mm5", 46, 8, ClassFPR, sdbval.FormatVector},
	{Mm6, "mm6", 47, 8, ClassFPR, sdbval.FormatVector},
	{Mm7, "mm7", 48, 8, ClassFPR, sdbval.FormatVector},

	{Xmm0, "xmm0", 17, 16, ClassFPR, sdbval.FormatVector},
	{Xmm1, "xmm1", 18, 16, ClassFPR, sdbval.FormatVector},
	{Xmm2, "xmm2", 19, 16, ClassFPR, sdbval.FormatVector},
	{Xmm3, "xmm3", 20, 16, ClassFPR, sdbval.FormatVector},
	{Xmm4, "xmm4", 21, 16, ClassFPR, sdbval.FormatVector},
	{Xmm5, "xmm5", 22, 16, ClassFPR, sdbval.FormatVector},
	{Xmm6, "xmm6", 23, 16, ClassFPR, sdbval.FormatVector},
	{Xmm7, "xmm7", 24, 16, ClassFPR, sdbval.FormatVector},
	{Xmm8, "xmm8", 25, 16, ClassFPR, sdbval.FormatVector},
	{Xmm9, "xmm9", 26, 16, ClassFPR, sdbval.FormatVector},
	{Xmm10, "xmm10", 27, 16, ClassFPR, sdbval.FormatVector},
	{Xmm11, "xmm11", 28, 16, ClassFPR, sdbval.FormatVector},
	{Xmm12, "xmm12", 29, 16, ClassFPR, sdbval.FormatVector},
	{Xmm13, "xmm13", 30, 16, ClassFPR, sdbval.FormatVector},
	{Xmm14, "xmm14", 31, 16, ClassFPR, sdbval.FormatVector},
	{Xmm15, "xmm15", 32, 16, ClassFPR, sdbval.FormatVector},

	{Dr0, "dr0", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr1, "dr1", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr2, "dr2", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr3, "dr3", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr4, "dr4", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr5, "dr5", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr6, "dr6", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
	{Dr7, "dr7", noDwarfID, 8, ClassDebug, sdbval.FormatUint},
}

var byID = func() map[ID]Info {
	m := make(map[ID]Info, len(catalogue))
	for _, info := range catalogue {
		m[info.ID] = info
	}
	return m
}()

var byName = func() map[string]Info {
	m := make(map[string]Info, len(catalogue))
	for _, info := range catalogue {
		m[info.Name] = info
	}
	return m
}()

// ByID looks up a catalogue entry by its ID. The second return is false
// only if id was constructed outside this package's constants.
func ByID(id ID) (Info, bool) {
	info, ok := byID[id]
	return info, ok
}

// ByName looks up a catalogue entry by its textual name, as typed at
// the CLI (e.g. "rax", "xmm3", "st0").
func ByName(name string) (Info, bool) {
	info, ok := byName[name]
	return info, ok
}

// All returns the full catalogue in declaration order.
func All() []Info {
	out := make([]Info, len(catalogue))
	copy(out, catalogue)
	return out
}

// debugRegisterUserOffset is the offset into the kernel's per-thread "user
// area" at which dr0-dr7 live, used for PTRACE_PEEKUSER/POKEUSER. It
// matches offsetof(struct user, u_debugreg) on x86-64 Linux.
const debugRegisterUserOffset = 848

// UserAreaOffset returns the PTRACE_PEEKUSER/POKEUSER offset for a
// debug register. Only valid for ClassDebug entries.
func UserAreaOffset(id ID) uintptr {
	return uintptr(debugRegisterUserOffset) + uintptr(id-Dr0)*8
}
