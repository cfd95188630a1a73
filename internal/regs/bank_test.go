package regs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests exercise the byte-layout math in Bank without touching
// ptrace: they poke the in-memory gpr/fpr mirrors directly and check
// that ReadByID slices out the right bytes, the same contract
// WriteByID relies on before it flushes to the kernel.

func TestReadGPR(t *testing.T) {
	b := New(0)
	b.gpr.Rsi = 0x1122334455667788

	v, err := b.ReadByID(Rsi)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1122334455667788), v.AsU64())
}

func TestReadSubGPR32(t *testing.T) {
	b := New(0)
	b.gpr.Rax = 0x1122334455667788

	v, err := b.ReadByID(Eax)
	require.NoError(t, err)
	require.Equal(t, uint64(0x55667788), v.AsU64())
}

func TestReadSubGPR16(t *testing.T) {
	b := New(0)
	b.gpr.Rax = 0x1122334455667788

	v, err := b.ReadByID(Ax)
	require.NoError(t, err)
	require.Equal(t, uint64(0x7788), v.AsU64())
}

func TestReadSubGPR8LowHigh(t *testing.T) {
	b := New(0)
	b.gpr.Rax = 0x1122334455667788

	lo, err := b.ReadByID(Al)
	require.NoError(t, err)
	require.Equal(t, uint64(0x88), lo.AsU64())

	hi, err := b.ReadByID(Ah)
	require.NoError(t, err)
	require.Equal(t, uint64(0x77), hi.AsU64())
}

func TestReadMxcsr(t *testing.T) {
	b := New(0)
	binary.LittleEndian.PutUint32(b.fprSlice()[fprOffMxcsr:fprOffMxcsr+4], 0x1f80)

	v, err := b.ReadByID(Mxcsr)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1f80), v.AsU64())
}

func TestReadXmm(t *testing.T) {
	b := New(0)
	want := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	copy(b.fprSlice()[fprOffXmm+16:fprOffXmm+32], want[:]) // xmm1

	v, err := b.ReadByID(Xmm1)
	require.NoError(t, err)
	require.Equal(t, want[:], v.AsBytes())
}

func TestReadMm(t *testing.T) {
	b := New(0)
	want := [8]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x11, 0x22}
	copy(b.fprSlice()[fprOffStSpace+16:fprOffStSpace+24], want[:]) // mm1 aliases st1's low 8 bytes

	v, err := b.ReadByID(Mm1)
	require.NoError(t, err)
	require.Equal(t, want[:], v.AsBytes())
}

func TestWriteGPRBytesRoundTrip(t *testing.T) {
	b := New(0)
	info, _ := ByID(Rdi)
	b.writeGPRBytes(info, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.Equal(t, uint64(0x0807060504030201), b.gpr.Rdi)
}

func TestWriteFPRBytesRoundTrip(t *testing.T) {
	b := New(0)
	info, _ := ByID(Xmm2)
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	b.writeFPRBytes(info, raw)

	v, err := b.ReadByID(Xmm2)
	require.NoError(t, err)
	require.Equal(t, raw, v.AsBytes())
}

func TestPCAccessors(t *testing.T) {
	b := New(0)
	b.SetPC(0x400000)
	require.Equal(t, uint64(0x400000), b.PC())
}
