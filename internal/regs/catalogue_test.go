package regs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	info, ok := ByName("rax")
	require.True(t, ok)
	require.Equal(t, Rax, info.ID)
	require.Equal(t, 8, info.Size)

	_, ok = ByName("not-a-register")
	require.False(t, ok)
}

func TestByID(t *testing.T) {
	info, ok := ByID(Xmm3)
	require.True(t, ok)
	require.Equal(t, "xmm3", info.Name)
	require.Equal(t, ClassFPR, info.Class)
	require.Equal(t, 16, info.Size)
}

func TestCatalogueNamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, info := range All() {
		require.False(t, seen[info.Name], "duplicate register name %s", info.Name)
		seen[info.Name] = true
	}
}

func TestDebugRegisterOffsetsSequential(t *testing.T) {
	base := UserAreaOffset(Dr0)
	for i := ID(0); i < 8; i++ {
		require.Equal(t, base+uintptr(i)*8, UserAreaOffset(Dr0+i))
	}
}
