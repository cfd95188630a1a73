package breakpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeMemory is an in-memory MemoryAccess stand-in so the registry and
// site logic can be tested without a live inferior.
type fakeMemory struct {
	bytes map[VirtAddr]byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{bytes: make(map[VirtAddr]byte)}
}

func (m *fakeMemory) ReadMemory(addr VirtAddr, size int) ([]byte, error) {
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		out[i] = m.bytes[addr.Add(int64(i))]
	}
	return out, nil
}

func (m *fakeMemory) WriteMemory(addr VirtAddr, data []byte) error {
	for i, b := range data {
		m.bytes[addr.Add(int64(i))] = b
	}
	return nil
}

func TestPushAssignsIncreasingIDs(t *testing.T) {
	r := NewRegistry()
	mem := newFakeMemory()

	s1, err := r.Push(mem, 0x1000)
	require.NoError(t, err)
	s2, err := r.Push(mem, 0x2000)
	require.NoError(t, err)

	require.Equal(t, 1, s1.ID())
	require.Equal(t, 2, s2.ID())
	require.Equal(t, 2, r.Len())
}

func TestPushDuplicateAddressFails(t *testing.T) {
	r := NewRegistry()
	mem := newFakeMemory()

	_, err := r.Push(mem, 0x1000)
	require.NoError(t, err)
	_, err = r.Push(mem, 0x1000)
	require.Error(t, err)
}

func TestContainsAndFind(t *testing.T) {
	r := NewRegistry()
	mem := newFakeMemory()
	site, err := r.Push(mem, 0x1000)
	require.NoError(t, err)

	require.True(t, r.ContainsID(site.ID()))
	require.True(t, r.ContainsAddress(0x1000))
	require.False(t, r.ContainsID(999))
	require.False(t, r.ContainsAddress(0x9999))

	byID, err := r.GetByID(site.ID())
	require.NoError(t, err)
	require.Same(t, site, byID)

	byAddr, err := r.GetByAddress(0x1000)
	require.NoError(t, err)
	require.Same(t, site, byAddr)

	_, err = r.GetByID(999)
	require.Error(t, err)
	_, err = r.GetByAddress(0x9999)
	require.Error(t, err)
}

func TestEnableDisablePatchesMemory(t *testing.T) {
	mem := newFakeMemory()
	mem.bytes[0x1000] = 0x90 // NOP originally there

	r := NewRegistry()
	site, err := r.Push(mem, 0x1000)
	require.NoError(t, err)

	require.False(t, site.IsEnabled())
	require.NoError(t, site.Enable())
	require.True(t, site.IsEnabled())
	require.Equal(t, byte(0xcc), mem.bytes[0x1000])

	require.True(t, r.EnabledStoppointAtAddress(0x1000))

	require.NoError(t, site.Disable())
	require.False(t, site.IsEnabled())
	require.Equal(t, byte(0x90), mem.bytes[0x1000])
	require.False(t, r.EnabledStoppointAtAddress(0x1000))
}

func TestRemoveByIDDisablesAndDeletes(t *testing.T) {
	mem := newFakeMemory()
	mem.bytes[0x1000] = 0x90

	r := NewRegistry()
	site, err := r.Push(mem, 0x1000)
	require.NoError(t, err)
	require.NoError(t, site.Enable())

	require.NoError(t, r.RemoveByID(site.ID()))
	require.True(t, r.Empty())
	require.Equal(t, byte(0x90), mem.bytes[0x1000])
}

func TestRemoveByAddressMissingFails(t *testing.T) {
	r := NewRegistry()
	err := r.RemoveByAddress(0x1000)
	require.Error(t, err)
}

func TestForEachVisitsInCreationOrder(t *testing.T) {
	r := NewRegistry()
	mem := newFakeMemory()
	r.Push(mem, 0x1000)
	r.Push(mem, 0x2000)
	r.Push(mem, 0x3000)

	var addrs []VirtAddr
	r.ForEach(func(s *Site) { addrs = append(addrs, s.Address()) })
	require.Equal(t, []VirtAddr{0x1000, 0x2000, 0x3000}, addrs)
}
