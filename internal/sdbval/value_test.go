package sdbval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWidth(t *testing.T) {
	require.Equal(t, 1, KindU8.Width())
	require.Equal(t, 8, KindU64.Width())
	require.Equal(t, 10, KindLongDouble.Width())
	require.Equal(t, 8, KindByte8.Width())
	require.Equal(t, 16, KindByte16.Width())
}

func TestBytesRoundTrip(t *testing.T) {
	cases := []Value{
		U8(0xab),
		U16(0xbeef),
		U32(0xdeadbeef),
		U64(0x1122334455667788),
		I8(-5),
		I16(-1234),
		I32(-123456),
		I64(-123456789),
		F32(3.5),
		F64(-2.25),
		Byte8([8]byte{1, 2, 3, 4, 5, 6, 7, 8}),
		Byte16([16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}),
	}
	for _, v := range cases {
		buf := v.AsBytes()
		require.Len(t, buf, v.Kind.Width())
		got, err := FromBytes(v.Kind, buf)
		require.NoError(t, err)
		require.Equal(t, buf, got.AsBytes())
	}
}

func TestFromBytesWrongLength(t *testing.T) {
	_, err := FromBytes(KindU32, []byte{1, 2})
	require.Error(t, err)
}

func TestLongDoubleRoundTrip(t *testing.T) {
	packed := packLongDouble(3.141592653589793)
	v := LongDouble(packed)
	require.InDelta(t, 3.141592653589793, unpackLongDouble(v.ld), 1e-12)
}

func TestParseUint(t *testing.T) {
	v, err := Parse(FormatUint, 4, "0xdeadbeef")
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), v.AsU64())

	_, err = Parse(FormatUint, 4, "not-hex")
	require.Error(t, err)
}

func TestParseDoubleFloat(t *testing.T) {
	v, err := Parse(FormatDoubleFloat, 8, "1.5")
	require.NoError(t, err)
	require.Equal(t, 1.5, v.AsF64())
}

func TestParseVector(t *testing.T) {
	v, err := Parse(FormatVector, 8, "[0x01,0x02,0x03,0x04,0x05,0x06,0x07,0x08]")
	require.NoError(t, err)
	require.Equal(t, KindByte8, v.Kind)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, v.AsBytes())

	_, err = Parse(FormatVector, 8, "not-a-vector")
	require.Error(t, err)
}

func TestFormatAsUintRoundTrip(t *testing.T) {
	v := U32(0xcafebabe)
	text := v.FormatAs(FormatUint, 4)
	require.Equal(t, "0xcafebabe", text)

	parsed, err := Parse(FormatUint, 4, text)
	require.NoError(t, err)
	require.Equal(t, v.AsU64(), parsed.AsU64())
}

func TestFormatAsVectorRoundTrip(t *testing.T) {
	v := Byte8([8]byte{0xaa, 0xbb, 0, 0, 0, 0, 0, 0xff})
	text := v.FormatAs(FormatVector, 8)
	parsed, err := Parse(FormatVector, 8, text)
	require.NoError(t, err)
	require.Equal(t, v.AsBytes(), parsed.AsBytes())
}
