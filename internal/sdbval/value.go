// Package sdbval implements the tagged value carrier used to move typed
// register contents between the kernel's raw byte layout and the CLI's
// text representation. It is a tagged sum, not a class hierarchy:
// operations dispatch on Kind.
package sdbval

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fanyingfx/sdb/internal/sdberr"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindLongDouble // 80-bit extended float, packed into a 10-byte buffer
	KindByte8
	KindByte16
)

// Width returns the byte width of the variant.
func (k Kind) Width() int {
	switch k {
	case KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindF32:
		return 4
	case KindU64, KindI64, KindF64:
		return 8
	case KindLongDouble:
		return 10
	case KindByte8:
		return 8
	case KindByte16:
		return 16
	default:
		return 0
	}
}

// Value is a tagged union of every type a register can hold.
type Value struct {
	Kind Kind

	u64 uint64 // backs KindU8/U16/U32/U64
	i64 int64  // backs KindI8/I16/I32/I64
	f64 float64
	f32 float32
	ld  [10]byte // packed 80-bit extended float, byte-identity only
	b8  [8]byte
	b16 [16]byte
}

func U8(v uint8) Value   { return Value{Kind: KindU8, u64: uint64(v)} }
func U16(v uint16) Value { return Value{Kind: KindU16, u64: uint64(v)} }
func U32(v uint32) Value { return Value{Kind: KindU32, u64: uint64(v)} }
func U64(v uint64) Value { return Value{Kind: KindU64, u64: v} }
func I8(v int8) Value    { return Value{Kind: KindI8, i64: int64(v)} }
func I16(v int16) Value  { return Value{Kind: KindI16, i64: int64(v)} }
func I32(v int32) Value  { return Value{Kind: KindI32, i64: int64(v)} }
func I64(v int64) Value  { return Value{Kind: KindI64, i64: v} }
func F32(v float32) Value { return Value{Kind: KindF32, f32: v} }
func F64(v float64) Value { return Value{Kind: KindF64, f64: v} }
func Byte8(b [8]byte) Value   { return Value{Kind: KindByte8, b8: b} }
func Byte16(b [16]byte) Value { return Value{Kind: KindByte16, b16: b} }

// LongDouble builds an 80-bit extended-float Value from its packed
// byte representation. The host has no hardware 80-bit float, so
// arithmetic on the result is not supported: only byte-identity
// round-trips are guaranteed, per the original library's own caveat.
func LongDouble(packed [10]byte) Value { return Value{Kind: KindLongDouble, ld: packed} }

// AsU64 returns the value reinterpreted as a uint64 (for GPR-sized kinds).
func (v Value) AsU64() uint64 {
	switch v.Kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.u64
	case KindI8, KindI16, KindI32, KindI64:
		return uint64(v.i64)
	default:
		return 0
	}
}

// AsF64 returns the value reinterpreted as a float64.
func (v Value) AsF64() float64 {
	if v.Kind == KindF32 {
		return float64(v.f32)
	}
	return v.f64
}

// AsBytes returns the value's raw little-endian byte representation, of
// length equal to Kind.Width().
func (v Value) AsBytes() []byte {
	switch v.Kind {
	case KindU8, KindU16, KindU32, KindU64:
		buf := make([]byte, v.Kind.Width())
		putUint(buf, v.u64)
		return buf
	case KindI8, KindI16, KindI32, KindI64:
		buf := make([]byte, v.Kind.Width())
		putUint(buf, uint64(v.i64))
		return buf
	case KindF32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.f32))
		return buf
	case KindF64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.f64))
		return buf
	case KindLongDouble:
		buf := make([]byte, 10)
		copy(buf, v.ld[:])
		return buf
	case KindByte8:
		buf := make([]byte, 8)
		copy(buf, v.b8[:])
		return buf
	case KindByte16:
		buf := make([]byte, 16)
		copy(buf, v.b16[:])
		return buf
	default:
		return nil
	}
}

func putUint(buf []byte, u uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(u)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(u))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(u))
	case 8:
		binary.LittleEndian.PutUint64(buf, u)
	}
}

// FromBytes reconstructs a Value of the given kind from its raw
// little-endian byte representation. It fails if buf's length does not
// match kind.Width().
func FromBytes(kind Kind, buf []byte) (Value, error) {
	if len(buf) != kind.Width() {
		return Value{}, sdberr.Sendf("FromBytes: expected %d bytes for kind %d, got %d", kind.Width(), kind, len(buf))
	}
	switch kind {
	case KindU8:
		return U8(buf[0]), nil
	case KindU16:
		return U16(binary.LittleEndian.Uint16(buf)), nil
	case KindU32:
		return U32(binary.LittleEndian.Uint32(buf)), nil
	case KindU64:
		return U64(binary.LittleEndian.Uint64(buf)), nil
	case KindI8:
		return I8(int8(buf[0])), nil
	case KindI16:
		return I16(int16(binary.LittleEndian.Uint16(buf))), nil
	case KindI32:
		return I32(int32(binary.LittleEndian.Uint32(buf))), nil
	case KindI64:
		return I64(int64(binary.LittleEndian.Uint64(buf))), nil
	case KindF32:
		return F32(math.Float32frombits(binary.LittleEndian.Uint32(buf))), nil
	case KindF64:
		return F64(math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil
	case KindLongDouble:
		var ld [10]byte
		copy(ld[:], buf)
		return LongDouble(ld), nil
	case KindByte8:
		var b [8]byte
		copy(b[:], buf)
		return Byte8(b), nil
	case KindByte16:
		var b [16]byte
		copy(b[:], buf)
		return Byte16(b), nil
	default:
		return Value{}, sdberr.Send("FromBytes: unknown kind")
	}
}

// Format identifies the register-level display/parse convention, shared
// with regs.Info.Format.
type Format int

const (
	FormatUint Format = iota
	FormatDoubleFloat
	FormatLongDouble
	FormatVector
)

// Parse interprets text per format/size, producing the Value the CLI
// would hand to regs.Bank.WriteByID. Invalid input fails with "Invalid
// format" regardless of the underlying cause, matching the original
// parse_register_value's catch-all.
func Parse(format Format, size int, text string) (Value, error) {
	v, ok := parse(format, size, text)
	if !ok {
		return Value{}, sdberr.Send("Invalid format")
	}
	return v, nil
}

func parse(format Format, size int, text string) (Value, bool) {
	switch format {
	case FormatUint:
		text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
		u, err := strconv.ParseUint(text, 16, size*8)
		if err != nil {
			return Value{}, false
		}
		switch size {
		case 1:
			return U8(uint8(u)), true
		case 2:
			return U16(uint16(u)), true
		case 4:
			return U32(uint32(u)), true
		case 8:
			return U64(u), true
		default:
			return Value{}, false
		}
	case FormatDoubleFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, false
		}
		return F64(f), true
	case FormatLongDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, false
		}
		return LongDouble(packLongDouble(f)), true
	case FormatVector:
		return parseVector(size, text)
	default:
		return Value{}, false
	}
}

func parseVector(size int, text string) (Value, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return Value{}, false
	}
	inner := text[1 : len(text)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != size {
		return Value{}, false
	}
	bytes := make([]byte, size)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(strings.TrimPrefix(p, "0x"), "0X")
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return Value{}, false
		}
		bytes[i] = byte(b)
	}
	switch size {
	case 8:
		var b [8]byte
		copy(b[:], bytes)
		return Byte8(b), true
	case 16:
		var b [16]byte
		copy(b[:], bytes)
		return Byte16(b), true
	default:
		return Value{}, false
	}
}

// packLongDouble converts a float64 to the packed 80-bit extended layout
// (64-bit mantissa with an explicit integer bit, 15-bit exponent, sign
// bit). Parse uses it for long-double input. Finite non-zero values
// convert exactly; zero (including -0) packs as +0, and NaN and the
// infinities are not given their special encodings.
func packLongDouble(f float64) [10]byte {
	var buf [10]byte
	if f == 0 {
		return buf
	}
	sign := uint16(0)
	if f < 0 {
		sign = 1 << 15
		f = -f
	}
	frac, exp := math.Frexp(f) // f == frac * 2**exp, 0.5 <= frac < 1
	biasedExp := uint16(exp-1+16383) | sign
	mantissa := uint64(frac * (1 << 64)) // explicit integer bit in position 63
	binary.LittleEndian.PutUint64(buf[0:8], mantissa)
	binary.LittleEndian.PutUint16(buf[8:10], biasedExp)
	return buf
}

func unpackLongDouble(buf [10]byte) float64 {
	mantissa := binary.LittleEndian.Uint64(buf[0:8])
	expWord := binary.LittleEndian.Uint16(buf[8:10])
	exp := int(expWord&0x7fff) - 16383 + 1
	f := float64(mantissa) / (1 << 64)
	v := math.Ldexp(f, exp)
	if expWord&(1<<15) != 0 {
		v = -v
	}
	return v
}

// FormatAs renders v per the register-level display convention, inverse
// of Parse.
func (v Value) FormatAs(format Format, size int) string {
	switch format {
	case FormatUint:
		return fmt.Sprintf("0x%0*x", size*2, v.AsU64())
	case FormatDoubleFloat:
		return strconv.FormatFloat(v.AsF64(), 'g', -1, 64)
	case FormatLongDouble:
		return strconv.FormatFloat(unpackLongDouble(v.ld), 'g', -1, 64)
	case FormatVector:
		var b []byte
		if v.Kind == KindByte8 {
			b = v.b8[:]
		} else {
			b = v.b16[:]
		}
		parts := make([]string, len(b))
		for i, x := range b {
			parts[i] = fmt.Sprintf("0x%02x", x)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return ""
	}
}
