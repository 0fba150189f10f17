package event

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

// BoundsPolicy selects what happens when a read falls outside the payload of
// a record that passed validation.
type BoundsPolicy int32

const (

	// Strict panics with a *BoundsError. A read outside of a validated
	// payload is a defect in a hand-authored layout.
	Strict BoundsPolicy = iota

	// Lenient returns zero values instead.
	Lenient
)

var boundsPolicy int32

// SetBoundsPolicy sets the process wide bounds policy and returns the
// previous one.
func SetBoundsPolicy(p BoundsPolicy) BoundsPolicy {
	return BoundsPolicy(atomic.SwapInt32(&boundsPolicy, int32(p)))
}

// CurrentBoundsPolicy returns the process wide bounds policy.
func CurrentBoundsPolicy() BoundsPolicy {
	return BoundsPolicy(atomic.LoadInt32(&boundsPolicy))
}

// String implements fmt.Stringer.
func (p BoundsPolicy) String() string {
	switch p {
	case Strict:
		return `strict`
	case Lenient:
		return `lenient`
	}
	return fmt.Sprintf(`BoundsPolicy(%d)`, int32(p))
}

// BoundsError is the panic value of an out of range read under the Strict
// policy.
type BoundsError struct {
	Key    Key
	Offset int
	Width  int
	Length int
}

// Error implements error.
func (e *BoundsError) Error() string {
	return fmt.Sprintf(`event: read of %d bytes at offset %d exceeds payload length %d of %v`,
		e.Width, e.Offset, e.Length, e.Key)
}

// span returns the width bytes at off, or false when they are out of range
// and the record may be read leniently.
func (r *Record) span(off, width int) ([]byte, bool) {
	if off >= 0 && width >= 0 && off+width <= len(r.data) {
		return r.data[off : off+width], true
	}
	if r.invalid || CurrentBoundsPolicy() == Lenient {
		return nil, false
	}
	panic(&BoundsError{Key: r.Key(), Offset: off, Width: width, Length: len(r.data)})
}

// Has reports if width bytes at off lie within the payload.
func (r *Record) Has(off, width int) bool {
	return off >= 0 && width >= 0 && off+width <= len(r.data)
}

// Int8At returns the int8 at off.
func (r *Record) Int8At(off int) int8 {
	return int8(r.Uint8At(off))
}

// Uint8At returns the byte at off.
func (r *Record) Uint8At(off int) uint8 {
	b, ok := r.span(off, 1)
	if !ok {
		return 0
	}
	return b[0]
}

// Int16At returns the little endian int16 at off.
func (r *Record) Int16At(off int) int16 {
	return int16(r.Uint16At(off))
}

// Uint16At returns the little endian uint16 at off.
func (r *Record) Uint16At(off int) uint16 {
	b, ok := r.span(off, 2)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Int32At returns the little endian int32 at off.
func (r *Record) Int32At(off int) int32 {
	return int32(r.Uint32At(off))
}

// Uint32At returns the little endian uint32 at off.
func (r *Record) Uint32At(off int) uint32 {
	b, ok := r.span(off, 4)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Int64At returns the little endian int64 at off.
func (r *Record) Int64At(off int) int64 {
	return int64(r.Uint64At(off))
}

// Uint64At returns the little endian uint64 at off.
func (r *Record) Uint64At(off int) uint64 {
	b, ok := r.span(off, 8)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Float32At returns the IEEE 754 float32 at off.
func (r *Record) Float32At(off int) float32 {
	return math.Float32frombits(r.Uint32At(off))
}

// Float64At returns the IEEE 754 float64 at off.
func (r *Record) Float64At(off int) float64 {
	return math.Float64frombits(r.Uint64At(off))
}

// BoolAt returns the 4 byte BOOL at off.
func (r *Record) BoolAt(off int) bool {
	return r.Uint32At(off) != 0
}

// PointerAt returns the pointer at off, read with the producer pointer width.
func (r *Record) PointerAt(off int) Address {
	if r.Ptr() == PointerSize32 {
		return Address(r.Uint32At(off))
	}
	return Address(r.Uint64At(off))
}

// GUIDAt returns the 16 byte GUID at off. GUIDs are written in the Windows
// layout: the first three groups are little endian, the last eight bytes are
// stored as is.
func (r *Record) GUIDAt(off int) uuid.UUID {
	var g uuid.UUID
	b, ok := r.span(off, 16)
	if !ok {
		return g
	}
	binary.BigEndian.PutUint32(g[0:], binary.LittleEndian.Uint32(b[0:]))
	binary.BigEndian.PutUint16(g[4:], binary.LittleEndian.Uint16(b[4:]))
	binary.BigEndian.PutUint16(g[6:], binary.LittleEndian.Uint16(b[6:]))
	copy(g[8:], b[8:16])
	return g
}

// FileTimeAt returns the FILETIME (100ns ticks since 1601) at off. A zero
// FILETIME yields the zero time.
func (r *Record) FileTimeAt(off int) time.Time {
	return FileTime(r.Int64At(off))
}

// BytesAt returns a copy of the n bytes at off.
func (r *Record) BytesAt(off, n int) []byte {
	b, ok := r.span(off, n)
	if !ok {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// HostOffset returns base advanced by n producer sized pointers.
func (r *Record) HostOffset(base, n int) int {
	return base + n*r.Ptr()
}

// SkipUTF16 returns the offset just past the null terminated UTF-16 string at
// off. A string missing its terminator is assumed to end just past the
// payload, which makes the computed layout longer than the record and fails
// validation.
func (r *Record) SkipUTF16(off int) int {
	i := off
	for ; i+1 < len(r.data); i += 2 {
		if r.data[i] == 0 && r.data[i+1] == 0 {
			return i + 2
		}
	}
	return i + 2
}

// EndOf skips n consecutive UTF-16 strings starting at off.
func (r *Record) EndOf(off, n int) int {
	for i := 0; i < n; i++ {
		off = r.SkipUTF16(off)
	}
	return off
}

// UTF16At returns the null terminated UTF-16 string at off and the offset
// just past its terminator. Unpaired surrogates decode as U+FFFD.
func (r *Record) UTF16At(off int) (string, int) {
	end := r.SkipUTF16(off)
	if _, ok := r.span(off, 2); !ok {
		return ``, end
	}
	stop := end - 2
	if stop > len(r.data) {
		stop = len(r.data) &^ 1
	}
	return decodeUTF16(r.data[off:stop]), end
}

// SkipUTF8 returns the offset just past the null terminated narrow string at
// off, with the same missing terminator rule as SkipUTF16.
func (r *Record) SkipUTF8(off int) int {
	i := off
	for ; i < len(r.data); i++ {
		if r.data[i] == 0 {
			return i + 1
		}
	}
	return i + 1
}

// EndOfUTF8 skips n consecutive narrow strings starting at off.
func (r *Record) EndOfUTF8(off, n int) int {
	for i := 0; i < n; i++ {
		off = r.SkipUTF8(off)
	}
	return off
}

// UTF8At returns the null terminated UTF-8 string at off and the offset just
// past its terminator.
func (r *Record) UTF8At(off int) (string, int) {
	raw, end := r.narrowAt(off)
	return string(raw), end
}

// ANSIAt returns the null terminated Windows-1252 string at off converted to
// UTF-8, and the offset just past its terminator.
func (r *Record) ANSIAt(off int) (string, int) {
	raw, end := r.narrowAt(off)
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), end
	}
	return string(out), end
}

func (r *Record) narrowAt(off int) ([]byte, int) {
	end := r.SkipUTF8(off)
	if _, ok := r.span(off, 1); !ok {
		return nil, end
	}
	stop := end - 1
	if stop > len(r.data) {
		stop = len(r.data)
	}
	return r.data[off:stop], end
}

// UTF16 decodes b as little endian UTF-16 without a terminator.
func UTF16(b []byte) string {
	return decodeUTF16(b)
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}

// fileTimeEpoch is 1601-01-01 expressed in 100ns ticks before the Unix epoch.
const fileTimeEpoch = 116444736000000000

// FileTime converts a FILETIME tick count to a time.Time in UTC.
func FileTime(ticks int64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	return time.Unix(0, (ticks-fileTimeEpoch)*100).UTC()
}

// Address is a pointer sized value read from a payload.
type Address uint64

// String implements fmt.Stringer.
func (a Address) String() string {
	return fmt.Sprintf(`0x%x`, uint64(a))
}
