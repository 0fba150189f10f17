// Package tracegen provides internal utilities for assembling raw payloads.
package tracegen

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

// Builder appends little endian payload fields the way a producer with the
// given pointer width lays them out.
type Builder struct {
	buf bytes.Buffer
	ptr int
}

// New returns a Builder for a producer with ptr byte pointers.
func New(ptr int) *Builder {
	return &Builder{ptr: ptr}
}

// Ptr returns the pointer width of the Builder.
func (b *Builder) Ptr() int {
	return b.ptr
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Bytes returns a copy of the payload.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Record returns a record for h viewing a copy of the payload. The pointer
// size of h is always the Builder's.
func (b *Builder) Record(h event.Header) *event.Record {
	h.PointerSize = b.ptr
	return event.NewRecord(h, b.Bytes())
}

// Int8 appends v.
func (b *Builder) Int8(v int8) *Builder {
	return b.Uint8(uint8(v))
}

// Uint8 appends v.
func (b *Builder) Uint8(v uint8) *Builder {
	b.buf.WriteByte(v)
	return b
}

// Int16 appends v.
func (b *Builder) Int16(v int16) *Builder {
	return b.Uint16(uint16(v))
}

// Uint16 appends v.
func (b *Builder) Uint16(v uint16) *Builder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// Int32 appends v.
func (b *Builder) Int32(v int32) *Builder {
	return b.Uint32(uint32(v))
}

// Uint32 appends v.
func (b *Builder) Uint32(v uint32) *Builder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// Int64 appends v.
func (b *Builder) Int64(v int64) *Builder {
	return b.Uint64(uint64(v))
}

// Uint64 appends v.
func (b *Builder) Uint64(v uint64) *Builder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// Float32 appends v.
func (b *Builder) Float32(v float32) *Builder {
	return b.Uint32(math.Float32bits(v))
}

// Float64 appends v.
func (b *Builder) Float64(v float64) *Builder {
	return b.Uint64(math.Float64bits(v))
}

// Bool appends v as a 4 byte BOOL.
func (b *Builder) Bool(v bool) *Builder {
	if v {
		return b.Uint32(1)
	}
	return b.Uint32(0)
}

// Pointer appends v truncated to the pointer width.
func (b *Builder) Pointer(v uint64) *Builder {
	if b.ptr == event.PointerSize32 {
		return b.Uint32(uint32(v))
	}
	return b.Uint64(v)
}

// GUID appends g in the Windows layout.
func (b *Builder) GUID(g uuid.UUID) *Builder {
	b.Uint32(binary.BigEndian.Uint32(g[0:]))
	b.Uint16(binary.BigEndian.Uint16(g[4:]))
	b.Uint16(binary.BigEndian.Uint16(g[6:]))
	b.buf.Write(g[8:])
	return b
}

// FileTime appends t as a FILETIME.
func (b *Builder) FileTime(t time.Time) *Builder {
	if t.IsZero() {
		return b.Int64(0)
	}
	return b.Int64(t.UnixNano()/100 + 116444736000000000)
}

// Raw appends p as is.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// UTF16 appends s as null terminated UTF-16.
func (b *Builder) UTF16(s string) *Builder {
	b.UTF16Units(utf16.Encode([]rune(s)))
	return b.Uint16(0)
}

// UTF16Units appends the given code units without a terminator, which allows
// writing unpaired surrogates.
func (b *Builder) UTF16Units(units []uint16) *Builder {
	for _, u := range units {
		b.Uint16(u)
	}
	return b
}

// UTF8 appends s as a null terminated narrow string.
func (b *Builder) UTF8(s string) *Builder {
	b.buf.WriteString(s)
	return b.Uint8(0)
}

// ANSI appends s encoded as null terminated Windows-1252.
func (b *Builder) ANSI(s string) *Builder {
	out, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		out = s
	}
	return b.UTF8(out)
}
