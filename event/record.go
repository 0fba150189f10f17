package event

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// PointerSize32 is the pointer width of records written by 32-bit
	// producers.
	PointerSize32 = 4

	// PointerSize64 is the pointer width of records written by 64-bit
	// producers.
	PointerSize64 = 8
)

// Header carries the metadata delivered alongside every raw payload.
type Header struct {

	// Provider is the source identity of the record.
	Provider uuid.UUID

	// ID is the numeric kind of the record within its provider. Classic
	// events that are identified by their task GUID alone use zero.
	ID uint16

	// Opcode is the sub-opcode of the record.
	Opcode uint8

	// Version is the producer-assigned payload version.
	Version Version

	// PointerSize is the pointer width of the producer process, 4 or 8. Any
	// other value is treated as 8.
	PointerSize int

	// Timestamp is the logical timestamp assigned by the delivery layer.
	Timestamp int64

	// ProcessID and ThreadID of the producer, zero when unknown.
	ProcessID, ThreadID uint32

	// Context is an opaque value handed through from the delivery layer.
	Context interface{}
}

// Key returns the dispatch key of this header.
func (h Header) Key() Key {
	return Key{Provider: h.Provider, ID: h.ID, Opcode: h.Opcode}
}

// Record is a read-only view over an externally owned payload buffer plus
// the metadata it was delivered with. A Record is only valid for the
// duration of the dispatch it was created for; values read from it are
// always copies, so they may be retained, but the Record itself must not be.
type Record struct {
	Header

	data    []byte
	invalid bool
}

// NewRecord returns a Record viewing data. The buffer is not copied.
func NewRecord(h Header, data []byte) *Record {
	return &Record{Header: h, data: data}
}

// Len returns the declared payload length in bytes.
func (r *Record) Len() int {
	return len(r.data)
}

// Ptr returns the producer pointer width used for pointer-sized fields.
func (r *Record) Ptr() int {
	if r.PointerSize == PointerSize32 {
		return PointerSize32
	}
	return PointerSize64
}

// Invalid reports if the record failed length validation. Reads from an
// invalid record never panic; out of range fields yield zero values.
func (r *Record) Invalid() bool {
	return r.invalid
}

// Bytes returns a copy of the payload.
func (r *Record) Bytes() []byte {
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// Copy will return a deep copy of this record that may be retained past the
// dispatch it was delivered for.
func (r *Record) Copy() *Record {
	rec := new(Record)
	*rec = *r
	rec.data = r.Bytes()
	return rec
}

// Reset will reset this record for reuse, keeping the payload capacity.
func (r *Record) Reset() {
	data := r.data[0:0]
	*r = Record{data: data}
}

// Alloc resizes the payload to n bytes, reusing the existing capacity when
// possible, and returns it so a delivery layer may fill it in place.
func (r *Record) Alloc(n int) []byte {
	if cap(r.data) < n {
		r.data = make([]byte, n)
	}
	r.data = r.data[:n]
	r.invalid = false
	return r.data
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	return fmt.Sprintf(`event.Record(%v v%d len=%d ptr=%d)`,
		r.Key(), byte(r.Version), len(r.data), r.Ptr())
}
