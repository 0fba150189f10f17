package event

import (
	"fmt"

	"github.com/google/uuid"
)

// Key identifies a decodable event kind on the wire.
type Key struct {
	Provider uuid.UUID
	ID       uint16
	Opcode   uint8
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return fmt.Sprintf(`%v/%d/%d`, k.Provider, k.ID, k.Opcode)
}

// Descriptor describes one decodable event kind: where it comes from, what it
// is called, which payload versions it covers and how to project a record of
// it. Descriptors are built once at registration time and must not be
// mutated afterwards.
type Descriptor struct {

	// Provider, ID and Opcode form the dispatch Key of this kind.
	Provider uuid.UUID
	ID       uint16
	Opcode   uint8

	// ProviderName, Name and OpcodeName are the human readable names of the
	// source, the kind and the sub-opcode.
	ProviderName string
	Name         string
	OpcodeName   string

	// Since is the first payload version covered by this descriptor and Until
	// the first one that is not, zero meaning there is no upper bound. Two
	// descriptors sharing a Key must cover disjoint ranges.
	Since, Until Version

	// Fields is the stable, ordered list of payload names.
	Fields []string

	// Layout projects records of this kind.
	Layout Layout

	origin *Descriptor
}

// Key returns the dispatch key of this descriptor.
func (d *Descriptor) Key() Key {
	return Key{Provider: d.Provider, ID: d.ID, Opcode: d.Opcode}
}

// Alias returns a copy of this descriptor registered under another key. The
// copy shares the layout and field names.
func (d *Descriptor) Alias(provider uuid.UUID, id uint16, opcode uint8) *Descriptor {
	out := new(Descriptor)
	*out = *d
	out.Provider, out.ID, out.Opcode = provider, id, opcode
	out.origin = d.root()
	return out
}

func (d *Descriptor) root() *Descriptor {
	if d.origin != nil {
		return d.origin
	}
	return d
}

// Same reports if d and o describe the same kind under the same key: equal
// keys and version ranges projected by one layout, as two aliases of one
// descriptor are.
func (d *Descriptor) Same(o *Descriptor) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return d.Key() == o.Key() && d.Since == o.Since && d.Until == o.Until &&
		d.root() == o.root()
}

// Accepts reports if records of version v are covered by this descriptor.
func (d *Descriptor) Accepts(v Version) bool {
	return d.Since <= v && (d.Until == 0 || v < d.Until)
}

// EventName returns the kind and sub-opcode names joined by a slash, or just
// the kind name when the opcode has no name.
func (d *Descriptor) EventName() string {
	if d.OpcodeName == `` {
		return d.Name
	}
	return d.Name + `/` + d.OpcodeName
}

// Index returns the position of the named field, or -1.
func (d *Descriptor) Index(name string) int {
	for idx, v := range d.Fields {
		if v == name {
			return idx
		}
	}
	return -1
}

// Project returns the payload of rec as seen through this descriptor.
func (d *Descriptor) Project(rec *Record) Payload {
	if d.Layout == nil {
		return Unknown{NewBase(d, rec)}
	}
	return d.Layout.Project(d, rec)
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return fmt.Sprintf(`event.%v`, d.EventName())
}

// UnknownDescriptor returns a descriptor naming a record no layout exists for.
func UnknownDescriptor(h Header) *Descriptor {
	return &Descriptor{
		Provider: h.Provider,
		ID:       h.ID,
		Opcode:   h.Opcode,
		Name:     `UnknownEvent`,
	}
}
