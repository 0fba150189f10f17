package event

import (
	orderedmap "github.com/elliotchance/orderedmap/v3"
)

// Layout projects raw records of one kind into typed payloads.
type Layout interface {
	Project(d *Descriptor, rec *Record) Payload
}

// LayoutFunc is an adapter to allow the use of ordinary functions as a Layout.
type LayoutFunc func(d *Descriptor, rec *Record) Payload

// Project calls f(d, rec).
func (f LayoutFunc) Project(d *Descriptor, rec *Record) Payload {
	return f(d, rec)
}

// Payload is a projection of a Record through the layout of its kind.
type Payload interface {

	// Descriptor returns the kind this payload was projected with.
	Descriptor() *Descriptor

	// Raw returns the raw record being projected.
	Raw() *Record

	// Names returns the ordered payload names, identical for every record of
	// the kind.
	Names() []string

	// Value returns the value of the i'th payload name. Fields the record's
	// version predates yield their documented default.
	Value(i int) interface{}

	// Validate checks the declared payload length against the length implied
	// by the version gated layout. A failure is a *LengthError and marks the
	// record invalid so that further reads are lenient.
	Validate() error
}

// Base implements the record and descriptor plumbing shared by every
// payload. Hand-authored kinds embed it and add named accessors.
type Base struct {
	*Record
	desc *Descriptor
}

// NewBase returns a Base projecting rec through d.
func NewBase(d *Descriptor, rec *Record) Base {
	return Base{Record: rec, desc: d}
}

// Descriptor implements Payload.
func (b Base) Descriptor() *Descriptor {
	return b.desc
}

// Raw implements Payload.
func (b Base) Raw() *Record {
	return b.Record
}

// Names implements Payload.
func (b Base) Names() []string {
	return b.desc.Fields
}

// Unknown is the payload of a record no layout could be found for.
type Unknown struct {
	Base
}

// Value implements Payload, an unknown payload has no values.
func (Unknown) Value(int) interface{} {
	return nil
}

// Validate implements Payload, an unknown payload is never invalid.
func (Unknown) Validate() error {
	return nil
}

// Get returns the payload value with the given name, or nil and false if the
// kind has no such field.
func Get(p Payload, name string) (interface{}, bool) {
	for idx, v := range p.Names() {
		if v == name {
			return p.Value(idx), true
		}
	}
	return nil, false
}

// Fields returns every payload value keyed by name in declaration order.
func Fields(p Payload) *orderedmap.OrderedMap[string, interface{}] {
	m := orderedmap.NewOrderedMap[string, interface{}]()
	for idx, name := range p.Names() {
		m.Set(name, p.Value(idx))
	}
	return m
}
