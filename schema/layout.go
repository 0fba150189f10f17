package schema

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	// ErrUnknownSize is returned for fields that cannot be located because
	// the size of an earlier field is unknown.
	ErrUnknownSize = errors.New(`schema: field size is unknown`)

	// ErrNoField is returned for an index out of range.
	ErrNoField = errors.New(`schema: no such field`)
)

// Builder collects properties into a Layout.
type Builder struct {
	maxFixed int
	props    []Property
	err      error
}

// NewBuilder returns a Builder using maxFixed as the sanity ceiling for
// fixed property sizes, DefaultMaxFixedSize when not positive.
func NewBuilder(maxFixed int) *Builder {
	if maxFixed <= 0 {
		maxFixed = DefaultMaxFixedSize
	}
	return &Builder{maxFixed: maxFixed}
}

// Add appends a property. Names must be unique and not empty.
func (b *Builder) Add(props ...Property) *Builder {
	for _, p := range props {
		if b.err != nil {
			return b
		}
		if p.Name == `` {
			b.err = errors.Errorf(`schema: property #%d has no name`, len(b.props))
			return b
		}
		for _, prev := range b.props {
			if prev.Name == p.Name {
				b.err = errors.Errorf(`schema: duplicate property %q`, p.Name)
				return b
			}
		}
		b.props = append(b.props, p)
	}
	return b
}

// Build returns the immutable Layout of the properties added so far.
func (b *Builder) Build() (*Layout, error) {
	if b.err != nil {
		return nil, b.err
	}
	l := &Layout{
		props:   append([]Property(nil), b.props...),
		classes: Infer(b.props, b.maxFixed),
		names:   make([]string, len(b.props)),
	}
	for idx, p := range l.props {
		l.names[idx] = p.Name
	}

	l.static = []int{0}
	for _, c := range l.classes {
		if c.Kind != Fixed {
			break
		}
		l.static = append(l.static, l.static[len(l.static)-1]+c.Size)
	}
	return l, nil
}

// Layout is a payload layout synthesized from property metadata. The
// offsets of the leading run of fixed size properties are computed once,
// the rest are computed per record by walking the size classes.
type Layout struct {
	props   []Property
	classes []SizeClass
	names   []string
	static  []int
}

// Names returns the ordered property names.
func (l *Layout) Names() []string {
	return append([]string(nil), l.names...)
}

// Properties returns a copy of the properties.
func (l *Layout) Properties() []Property {
	return append([]Property(nil), l.props...)
}

// Classes returns a copy of the inferred size classes.
func (l *Layout) Classes() []SizeClass {
	return append([]SizeClass(nil), l.classes...)
}

// Resolved returns the number of leading properties that can be located.
func (l *Layout) Resolved() int {
	for idx, c := range l.classes {
		if c.Kind == Unknown {
			return idx
		}
	}
	return len(l.classes)
}

// Project implements event.Layout.
func (l *Layout) Project(d *event.Descriptor, rec *event.Record) event.Payload {
	return &Payload{Base: event.NewBase(d, rec), layout: l}
}

// Descriptor returns a descriptor projecting records of exactly version v
// through l under key k.
func (l *Layout) Descriptor(k event.Key, v event.Version, providerName, name, opcodeName string) *event.Descriptor {
	return &event.Descriptor{
		Provider:     k.Provider,
		ID:           k.ID,
		Opcode:       k.Opcode,
		ProviderName: providerName,
		Name:         name,
		OpcodeName:   opcodeName,
		Since:        v,
		Until:        v + 1,
		Fields:       l.names,
		Layout:       l,
	}
}

// offsets returns the start of every property followed by the end of the
// last one, -1 for those that cannot be located in rec.
func (l *Layout) offsets(rec *event.Record) []int {
	offs := make([]int, len(l.classes)+1)
	n := copy(offs, l.static)
	off := offs[n-1]
	for idx := n - 1; idx < len(l.classes); idx++ {
		switch c := l.classes[idx]; c.Kind {
		case Fixed:
			off += c.Size
		case WideString:
			off = rec.SkipUTF16(off)
		case NarrowString:
			off = rec.SkipUTF8(off)
		case PointerSized:
			off = rec.HostOffset(off, c.Size)
		case Prefixed:
			off += c.Elem * prefix(rec, offs[idx-1], c.Width)
		default:
			for j := idx + 1; j < len(offs); j++ {
				offs[j] = -1
			}
			return offs
		}
		offs[idx+1] = off
	}
	return offs
}

func prefix(rec *event.Record, off, width int) int {
	if !rec.Has(off, width/8) {
		return 0
	}
	if width == 16 {
		return int(rec.Uint16At(off))
	}
	return int(rec.Uint32At(off))
}

// Payload is a record projected through a Layout.
type Payload struct {
	event.Base
	layout *Layout
	offs   []int
}

// Layout returns the layout p was projected with.
func (p *Payload) Layout() *Layout {
	return p.layout
}

func (p *Payload) offsets() []int {
	if p.offs == nil {
		p.offs = p.layout.offsets(p.Raw())
	}
	return p.offs
}

// Size returns the payload size implied by the layout, or -1 when a
// property size is unknown.
func (p *Payload) Size() int {
	offs := p.offsets()
	return offs[len(offs)-1]
}

// Field returns the value of the i'th property. Properties of unknown size
// and those after them report ErrUnknownSize.
func (p *Payload) Field(i int) (interface{}, error) {
	if i < 0 || i >= len(p.layout.classes) {
		return nil, ErrNoField
	}
	offs := p.offsets()
	if offs[i] < 0 || offs[i+1] < 0 || p.layout.classes[i].Kind == Unknown {
		return nil, errors.Wrapf(ErrUnknownSize, `schema: field %v of %v`,
			p.layout.names[i], p.Descriptor())
	}
	return p.decode(i, offs[i], offs[i+1]), nil
}

// Value implements event.Payload, returning nil for fields that cannot be
// located.
func (p *Payload) Value(i int) interface{} {
	v, err := p.Field(i)
	if err != nil {
		return nil
	}
	return v
}

// Validate implements event.Payload. Dynamic layouts describe exactly one
// version and accept trailing bytes. When a property size is unknown only
// the located prefix is checked.
func (p *Payload) Validate() error {
	offs := p.offsets()
	end := 0
	for _, off := range offs {
		if off < 0 {
			break
		}
		end = off
	}
	return event.CheckMinLength(p, end)
}

func (p *Payload) decode(i, off, end int) interface{} {
	prop, c := p.layout.props[i], p.layout.classes[i]
	switch c.Kind {
	case WideString:
		s, _ := p.UTF16At(off)
		return s
	case NarrowString:
		s, _ := p.ANSIAt(off)
		return s
	case Prefixed:
		raw := p.BytesAt(off, end-off)
		switch prop.Type {
		case InTypeUnicodeString:
			return trimNull(event.UTF16(raw))
		case InTypeAnsiString:
			s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
			if err != nil {
				s = raw
			}
			return trimNull(string(s))
		}
		return raw
	}

	if prop.Type == InTypeBinary {
		return p.BytesAt(off, end-off)
	}
	n := prop.count()
	if n == 1 {
		return p.scalar(prop.Type, off)
	}
	width := prop.Type.Width()
	if prop.Type == InTypePointer {
		width = p.Ptr()
	}
	out := make([]interface{}, n)
	for idx := range out {
		out[idx] = p.scalar(prop.Type, off+idx*width)
	}
	return out
}

func (p *Payload) scalar(t InType, off int) interface{} {
	switch t {
	case InTypeInt8:
		return p.Int8At(off)
	case InTypeUint8:
		return p.Uint8At(off)
	case InTypeInt16:
		return p.Int16At(off)
	case InTypeUint16:
		return p.Uint16At(off)
	case InTypeInt32:
		return p.Int32At(off)
	case InTypeUint32:
		return p.Uint32At(off)
	case InTypeInt64:
		return p.Int64At(off)
	case InTypeUint64:
		return p.Uint64At(off)
	case InTypeHexInt32:
		return Hex(p.Uint32At(off))
	case InTypeHexInt64:
		return Hex(p.Uint64At(off))
	case InTypeFloat:
		return p.Float32At(off)
	case InTypeDouble:
		return p.Float64At(off)
	case InTypeBoolean:
		return p.BoolAt(off)
	case InTypeGUID:
		return p.GUIDAt(off)
	case InTypePointer:
		return p.PointerAt(off)
	case InTypeFileTime:
		return p.FileTimeAt(off)
	case InTypeSystemTime:
		return p.systemTimeAt(off)
	}
	return nil
}

// systemTimeAt reads a SYSTEMTIME: year, month, weekday, day, hour, minute,
// second and milliseconds as 16-bit values.
func (p *Payload) systemTimeAt(off int) time.Time {
	year := int(p.Uint16At(off))
	if year == 0 {
		return time.Time{}
	}
	return time.Date(year, time.Month(p.Uint16At(off+2)), int(p.Uint16At(off+6)),
		int(p.Uint16At(off+8)), int(p.Uint16At(off+10)), int(p.Uint16At(off+12)),
		int(p.Uint16At(off+14))*int(time.Millisecond), time.UTC)
}

// Hex is an integer rendered in hexadecimal.
type Hex uint64

func (h Hex) String() string {
	return `0x` + strconv.FormatUint(uint64(h), 16)
}

func trimNull(s string) string {
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}
