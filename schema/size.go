package schema

import "fmt"

// DefaultMaxFixedSize is the largest fixed property size Infer accepts.
// Anything larger is treated as corrupt metadata.
const DefaultMaxFixedSize = 65536

// SizeKind tags the variants of SizeClass.
type SizeKind uint8

// Size kinds.
const (
	// Unknown fields cannot be located. Every field after one is unknown
	// too.
	Unknown SizeKind = iota

	// Fixed fields are Size bytes long.
	Fixed

	// WideString fields are null terminated UTF-16.
	WideString

	// NarrowString fields are null terminated 8-bit strings.
	NarrowString

	// PointerSized fields are Size producer pointers long.
	PointerSized

	// Prefixed fields take their length from the immediately preceding
	// sibling, a Width bit integer counting Elem byte units.
	Prefixed
)

var sizeKindNames = []string{`unknown`, `fixed`, `wstring`, `string`, `pointer`, `prefixed`}

func (k SizeKind) String() string {
	if int(k) < len(sizeKindNames) {
		return sizeKindNames[k]
	}
	return fmt.Sprintf(`SizeKind(%d)`, uint8(k))
}

// SizeClass describes how the size of one property is found.
type SizeClass struct {
	Kind  SizeKind
	Size  int
	Width int
	Elem  int
}

// String implements fmt.Stringer.
func (c SizeClass) String() string {
	switch c.Kind {
	case Fixed:
		return fmt.Sprintf(`fixed(%d)`, c.Size)
	case PointerSized:
		return fmt.Sprintf(`pointer(%d)`, c.Size)
	case Prefixed:
		return fmt.Sprintf(`prefixed(%d*u%d)`, c.Elem, c.Width)
	}
	return c.Kind.String()
}

// Infer returns the size class of every property, applying in order: sibling
// length prefix, null terminated strings, pointers, then fixed element
// count times width. A fixed size above maxFixed, an unsupported type or
// unsupported structural flags make the property unknown, and with it every
// property after it since their offsets can no longer be computed.
func Infer(props []Property, maxFixed int) []SizeClass {
	if maxFixed <= 0 {
		maxFixed = DefaultMaxFixedSize
	}
	out := make([]SizeClass, len(props))
	for idx := range props {
		out[idx] = infer(props, idx, maxFixed)
		if out[idx].Kind == Unknown {
			break
		}
	}
	return out
}

func infer(props []Property, idx, maxFixed int) SizeClass {
	p := props[idx]
	if p.Flags&^knownFlags != 0 || p.Flags&(Struct|ParamCount) != 0 {
		return SizeClass{}
	}

	if p.Flags&ParamLength != 0 {
		if p.LengthIndex != idx-1 || idx == 0 {
			return SizeClass{}
		}
		var width int
		switch props[idx-1].Type {
		case InTypeInt16, InTypeUint16:
			width = 16
		case InTypeInt32, InTypeUint32, InTypeHexInt32:
			width = 32
		default:
			return SizeClass{}
		}
		elem := 1
		if p.Type == InTypeUnicodeString {
			elem = 2
		}
		return SizeClass{Kind: Prefixed, Width: width, Elem: elem}
	}

	switch p.Type {
	case InTypeUnicodeString:
		return SizeClass{Kind: WideString}
	case InTypeAnsiString:
		return SizeClass{Kind: NarrowString}
	case InTypePointer:
		return SizeClass{Kind: PointerSized, Size: p.count()}
	}

	width := p.Type.Width()
	if p.Type == InTypeBinary {
		width = int(p.Length)
	}
	if width == 0 {
		return SizeClass{}
	}
	n := p.count() * width
	if n > maxFixed {
		return SizeClass{}
	}
	return SizeClass{Kind: Fixed, Size: n}
}
