package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// InType is the primitive wire type of a property, numbered like the
// manifest in-types.
type InType uint16

// In-types.
const (
	InTypeNull InType = iota
	InTypeUnicodeString
	InTypeAnsiString
	InTypeInt8
	InTypeUint8
	InTypeInt16
	InTypeUint16
	InTypeInt32
	InTypeUint32
	InTypeInt64
	InTypeUint64
	InTypeFloat
	InTypeDouble
	InTypeBoolean
	InTypeBinary
	InTypeGUID
	InTypePointer
	InTypeFileTime
	InTypeSystemTime
	InTypeSID
	InTypeHexInt32
	InTypeHexInt64
)

var inTypeNames = []string{
	`null`, `unicodestring`, `ansistring`, `int8`, `uint8`, `int16`, `uint16`,
	`int32`, `uint32`, `int64`, `uint64`, `float`, `double`, `boolean`,
	`binary`, `guid`, `pointer`, `filetime`, `systemtime`, `sid`,
	`hexint32`, `hexint64`,
}

// ParseInType returns the InType with the given name, case insensitive.
func ParseInType(s string) (InType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for idx, name := range inTypeNames {
		if name == s {
			return InType(idx), nil
		}
	}
	return InTypeNull, errors.Errorf(`schema: unknown in-type %q`, s)
}

func (t InType) String() string {
	if int(t) < len(inTypeNames) {
		return inTypeNames[t]
	}
	return fmt.Sprintf(`InType(%d)`, uint16(t))
}

// Width returns the byte width of one element of t, or 0 when the width is
// not fixed: strings, pointers and types that cannot be decoded.
func (t InType) Width() int {
	switch t {
	case InTypeInt8, InTypeUint8, InTypeBinary:
		return 1
	case InTypeInt16, InTypeUint16:
		return 2
	case InTypeInt32, InTypeUint32, InTypeHexInt32, InTypeFloat, InTypeBoolean:
		return 4
	case InTypeInt64, InTypeUint64, InTypeHexInt64, InTypeDouble, InTypeFileTime:
		return 8
	case InTypeGUID, InTypeSystemTime:
		return 16
	}
	return 0
}

// UnmarshalYAML accepts an in-type by name or number.
func (t *InType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n uint16
	if err := unmarshal(&n); err == nil {
		*t = InType(n)
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseInType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// PropertyFlags describe the structure of a property.
type PropertyFlags uint32

// Property flags.
const (
	Struct PropertyFlags = 1 << iota
	ParamLength
	ParamCount
	WBEMXMLFragment
	ParamFixedLength
	ParamFixedCount

	knownFlags = Struct | ParamLength | ParamCount | WBEMXMLFragment |
		ParamFixedLength | ParamFixedCount
)

var flagNames = []string{
	`struct`, `param_length`, `param_count`, `wbem_xml_fragment`,
	`param_fixed_length`, `param_fixed_count`,
}

func (f PropertyFlags) String() string {
	var names []string
	for idx, name := range flagNames {
		if f&(1<<idx) != 0 {
			names = append(names, name)
		}
	}
	if rest := f &^ knownFlags; rest != 0 {
		names = append(names, fmt.Sprintf(`0x%x`, uint32(rest)))
	}
	return strings.Join(names, `|`)
}

// UnmarshalYAML accepts flags as a number or a list of names.
func (f *PropertyFlags) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var n uint32
	if err := unmarshal(&n); err == nil {
		*f = PropertyFlags(n)
		return nil
	}
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	var out PropertyFlags
	for _, s := range names {
		found := false
		for idx, name := range flagNames {
			if strings.EqualFold(name, s) {
				out |= 1 << idx
				found = true
			}
		}
		if !found {
			return errors.Errorf(`schema: unknown property flag %q`, s)
		}
	}
	*f = out
	return nil
}

// Property describes one field of an event payload as published by a
// provider manifest.
type Property struct {
	Name string `yaml:"name"`
	Type InType `yaml:"type"`

	// Count is the number of elements, zero and one both meaning a scalar.
	Count uint16 `yaml:"count"`

	// Length is the byte length of one binary element.
	Length uint16 `yaml:"length"`

	Flags PropertyFlags `yaml:"flags"`

	// LengthIndex is the index of the sibling carrying the length of this
	// property when Flags has ParamLength.
	LengthIndex int `yaml:"length_index"`
}

func (p Property) count() int {
	if p.Count == 0 {
		return 1
	}
	return int(p.Count)
}
