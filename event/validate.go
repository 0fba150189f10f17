package event

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrLengthMismatch is the cause of every *LengthError.
var ErrLengthMismatch = errors.New(`payload length does not match layout`)

// LengthClass is the rule a payload length is validated with.
type LengthClass byte

const (

	// Exact requires the declared length to equal the computed size. It
	// applies to versions older than the newest one a layout models.
	Exact LengthClass = iota

	// AtLeast requires the declared length to be no less than the computed
	// size. It applies to the newest modeled version and anything after it,
	// whose producers may append fields the layout does not know about.
	AtLeast
)

// String implements fmt.Stringer.
func (c LengthClass) String() string {
	if c == Exact {
		return `exact`
	}
	return `at-least`
}

// LengthError reports a payload whose declared length is inconsistent with
// the layout of its kind and version.
type LengthError struct {
	Key      Key
	Name     string
	Version  Version
	Class    LengthClass
	Expected int
	Actual   int
}

// Error implements error.
func (e *LengthError) Error() string {
	return fmt.Sprintf(`event %v %v: length %d does not match %v size %d`,
		e.Name, e.Version, e.Actual, e.Class, e.Expected)
}

// Cause returns ErrLengthMismatch for errors.Cause.
func (e *LengthError) Cause() error {
	return ErrLengthMismatch
}

// Unwrap returns ErrLengthMismatch for errors.Is.
func (e *LengthError) Unwrap() error {
	return ErrLengthMismatch
}

// CheckLength validates the payload length of the projection p. Versions
// before last must match size exactly, last and later versions must be at
// least size bytes long. On failure the record is marked invalid.
func CheckLength(p Payload, last Version, size int) error {
	class := AtLeast
	if p.Raw().Version < last {
		class = Exact
	}
	return checkLength(p, class, size)
}

// CheckMinLength validates that the payload of p is at least size bytes
// long. On failure the record is marked invalid.
func CheckMinLength(p Payload, size int) error {
	return checkLength(p, AtLeast, size)
}

func checkLength(p Payload, class LengthClass, size int) error {
	rec := p.Raw()
	n := rec.Len()
	if (class == Exact && n == size) || (class == AtLeast && n >= size) {
		return nil
	}
	rec.invalid = true
	d := p.Descriptor()
	return &LengthError{
		Key:      rec.Key(),
		Name:     d.EventName(),
		Version:  rec.Version,
		Class:    class,
		Expected: size,
		Actual:   n,
	}
}
