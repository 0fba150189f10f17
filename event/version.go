package event

import "fmt"

// Version information:
//
//   Each event kind versions its payload independently of every other kind.
//   A producer bumps the version whenever it appends fields to the payload,
//   so a record of version N carries every field of versions 0..N-1 at the
//   same offsets, followed by the fields introduced in N. The few kinds that
//   relocate fields between versions document it on their accessors.
//
const (

	// Version0 is the layout a kind was first shipped with.
	Version0 Version = 0

	// Version1 typically appends ClrInstanceID to runtime events.
	Version1 Version = 1

	// Version2 is the second revision of a kind's payload.
	Version2 Version = 2

	// Version3 is the third revision of a kind's payload.
	Version3 Version = 3

	// Version4 is the fourth revision of a kind's payload.
	Version4 Version = 4
)

// Version is the producer-assigned payload version carried in every record.
type Version byte

// String implements fmt.Stringer.
func (v Version) String() string {
	return fmt.Sprintf(`Version(#%d)`, byte(v))
}
