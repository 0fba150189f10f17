// Package encoding implements a streaming Decoder and Encoder for capture
// files: a sequence of raw event records, each framed with the metadata the
// delivery layer attaches to it. For a higher level interface that dispatches
// decoded records to typed payloads see the parent trace package.
//
// Format
//
// A capture begins with a 16 byte header "etl capture N\x00\x00\x00" where N
// is the capture format version. Each record that follows is a little endian
// frame:
//
//   provider   [16]byte  GUID, Windows layout
//   id         uint16
//   opcode     uint8
//   version    uint8     payload version
//   ptrsize    uint8     4 or 8
//   reserved   [3]byte
//   timestamp  int64
//   pid, tid   uint32    Version2 only
//   length     uint32
//   payload    [length]byte
//
// The Decoder reads both versions while the Encoder only emits the latest.
// Payload bytes are never interpreted here, a decoded record is handed to the
// caller exactly as it was captured.
package encoding

import (
	"fmt"

	"github.com/pkg/errors"
)

const (

	// Version1 captures carry no process or thread identity.
	Version1 Version = 1

	// Version2 captures add the producer process and thread id to each frame.
	Version2 Version = 2

	// Latest always points to the newest version for convenience.
	Latest = Version2
)

var (

	// ErrVersion occurs when a version is needed, but can not be determined.
	ErrVersion = errors.New(`capture header version was malformed`)

	// ErrPayloadSize occurs when a frame declares a payload larger than
	// MaxPayloadSize.
	ErrPayloadSize = errors.New(`payload size exceeds limit`)
)

// Version of the capture format declared in the header.
type Version byte

// Valid returns true if this version object is from a valid capture header,
// false otherwise.
func (v Version) Valid() bool {
	return Version1 <= v && v <= Latest
}

// FrameSize returns the size of the fixed portion of each record frame,
// including the payload length.
func (v Version) FrameSize() int {
	switch v {
	case Version1:
		return frameSizeVersion1
	case Version2:
		return frameSizeVersion2
	}
	return 0
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if !v.Valid() {
		return `Version(none)`
	}
	return fmt.Sprintf(`Version(#%d)`, v)
}

const (
	// MaxPayloadSize guards against a bad capture file or decoder bug from
	// causing oom. The delivery layer never produces larger records.
	MaxPayloadSize = 65536

	headerSize        = 16
	frameSizeVersion1 = 36
	frameSizeVersion2 = 44
)
