package kernel

import (
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var imageLoad = newKind(ImageTask, `Image`,
	[]uint8{OpcodeLoad, OpcodeEnd, OpcodeDCStart, OpcodeDCEnd},
	[]string{`Load`, `Unload`, `DCStart`, `DCStop`},
	[]string{
		`ImageBase`, `ImageSize`, `ProcessID`, `ImageChecksum`,
		`TimeDateStamp`, `DefaultBase`, `FileName`,
	},
	func(b event.Base) event.Payload { return ImageLoad{b} })

// ImageLoad describes an image mapped into or out of a process.
//
// Version 0 is the base and size followed by the file name. Version 1 adds
// the process id, version 2 the checksum, link time stamp and preferred base
// together with five reserved values.
type ImageLoad struct {
	event.Base
}

func (e ImageLoad) fileNameOffset() int {
	switch e.Version {
	case event.Version0:
		return e.HostOffset(0, 2)
	case event.Version1:
		return e.HostOffset(4, 2)
	}
	return e.HostOffset(32, 3)
}

// ImageBase is the address the image is mapped at.
func (e ImageLoad) ImageBase() event.Address {
	return e.PointerAt(0)
}

// ImageSize is the size of the mapping.
func (e ImageLoad) ImageSize() uint64 {
	return uint64(e.PointerAt(e.HostOffset(0, 1)))
}

// ProcessID is the process the image is mapped into.
func (e ImageLoad) ProcessID() uint32 {
	if e.Version < event.Version1 {
		return 0
	}
	return e.Uint32At(e.HostOffset(0, 2))
}

// ImageChecksum is the checksum from the image header.
func (e ImageLoad) ImageChecksum() uint32 {
	if e.Version < event.Version2 {
		return 0
	}
	return e.Uint32At(e.HostOffset(4, 2))
}

// TimeDateStamp is the link time from the image header.
func (e ImageLoad) TimeDateStamp() uint32 {
	if e.Version < event.Version2 {
		return 0
	}
	return e.Uint32At(e.HostOffset(8, 2))
}

// DefaultBase is the preferred load address of the image.
func (e ImageLoad) DefaultBase() event.Address {
	if e.Version < event.Version2 {
		return 0
	}
	return e.PointerAt(e.HostOffset(16, 2))
}

// FileName is the kernel path of the image.
func (e ImageLoad) FileName() string {
	s, _ := e.UTF16At(e.fileNameOffset())
	return s
}

// Size returns the payload size implied by the version and file name.
func (e ImageLoad) Size() int {
	return e.SkipUTF16(e.fileNameOffset())
}

// Value implements event.Payload.
func (e ImageLoad) Value(i int) interface{} {
	switch i {
	case 0:
		return e.ImageBase()
	case 1:
		return e.ImageSize()
	case 2:
		return e.ProcessID()
	case 3:
		return e.ImageChecksum()
	case 4:
		return e.TimeDateStamp()
	case 5:
		return e.DefaultBase()
	case 6:
		return e.FileName()
	}
	return nil
}

// Validate implements event.Payload.
func (e ImageLoad) Validate() error {
	return event.CheckLength(e, event.Version2, e.Size())
}
