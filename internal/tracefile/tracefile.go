// Package tracefile provides named capture fixtures for tests, examples and
// the capgen tool. Captures are assembled in memory on first use for every
// pointer width and capture format version.
package tracefile

import (
	"bytes"
	"sync"

	"github.com/google/uuid"

	"github.com/microsoftarchive/semantic-logging-sub002/encoding"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracegen"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/clr"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/kernel"
)

var (
	Names        = []string{`gc.capture`, `process.capture`, `app.capture`}
	PointerSizes = [...]int{event.PointerSize32, event.PointerSize64}
	Versions     = [...]encoding.Version{encoding.Version1, encoding.Version2}
)

// AppProvider is the provider of app.capture, described by AppManifest.
var AppProvider = uuid.MustParse(`7dd42a49-5329-4832-8dfd-43d979153a88`)

// AppManifest describes the kind with id 10 of AppProvider. Records of id 11
// in app.capture have no metadata.
const AppManifest = `
provider: Contoso-App
guid: 7dd42a49-5329-4832-8dfd-43d979153a88
events:
  - id: 10
    opcode: 1
    version: 2
    name: Net
    opcode_name: Send
    properties:
      - {name: ProcessID, type: uint32}
      - {name: Size, type: uint32}
      - {name: Name, type: UnicodeString}
      - {name: DataLength, type: uint16}
      - {name: Data, type: binary, flags: [param_length], length_index: 3}
`

// GCAllocated is the sum of the sanitized allocation amounts of gc.capture
// under the default clamp bounds.
const GCAllocated = 100 + 2000 + 1 + 100000 + 50

// Capture is one encoded fixture.
type Capture struct {
	Name        string
	PointerSize int
	Version     encoding.Version
	Records     int
	Data        []byte
}

// Bytes returns a copy of the encoded capture.
func (c Capture) Bytes() []byte {
	out := make([]byte, len(c.Data))
	copy(out, c.Data)
	return out
}

// Reader returns a reader over the encoded capture.
func (c Capture) Reader() *bytes.Reader {
	return bytes.NewReader(c.Data)
}

var (
	listOnce sync.Once
	list     CaptureList
)

// List returns every fixture.
func List() CaptureList {
	listOnce.Do(func() {
		for _, ver := range Versions {
			for _, ptr := range PointerSizes {
				for _, name := range Names {
					c, err := NewCapture(name, ptr, ver)
					if err != nil {
						panic(err)
					}
					list = append(list, c)
				}
			}
		}
	})
	return list
}

// NewCapture encodes the records of the named fixture for a producer with
// ptr byte pointers. Unknown names yield an empty capture.
func NewCapture(name string, ptr int, ver encoding.Version) (*Capture, error) {
	var buf bytes.Buffer
	recs := Records(name, ptr)
	enc := encoding.NewEncoderVersion(&buf, ver)
	for _, rec := range recs {
		if err := enc.Emit(rec); err != nil {
			return nil, err
		}
	}
	c := &Capture{
		Name:        name,
		PointerSize: ptr,
		Version:     ver,
		Records:     len(recs),
		Data:        buf.Bytes(),
	}
	return c, nil
}

// Records returns the raw records of the named fixture in delivery order.
func Records(name string, ptr int) []*event.Record {
	var recs []*event.Record
	switch name {
	case `gc.capture`:
		recs = gcRecords(ptr)
	case `process.capture`:
		recs = processRecords(ptr)
	case `app.capture`:
		recs = appRecords(ptr)
	}
	for i, rec := range recs {
		rec.Timestamp = int64(1000 + i*10)
		rec.ProcessID = 4242
		rec.ThreadID = uint32(7 + i%2)
	}
	return recs
}

func gcRecords(ptr int) (out []*event.Record) {
	h := func(id uint16, opcode uint8, v event.Version) event.Header {
		return event.Header{Provider: clr.Provider, ID: id, Opcode: opcode, Version: v}
	}
	tick := func(amount int64) *event.Record {
		return tracegen.New(ptr).
			Int32(int32(amount)).Int32(0).Uint16(9).Int64(amount).
			Pointer(0x7ffe0000).UTF16(`System.String`).Uint32(0).
			Record(h(10, 11, 2))
	}

	out = append(out,
		tracegen.New(ptr).Int32(1).Int32(2).Int32(0).Int32(0).Uint16(9).Int64(0).
			Record(h(1, clr.OpcodeStart, 2)),
		tick(100),
		tick(2000),
		tracegen.New(ptr).Float64(120.5).Uint32(8).Uint32(3).Uint16(9).
			Record(h(55, 52, 0)),
		tick(-5),
		tick(200000),
		tracegen.New(ptr).UTF16(`System.InvalidOperationException`).
			UTF16(`Collection was modified`).Pointer(0x7ffe1234).
			Uint32(0x80131509).Uint16(0x10).Uint16(9).
			Record(h(80, clr.OpcodeStart, 1)),
		tick(50),
	)
	return
}

func processRecords(ptr int) (out []*event.Record) {
	proc := func(opcode uint8, v event.Version, pid uint32, name string) *event.Record {
		b := tracegen.New(ptr).Pointer(0xffff8000).Uint32(pid).Uint32(4).Uint32(1).Int32(259).
			Pointer(0x1aa000)
		if v >= 4 {
			b.Uint32(uint32(kernel.ProcessWow64))
		}
		b.Uint32(0).ANSI(name).UTF16(name + ` -x`)
		if v >= 3 {
			b.UTF16(``).UTF16(``)
		}
		return b.Record(event.Header{Provider: kernel.ProcessTask, Opcode: opcode, Version: v})
	}

	out = append(out,
		proc(kernel.OpcodeDCStart, 3, 4, `System`),
		proc(kernel.OpcodeStart, 4, 1200, `notepad.exe`),
		tracegen.New(ptr).Pointer(0x7ff60000).Pointer(0x20000).Uint32(1200).
			Uint32(0xabcd).Uint32(0x5f000000).Uint32(0).Pointer(0x40000000).
			Uint32(0).Uint32(0).Uint32(0).Uint32(0).
			UTF16(`\Device\HarddiskVolume1\Windows\notepad.exe`).
			Record(event.Header{Provider: kernel.ImageTask, Opcode: kernel.OpcodeLoad, Version: 2}),
		tracegen.New(ptr).Uint32(uint32(kernel.PageListStandby)<<28|uint32(kernel.PageFile)).
			Uint32(0).Pointer(0x1234).Pointer(0xffffa000).Pointer(0x7ff0000).
			Record(event.Header{Provider: kernel.PageFaultTask, Opcode: kernel.OpcodeMemoryPageAccess}),
		proc(kernel.OpcodeEnd, 4, 1200, `notepad.exe`),
	)
	return
}

func appRecords(ptr int) (out []*event.Record) {
	send := func(size uint32, name string, data []byte) *event.Record {
		return tracegen.New(ptr).Uint32(4242).Uint32(size).UTF16(name).
			Uint16(uint16(len(data))).Raw(data).
			Record(event.Header{Provider: AppProvider, ID: 10, Opcode: 1, Version: 2})
	}
	out = append(out,
		send(512, `eth0`, []byte{0xca, 0xfe}),
		tracegen.New(ptr).Uint64(1).Record(event.Header{Provider: AppProvider, ID: 11, Opcode: 1}),
		send(64, `lo`, nil),
	)
	return
}

// CaptureList is a list of fixtures with filter helpers.
type CaptureList []*Capture

func (s CaptureList) String() string {
	var buf bytes.Buffer
	if len(s) == 0 {
		return `CaptureList()`
	}

	buf.WriteString(`CaptureList(` + s[0].Name)
	for _, c := range s[1:] {
		buf.WriteString(`, ` + c.Name)
	}
	return buf.String() + `)`
}

func (s CaptureList) ByName(name string) (out CaptureList) {
	for _, c := range s {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return
}

func (s CaptureList) ByPointerSize(ptr int) (out CaptureList) {
	for _, c := range s {
		if c.PointerSize == ptr {
			out = append(out, c)
		}
	}
	return
}

func (s CaptureList) ByVersion(ver encoding.Version) (out CaptureList) {
	for _, c := range s {
		if c.Version == ver {
			out = append(out, c)
		}
	}
	return
}

func (s CaptureList) ByMaxSize(n int) (out CaptureList) {
	for _, c := range s {
		if len(c.Data) < n {
			out = append(out, c)
		}
	}
	return
}
