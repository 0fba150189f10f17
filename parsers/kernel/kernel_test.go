package kernel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracegen"
)

type sample struct {
	desc  *event.Descriptor
	last  event.Version
	build func(b *tracegen.Builder, v event.Version)
}

var samples = []sample{
	{process, 4, processSample(true)},
	{imageLoad, 2, func(b *tracegen.Builder, v event.Version) {
		b.Pointer(0x7ff60000).Pointer(0x20000)
		if v >= 1 {
			b.Uint32(100)
		}
		if v >= 2 {
			b.Uint32(0xabcd).Uint32(0x5f000000).Uint32(0).Pointer(0x40000000).
				Uint32(0).Uint32(0).Uint32(0).Uint32(0)
		}
		b.UTF16(`\Device\HarddiskVolume1\app.exe`)
	}},
	{memoryPageAccess, 0, func(b *tracegen.Builder, v event.Version) {
		b.Uint32(uint32(PageListStandby)<<28 | uint32(PageFile)).Uint32(0).
			Pointer(0x1234).Pointer(0xffffa000).Pointer(0x7ff0000)
	}},
}

func processSample(withSID bool) func(*tracegen.Builder, event.Version) {
	return func(b *tracegen.Builder, v event.Version) {
		if v >= 1 {
			b.Pointer(0xffff8000).Uint32(100).Uint32(4).Uint32(1).Int32(259)
		} else {
			b.Pointer(100).Pointer(4)
		}
		if v >= 2 {
			b.Pointer(0x1aa000)
		}
		if v >= 4 {
			b.Uint32(uint32(ProcessWow64))
		}
		if withSID {
			b.Pointer(0x10).Pointer(0).
				Uint8(1).Uint8(3).Raw([]byte{0, 0, 0, 0, 0, 5}).
				Uint32(21).Uint32(1).Uint32(2)
		} else {
			b.Uint32(0)
		}
		b.ANSI(`café.exe`)
		if v >= 2 {
			b.UTF16(`café.exe -x`)
		}
		if v >= 3 {
			b.UTF16(`App_1.0_x64`).UTF16(`App`)
		}
	}
}

type sizer interface {
	Size() int
}

func build(s sample, ptr int, v event.Version) *event.Record {
	b := tracegen.New(ptr)
	s.build(b, v)
	return b.Record(event.Header{Provider: s.desc.Provider, Opcode: s.desc.Opcode, Version: v})
}

func values(p event.Payload) []interface{} {
	out := make([]interface{}, len(p.Names()))
	for i := range out {
		out[i] = p.Value(i)
	}
	return out
}

func TestSizeMatchesLayout(t *testing.T) {
	for _, s := range samples {
		for _, ptr := range []int{event.PointerSize32, event.PointerSize64} {
			for v := event.Version0; v <= s.last; v++ {
				name := fmt.Sprintf(`%v/v%d/ptr%d`, s.desc.EventName(), v, ptr)
				t.Run(name, func(t *testing.T) {
					rec := build(s, ptr, v)
					p := s.desc.Project(rec)
					require.NoError(t, p.Validate())
					assert.Equal(t, rec.Len(), p.(sizer).Size())
					assert.NotPanics(t, func() { values(p) })
				})
			}
		}
	}
}

func TestForwardCompatible(t *testing.T) {
	for _, s := range samples {
		t.Run(s.desc.EventName(), func(t *testing.T) {
			b := tracegen.New(8)
			s.build(b, s.last)
			exp := values(s.desc.Project(b.Record(event.Header{Version: s.last})))

			b.Int64(-1)
			p := s.desc.Project(b.Record(event.Header{Version: s.last + 1}))
			require.NoError(t, p.Validate())
			assert.Equal(t, exp, values(p))
		})
	}
}

func TestTruncatedIsNotFatal(t *testing.T) {
	for _, s := range samples {
		for v := event.Version0; v < s.last; v++ {
			rec := build(s, 8, v)
			name := fmt.Sprintf(`%v/v%d`, s.desc.EventName(), v)
			t.Run(name, func(t *testing.T) {
				short := event.NewRecord(rec.Header, rec.Bytes()[:rec.Len()-1])
				p := s.desc.Project(short)

				err := p.Validate()
				require.Error(t, err)
				assert.True(t, short.Invalid())
				assert.NotPanics(t, func() { values(p) })
			})
		}
	}
}

func TestProcessRelocation(t *testing.T) {
	for _, ptr := range []int{event.PointerSize32, event.PointerSize64} {
		for v := event.Version0; v <= event.Version4; v++ {
			t.Logf(`test v%d ptr%d exp relocated fields to decode`, v, ptr)
			e := process.Project(build(samples[0], ptr, v)).(Process)
			require.NoError(t, e.Validate())

			assert.Equal(t, uint32(100), e.ProcessID())
			assert.Equal(t, uint32(4), e.ParentID())
			assert.Equal(t, `S-1-5-21-1-2`, e.UserSID())
			assert.Equal(t, `café.exe`, e.ImageFileName())
			assert.Equal(t, v >= 1, e.UniqueProcessKey() == 0xffff8000)
			assert.Equal(t, v >= 1, e.ExitStatus() == 259)
			assert.Equal(t, v >= 2, e.DirectoryTableBase() == 0x1aa000)
			assert.Equal(t, v >= 2, e.CommandLine() == `café.exe -x`)
			assert.Equal(t, v >= 3, e.PackageFullName() == `App_1.0_x64`)
			assert.Equal(t, v >= 3, e.ApplicationID() == `App`)
			assert.Equal(t, v >= 4, e.Flags() == ProcessWow64)
		}
	}
}

func TestProcessVersion0(t *testing.T) {
	b := tracegen.New(8).Pointer(0x100000064).Pointer(4)
	b.Uint32(0).ANSI(`init`)
	e := process.Project(b.Record(event.Header{Version: 0})).(Process)
	require.NoError(t, e.Validate())
	assert.Equal(t, uint32(100), e.ProcessID())
	assert.Equal(t, uint32(4), e.ParentID())
	assert.Equal(t, ``, e.UserSID())
	assert.Equal(t, `init`, e.ImageFileName())
	assert.Equal(t, 16+4+5, e.Size())
}

func TestProcessNullSID(t *testing.T) {
	b := tracegen.New(8)
	processSample(false)(b, event.Version3)
	e := process.Project(b.Record(event.Header{Version: 3})).(Process)
	require.NoError(t, e.Validate())
	assert.Equal(t, ``, e.UserSID())
	assert.Equal(t, `café.exe`, e.ImageFileName())
	assert.Equal(t, `App`, e.ApplicationID())
}

func TestProcessFlags(t *testing.T) {
	tests := []struct {
		f   ProcessFlags
		exp string
	}{
		{0, `None`},
		{ProcessPackaged, `Packaged`},
		{ProcessWow64 | ProcessProtected, `Wow64|Protected`},
		{ProcessPackaged | 0x10, `Packaged|0x10`},
	}
	for i, test := range tests {
		t.Logf(`test #%v exp %d to render as %v`, i, uint32(test.f), test.exp)
		assert.Equal(t, test.exp, test.f.String())
	}
}

func TestImageLoadRelocation(t *testing.T) {
	for _, ptr := range []int{event.PointerSize32, event.PointerSize64} {
		for v := event.Version0; v <= event.Version2; v++ {
			e := imageLoad.Project(build(samples[1], ptr, v)).(ImageLoad)
			require.NoError(t, e.Validate())
			assert.Equal(t, event.Address(0x7ff60000), e.ImageBase())
			assert.Equal(t, uint64(0x20000), e.ImageSize())
			assert.Equal(t, `\Device\HarddiskVolume1\app.exe`, e.FileName())
			assert.Equal(t, v >= 1, e.ProcessID() == 100)
			assert.Equal(t, v >= 2, e.ImageChecksum() == 0xabcd)
			assert.Equal(t, v >= 2, e.TimeDateStamp() == 0x5f000000)
			assert.Equal(t, v >= 2, e.DefaultBase() == 0x40000000)
		}
	}
}

func TestMemoryPageAccess(t *testing.T) {
	rec := build(samples[2], 8, 0)
	rec.Timestamp, rec.ProcessID, rec.ThreadID = 7, 4, 12
	e := memoryPageAccess.Project(rec).(MemoryPageAccess)
	require.NoError(t, e.Validate())
	assert.Equal(t, PageFile, e.PageKind())
	assert.Equal(t, PageListStandby, e.PageList())
	assert.Equal(t, uint64(0x1234), e.PageFrameIndex())
	assert.Equal(t, `PageKind(99)`, PageKind(99).String())
	assert.Equal(t, `PageList(9)`, PageList(9).String())

	exp := `<Event Timestamp="7" PID="4" TID="12" EventName="Memory/PageAccess"` +
		` ProviderName="Windows Kernel" ID="0" Version="0"` +
		` PageKind="File" PageList="Standby" PageFrameIndex="4660"` +
		` FileKey="0xffffa000" VirtualAddress="0x7ff0000"/>`
	assert.Equal(t, exp, event.XML(e))

	// The high nibble never leaks into the kind.
	top := memoryPageAccess.Project(tracegen.New(4).
		Uint32(0xf0000003).Uint32(0).Pointer(1).Pointer(2).Pointer(3).
		Record(event.Header{})).(MemoryPageAccess)
	require.NoError(t, top.Validate())
	assert.Equal(t, PagePageTable, top.PageKind())
	assert.Equal(t, PageList(15), top.PageList())
}

func TestParserOpcodes(t *testing.T) {
	tbl := dispatch.New()
	p := NewParser(tbl)

	var pids []uint32
	sub := p.OnProcess(func(e Process) error {
		pids = append(pids, e.ProcessID())
		return nil
	})
	assert.Equal(t, process.Key(), sub.Key)

	var names []string
	tbl.RegisterAll(event.VisitorFunc(func(p event.Payload) error {
		names = append(names, p.Descriptor().EventName())
		return nil
	}))

	for _, op := range []uint8{OpcodeStart, OpcodeEnd, OpcodeDCStart, OpcodeDCEnd} {
		b := tracegen.New(8)
		processSample(true)(b, event.Version2)
		rec := b.Record(event.Header{Provider: ProcessTask, Opcode: op, Version: 2})
		require.NoError(t, tbl.Dispatch(rec))
	}
	assert.Equal(t, []uint32{100, 100, 100, 100}, pids)
	assert.Equal(t, []string{`Process/Start`, `Process/Stop`, `Process/DCStart`, `Process/DCStop`}, names)
	assert.Equal(t, uint64(0), tbl.Stats().Unknown)
}

func TestDescriptorsComplete(t *testing.T) {
	descs := Descriptors()
	seen := make(map[event.Key]bool)
	for _, d := range descs {
		p := d.Project(event.NewRecord(event.Header{}, nil))
		p.Validate()
		for i, name := range d.Fields {
			assert.NotNil(t, p.Value(i), `%v has no value for %v`, d, name)
		}
		assert.False(t, seen[d.Key()], `duplicate key %v`, d.Key())
		seen[d.Key()] = true
	}
	assert.Len(t, descs, 9)
}
