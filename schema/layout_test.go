package schema

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracegen"
)

var (
	testProvider = uuid.MustParse(`7dd42a49-5329-4832-8dfd-43d979153a88`)
	testGUID     = uuid.MustParse(`00000000-1111-2222-3333-444455556666`)
	testTime     = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
)

var testProps = []Property{
	{Name: `ProcessID`, Type: InTypeUint32},
	{Name: `Status`, Type: InTypeHexInt32},
	{Name: `Name`, Type: InTypeUnicodeString},
	{Name: `Image`, Type: InTypeAnsiString},
	{Name: `Object`, Type: InTypePointer},
	{Name: `DataLength`, Type: InTypeUint16},
	{Name: `Data`, Type: InTypeBinary, Flags: ParamLength, LengthIndex: 5},
	{Name: `When`, Type: InTypeFileTime},
	{Name: `Activity`, Type: InTypeGUID},
	{Name: `Ports`, Type: InTypeUint16, Count: 3},
	{Name: `Enabled`, Type: InTypeBoolean},
	{Name: `Ratio`, Type: InTypeDouble},
}

func testLayout(t testing.TB) *Layout {
	l, err := NewBuilder(0).Add(testProps...).Build()
	require.NoError(t, err)
	return l
}

func testRecord(ptr int) *tracegen.Builder {
	return tracegen.New(ptr).
		Uint32(1234).Uint32(0xc0000005).UTF16(`tcp/ip`).ANSI(`svchost.exe`).
		Pointer(0xfeed).Uint16(3).Raw([]byte{1, 2, 3}).FileTime(testTime).
		GUID(testGUID).Uint16(80).Uint16(443).Uint16(8080).Bool(true).Float64(0.5)
}

func testDescriptor(l *Layout) *event.Descriptor {
	k := event.Key{Provider: testProvider, ID: 10, Opcode: 1}
	return l.Descriptor(k, 2, `Test-Provider`, `Net`, `Send`)
}

func TestLayoutDecode(t *testing.T) {
	l := testLayout(t)
	d := testDescriptor(l)
	assert.True(t, d.Accepts(2))
	assert.False(t, d.Accepts(1))
	assert.False(t, d.Accepts(3))
	assert.Equal(t, 3, len(l.static))

	for _, ptr := range []int{event.PointerSize32, event.PointerSize64} {
		b := testRecord(ptr)
		p := d.Project(b.Record(event.Header{Provider: testProvider, ID: 10, Opcode: 1, Version: 2})).(*Payload)
		require.NoError(t, p.Validate())
		assert.Equal(t, b.Len(), p.Size())
		assert.Same(t, l, p.Layout())

		exp := []interface{}{
			uint32(1234), Hex(0xc0000005), `tcp/ip`, `svchost.exe`,
			event.Address(0xfeed), uint16(3), []byte{1, 2, 3}, testTime,
			testGUID, []interface{}{uint16(80), uint16(443), uint16(8080)},
			true, 0.5,
		}
		for i, name := range l.Names() {
			t.Logf(`test ptr%d exp field %v to decode`, ptr, name)
			assert.Equal(t, exp[i], p.Value(i))
		}
		v, ok := event.Get(p, `Image`)
		assert.True(t, ok)
		assert.Equal(t, `svchost.exe`, v)
	}
}

func TestLayoutXML(t *testing.T) {
	l, err := NewBuilder(0).Add(testProps[:3]...).Build()
	require.NoError(t, err)
	rec := tracegen.New(8).Uint32(4).Uint32(0x1f).UTF16(`a&b`).
		Record(event.Header{Provider: testProvider, ID: 10, Opcode: 1, Version: 2, Timestamp: 5})
	p := testDescriptor(l).Project(rec)
	require.NoError(t, p.Validate())

	exp := `<Event Timestamp="5" PID="0" TID="0" EventName="Net/Send"` +
		` ProviderName="Test-Provider" ID="10" Version="2"` +
		` ProcessID="4" Status="0x1f" Name="a&amp;b"/>`
	assert.Equal(t, exp, event.XML(p))
}

func TestLayoutPrefixedStrings(t *testing.T) {
	l, err := NewBuilder(0).Add(
		Property{Name: `NameLength`, Type: InTypeUint32},
		Property{Name: `Name`, Type: InTypeUnicodeString, Flags: ParamLength, LengthIndex: 0},
		Property{Name: `TagLength`, Type: InTypeUint16},
		Property{Name: `Tag`, Type: InTypeAnsiString, Flags: ParamLength, LengthIndex: 2},
		Property{Name: `Tail`, Type: InTypeUint8},
	).Build()
	require.NoError(t, err)

	b := tracegen.New(8).Uint32(3).UTF16Units([]uint16{'a', 0xe9, 'b'}).
		Uint16(4).Raw([]byte{'c', 0xe9, 'f', 0}).Uint8(7)
	p := l.Project(testDescriptor(l), b.Record(event.Header{Version: 2})).(*Payload)
	require.NoError(t, p.Validate())
	assert.Equal(t, b.Len(), p.Size())
	assert.Equal(t, `aéb`, p.Value(1))
	assert.Equal(t, `céf`, p.Value(3))
	assert.Equal(t, uint8(7), p.Value(4))
}

func TestLayoutUnknownSize(t *testing.T) {
	l, err := NewBuilder(0).Add(
		Property{Name: `Count`, Type: InTypeUint32},
		Property{Name: `Owner`, Type: InTypeSID},
		Property{Name: `After`, Type: InTypeUint32},
	).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, l.Resolved())

	b := tracegen.New(8).Uint32(5).Raw(make([]byte, 12)).Uint32(9)
	p := l.Project(testDescriptor(l), b.Record(event.Header{Version: 2})).(*Payload)
	require.NoError(t, p.Validate())
	assert.Equal(t, -1, p.Size())
	assert.Equal(t, uint32(5), p.Value(0))
	assert.Nil(t, p.Value(1))
	assert.Nil(t, p.Value(2))

	_, err = p.Field(2)
	assert.Equal(t, ErrUnknownSize, errors.Cause(err))
	_, err = p.Field(3)
	assert.Equal(t, ErrNoField, err)
}

func TestLayoutUnsupportedShapes(t *testing.T) {
	tests := []struct {
		props    []Property
		data     *tracegen.Builder
		resolved int
		exp      []interface{}
	}{
		{
			// Length sibling not immediately before the property.
			[]Property{
				{Name: `Len`, Type: InTypeUint16},
				{Name: `Pad`, Type: InTypeUint32},
				{Name: `Data`, Type: InTypeBinary, Flags: ParamLength, LengthIndex: 0},
			},
			tracegen.New(8).Uint16(2).Uint32(7).Raw([]byte{1, 2}),
			2,
			[]interface{}{uint16(2), uint32(7), nil},
		},
		{
			[]Property{
				{Name: `Pad`, Type: InTypeUint32},
				{Name: `Blob`, Type: InTypeBinary, Length: 65535, Count: 2},
			},
			tracegen.New(8).Uint32(7).Raw(make([]byte, 8)),
			1,
			[]interface{}{uint32(7), nil},
		},
		{
			[]Property{
				{Name: `Pad`, Type: InTypeUint32},
				{Name: `Counters`, Type: InTypeUint32, Count: 20000},
				{Name: `After`, Type: InTypeUint8},
			},
			tracegen.New(8).Uint32(7).Uint32(1).Uint32(2).Uint8(3),
			1,
			[]interface{}{uint32(7), nil, nil},
		},
	}
	defer event.SetBoundsPolicy(event.CurrentBoundsPolicy())
	for _, policy := range []event.BoundsPolicy{event.Strict, event.Lenient} {
		event.SetBoundsPolicy(policy)
		for i, test := range tests {
			t.Logf(`test #%v exp %v under %v bounds`, i, test.exp, policy)
			l, err := NewBuilder(0).Add(test.props...).Build()
			require.NoError(t, err)
			assert.Equal(t, test.resolved, l.Resolved())

			rec := test.data.Record(event.Header{Version: 2})
			p := l.Project(testDescriptor(l), rec).(*Payload)
			require.NoError(t, p.Validate())
			assert.Equal(t, -1, p.Size())

			var got []interface{}
			for idx := range test.props {
				got = append(got, p.Value(idx))
			}
			assert.Equal(t, test.exp, got)

			_, err = p.Field(l.Resolved())
			assert.Equal(t, ErrUnknownSize, errors.Cause(err))
			assert.NotPanics(t, func() { event.XML(p) })
		}
	}
}

func TestLayoutTruncated(t *testing.T) {
	l := testLayout(t)
	b := testRecord(8)
	full := b.Bytes()
	rec := event.NewRecord(event.Header{Version: 2}, full[:len(full)-1])
	p := testDescriptor(l).Project(rec)

	err := p.Validate()
	require.Error(t, err)
	assert.True(t, rec.Invalid())
	assert.NotPanics(t, func() {
		for i := range p.Names() {
			p.Value(i)
		}
	})
	assert.Equal(t, uint32(1234), p.Value(0))
	assert.Equal(t, `svchost.exe`, p.Value(3))
}

func TestLayoutSystemTime(t *testing.T) {
	l, err := NewBuilder(0).Add(Property{Name: `At`, Type: InTypeSystemTime}).Build()
	require.NoError(t, err)

	b := tracegen.New(8).Uint16(2024).Uint16(3).Uint16(5).Uint16(1).
		Uint16(12).Uint16(30).Uint16(15).Uint16(250)
	p := l.Project(testDescriptor(l), b.Record(event.Header{Version: 2}))
	require.NoError(t, p.Validate())
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 15, 250*int(time.Millisecond), time.UTC), p.Value(0))

	zero := l.Project(testDescriptor(l), tracegen.New(8).Raw(make([]byte, 16)).Record(event.Header{Version: 2}))
	assert.Equal(t, time.Time{}, zero.Value(0))
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewBuilder(0).Add(Property{Name: `A`}, Property{Type: InTypeUint8}).Build()
	assert.Error(t, err)

	_, err = NewBuilder(0).Add(Property{Name: `A`}, Property{Name: `A`}).Build()
	assert.Error(t, err)

	l, err := NewBuilder(0).Build()
	require.NoError(t, err)
	p := l.Project(testDescriptor(l), event.NewRecord(event.Header{Version: 2}, []byte{1}))
	assert.NoError(t, p.Validate())
	assert.Empty(t, p.Names())
}
