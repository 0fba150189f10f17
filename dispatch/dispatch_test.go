package dispatch_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracegen"
)

var (
	current = uuid.MustParse(`11111111-2222-3333-4444-555555555555`)
	classic = uuid.MustParse(`66666666-7777-8888-9999-000000000000`)
)

type counter struct {
	event.Base
	last event.Version
}

func (c counter) Value(int) interface{} {
	return c.Int32At(0)
}

func (c counter) Validate() error {
	return event.CheckLength(c, c.last, 4)
}

func newDesc(name string, since, until event.Version) *event.Descriptor {
	return &event.Descriptor{
		Provider: current, ID: 1, Opcode: 2,
		Name: name, Since: since, Until: until,
		Fields: []string{`Count`},
		Layout: event.LayoutFunc(func(d *event.Descriptor, rec *event.Record) event.Payload {
			return counter{Base: event.NewBase(d, rec), last: since}
		}),
	}
}

func record(provider uuid.UUID, id uint16, opcode uint8, ver event.Version, n int32) *event.Record {
	return tracegen.New(8).Int32(n).Record(event.Header{
		Provider: provider, ID: id, Opcode: opcode, Version: ver,
	})
}

type recorder struct {
	names []string
	vals  []interface{}
}

func (r *recorder) visitor(tag string) event.Visitor {
	return event.VisitorFunc(func(p event.Payload) error {
		r.names = append(r.names, tag+`:`+p.Descriptor().Name)
		r.vals = append(r.vals, p.Value(0))
		return nil
	})
}

func TestFanOutOrder(t *testing.T) {
	var r recorder
	tbl := dispatch.New()
	d := newDesc(`Kind`, 0, 0)

	s1 := tbl.Register(d, r.visitor(`a`))
	s2 := tbl.Register(d, r.visitor(`b`))
	tbl.RegisterAll(r.visitor(`all`))
	assert.Equal(t, 0, s1.Index)
	assert.Equal(t, 1, s2.Index)
	assert.Equal(t, d.Key(), s2.Key)

	require.NoError(t, tbl.Dispatch(record(current, 1, 2, 0, 7)))
	require.NoError(t, tbl.Dispatch(record(current, 1, 2, 0, 8)))

	assert.Equal(t, []string{`a:Kind`, `b:Kind`, `all:Kind`, `a:Kind`, `b:Kind`, `all:Kind`}, r.names)
	assert.Equal(t, []interface{}{int32(7), int32(7), int32(7), int32(8), int32(8), int32(8)}, r.vals)
	assert.Len(t, tbl.Descriptors(), 1)
}

func TestRegisterIdempotent(t *testing.T) {
	tbl := dispatch.New()
	d := newDesc(`Kind`, 0, 0)
	tbl.Register(d, nil)
	tbl.Register(d, nil)
	assert.Len(t, tbl.Descriptors(), 1)

	got, ok := tbl.Lookup(record(current, 1, 2, 9, 0))
	require.True(t, ok)
	assert.Same(t, d, got)
}

func TestRegisterAliasIdempotent(t *testing.T) {
	var r recorder
	tbl := dispatch.New()
	d := newDesc(`Kind`, 0, 0)
	first := tbl.Register(d.Alias(classic, 0, 2), r.visitor(`a`))

	var second dispatch.Subscription
	require.NotPanics(t, func() {
		second = tbl.Register(d.Alias(classic, 0, 2), r.visitor(`b`))
	})
	assert.Same(t, first.Descriptor, second.Descriptor)
	assert.Equal(t, 1, second.Index)
	assert.Len(t, tbl.Descriptors(), 1)

	require.NoError(t, tbl.Dispatch(record(classic, 0, 2, 0, 1)))
	assert.Equal(t, []string{`a:Kind`, `b:Kind`}, r.names)

	// An equal descriptor with its own layout is a different kind.
	assert.Panics(t, func() {
		tbl.Register(newDesc(`Kind`, 0, 0).Alias(classic, 0, 2), nil)
	})
}

func TestRegisterOverlap(t *testing.T) {
	tbl := dispatch.New()
	tbl.Register(newDesc(`Old`, 0, 2), nil)
	tbl.Register(newDesc(`New`, 2, 0), nil)
	assert.Panics(t, func() {
		tbl.Register(newDesc(`Other`, 1, 3), nil)
	})
}

func TestVersionSelection(t *testing.T) {
	var r recorder
	tbl := dispatch.New()
	tbl.Register(newDesc(`Legacy`, 0, 2), r.visitor(`x`))
	tbl.Register(newDesc(`Current`, 2, 0), r.visitor(`x`))

	for _, ver := range []event.Version{0, 1, 2, 5} {
		require.NoError(t, tbl.Dispatch(record(current, 1, 2, ver, 1)))
	}
	assert.Equal(t, []string{`x:Legacy`, `x:Legacy`, `x:Current`, `x:Current`}, r.names)
}

func TestAlias(t *testing.T) {
	var r recorder
	tbl := dispatch.New()
	d := newDesc(`Kind`, 0, 0)
	tbl.Register(d, r.visitor(`cur`))
	tbl.Register(d.Alias(classic, 0, 2), r.visitor(`old`))

	require.NoError(t, tbl.Dispatch(record(current, 1, 2, 0, 1)))
	require.NoError(t, tbl.Dispatch(record(classic, 0, 2, 0, 2)))
	require.NoError(t, tbl.Dispatch(record(classic, 0, 3, 0, 3)))

	assert.Equal(t, []string{`cur:Kind`, `old:Kind`}, r.names)
	assert.Equal(t, uint64(1), tbl.Stats().Unknown)
}

func TestInvalidIsNotFatal(t *testing.T) {
	var r recorder
	var lerrs []*event.LengthError
	tbl := dispatch.New()
	tbl.Register(newDesc(`Kind`, 1, 0), r.visitor(`x`))
	tbl.OnInvalid(func(err *event.LengthError) {
		lerrs = append(lerrs, err)
	})

	// Version 1 is the last modeled version, trailing bytes are allowed.
	rec := tracegen.New(8).Int32(5).Int16(1).Record(event.Header{
		Provider: current, ID: 1, Opcode: 2, Version: 1,
	})
	require.NoError(t, tbl.Dispatch(rec))

	short := tracegen.New(8).Int16(5).Record(event.Header{
		Provider: current, ID: 1, Opcode: 2, Version: 1,
	})
	require.NoError(t, tbl.Dispatch(short))

	assert.Equal(t, []string{`x:Kind`, `x:Kind`}, r.names)
	assert.Equal(t, []interface{}{int32(5), int32(0)}, r.vals)
	require.Len(t, lerrs, 1)
	assert.Equal(t, event.AtLeast, lerrs[0].Class)
	assert.Equal(t, 4, lerrs[0].Expected)
	assert.Equal(t, 2, lerrs[0].Actual)

	st := tbl.Stats()
	assert.Equal(t, uint64(2), st.Dispatched)
	assert.Equal(t, uint64(1), st.Invalid)
}

func TestVisitorError(t *testing.T) {
	errBoom := errors.New(`boom`)
	var r recorder
	tbl := dispatch.New()
	d := newDesc(`Kind`, 0, 0)
	tbl.Register(d, r.visitor(`a`))
	tbl.Register(d, event.ErrVisitor(errBoom))
	tbl.Register(d, r.visitor(`c`))
	tbl.RegisterAll(r.visitor(`all`))

	err := tbl.Dispatch(record(current, 1, 2, 0, 1))
	require.Error(t, err)
	assert.Equal(t, errBoom, errors.Cause(err))
	assert.Equal(t, []string{`a:Kind`}, r.names)
	assert.Equal(t, uint64(1), tbl.Stats().Errors)
}

func TestUnknownChain(t *testing.T) {
	var r recorder
	tbl := dispatch.New()
	tbl.OnUnknown(r.visitor(`u1`))
	tbl.OnUnknown(r.visitor(`u2`))
	tbl.RegisterAll(r.visitor(`all`))

	require.NoError(t, tbl.Dispatch(record(current, 40, 0, 0, 1)))
	assert.Equal(t, []string{`u1:UnknownEvent`, `u2:UnknownEvent`, `all:UnknownEvent`}, r.names)
	assert.Equal(t, []interface{}{nil, nil, nil}, r.vals)
}

func TestResolver(t *testing.T) {
	var r recorder
	var calls int
	tbl := dispatch.New()
	tbl.OnUnknown(r.visitor(`unknown`))
	tbl.AddResolver(dispatch.ResolverFunc(func(rec *event.Record) (*event.Descriptor, bool, error) {
		return nil, false, errors.New(`source offline`)
	}))
	tbl.AddResolver(dispatch.ResolverFunc(func(rec *event.Record) (*event.Descriptor, bool, error) {
		calls++
		if rec.ID != 1 {
			return nil, false, nil
		}
		return newDesc(`Resolved`, rec.Version, rec.Version+1), true, nil
	}))
	tbl.RegisterAll(r.visitor(`all`))

	require.NoError(t, tbl.Dispatch(record(current, 1, 2, 3, 1)))
	require.NoError(t, tbl.Dispatch(record(current, 1, 2, 3, 2)))
	require.NoError(t, tbl.Dispatch(record(current, 9, 2, 0, 3)))

	assert.Equal(t, []string{`all:Resolved`, `all:Resolved`, `unknown:UnknownEvent`, `all:UnknownEvent`}, r.names)
	assert.Equal(t, 2, calls)

	st := tbl.Stats()
	assert.Equal(t, uint64(1), st.Resolved)
	assert.Equal(t, uint64(1), st.Unknown)
}

func TestResolverMismatch(t *testing.T) {
	tbl := dispatch.New()
	tbl.AddResolver(dispatch.ResolverFunc(func(rec *event.Record) (*event.Descriptor, bool, error) {
		return newDesc(`Wrong`, 0, 1), true, nil
	}))
	require.NoError(t, tbl.Dispatch(record(current, 1, 2, 4, 1)))
	assert.Equal(t, uint64(0), tbl.Stats().Resolved)
	assert.Equal(t, uint64(1), tbl.Stats().Unknown)
}

func TestResolverNilDescriptor(t *testing.T) {
	tbl := dispatch.New()
	tbl.AddResolver(dispatch.ResolverFunc(func(rec *event.Record) (*event.Descriptor, bool, error) {
		return nil, true, nil
	}))
	require.NotPanics(t, func() {
		require.NoError(t, tbl.Dispatch(record(current, 1, 2, 0, 1)))
	})
	assert.Equal(t, uint64(0), tbl.Stats().Resolved)
	assert.Equal(t, uint64(1), tbl.Stats().Unknown)
}
