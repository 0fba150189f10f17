// Package dispatch routes raw records to the layout registered for their kind
// and hands the projected payloads to subscribers.
//
// A Table is filled during a setup phase and then fed one record at a time by
// a delivery loop. For each record the Table looks up the descriptor by
// (provider, id, opcode), selecting among descriptors sharing that key by the
// record version, projects the record, validates it and calls every visitor
// registered for the kind in registration order followed by every visitor
// registered with RegisterAll. Validation failures never stop a dispatch, they
// are reported through OnInvalid and the log. Records without a descriptor are
// offered to each Resolver in turn and, failing that, to the OnUnknown chain.
package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

// Resolver synthesizes descriptors for records no descriptor is registered
// for. TryResolve returns false when the record cannot be described, an error
// is only returned when the metadata source itself failed.
type Resolver interface {
	TryResolve(rec *event.Record) (*event.Descriptor, bool, error)
}

// ResolverFunc is an adapter to allow the use of ordinary functions as a
// Resolver.
type ResolverFunc func(rec *event.Record) (*event.Descriptor, bool, error)

// TryResolve calls f(rec).
func (f ResolverFunc) TryResolve(rec *event.Record) (*event.Descriptor, bool, error) {
	return f(rec)
}

// Subscription identifies one visitor registered for a kind. Subscriptions
// live as long as the Table, there is no way to remove one.
type Subscription struct {
	Key        event.Key
	Descriptor *event.Descriptor
	Index      int
}

// Stats holds the counters of a Table.
type Stats struct {
	Dispatched uint64
	Invalid    uint64
	Unknown    uint64
	Resolved   uint64
	Errors     uint64
}

// Option configures a Table.
type Option func(t *Table)

// WithLogger sets the logger diagnostics are written to, the default discards
// everything.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Table) {
		t.log = log
	}
}

type binding struct {
	desc     *event.Descriptor
	visitors []event.Visitor
}

// Table maps event kinds to descriptors and subscribers. It is safe for
// concurrent use, although records of one stream must be dispatched from a
// single goroutine to preserve their order.
type Table struct {
	log zerolog.Logger

	mu        sync.RWMutex
	kinds     map[event.Key][]*binding
	all       []event.Visitor
	unknown   []event.Visitor
	invalid   []func(*event.LengthError)
	resolvers []Resolver

	dispatched, nInvalid, nUnknown, resolved, nErrors uint64
}

// New returns an empty Table.
func New(opts ...Option) *Table {
	t := &Table{
		log:   zerolog.Nop(),
		kinds: make(map[event.Key][]*binding),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register binds d to its key and adds v to the subscribers of d. Registering
// a descriptor that is already bound, or one that is the Same as a bound one,
// only adds the visitor, which may be nil
// to make the kind decodable without subscribing to it. The same descriptor
// may be registered under other keys by registering d.Alias copies.
//
// Register panics if d covers a version already covered by another descriptor
// with the same key.
func (t *Table) Register(d *event.Descriptor, v event.Visitor) Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bind(d)
	if err != nil {
		panic(err)
	}
	if v != nil {
		b.visitors = append(b.visitors, v)
	}
	return Subscription{Key: d.Key(), Descriptor: b.desc, Index: len(b.visitors) - 1}
}

func (t *Table) bind(d *event.Descriptor) (*binding, error) {
	key := d.Key()
	for _, b := range t.kinds[key] {
		if b.desc.Same(d) {
			return b, nil
		}
		if overlaps(b.desc, d) {
			return nil, errors.Errorf(`dispatch: %v versions [%d,%d) overlap %v versions [%d,%d) for key %v`,
				d, d.Since, d.Until, b.desc, b.desc.Since, b.desc.Until, key)
		}
	}
	b := &binding{desc: d}
	t.kinds[key] = append(t.kinds[key], b)
	return b, nil
}

func overlaps(a, b *event.Descriptor) bool {
	const unbounded = 1 << 8
	aHi, bHi := int(a.Until), int(b.Until)
	if aHi == 0 {
		aHi = unbounded
	}
	if bHi == 0 {
		bHi = unbounded
	}
	return int(a.Since) < bHi && int(b.Since) < aHi
}

// RegisterAll adds v to the visitors called for every record after the
// subscribers of its kind, unknown records included.
func (t *Table) RegisterAll(v event.Visitor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.all = append(t.all, v)
}

// OnUnknown adds v to the chain called for records that neither a registered
// descriptor nor a resolver could describe.
func (t *Table) OnUnknown(v event.Visitor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unknown = append(t.unknown, v)
}

// OnInvalid adds fn to the functions notified of every length validation
// failure. Notifications never interrupt the dispatch.
func (t *Table) OnInvalid(fn func(*event.LengthError)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invalid = append(t.invalid, fn)
}

// AddResolver appends r to the resolvers consulted when a lookup misses.
func (t *Table) AddResolver(r Resolver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolvers = append(t.resolvers, r)
}

// Lookup returns the descriptor registered for the key and version of rec.
func (t *Table) Lookup(rec *event.Record) (*event.Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b := t.lookup(rec); b != nil {
		return b.desc, true
	}
	return nil, false
}

func (t *Table) lookup(rec *event.Record) *binding {
	for _, b := range t.kinds[rec.Key()] {
		if b.desc.Accepts(rec.Version) {
			return b
		}
	}
	return nil
}

// Dispatch decodes rec and calls its subscribers synchronously. The error of
// the first visitor that fails is returned wrapped, errors.Cause yields the
// original, and no further visitors are called for rec. Neither a length
// validation failure nor an unknown kind is an error.
func (t *Table) Dispatch(rec *event.Record) error {
	atomic.AddUint64(&t.dispatched, 1)

	t.mu.RLock()
	b := t.lookup(rec)
	all := t.all
	t.mu.RUnlock()

	if b == nil {
		b = t.resolve(rec)
	}
	if b == nil {
		return t.dispatchUnknown(rec, all)
	}

	p := b.desc.Project(rec)
	if err := p.Validate(); err != nil {
		t.reportInvalid(rec, err)
	}

	t.mu.RLock()
	visitors := b.visitors
	t.mu.RUnlock()

	if err := t.visit(p, visitors); err != nil {
		return err
	}
	return t.visit(p, all)
}

func (t *Table) visit(p event.Payload, visitors []event.Visitor) error {
	for _, v := range visitors {
		if err := v.Visit(p); err != nil {
			atomic.AddUint64(&t.nErrors, 1)
			return errors.Wrapf(err, `dispatch: visiting %v`, p.Descriptor())
		}
	}
	return nil
}

func (t *Table) dispatchUnknown(rec *event.Record, all []event.Visitor) error {
	atomic.AddUint64(&t.nUnknown, 1)
	t.log.Debug().
		Stringer(`key`, rec.Key()).
		Uint8(`version`, uint8(rec.Version)).
		Int(`length`, rec.Len()).
		Msg(`unknown event kind`)

	t.mu.RLock()
	unknown := t.unknown
	t.mu.RUnlock()

	p := event.UnknownDescriptor(rec.Header).Project(rec)
	if err := t.visit(p, unknown); err != nil {
		return err
	}
	return t.visit(p, all)
}

func (t *Table) resolve(rec *event.Record) *binding {
	t.mu.RLock()
	resolvers := t.resolvers
	t.mu.RUnlock()

	for _, r := range resolvers {
		d, ok, err := r.TryResolve(rec)
		if err != nil {
			t.log.Warn().Err(err).
				Stringer(`key`, rec.Key()).
				Msg(`resolver failed`)
			continue
		}
		if !ok {
			continue
		}
		if d == nil {
			t.log.Warn().
				Stringer(`key`, rec.Key()).
				Msg(`resolver returned no descriptor`)
			continue
		}
		if d.Key() != rec.Key() || !d.Accepts(rec.Version) {
			t.log.Warn().
				Stringer(`key`, rec.Key()).
				Stringer(`descriptor`, d).
				Msg(`resolved descriptor does not describe record`)
			continue
		}

		t.mu.Lock()
		b := t.lookup(rec)
		if b == nil {
			b, err = t.bind(d)
		}
		t.mu.Unlock()
		if err != nil {
			t.log.Warn().Err(err).Msg(`resolved descriptor rejected`)
			continue
		}

		atomic.AddUint64(&t.resolved, 1)
		t.log.Debug().
			Stringer(`key`, rec.Key()).
			Stringer(`descriptor`, d).
			Msg(`registered resolved descriptor`)
		return b
	}
	return nil
}

func (t *Table) reportInvalid(rec *event.Record, err error) {
	atomic.AddUint64(&t.nInvalid, 1)
	t.log.Warn().Err(err).
		Stringer(`key`, rec.Key()).
		Int64(`timestamp`, rec.Timestamp).
		Msg(`invalid payload length`)

	var lerr *event.LengthError
	if !errors.As(err, &lerr) {
		return
	}

	t.mu.RLock()
	fns := t.invalid
	t.mu.RUnlock()
	for _, fn := range fns {
		fn(lerr)
	}
}

// Stats returns a snapshot of the counters of t.
func (t *Table) Stats() Stats {
	return Stats{
		Dispatched: atomic.LoadUint64(&t.dispatched),
		Invalid:    atomic.LoadUint64(&t.nInvalid),
		Unknown:    atomic.LoadUint64(&t.nUnknown),
		Resolved:   atomic.LoadUint64(&t.resolved),
		Errors:     atomic.LoadUint64(&t.nErrors),
	}
}

// Descriptors returns every descriptor bound in t.
func (t *Table) Descriptors() []*event.Descriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*event.Descriptor
	for _, bs := range t.kinds {
		for _, b := range bs {
			out = append(out, b.desc)
		}
	}
	return out
}
