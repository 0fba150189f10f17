package schema

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

// Option configures a Cache.
type Option func(c *Cache)

// WithLogger sets the logger queries are reported to.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithMaxFixedSize sets the sanity ceiling used when inferring size classes.
func WithMaxFixedSize(n int) Option {
	return func(c *Cache) { c.maxFixed = n }
}

// CacheStats counts the work done by a Cache.
type CacheStats struct {
	Hits     uint64
	Queries  uint64
	Misses   uint64
	Failures uint64
}

// Cache synthesizes descriptors from a Source and keeps them for the life of
// the process, keyed by kind and version. Concurrent misses for one key
// share a single query and both found and missing metadata are kept. Source
// errors other than ErrNotFound are not kept so a later record retries.
type Cache struct {
	src      Source
	log      zerolog.Logger
	maxFixed int

	mu      sync.RWMutex
	entries map[Query]*event.Descriptor
	group   singleflight.Group

	hits, queries, misses, failures atomic.Uint64
}

// NewCache returns a Cache over src.
func NewCache(src Source, opts ...Option) *Cache {
	c := &Cache{
		src:      src,
		log:      zerolog.Nop(),
		maxFixed: DefaultMaxFixedSize,
		entries:  make(map[Query]*event.Descriptor),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the descriptor for q, or nil when the source has no metadata
// for it.
func (c *Cache) Get(ctx context.Context, q Query) (*event.Descriptor, error) {
	c.mu.RLock()
	d, ok := c.entries[q]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return d, nil
	}

	v, err, _ := c.group.Do(q.String(), func() (interface{}, error) {
		c.mu.RLock()
		d, ok := c.entries[q]
		c.mu.RUnlock()
		if ok {
			return d, nil
		}

		d, err := c.query(ctx, q)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[q] = d
		c.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*event.Descriptor), nil
}

func (c *Cache) query(ctx context.Context, q Query) (*event.Descriptor, error) {
	c.queries.Add(1)
	c.log.Debug().Stringer(`query`, q).Msg(`querying event metadata`)

	md, err := c.src.Lookup(ctx, q)
	if errors.Cause(err) == ErrNotFound {
		c.misses.Add(1)
		c.log.Debug().Stringer(`query`, q).Msg(`no event metadata`)
		return nil, nil
	}
	if err != nil {
		c.failures.Add(1)
		return nil, errors.Wrapf(err, `schema: query %v`, q)
	}

	l, err := NewBuilder(c.maxFixed).Add(md.Properties...).Build()
	if err != nil {
		c.failures.Add(1)
		return nil, errors.Wrapf(err, `schema: layout of %v`, q)
	}
	if n := l.Resolved(); n < len(md.Properties) {
		c.log.Warn().Stringer(`query`, q).Str(`event`, md.Name).
			Str(`field`, md.Properties[n].Name).
			Msg(`unsupported property size, later fields are not decoded`)
	}
	c.log.Info().Stringer(`query`, q).Str(`provider`, md.ProviderName).
		Str(`event`, md.Name).Int(`fields`, len(md.Properties)).
		Msg(`synthesized event layout`)
	return l.Descriptor(q.Key, q.Version, md.ProviderName, md.Name, md.OpcodeName), nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Queries:  c.queries.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}

// Len returns the number of cached kinds, including missing ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolver adapts a Cache to dispatch.Resolver.
type Resolver struct {
	Cache *Cache
}

// NewResolver returns a Resolver over a new Cache of src.
func NewResolver(src Source, opts ...Option) *Resolver {
	return &Resolver{Cache: NewCache(src, opts...)}
}

// TryResolve returns the synthesized descriptor for the kind and version of
// rec, or false when no metadata exists.
func (r *Resolver) TryResolve(rec *event.Record) (*event.Descriptor, bool, error) {
	d, err := r.Cache.Get(context.Background(), QueryOf(rec))
	if err != nil || d == nil {
		return nil, false, err
	}
	return d, true, nil
}
