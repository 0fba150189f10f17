// Package trace decodes captured self-describing event records into typed
// payloads.
//
// A Source pulls raw records from a capture stream, see package encoding,
// and pushes each one through a dispatch.Table in delivery order. The table
// is preloaded with every hand-authored layout of the parsers packages and,
// when a schema directory is configured, falls back to layouts synthesized
// from provider manifests. Subscribers register on the table or on the typed
// parsers before calling Process.
package trace

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/encoding"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/clr"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/kernel"
	"github.com/microsoftarchive/semantic-logging-sub002/schema"
)

// Option configures a Source.
type Option func(s *Source)

// WithLogger sets the logger of the Source and everything it builds.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Source) { s.log = log }
}

// WithSchema adds a metadata source consulted before the schema directory.
func WithSchema(src schema.Source) Option {
	return func(s *Source) { s.schemas = append(s.schemas, src) }
}

// Stats describes the work done by a Source.
type Stats struct {
	Capture   encoding.Stats
	Dispatch  dispatch.Stats
	Schema    schema.CacheStats
	Allocated int64
}

// Source decodes one capture stream. Records are dispatched strictly in
// delivery order from the goroutine calling Process, subscribers must not
// retain the records or payloads they are handed.
type Source struct {
	cfg     Config
	log     zerolog.Logger
	dec     *encoding.Decoder
	tbl     *dispatch.Table
	clr     *clr.Parser
	kernel  *kernel.Parser
	schemas schema.Sources
	cache   *schema.Cache
	alloc   *clr.AllocationSanitizer

	rec       event.Record
	allocated int64
	stopped   atomic.Bool
}

// NewSource returns a Source reading a capture from r. The bounds policy of
// cfg is applied process wide.
func NewSource(r io.Reader, cfg Config, opts ...Option) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, _ := cfg.BoundsPolicy()
	event.SetBoundsPolicy(policy)

	s := &Source{
		cfg:   cfg,
		log:   zerolog.Nop(),
		dec:   encoding.NewDecoder(r),
		alloc: clr.NewAllocationSanitizer(cfg.AllocClampMin, cfg.AllocClampMax),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tbl = dispatch.New(dispatch.WithLogger(s.log))
	s.clr = clr.NewParser(s.tbl)
	s.kernel = kernel.NewParser(s.tbl)
	s.clr.OnGCAllocationTick(func(e clr.GCAllocationTick) error {
		s.allocated += s.alloc.Amount(e)
		return nil
	})

	if cfg.SchemaDir != `` {
		s.schemas = append(s.schemas, schema.NewSidecar(cfg.SchemaDir))
	}
	if len(s.schemas) > 0 {
		s.cache = schema.NewCache(s.schemas,
			schema.WithLogger(s.log),
			schema.WithMaxFixedSize(cfg.MaxFixedSize))
		s.tbl.AddResolver(&schema.Resolver{Cache: s.cache})
	}
	return s, nil
}

// Table returns the dispatch table records are pushed through.
func (s *Source) Table() *dispatch.Table {
	return s.tbl
}

// CLR returns the typed subscriptions of the .NET runtime provider.
func (s *Source) CLR() *clr.Parser {
	return s.clr
}

// Kernel returns the typed subscriptions of the classic kernel events.
func (s *Source) Kernel() *kernel.Parser {
	return s.kernel
}

// Process decodes and dispatches records until the capture ends, ctx is
// done, Stop is called or a subscriber returns an error. Cancellation is only
// observed between records. A capture that ends cleanly returns nil, as does
// a Source that was stopped.
func (s *Source) Process(ctx context.Context) error {
	for s.dec.More() {
		if s.stopped.Load() {
			s.log.Debug().Msg(`capture processing stopped`)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.dec.Decode(&s.rec); err != nil {
			break // err will be in Err()
		}
		if err := s.tbl.Dispatch(&s.rec); err != nil {
			return errors.Wrapf(err, `trace: dispatch %v`, &s.rec)
		}
	}
	if err := s.dec.Err(); err != nil {
		return errors.Wrap(err, `trace: decode capture`)
	}

	stats := s.Stats()
	s.log.Info().
		Int(`records`, stats.Capture.Records).
		Uint64(`unknown`, stats.Dispatch.Unknown).
		Uint64(`invalid`, stats.Dispatch.Invalid).
		Msg(`capture processed`)
	return nil
}

// Stop makes Process return before the next record. It is safe to call from
// any goroutine, including from a subscriber.
func (s *Source) Stop() {
	s.stopped.Store(true)
}

// Allocated returns the sum of the sanitized allocation amounts seen so far.
func (s *Source) Allocated() int64 {
	return s.allocated
}

// Stats returns a snapshot of the counters of s.
func (s *Source) Stats() Stats {
	st := Stats{
		Capture:   s.dec.Stats(),
		Dispatch:  s.tbl.Stats(),
		Allocated: s.allocated,
	}
	if s.cache != nil {
		st.Schema = s.cache.Stats()
	}
	return st
}
