// Package clr decodes the events of the .NET runtime provider.
//
// Every kind is a value type embedding event.Base with one accessor per
// payload field. Accessors for fields a record's version predates return the
// zero value. A Parser registers the kinds with a dispatch.Table and offers
// typed subscriptions:
//
//	p := clr.NewParser(tbl)
//	p.OnGCStart(func(e clr.GCStart) error {
//		fmt.Println(e.Count(), e.Reason())
//		return nil
//	})
//
// The kinds that existed before the runtime provider was restructured are
// also registered under the classic GC task GUID.
package clr

import (
	"github.com/google/uuid"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	// Provider identifies the .NET runtime provider.
	Provider = uuid.MustParse(`e13c0d23-ccbc-4e12-931b-d9cc2eee27e4`)

	// ClassicGCProvider is the task GUID GC events were keyed by in the
	// classic, id-less era.
	ClassicGCProvider = uuid.MustParse(`044973cd-251f-4dff-a3e9-9d6307286b05`)
)

// ProviderName is the registered name of Provider.
const ProviderName = `Microsoft-Windows-DotNETRuntime`

// Opcodes shared by several kinds.
const (
	OpcodeInfo  uint8 = 0
	OpcodeStart uint8 = 1
	OpcodeStop  uint8 = 2
)

var (
	kinds   []*event.Descriptor
	aliases = make(map[*event.Descriptor][]*event.Descriptor)
)

func newKind(id uint16, opcode uint8, name, opName string, since event.Version, fields []string,
	project func(b event.Base) event.Payload) *event.Descriptor {
	d := &event.Descriptor{
		Provider:     Provider,
		ID:           id,
		Opcode:       opcode,
		ProviderName: ProviderName,
		Name:         name,
		OpcodeName:   opName,
		Since:        since,
		Fields:       fields,
		Layout: event.LayoutFunc(func(d *event.Descriptor, rec *event.Record) event.Payload {
			return project(event.NewBase(d, rec))
		}),
	}
	kinds = append(kinds, d)
	return d
}

func classic(d *event.Descriptor, opcode uint8) {
	a := d.Alias(ClassicGCProvider, 0, opcode)
	aliases[d] = append(aliases[d], a)
	kinds = append(kinds, a)
}

// Descriptors returns the descriptors of every kind in this package, classic
// aliases included.
func Descriptors() []*event.Descriptor {
	return append([]*event.Descriptor(nil), kinds...)
}

// Parser offers typed subscriptions to the kinds of this package.
type Parser struct {
	tbl *dispatch.Table
}

// NewParser registers every kind of this package with tbl so that records of
// them are decoded even without a typed subscriber.
func NewParser(tbl *dispatch.Table) *Parser {
	for _, d := range kinds {
		tbl.Register(d, nil)
	}
	return &Parser{tbl: tbl}
}

func on[T event.Payload](p *Parser, d *event.Descriptor, fn func(T) error) dispatch.Subscription {
	v := event.VisitorFunc(func(pl event.Payload) error {
		return fn(pl.(T))
	})
	for _, a := range aliases[d] {
		p.tbl.Register(a, v)
	}
	return p.tbl.Register(d, v)
}

// Table returns the table p registers with.
func (p *Parser) Table() *dispatch.Table {
	return p.tbl
}
