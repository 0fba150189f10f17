// Package kernel decodes classic kernel events. Classic events carry no
// event id, their kind is the task GUID plus the opcode, and one layout
// usually serves several opcodes: a Process layout describes process start,
// end and the rundown of processes alive when a session started or stopped.
package kernel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	// ProcessTask is the task GUID of process events.
	ProcessTask = uuid.MustParse(`3d6fa8d0-fe05-11d0-9dda-00c04fd7ba7c`)

	// ImageTask is the task GUID of image load events.
	ImageTask = uuid.MustParse(`2cb15d1d-5fc1-11d2-abe1-00a0c911f518`)

	// PageFaultTask is the task GUID of page fault and memory events.
	PageFaultTask = uuid.MustParse(`3d6fa8d3-fe05-11d0-9dda-00c04fd7ba7c`)
)

// ProviderName is the name classic kernel events are rendered with.
const ProviderName = `Windows Kernel`

// Opcodes of the rundown style kinds.
const (
	OpcodeStart   uint8 = 1
	OpcodeEnd     uint8 = 2
	OpcodeDCStart uint8 = 3
	OpcodeDCEnd   uint8 = 4
	OpcodeLoad    uint8 = 10

	OpcodeMemoryPageAccess uint8 = 117
)

var (
	kinds []*event.Descriptor
	group = make(map[*event.Descriptor][]*event.Descriptor)
)

// newKind registers a layout under task and every given opcode. The first
// opcode names the primary descriptor.
func newKind(task uuid.UUID, name string, opcodes []uint8, opNames []string,
	fields []string, project func(b event.Base) event.Payload) *event.Descriptor {
	d := &event.Descriptor{
		Provider:     task,
		Opcode:       opcodes[0],
		ProviderName: ProviderName,
		Name:         name,
		OpcodeName:   opNames[0],
		Fields:       fields,
		Layout: event.LayoutFunc(func(d *event.Descriptor, rec *event.Record) event.Payload {
			return project(event.NewBase(d, rec))
		}),
	}
	kinds = append(kinds, d)
	for i := 1; i < len(opcodes); i++ {
		a := d.Alias(task, 0, opcodes[i])
		a.OpcodeName = opNames[i]
		group[d] = append(group[d], a)
		kinds = append(kinds, a)
	}
	return d
}

// Descriptors returns the descriptors of every kind and opcode in this
// package.
func Descriptors() []*event.Descriptor {
	return append([]*event.Descriptor(nil), kinds...)
}

// Parser offers typed subscriptions to the kinds of this package.
type Parser struct {
	tbl *dispatch.Table
}

// NewParser registers every kind of this package with tbl.
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
	for _, a := range group[d] {
		p.tbl.Register(a, v)
	}
	return p.tbl.Register(d, v)
}

// OnProcess subscribes fn to process start, end and rundown.
func (p *Parser) OnProcess(fn func(Process) error) dispatch.Subscription {
	return on(p, process, fn)
}

// OnImageLoad subscribes fn to image load, unload and rundown.
func (p *Parser) OnImageLoad(fn func(ImageLoad) error) dispatch.Subscription {
	return on(p, imageLoad, fn)
}

// OnMemoryPageAccess subscribes fn to page access samples.
func (p *Parser) OnMemoryPageAccess(fn func(MemoryPageAccess) error) dispatch.Subscription {
	return on(p, memoryPageAccess, fn)
}

// skipSID returns the offset past the security token at off. A token is
// either a null 4 byte value, or a TOKEN_USER of two pointers followed by a
// SID of 8 bytes plus 4 per sub authority.
func skipSID(rec *event.Record, off int) int {
	if !rec.Has(off, 4) || rec.Uint32At(off) == 0 {
		return off + 4
	}
	sid := rec.HostOffset(off, 2)
	if !rec.Has(sid+1, 1) {
		return sid + 8
	}
	return sid + 8 + 4*int(rec.Uint8At(sid+1))
}

// sidAt renders the SID of the security token at off in S-R-A-S... form,
// or returns an empty string for a null token.
func sidAt(rec *event.Record, off int) string {
	if rec.Uint32At(off) == 0 {
		return ``
	}
	sid := rec.HostOffset(off, 2)
	n := int(rec.Uint8At(sid + 1))

	var auth uint64
	for _, b := range rec.BytesAt(sid+2, 6) {
		auth = auth<<8 | uint64(b)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `S-%d-%d`, rec.Uint8At(sid), auth)
	for i := 0; i < n; i++ {
		sb.WriteByte('-')
		sb.WriteString(strconv.FormatUint(uint64(rec.Uint32At(sid+8+4*i)), 10))
	}
	return sb.String()
}
