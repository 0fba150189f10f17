package clr

import (
	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	gcStart = newKind(1, OpcodeStart, `GC`, `Start`, 0,
		[]string{`Count`, `Depth`, `Reason`, `Type`, `ClrInstanceID`, `ClientSequenceNumber`},
		func(b event.Base) event.Payload { return GCStart{b} })
	gcEnd = newKind(2, OpcodeStop, `GC`, `Stop`, 0,
		[]string{`Count`, `Depth`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return GCEnd{b} })
	gcRestartEEEnd = newKind(3, 132, `GC`, `RestartEEStop`, 0,
		[]string{`ClrInstanceID`},
		func(b event.Base) event.Payload { return GCNoUserData{b} })
	gcHeapStats = newKind(4, 133, `GC`, `HeapStats`, 0,
		[]string{
			`GenerationSize0`, `TotalPromotedSize0`,
			`GenerationSize1`, `TotalPromotedSize1`,
			`GenerationSize2`, `TotalPromotedSize2`,
			`GenerationSize3`, `TotalPromotedSize3`,
			`FinalizationPromotedSize`, `FinalizationPromotedCount`,
			`PinnedObjectCount`, `SinkBlockCount`, `GCHandleCount`,
			`ClrInstanceID`, `GenerationSize4`, `TotalPromotedSize4`,
		},
		func(b event.Base) event.Payload { return GCHeapStats{b} })
	gcCreateSegment = newKind(5, 134, `GC`, `CreateSegment`, 0,
		[]string{`Address`, `Size`, `Type`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return GCCreateSegment{b} })
	gcFreeSegment = newKind(6, 135, `GC`, `FreeSegment`, 0,
		[]string{`Address`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return GCFreeSegment{b} })
	gcRestartEEBegin = newKind(7, 136, `GC`, `RestartEEStart`, 0,
		[]string{`ClrInstanceID`},
		func(b event.Base) event.Payload { return GCNoUserData{b} })
	gcSuspendEEEnd = newKind(8, 137, `GC`, `SuspendEEStop`, 0,
		[]string{`ClrInstanceID`},
		func(b event.Base) event.Payload { return GCNoUserData{b} })
	gcSuspendEEBegin = newKind(9, 10, `GC`, `SuspendEEStart`, 0,
		[]string{`Reason`, `Count`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return GCSuspendEEBegin{b} })
	gcAllocationTick = newKind(10, 11, `GC`, `AllocationTick`, 0,
		[]string{
			`AllocationAmount`, `AllocationKind`, `ClrInstanceID`,
			`AllocationAmount64`, `TypeID`, `TypeName`, `HeapIndex`,
			`Address`, `ObjectSize`,
		},
		func(b event.Base) event.Payload { return GCAllocationTick{b} })
	gcFinalizersEnd = newKind(13, 15, `GC`, `FinalizersStop`, 0,
		[]string{`Count`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return GCFinalizersEnd{b} })
	gcFinalizersBegin = newKind(14, 19, `GC`, `FinalizersStart`, 0,
		[]string{`ClrInstanceID`},
		func(b event.Base) event.Payload { return GCNoUserData{b} })
	gcTriggered = newKind(35, 35, `GC`, `Triggered`, 0,
		[]string{`Reason`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return GCTriggered{b} })
	setGCHandle = newKind(30, 33, `GC`, `SetGCHandle`, 0,
		[]string{`HandleID`, `ObjectID`, `Kind`, `Generation`, `AppDomainID`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return SetGCHandle{b} })
)

func init() {
	classic(gcStart, OpcodeStart)
	classic(gcEnd, OpcodeStop)
	classic(gcHeapStats, 133)
	classic(gcAllocationTick, 11)
}

// OnGCStart subscribes fn to GC/Start.
func (p *Parser) OnGCStart(fn func(GCStart) error) dispatch.Subscription {
	return on(p, gcStart, fn)
}

// OnGCEnd subscribes fn to GC/Stop.
func (p *Parser) OnGCEnd(fn func(GCEnd) error) dispatch.Subscription {
	return on(p, gcEnd, fn)
}

// OnGCRestartEEEnd subscribes fn to GC/RestartEEStop.
func (p *Parser) OnGCRestartEEEnd(fn func(GCNoUserData) error) dispatch.Subscription {
	return on(p, gcRestartEEEnd, fn)
}

// OnGCHeapStats subscribes fn to GC/HeapStats.
func (p *Parser) OnGCHeapStats(fn func(GCHeapStats) error) dispatch.Subscription {
	return on(p, gcHeapStats, fn)
}

// OnGCCreateSegment subscribes fn to GC/CreateSegment.
func (p *Parser) OnGCCreateSegment(fn func(GCCreateSegment) error) dispatch.Subscription {
	return on(p, gcCreateSegment, fn)
}

// OnGCFreeSegment subscribes fn to GC/FreeSegment.
func (p *Parser) OnGCFreeSegment(fn func(GCFreeSegment) error) dispatch.Subscription {
	return on(p, gcFreeSegment, fn)
}

// OnGCRestartEEBegin subscribes fn to GC/RestartEEStart.
func (p *Parser) OnGCRestartEEBegin(fn func(GCNoUserData) error) dispatch.Subscription {
	return on(p, gcRestartEEBegin, fn)
}

// OnGCSuspendEEEnd subscribes fn to GC/SuspendEEStop.
func (p *Parser) OnGCSuspendEEEnd(fn func(GCNoUserData) error) dispatch.Subscription {
	return on(p, gcSuspendEEEnd, fn)
}

// OnGCSuspendEEBegin subscribes fn to GC/SuspendEEStart.
func (p *Parser) OnGCSuspendEEBegin(fn func(GCSuspendEEBegin) error) dispatch.Subscription {
	return on(p, gcSuspendEEBegin, fn)
}

// OnGCAllocationTick subscribes fn to GC/AllocationTick.
func (p *Parser) OnGCAllocationTick(fn func(GCAllocationTick) error) dispatch.Subscription {
	return on(p, gcAllocationTick, fn)
}

// OnGCFinalizersEnd subscribes fn to GC/FinalizersStop.
func (p *Parser) OnGCFinalizersEnd(fn func(GCFinalizersEnd) error) dispatch.Subscription {
	return on(p, gcFinalizersEnd, fn)
}

// OnGCFinalizersBegin subscribes fn to GC/FinalizersStart.
func (p *Parser) OnGCFinalizersBegin(fn func(GCNoUserData) error) dispatch.Subscription {
	return on(p, gcFinalizersBegin, fn)
}

// OnGCTriggered subscribes fn to GC/Triggered.
func (p *Parser) OnGCTriggered(fn func(GCTriggered) error) dispatch.Subscription {
	return on(p, gcTriggered, fn)
}

// OnSetGCHandle subscribes fn to GC/SetGCHandle.
func (p *Parser) OnSetGCHandle(fn func(SetGCHandle) error) dispatch.Subscription {
	return on(p, setGCHandle, fn)
}

// GCStart marks the beginning of a collection.
//
// Version 0 producers wrote either 8 bytes (Count, Reason) or 16 bytes
// (Count, Depth, Reason, Type), so the placement of Reason depends on the
// payload length. Version 1 appends ClrInstanceID at 16 and version 2
// ClientSequenceNumber at 18.
type GCStart struct {
	event.Base
}

func (e GCStart) long() bool {
	return e.Len() >= 16
}

// Count is the number of collections so far.
func (e GCStart) Count() int32 {
	return e.Int32At(0)
}

// Depth is the generation being collected, zero in short payloads.
func (e GCStart) Depth() int32 {
	if e.long() {
		return e.Int32At(4)
	}
	return 0
}

// Reason is why the collection was triggered.
func (e GCStart) Reason() GCReason {
	if e.long() {
		return GCReason(e.Int32At(8))
	}
	return GCReason(e.Int32At(4))
}

// Type is the concurrency mode of the collection, zero in short payloads.
func (e GCStart) Type() GCType {
	if e.long() {
		return GCType(e.Int32At(12))
	}
	return 0
}

// ClrInstanceID identifies the runtime instance.
func (e GCStart) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(16)
	}
	return 0
}

// ClientSequenceNumber correlates the collection with a GC.Collect call.
func (e GCStart) ClientSequenceNumber() int64 {
	if e.Version >= event.Version2 {
		return e.Int64At(18)
	}
	return 0
}

// Size returns the payload size implied by the version and length.
func (e GCStart) Size() int {
	switch {
	case e.Version >= event.Version2:
		return 26
	case e.Version >= event.Version1:
		return 18
	case e.long():
		return 16
	}
	return 8
}

// Value implements event.Payload.
func (e GCStart) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Count()
	case 1:
		return e.Depth()
	case 2:
		return e.Reason()
	case 3:
		return e.Type()
	case 4:
		return e.ClrInstanceID()
	case 5:
		return e.ClientSequenceNumber()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCStart) Validate() error {
	return event.CheckLength(e, event.Version2, e.Size())
}

// GCEnd marks the end of a collection. Depth widened from 16 to 32 bits in
// version 1.
type GCEnd struct {
	event.Base
}

// Count is the number of collections so far.
func (e GCEnd) Count() int32 {
	return e.Int32At(0)
}

// Depth is the generation that was collected.
func (e GCEnd) Depth() int32 {
	if e.Version >= event.Version1 {
		return e.Int32At(4)
	}
	return int32(e.Int16At(4))
}

// ClrInstanceID identifies the runtime instance.
func (e GCEnd) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(8)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCEnd) Size() int {
	if e.Version >= event.Version1 {
		return 10
	}
	return 6
}

// Value implements event.Payload.
func (e GCEnd) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Count()
	case 1:
		return e.Depth()
	case 2:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCEnd) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// GCNoUserData is the payload of the kinds that carried nothing before
// version 1 added ClrInstanceID.
type GCNoUserData struct {
	event.Base
}

// ClrInstanceID identifies the runtime instance.
func (e GCNoUserData) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(0)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCNoUserData) Size() int {
	if e.Version >= event.Version1 {
		return 2
	}
	return 0
}

// Value implements event.Payload.
func (e GCNoUserData) Value(i int) interface{} {
	if i == 0 {
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCNoUserData) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// GCHeapStats reports generation sizes after a collection. The 64-bit
// counters are laid out back to back starting at 0, version 1 appends
// ClrInstanceID at 92 and version 2 the fourth generation at 94.
type GCHeapStats struct {
	event.Base
}

// GenerationSize returns the size of generation gen, 0 to 4.
func (e GCHeapStats) GenerationSize(gen int) uint64 {
	if gen == 4 {
		if e.Version >= event.Version2 {
			return e.Uint64At(94)
		}
		return 0
	}
	return e.Uint64At(gen * 16)
}

// TotalPromotedSize returns the bytes promoted out of generation gen, 0 to 4.
func (e GCHeapStats) TotalPromotedSize(gen int) uint64 {
	if gen == 4 {
		if e.Version >= event.Version2 {
			return e.Uint64At(102)
		}
		return 0
	}
	return e.Uint64At(gen*16 + 8)
}

// FinalizationPromotedSize is the bytes promoted for finalization.
func (e GCHeapStats) FinalizationPromotedSize() uint64 {
	return e.Uint64At(64)
}

// FinalizationPromotedCount is the objects promoted for finalization.
func (e GCHeapStats) FinalizationPromotedCount() uint64 {
	return e.Uint64At(72)
}

// PinnedObjectCount is the number of pinned objects found.
func (e GCHeapStats) PinnedObjectCount() uint32 {
	return e.Uint32At(80)
}

// SinkBlockCount is the number of synchronization blocks in use.
func (e GCHeapStats) SinkBlockCount() uint32 {
	return e.Uint32At(84)
}

// GCHandleCount is the number of handles in use.
func (e GCHeapStats) GCHandleCount() uint32 {
	return e.Uint32At(88)
}

// ClrInstanceID identifies the runtime instance.
func (e GCHeapStats) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(92)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCHeapStats) Size() int {
	switch {
	case e.Version >= event.Version2:
		return 110
	case e.Version >= event.Version1:
		return 94
	}
	return 92
}

// Value implements event.Payload.
func (e GCHeapStats) Value(i int) interface{} {
	switch {
	case i >= 0 && i < 8:
		if i%2 == 0 {
			return e.GenerationSize(i / 2)
		}
		return e.TotalPromotedSize(i / 2)
	case i == 8:
		return e.FinalizationPromotedSize()
	case i == 9:
		return e.FinalizationPromotedCount()
	case i == 10:
		return e.PinnedObjectCount()
	case i == 11:
		return e.SinkBlockCount()
	case i == 12:
		return e.GCHandleCount()
	case i == 13:
		return e.ClrInstanceID()
	case i == 14:
		return e.GenerationSize(4)
	case i == 15:
		return e.TotalPromotedSize(4)
	}
	return nil
}

// Validate implements event.Payload.
func (e GCHeapStats) Validate() error {
	return event.CheckLength(e, event.Version2, e.Size())
}

// GCCreateSegment reports a new heap segment.
type GCCreateSegment struct {
	event.Base
}

// Address is the start of the segment.
func (e GCCreateSegment) Address() uint64 {
	return e.Uint64At(0)
}

// SegmentSize is the size of the segment in bytes.
func (e GCCreateSegment) SegmentSize() uint64 {
	return e.Uint64At(8)
}

// Type is the heap the segment belongs to.
func (e GCCreateSegment) Type() GCSegmentType {
	return GCSegmentType(e.Int32At(16))
}

// ClrInstanceID identifies the runtime instance.
func (e GCCreateSegment) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(20)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCCreateSegment) Size() int {
	if e.Version >= event.Version1 {
		return 22
	}
	return 20
}

// Value implements event.Payload.
func (e GCCreateSegment) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Address()
	case 1:
		return e.SegmentSize()
	case 2:
		return e.Type()
	case 3:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCCreateSegment) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// GCFreeSegment reports a released heap segment.
type GCFreeSegment struct {
	event.Base
}

// Address is the start of the segment.
func (e GCFreeSegment) Address() uint64 {
	return e.Uint64At(0)
}

// ClrInstanceID identifies the runtime instance.
func (e GCFreeSegment) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(8)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCFreeSegment) Size() int {
	if e.Version >= event.Version1 {
		return 10
	}
	return 8
}

// Value implements event.Payload.
func (e GCFreeSegment) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Address()
	case 1:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCFreeSegment) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// GCSuspendEEBegin marks the start of a runtime suspension. Version 0 wrote
// a 16-bit Reason and nothing else, version 1 widened it to 32 bits and
// appended Count and ClrInstanceID.
type GCSuspendEEBegin struct {
	event.Base
}

// Reason is why the runtime is being suspended.
func (e GCSuspendEEBegin) Reason() GCSuspendEEReason {
	if e.Version >= event.Version1 {
		return GCSuspendEEReason(e.Int32At(0))
	}
	return GCSuspendEEReason(e.Int16At(0))
}

// Count is the GC count at the time of the suspension.
func (e GCSuspendEEBegin) Count() uint32 {
	if e.Version >= event.Version1 {
		return e.Uint32At(4)
	}
	return 0
}

// ClrInstanceID identifies the runtime instance.
func (e GCSuspendEEBegin) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(8)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCSuspendEEBegin) Size() int {
	if e.Version >= event.Version1 {
		return 10
	}
	return 2
}

// Value implements event.Payload.
func (e GCSuspendEEBegin) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Reason()
	case 1:
		return e.Count()
	case 2:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCSuspendEEBegin) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// GCAllocationTick is sampled roughly every 100KB of allocation.
//
//	v0  AllocationAmount int32 @0, AllocationKind int32 @4
//	v1  ClrInstanceID uint16 @8
//	v2  AllocationAmount64 int64 @10, TypeID pointer @18,
//	    TypeName string @18+ptr, HeapIndex uint32 after TypeName
//	v3  Address pointer after HeapIndex
//	v4  ObjectSize int64 after Address
type GCAllocationTick struct {
	event.Base
}

func (e GCAllocationTick) typeNameOffset() int {
	return e.HostOffset(18, 1)
}

func (e GCAllocationTick) heapIndexOffset() int {
	return e.SkipUTF16(e.typeNameOffset())
}

func (e GCAllocationTick) addressOffset() int {
	return e.heapIndexOffset() + 4
}

func (e GCAllocationTick) objectSizeOffset() int {
	return e.HostOffset(e.addressOffset(), 1)
}

// AllocationAmount is the 32-bit amount allocated since the previous tick.
func (e GCAllocationTick) AllocationAmount() int32 {
	return e.Int32At(0)
}

// AllocationKind is the heap the allocation was made on.
func (e GCAllocationTick) AllocationKind() GCAllocationKind {
	return GCAllocationKind(e.Int32At(4))
}

// ClrInstanceID identifies the runtime instance.
func (e GCAllocationTick) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(8)
	}
	return 0
}

// AllocationAmount64 is the 64-bit amount allocated since the previous tick.
func (e GCAllocationTick) AllocationAmount64() int64 {
	if e.Version >= event.Version2 {
		return e.Int64At(10)
	}
	return 0
}

// TypeID is the method table of the sampled object.
func (e GCAllocationTick) TypeID() event.Address {
	if e.Version >= event.Version2 {
		return e.PointerAt(18)
	}
	return 0
}

// TypeName is the type of the sampled object.
func (e GCAllocationTick) TypeName() string {
	if e.Version >= event.Version2 {
		s, _ := e.UTF16At(e.typeNameOffset())
		return s
	}
	return ``
}

// HeapIndex is the heap the sample was taken on.
func (e GCAllocationTick) HeapIndex() uint32 {
	if e.Version >= event.Version2 {
		return e.Uint32At(e.heapIndexOffset())
	}
	return 0
}

// Address is the address of the sampled object.
func (e GCAllocationTick) Address() event.Address {
	if e.Version >= event.Version3 {
		return e.PointerAt(e.addressOffset())
	}
	return 0
}

// ObjectSize is the size of the sampled object.
func (e GCAllocationTick) ObjectSize() int64 {
	if e.Version >= event.Version4 {
		return e.Int64At(e.objectSizeOffset())
	}
	return 0
}

// Amount returns the allocation amount with the widest precision the version
// carries. The value is raw, see AllocationSanitizer.
func (e GCAllocationTick) Amount() int64 {
	if e.Version >= event.Version2 {
		return e.AllocationAmount64()
	}
	return int64(e.AllocationAmount())
}

// Size returns the payload size implied by the version and strings.
func (e GCAllocationTick) Size() int {
	switch {
	case e.Version >= event.Version4:
		return e.objectSizeOffset() + 8
	case e.Version >= event.Version3:
		return e.objectSizeOffset()
	case e.Version >= event.Version2:
		return e.addressOffset()
	case e.Version >= event.Version1:
		return 10
	}
	return 8
}

// Value implements event.Payload.
func (e GCAllocationTick) Value(i int) interface{} {
	switch i {
	case 0:
		return e.AllocationAmount()
	case 1:
		return e.AllocationKind()
	case 2:
		return e.ClrInstanceID()
	case 3:
		return e.AllocationAmount64()
	case 4:
		return e.TypeID()
	case 5:
		return e.TypeName()
	case 6:
		return e.HeapIndex()
	case 7:
		return e.Address()
	case 8:
		return e.ObjectSize()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCAllocationTick) Validate() error {
	return event.CheckLength(e, event.Version4, e.Size())
}

// GCFinalizersEnd reports how many finalizers ran.
type GCFinalizersEnd struct {
	event.Base
}

// Count is the number of finalizers run.
func (e GCFinalizersEnd) Count() uint32 {
	return e.Uint32At(0)
}

// ClrInstanceID identifies the runtime instance.
func (e GCFinalizersEnd) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(4)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e GCFinalizersEnd) Size() int {
	if e.Version >= event.Version1 {
		return 6
	}
	return 4
}

// Value implements event.Payload.
func (e GCFinalizersEnd) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Count()
	case 1:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCFinalizersEnd) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// GCTriggered reports why a collection was requested.
type GCTriggered struct {
	event.Base
}

// Reason is why the collection was requested.
func (e GCTriggered) Reason() GCReason {
	return GCReason(e.Int32At(0))
}

// ClrInstanceID identifies the runtime instance.
func (e GCTriggered) ClrInstanceID() uint16 {
	return e.Uint16At(4)
}

// Size returns the payload size.
func (e GCTriggered) Size() int {
	return 6
}

// Value implements event.Payload.
func (e GCTriggered) Value(i int) interface{} {
	switch i {
	case 0:
		return e.Reason()
	case 1:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e GCTriggered) Validate() error {
	return event.CheckLength(e, event.Version0, e.Size())
}

// SetGCHandle reports the creation of a GC handle. Every field after the
// two leading pointers moves with the producer pointer width.
type SetGCHandle struct {
	event.Base
}

// HandleID is the address of the handle.
func (e SetGCHandle) HandleID() event.Address {
	return e.PointerAt(0)
}

// ObjectID is the object the handle refers to.
func (e SetGCHandle) ObjectID() event.Address {
	return e.PointerAt(e.HostOffset(0, 1))
}

// Kind is the strength of the handle.
func (e SetGCHandle) Kind() GCHandleKind {
	return GCHandleKind(e.Uint32At(e.HostOffset(0, 2)))
}

// Generation is the generation of the object.
func (e SetGCHandle) Generation() uint32 {
	return e.Uint32At(e.HostOffset(4, 2))
}

// AppDomainID is the app domain owning the handle.
func (e SetGCHandle) AppDomainID() uint64 {
	return e.Uint64At(e.HostOffset(8, 2))
}

// ClrInstanceID identifies the runtime instance.
func (e SetGCHandle) ClrInstanceID() uint16 {
	return e.Uint16At(e.HostOffset(16, 2))
}

// Size returns the payload size implied by the pointer width.
func (e SetGCHandle) Size() int {
	return e.HostOffset(18, 2)
}

// Value implements event.Payload.
func (e SetGCHandle) Value(i int) interface{} {
	switch i {
	case 0:
		return e.HandleID()
	case 1:
		return e.ObjectID()
	case 2:
		return e.Kind()
	case 3:
		return e.Generation()
	case 4:
		return e.AppDomainID()
	case 5:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e SetGCHandle) Validate() error {
	return event.CheckLength(e, event.Version0, e.Size())
}
