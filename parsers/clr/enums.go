package clr

import "fmt"

func enumString(kind string, names []string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf(`%v(%d)`, kind, v)
}

// GCReason is why a collection was started.
type GCReason int32

// GC reasons.
const (
	GCReasonAllocSmall GCReason = iota
	GCReasonInduced
	GCReasonLowMemory
	GCReasonEmpty
	GCReasonAllocLarge
	GCReasonOutOfSpaceSOH
	GCReasonOutOfSpaceLOH
	GCReasonInducedNotForced
	GCReasonInternal
	GCReasonInducedLowMemory
	GCReasonInducedCompacting
	GCReasonLowMemoryHost
	GCReasonPMFullGC
	GCReasonLowMemoryHostBlocking
)

var gcReasonNames = []string{
	`AllocSmall`, `Induced`, `LowMemory`, `Empty`, `AllocLarge`,
	`OutOfSpaceSOH`, `OutOfSpaceLOH`, `InducedNotForced`, `Internal`,
	`InducedLowMemory`, `InducedCompacting`, `LowMemoryHost`, `PMFullGC`,
	`LowMemoryHostBlocking`,
}

func (r GCReason) String() string {
	return enumString(`GCReason`, gcReasonNames, int(r))
}

// GCType is the concurrency mode of a collection.
type GCType int32

// GC types.
const (
	GCTypeNonConcurrent GCType = iota
	GCTypeBackground
	GCTypeForeground
)

var gcTypeNames = []string{`NonConcurrentGC`, `BackgroundGC`, `ForegroundGC`}

func (t GCType) String() string {
	return enumString(`GCType`, gcTypeNames, int(t))
}

// GCAllocationKind is the heap an allocation tick was sampled on.
type GCAllocationKind int32

// Allocation kinds.
const (
	GCAllocationSmall GCAllocationKind = iota
	GCAllocationLarge
	GCAllocationPinned
)

var gcAllocationKindNames = []string{`Small`, `Large`, `Pinned`}

func (k GCAllocationKind) String() string {
	return enumString(`GCAllocationKind`, gcAllocationKindNames, int(k))
}

// GCSegmentType is the heap a segment belongs to.
type GCSegmentType int32

// Segment types.
const (
	GCSegmentSmallObjectHeap GCSegmentType = iota
	GCSegmentLargeObjectHeap
	GCSegmentReadOnlyHeap
	GCSegmentPinnedObjectHeap
)

var gcSegmentTypeNames = []string{
	`SmallObjectHeap`, `LargeObjectHeap`, `ReadOnlyHeap`, `PinnedObjectHeap`,
}

func (t GCSegmentType) String() string {
	return enumString(`GCSegmentType`, gcSegmentTypeNames, int(t))
}

// GCSuspendEEReason is why the runtime suspended managed threads.
type GCSuspendEEReason int32

// Suspension reasons.
const (
	SuspendOther GCSuspendEEReason = iota
	SuspendForGC
	SuspendForAppDomainShutdown
	SuspendForCodePitching
	SuspendForShutdown
	SuspendForDebugger
	SuspendForGCPrep
	SuspendForDebuggerSweep
)

var gcSuspendEEReasonNames = []string{
	`SuspendOther`, `SuspendForGC`, `SuspendForAppDomainShutdown`,
	`SuspendForCodePitching`, `SuspendForShutdown`, `SuspendForDebugger`,
	`SuspendForGCPrep`, `SuspendForDebuggerSweep`,
}

func (r GCSuspendEEReason) String() string {
	return enumString(`GCSuspendEEReason`, gcSuspendEEReasonNames, int(r))
}

// GCHandleKind is the strength of a GC handle.
type GCHandleKind uint32

// Handle kinds.
const (
	GCHandleWeakShort GCHandleKind = iota
	GCHandleWeakLong
	GCHandleStrong
	GCHandlePinned
	GCHandleVariable
	GCHandleRefCounted
	GCHandleDependent
	GCHandleAsyncPinned
	GCHandleSizedRef
)

var gcHandleKindNames = []string{
	`WeakShort`, `WeakLong`, `Strong`, `Pinned`, `Variable`, `RefCounted`,
	`Dependent`, `AsyncPinned`, `SizedRef`,
}

func (k GCHandleKind) String() string {
	return enumString(`GCHandleKind`, gcHandleKindNames, int(k))
}

// ThreadAdjustmentReason is why the thread pool changed its worker count.
type ThreadAdjustmentReason uint32

// Adjustment reasons.
const (
	AdjustmentWarmup ThreadAdjustmentReason = iota
	AdjustmentInitializing
	AdjustmentRandomMove
	AdjustmentClimbingMove
	AdjustmentChangePoint
	AdjustmentStabilizing
	AdjustmentStarvation
	AdjustmentThreadTimedOut
	AdjustmentCooperativeBlocking
)

var threadAdjustmentReasonNames = []string{
	`Warmup`, `Initializing`, `RandomMove`, `ClimbingMove`, `ChangePoint`,
	`Stabilizing`, `Starvation`, `ThreadTimedOut`, `CooperativeBlocking`,
}

func (r ThreadAdjustmentReason) String() string {
	return enumString(`ThreadAdjustmentReason`, threadAdjustmentReasonNames, int(r))
}

// ContentionFlags tells managed from native lock contention.
type ContentionFlags uint8

// Contention flags.
const (
	ContentionManaged ContentionFlags = iota
	ContentionNative
)

func (f ContentionFlags) String() string {
	return enumString(`ContentionFlags`, []string{`Managed`, `Native`}, int(f))
}

// OptimizationTier is the code quality a method was compiled at. It is packed
// into bits 7 to 9 of the method flags.
type OptimizationTier uint32

// Optimization tiers.
const (
	TierUnknown OptimizationTier = iota
	TierMinOptJitted
	TierOptimized
	TierQuickJitted
	TierOptimizedTier1
	TierReadyToRun
	TierPreJIT
	TierQuickJittedInstrumented
)

var optimizationTierNames = []string{
	`Unknown`, `MinOptJitted`, `Optimized`, `QuickJitted`, `OptimizedTier1`,
	`ReadyToRun`, `PreJIT`, `QuickJittedInstrumented`,
}

func (t OptimizationTier) String() string {
	return enumString(`OptimizationTier`, optimizationTierNames, int(t))
}

// MethodFlags describes a loaded method.
type MethodFlags uint32

// Method flags, the optimization tier occupies the bits under tierMask.
const (
	MethodDynamic         MethodFlags = 0x1
	MethodGeneric         MethodFlags = 0x2
	MethodSharedGeneric   MethodFlags = 0x4
	MethodJitted          MethodFlags = 0x8
	MethodJitHelper       MethodFlags = 0x10
	MethodProfilerRejit   MethodFlags = 0x20
	MethodReadyToRunRejit MethodFlags = 0x40

	tierShift = 7
	tierMask  = 0x7
)

// Tier returns the optimization tier packed into f.
func (f MethodFlags) Tier() OptimizationTier {
	return OptimizationTier((uint32(f) >> tierShift) & tierMask)
}

// String implements fmt.Stringer.
func (f MethodFlags) String() string {
	return fmt.Sprintf(`0x%x`, uint32(f))
}
