package clr

import (
	"github.com/google/uuid"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	threadPoolAdjustment = newKind(55, 52, `ThreadPoolWorkerThreadAdjustment`, `Adjustment`, 0,
		[]string{`AverageThroughput`, `NewWorkerThreadCount`, `Reason`, `ClrInstanceID`},
		func(b event.Base) event.Payload { return ThreadPoolWorkerThreadAdjustment{b} })
	exceptionThrown = newKind(80, OpcodeStart, `Exception`, `Start`, 0,
		[]string{
			`ExceptionType`, `ExceptionMessage`, `ExceptionEIP`,
			`ExceptionHRESULT`, `ExceptionFlags`, `ClrInstanceID`,
		},
		func(b event.Base) event.Payload { return ExceptionThrown{b} })
	contentionStart = newKind(81, OpcodeStart, `Contention`, `Start`, 0,
		[]string{`ContentionFlags`, `ClrInstanceID`, `LockID`, `AssociatedObjectID`, `LockOwnerThreadID`},
		func(b event.Base) event.Payload { return ContentionStart{b} })
	contentionStop = newKind(91, OpcodeStop, `Contention`, `Stop`, 0,
		[]string{`ContentionFlags`, `ClrInstanceID`, `DurationNs`},
		func(b event.Base) event.Payload { return ContentionStop{b} })
	runtimeInformation = newKind(187, OpcodeStart, `RuntimeInformation`, `Start`, 0,
		[]string{
			`ClrInstanceID`, `Sku`,
			`BclMajorVersion`, `BclMinorVersion`, `BclBuildNumber`, `BclQfeNumber`,
			`VMMajorVersion`, `VMMinorVersion`, `VMBuildNumber`, `VMQfeNumber`,
			`StartupFlags`, `StartupMode`, `CommandLine`, `ComObjectGuid`, `RuntimeDllPath`,
		},
		func(b event.Base) event.Payload { return RuntimeInformation{b} })
)

// OnThreadPoolWorkerThreadAdjustment subscribes fn to
// ThreadPoolWorkerThreadAdjustment/Adjustment.
func (p *Parser) OnThreadPoolWorkerThreadAdjustment(fn func(ThreadPoolWorkerThreadAdjustment) error) dispatch.Subscription {
	return on(p, threadPoolAdjustment, fn)
}

// OnExceptionThrown subscribes fn to Exception/Start.
func (p *Parser) OnExceptionThrown(fn func(ExceptionThrown) error) dispatch.Subscription {
	return on(p, exceptionThrown, fn)
}

// OnContentionStart subscribes fn to Contention/Start.
func (p *Parser) OnContentionStart(fn func(ContentionStart) error) dispatch.Subscription {
	return on(p, contentionStart, fn)
}

// OnContentionStop subscribes fn to Contention/Stop.
func (p *Parser) OnContentionStop(fn func(ContentionStop) error) dispatch.Subscription {
	return on(p, contentionStop, fn)
}

// OnRuntimeInformation subscribes fn to RuntimeInformation/Start.
func (p *Parser) OnRuntimeInformation(fn func(RuntimeInformation) error) dispatch.Subscription {
	return on(p, runtimeInformation, fn)
}

// ThreadPoolWorkerThreadAdjustment reports a hill climbing decision.
type ThreadPoolWorkerThreadAdjustment struct {
	event.Base
}

// AverageThroughput is the measured completions per second.
func (e ThreadPoolWorkerThreadAdjustment) AverageThroughput() float64 {
	return e.Float64At(0)
}

// NewWorkerThreadCount is the worker count after the adjustment.
func (e ThreadPoolWorkerThreadAdjustment) NewWorkerThreadCount() uint32 {
	return e.Uint32At(8)
}

// Reason is why the adjustment was made.
func (e ThreadPoolWorkerThreadAdjustment) Reason() ThreadAdjustmentReason {
	return ThreadAdjustmentReason(e.Uint32At(12))
}

// ClrInstanceID identifies the runtime instance.
func (e ThreadPoolWorkerThreadAdjustment) ClrInstanceID() uint16 {
	return e.Uint16At(16)
}

// Size returns the payload size.
func (e ThreadPoolWorkerThreadAdjustment) Size() int {
	return 18
}

// Value implements event.Payload.
func (e ThreadPoolWorkerThreadAdjustment) Value(i int) interface{} {
	switch i {
	case 0:
		return e.AverageThroughput()
	case 1:
		return e.NewWorkerThreadCount()
	case 2:
		return e.Reason()
	case 3:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e ThreadPoolWorkerThreadAdjustment) Validate() error {
	return event.CheckLength(e, event.Version0, e.Size())
}

// ExceptionThrown reports a managed exception. Version 0 carried no payload,
// version 1 is two strings followed by a pointer sized fixed tail.
type ExceptionThrown struct {
	event.Base
}

// ExceptionType is the type name of the exception.
func (e ExceptionThrown) ExceptionType() string {
	if e.Version < event.Version1 {
		return ``
	}
	s, _ := e.UTF16At(0)
	return s
}

// ExceptionMessage is the message of the exception.
func (e ExceptionThrown) ExceptionMessage() string {
	if e.Version < event.Version1 {
		return ``
	}
	s, _ := e.UTF16At(e.SkipUTF16(0))
	return s
}

// ExceptionEIP is the instruction pointer of the throw.
func (e ExceptionThrown) ExceptionEIP() event.Address {
	if e.Version < event.Version1 {
		return 0
	}
	return e.PointerAt(e.EndOf(0, 2))
}

// ExceptionHRESULT is the HRESULT of the exception.
func (e ExceptionThrown) ExceptionHRESULT() uint32 {
	if e.Version < event.Version1 {
		return 0
	}
	return e.Uint32At(e.HostOffset(e.EndOf(0, 2), 1))
}

// ExceptionFlags describes the exception.
func (e ExceptionThrown) ExceptionFlags() uint16 {
	if e.Version < event.Version1 {
		return 0
	}
	return e.Uint16At(e.HostOffset(e.EndOf(0, 2), 1) + 4)
}

// ClrInstanceID identifies the runtime instance.
func (e ExceptionThrown) ClrInstanceID() uint16 {
	if e.Version < event.Version1 {
		return 0
	}
	return e.Uint16At(e.HostOffset(e.EndOf(0, 2), 1) + 6)
}

// Size returns the payload size implied by the version and strings.
func (e ExceptionThrown) Size() int {
	if e.Version < event.Version1 {
		return 0
	}
	return e.HostOffset(e.EndOf(0, 2), 1) + 8
}

// Value implements event.Payload.
func (e ExceptionThrown) Value(i int) interface{} {
	switch i {
	case 0:
		return e.ExceptionType()
	case 1:
		return e.ExceptionMessage()
	case 2:
		return e.ExceptionEIP()
	case 3:
		return e.ExceptionHRESULT()
	case 4:
		return e.ExceptionFlags()
	case 5:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e ExceptionThrown) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// ContentionStart marks a thread starting to wait on a lock. Version 2
// appends the lock identity, two pointers and the owning thread.
type ContentionStart struct {
	event.Base
}

// ContentionFlags tells managed from native contention.
func (e ContentionStart) ContentionFlags() ContentionFlags {
	return ContentionFlags(e.Uint8At(0))
}

// ClrInstanceID identifies the runtime instance.
func (e ContentionStart) ClrInstanceID() uint16 {
	return e.Uint16At(1)
}

// LockID is the address of the lock.
func (e ContentionStart) LockID() event.Address {
	if e.Version >= event.Version2 {
		return e.PointerAt(3)
	}
	return 0
}

// AssociatedObjectID is the object the lock belongs to.
func (e ContentionStart) AssociatedObjectID() event.Address {
	if e.Version >= event.Version2 {
		return e.PointerAt(e.HostOffset(3, 1))
	}
	return 0
}

// LockOwnerThreadID is the thread holding the lock.
func (e ContentionStart) LockOwnerThreadID() uint64 {
	if e.Version >= event.Version2 {
		return e.Uint64At(e.HostOffset(3, 2))
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e ContentionStart) Size() int {
	if e.Version >= event.Version2 {
		return e.HostOffset(11, 2)
	}
	return 3
}

// Value implements event.Payload.
func (e ContentionStart) Value(i int) interface{} {
	switch i {
	case 0:
		return e.ContentionFlags()
	case 1:
		return e.ClrInstanceID()
	case 2:
		return e.LockID()
	case 3:
		return e.AssociatedObjectID()
	case 4:
		return e.LockOwnerThreadID()
	}
	return nil
}

// Validate implements event.Payload.
func (e ContentionStart) Validate() error {
	return event.CheckLength(e, event.Version2, e.Size())
}

// ContentionStop marks the end of a lock wait. Version 1 appends the wait
// duration.
type ContentionStop struct {
	event.Base
}

// ContentionFlags tells managed from native contention.
func (e ContentionStop) ContentionFlags() ContentionFlags {
	return ContentionFlags(e.Uint8At(0))
}

// ClrInstanceID identifies the runtime instance.
func (e ContentionStop) ClrInstanceID() uint16 {
	return e.Uint16At(1)
}

// DurationNs is how long the thread waited in nanoseconds.
func (e ContentionStop) DurationNs() float64 {
	if e.Version >= event.Version1 {
		return e.Float64At(3)
	}
	return 0
}

// Size returns the payload size implied by the version.
func (e ContentionStop) Size() int {
	if e.Version >= event.Version1 {
		return 11
	}
	return 3
}

// Value implements event.Payload.
func (e ContentionStop) Value(i int) interface{} {
	switch i {
	case 0:
		return e.ContentionFlags()
	case 1:
		return e.ClrInstanceID()
	case 2:
		return e.DurationNs()
	}
	return nil
}

// Validate implements event.Payload.
func (e ContentionStop) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}

// RuntimeInformation describes the runtime a process started.
//
//	ClrInstanceID uint16 @0, Sku uint16 @2, eight uint16 version parts @4,
//	StartupFlags uint32 @20, StartupMode uint8 @24, CommandLine string @25,
//	ComObjectGuid GUID after CommandLine, RuntimeDllPath string after it.
type RuntimeInformation struct {
	event.Base
}

// ClrInstanceID identifies the runtime instance.
func (e RuntimeInformation) ClrInstanceID() uint16 {
	return e.Uint16At(0)
}

// Sku is the runtime flavor.
func (e RuntimeInformation) Sku() uint16 {
	return e.Uint16At(2)
}

// BclVersion returns the major, minor, build and QFE parts of the base class
// library version.
func (e RuntimeInformation) BclVersion() [4]uint16 {
	return [4]uint16{e.Uint16At(4), e.Uint16At(6), e.Uint16At(8), e.Uint16At(10)}
}

// VMVersion returns the major, minor, build and QFE parts of the runtime
// version.
func (e RuntimeInformation) VMVersion() [4]uint16 {
	return [4]uint16{e.Uint16At(12), e.Uint16At(14), e.Uint16At(16), e.Uint16At(18)}
}

// StartupFlags are the flags the runtime was started with.
func (e RuntimeInformation) StartupFlags() uint32 {
	return e.Uint32At(20)
}

// StartupMode is how the runtime was started.
func (e RuntimeInformation) StartupMode() uint8 {
	return e.Uint8At(24)
}

// CommandLine is the command line of the process.
func (e RuntimeInformation) CommandLine() string {
	s, _ := e.UTF16At(25)
	return s
}

// ComObjectGuid is the COM class the runtime was activated for.
func (e RuntimeInformation) ComObjectGuid() uuid.UUID {
	return e.GUIDAt(e.SkipUTF16(25))
}

// RuntimeDllPath is the path of the runtime library.
func (e RuntimeInformation) RuntimeDllPath() string {
	s, _ := e.UTF16At(e.SkipUTF16(25) + 16)
	return s
}

// Size returns the payload size implied by the strings.
func (e RuntimeInformation) Size() int {
	return e.SkipUTF16(e.SkipUTF16(25) + 16)
}

// Value implements event.Payload.
func (e RuntimeInformation) Value(i int) interface{} {
	switch {
	case i == 0:
		return e.ClrInstanceID()
	case i == 1:
		return e.Sku()
	case i >= 2 && i < 6:
		return e.BclVersion()[i-2]
	case i >= 6 && i < 10:
		return e.VMVersion()[i-6]
	case i == 10:
		return e.StartupFlags()
	case i == 11:
		return e.StartupMode()
	case i == 12:
		return e.CommandLine()
	case i == 13:
		return e.ComObjectGuid()
	case i == 14:
		return e.RuntimeDllPath()
	}
	return nil
}

// Validate implements event.Payload.
func (e RuntimeInformation) Validate() error {
	return event.CheckLength(e, event.Version0, e.Size())
}
