package clr

import (
	"github.com/google/uuid"

	"github.com/microsoftarchive/semantic-logging-sub002/dispatch"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	methodLoadVerbose = newKind(143, 37, `Method`, `LoadVerbose`, 0,
		[]string{
			`MethodID`, `ModuleID`, `MethodStartAddress`, `MethodSize`,
			`MethodToken`, `MethodFlags`, `OptimizationTier`, `MethodNamespace`,
			`MethodName`, `MethodSignature`, `ClrInstanceID`, `ReJITID`,
		},
		func(b event.Base) event.Payload { return MethodLoadVerbose{b} })
	methodILToNativeMap = newKind(190, 87, `Method`, `ILToNativeMap`, 0,
		[]string{
			`MethodID`, `ReJITID`, `MethodExtent`, `CountOfMapEntries`,
			`ILOffsets`, `NativeOffsets`, `ClrInstanceID`,
		},
		func(b event.Base) event.Payload { return MethodILToNativeMap{b} })
	moduleLoad = newKind(152, 33, `Loader`, `ModuleLoad`, 0,
		[]string{
			`ModuleID`, `AssemblyID`, `ModuleFlags`, `ModuleILPath`,
			`ModuleNativePath`, `ClrInstanceID`, `ManagedPdbSignature`,
			`ManagedPdbAge`, `ManagedPdbBuildPath`, `NativePdbSignature`,
			`NativePdbAge`, `NativePdbBuildPath`,
		},
		func(b event.Base) event.Payload { return ModuleLoad{b} })
	assemblyLoad = newKind(154, 37, `Loader`, `AssemblyLoad`, 0,
		[]string{
			`AssemblyID`, `AppDomainID`, `BindingID`, `AssemblyFlags`,
			`FullyQualifiedAssemblyName`, `ClrInstanceID`,
		},
		func(b event.Base) event.Payload { return AssemblyLoad{b} })
)

// OnMethodLoadVerbose subscribes fn to Method/LoadVerbose.
func (p *Parser) OnMethodLoadVerbose(fn func(MethodLoadVerbose) error) dispatch.Subscription {
	return on(p, methodLoadVerbose, fn)
}

// OnMethodILToNativeMap subscribes fn to Method/ILToNativeMap.
func (p *Parser) OnMethodILToNativeMap(fn func(MethodILToNativeMap) error) dispatch.Subscription {
	return on(p, methodILToNativeMap, fn)
}

// OnModuleLoad subscribes fn to Loader/ModuleLoad.
func (p *Parser) OnModuleLoad(fn func(ModuleLoad) error) dispatch.Subscription {
	return on(p, moduleLoad, fn)
}

// OnAssemblyLoad subscribes fn to Loader/AssemblyLoad.
func (p *Parser) OnAssemblyLoad(fn func(AssemblyLoad) error) dispatch.Subscription {
	return on(p, assemblyLoad, fn)
}

// MethodLoadVerbose reports a compiled method with its names.
//
//	MethodID uint64 @0, ModuleID uint64 @8, MethodStartAddress uint64 @16,
//	MethodSize uint32 @24, MethodToken uint32 @28, MethodFlags uint32 @32,
//	MethodNamespace, MethodName, MethodSignature strings from 36,
//	v1 ClrInstanceID uint16, v2 ReJITID uint64.
type MethodLoadVerbose struct {
	event.Base
}

// MethodID identifies the method.
func (e MethodLoadVerbose) MethodID() uint64 {
	return e.Uint64At(0)
}

// ModuleID identifies the module of the method.
func (e MethodLoadVerbose) ModuleID() uint64 {
	return e.Uint64At(8)
}

// MethodStartAddress is where the code of the method begins.
func (e MethodLoadVerbose) MethodStartAddress() uint64 {
	return e.Uint64At(16)
}

// MethodSize is the size of the code in bytes.
func (e MethodLoadVerbose) MethodSize() uint32 {
	return e.Uint32At(24)
}

// MethodToken is the metadata token of the method.
func (e MethodLoadVerbose) MethodToken() uint32 {
	return e.Uint32At(28)
}

// MethodFlags describes the method.
func (e MethodLoadVerbose) MethodFlags() MethodFlags {
	return MethodFlags(e.Uint32At(32))
}

// OptimizationTier is bits 7 to 9 of MethodFlags.
func (e MethodLoadVerbose) OptimizationTier() OptimizationTier {
	return e.MethodFlags().Tier()
}

// MethodNamespace is the declaring type of the method.
func (e MethodLoadVerbose) MethodNamespace() string {
	s, _ := e.UTF16At(36)
	return s
}

// MethodName is the name of the method.
func (e MethodLoadVerbose) MethodName() string {
	s, _ := e.UTF16At(e.EndOf(36, 1))
	return s
}

// MethodSignature is the signature of the method.
func (e MethodLoadVerbose) MethodSignature() string {
	s, _ := e.UTF16At(e.EndOf(36, 2))
	return s
}

// ClrInstanceID identifies the runtime instance.
func (e MethodLoadVerbose) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(e.EndOf(36, 3))
	}
	return 0
}

// ReJITID identifies the rejitted version of the method.
func (e MethodLoadVerbose) ReJITID() uint64 {
	if e.Version >= event.Version2 {
		return e.Uint64At(e.EndOf(36, 3) + 2)
	}
	return 0
}

// Size returns the payload size implied by the version and strings.
func (e MethodLoadVerbose) Size() int {
	n := e.EndOf(36, 3)
	switch {
	case e.Version >= event.Version2:
		return n + 10
	case e.Version >= event.Version1:
		return n + 2
	}
	return n
}

// Value implements event.Payload.
func (e MethodLoadVerbose) Value(i int) interface{} {
	switch i {
	case 0:
		return e.MethodID()
	case 1:
		return e.ModuleID()
	case 2:
		return e.MethodStartAddress()
	case 3:
		return e.MethodSize()
	case 4:
		return e.MethodToken()
	case 5:
		return e.MethodFlags()
	case 6:
		return e.OptimizationTier()
	case 7:
		return e.MethodNamespace()
	case 8:
		return e.MethodName()
	case 9:
		return e.MethodSignature()
	case 10:
		return e.ClrInstanceID()
	case 11:
		return e.ReJITID()
	}
	return nil
}

// Validate implements event.Payload.
func (e MethodLoadVerbose) Validate() error {
	return event.CheckLength(e, event.Version2, e.Size())
}

// MethodILToNativeMap maps IL offsets of a method to native offsets with two
// parallel uint32 arrays of CountOfMapEntries elements starting at 19.
type MethodILToNativeMap struct {
	event.Base
}

// MethodID identifies the method.
func (e MethodILToNativeMap) MethodID() uint64 {
	return e.Uint64At(0)
}

// ReJITID identifies the rejitted version of the method.
func (e MethodILToNativeMap) ReJITID() uint64 {
	return e.Uint64At(8)
}

// MethodExtent tells the main body from funclets.
func (e MethodILToNativeMap) MethodExtent() uint8 {
	return e.Uint8At(16)
}

// CountOfMapEntries is the length of both arrays.
func (e MethodILToNativeMap) CountOfMapEntries() int {
	if !e.Has(17, 2) {
		return 0
	}
	return int(e.Uint16At(17))
}

// ILOffset returns the i'th IL offset. The index is not checked against
// CountOfMapEntries.
func (e MethodILToNativeMap) ILOffset(i int) uint32 {
	return e.Uint32At(19 + i*4)
}

// NativeOffset returns the i'th native offset. The index is not checked
// against CountOfMapEntries.
func (e MethodILToNativeMap) NativeOffset(i int) uint32 {
	return e.Uint32At(19 + e.CountOfMapEntries()*4 + i*4)
}

// ClrInstanceID identifies the runtime instance.
func (e MethodILToNativeMap) ClrInstanceID() uint16 {
	return e.Uint16At(19 + e.CountOfMapEntries()*8)
}

// Size returns the payload size implied by the entry count.
func (e MethodILToNativeMap) Size() int {
	return 21 + e.CountOfMapEntries()*8
}

func (e MethodILToNativeMap) offsets(at func(int) uint32) []interface{} {
	n := e.CountOfMapEntries()
	out := make([]interface{}, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}

// Value implements event.Payload. The arrays are rendered as []interface{}
// of uint32.
func (e MethodILToNativeMap) Value(i int) interface{} {
	switch i {
	case 0:
		return e.MethodID()
	case 1:
		return e.ReJITID()
	case 2:
		return e.MethodExtent()
	case 3:
		return e.CountOfMapEntries()
	case 4:
		return e.offsets(e.ILOffset)
	case 5:
		return e.offsets(e.NativeOffset)
	case 6:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e MethodILToNativeMap) Validate() error {
	return event.CheckLength(e, event.Version0, e.Size())
}

// ModuleLoad reports a loaded module.
//
//	v0  ModuleID uint64 @0, AssemblyID uint64 @8, ModuleFlags uint32 @16,
//	    reserved uint32 @20, ModuleILPath and ModuleNativePath from 24
//	v1  ClrInstanceID uint16
//	v2  ManagedPdbSignature GUID, ManagedPdbAge uint32, ManagedPdbBuildPath,
//	    NativePdbSignature GUID, NativePdbAge uint32, NativePdbBuildPath
type ModuleLoad struct {
	event.Base
}

func (e ModuleLoad) pathsEnd() int {
	return e.EndOf(24, 2)
}

func (e ModuleLoad) managedPdb() int {
	return e.pathsEnd() + 2
}

func (e ModuleLoad) nativePdb() int {
	return e.SkipUTF16(e.managedPdb() + 20)
}

// ModuleID identifies the module.
func (e ModuleLoad) ModuleID() uint64 {
	return e.Uint64At(0)
}

// AssemblyID identifies the assembly of the module.
func (e ModuleLoad) AssemblyID() uint64 {
	return e.Uint64At(8)
}

// ModuleFlags describes the module.
func (e ModuleLoad) ModuleFlags() uint32 {
	return e.Uint32At(16)
}

// ModuleILPath is the path of the IL image.
func (e ModuleLoad) ModuleILPath() string {
	s, _ := e.UTF16At(24)
	return s
}

// ModuleNativePath is the path of the native image, if any.
func (e ModuleLoad) ModuleNativePath() string {
	s, _ := e.UTF16At(e.EndOf(24, 1))
	return s
}

// ClrInstanceID identifies the runtime instance.
func (e ModuleLoad) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(e.pathsEnd())
	}
	return 0
}

// ManagedPdbSignature identifies the PDB of the IL image.
func (e ModuleLoad) ManagedPdbSignature() uuid.UUID {
	if e.Version >= event.Version2 {
		return e.GUIDAt(e.managedPdb())
	}
	return uuid.Nil
}

// ManagedPdbAge is the age of the PDB of the IL image.
func (e ModuleLoad) ManagedPdbAge() uint32 {
	if e.Version >= event.Version2 {
		return e.Uint32At(e.managedPdb() + 16)
	}
	return 0
}

// ManagedPdbBuildPath is where the PDB of the IL image was built.
func (e ModuleLoad) ManagedPdbBuildPath() string {
	if e.Version >= event.Version2 {
		s, _ := e.UTF16At(e.managedPdb() + 20)
		return s
	}
	return ``
}

// NativePdbSignature identifies the PDB of the native image.
func (e ModuleLoad) NativePdbSignature() uuid.UUID {
	if e.Version >= event.Version2 {
		return e.GUIDAt(e.nativePdb())
	}
	return uuid.Nil
}

// NativePdbAge is the age of the PDB of the native image.
func (e ModuleLoad) NativePdbAge() uint32 {
	if e.Version >= event.Version2 {
		return e.Uint32At(e.nativePdb() + 16)
	}
	return 0
}

// NativePdbBuildPath is where the PDB of the native image was built.
func (e ModuleLoad) NativePdbBuildPath() string {
	if e.Version >= event.Version2 {
		s, _ := e.UTF16At(e.nativePdb() + 20)
		return s
	}
	return ``
}

// Size returns the payload size implied by the version and strings.
func (e ModuleLoad) Size() int {
	switch {
	case e.Version >= event.Version2:
		return e.SkipUTF16(e.nativePdb() + 20)
	case e.Version >= event.Version1:
		return e.pathsEnd() + 2
	}
	return e.pathsEnd()
}

// Value implements event.Payload.
func (e ModuleLoad) Value(i int) interface{} {
	switch i {
	case 0:
		return e.ModuleID()
	case 1:
		return e.AssemblyID()
	case 2:
		return e.ModuleFlags()
	case 3:
		return e.ModuleILPath()
	case 4:
		return e.ModuleNativePath()
	case 5:
		return e.ClrInstanceID()
	case 6:
		return e.ManagedPdbSignature()
	case 7:
		return e.ManagedPdbAge()
	case 8:
		return e.ManagedPdbBuildPath()
	case 9:
		return e.NativePdbSignature()
	case 10:
		return e.NativePdbAge()
	case 11:
		return e.NativePdbBuildPath()
	}
	return nil
}

// Validate implements event.Payload.
func (e ModuleLoad) Validate() error {
	return event.CheckLength(e, event.Version2, e.Size())
}

// AssemblyLoad reports a loaded assembly. Version 1 inserted BindingID at 16,
// moving AssemblyFlags from 16 to 24 and the name from 20 to 28.
type AssemblyLoad struct {
	event.Base
}

func (e AssemblyLoad) nameOffset() int {
	if e.Version >= event.Version1 {
		return 28
	}
	return 20
}

// AssemblyID identifies the assembly.
func (e AssemblyLoad) AssemblyID() uint64 {
	return e.Uint64At(0)
}

// AppDomainID identifies the app domain the assembly was loaded into.
func (e AssemblyLoad) AppDomainID() uint64 {
	return e.Uint64At(8)
}

// BindingID identifies the binding that resolved the assembly.
func (e AssemblyLoad) BindingID() uint64 {
	if e.Version >= event.Version1 {
		return e.Uint64At(16)
	}
	return 0
}

// AssemblyFlags describes the assembly.
func (e AssemblyLoad) AssemblyFlags() uint32 {
	if e.Version >= event.Version1 {
		return e.Uint32At(24)
	}
	return e.Uint32At(16)
}

// FullyQualifiedAssemblyName is the display name of the assembly.
func (e AssemblyLoad) FullyQualifiedAssemblyName() string {
	s, _ := e.UTF16At(e.nameOffset())
	return s
}

// ClrInstanceID identifies the runtime instance.
func (e AssemblyLoad) ClrInstanceID() uint16 {
	if e.Version >= event.Version1 {
		return e.Uint16At(e.SkipUTF16(e.nameOffset()))
	}
	return 0
}

// Size returns the payload size implied by the version and name.
func (e AssemblyLoad) Size() int {
	n := e.SkipUTF16(e.nameOffset())
	if e.Version >= event.Version1 {
		return n + 2
	}
	return n
}

// Value implements event.Payload.
func (e AssemblyLoad) Value(i int) interface{} {
	switch i {
	case 0:
		return e.AssemblyID()
	case 1:
		return e.AppDomainID()
	case 2:
		return e.BindingID()
	case 3:
		return e.AssemblyFlags()
	case 4:
		return e.FullyQualifiedAssemblyName()
	case 5:
		return e.ClrInstanceID()
	}
	return nil
}

// Validate implements event.Payload.
func (e AssemblyLoad) Validate() error {
	return event.CheckLength(e, event.Version1, e.Size())
}
