package clr

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracegen"
)

func TestMethodLoadVerbose(t *testing.T) {
	tests := []struct {
		flags uint32
		tier  OptimizationTier
	}{
		{0x0, TierUnknown},
		{0x8 | 1<<7, TierMinOptJitted},
		{0x8 | 3<<7, TierQuickJitted},
		{0x8 | 4<<7, TierOptimizedTier1},
		{5 << 7, TierReadyToRun},
		{0xffffffff, TierQuickJittedInstrumented},
	}
	for i, test := range tests {
		t.Logf(`test #%v exp flags 0x%x to carry tier %v`, i, test.flags, test.tier)
		b := tracegen.New(8)
		methodLoad(test.flags)(b, event.Version2)
		e := methodLoadVerbose.Project(b.Record(event.Header{Version: 2})).(MethodLoadVerbose)
		require.NoError(t, e.Validate())
		assert.Equal(t, test.tier, e.OptimizationTier())
		assert.Equal(t, `App.Program`, e.MethodNamespace())
		assert.Equal(t, `Main`, e.MethodName())
		assert.Equal(t, `void (string[])`, e.MethodSignature())
		assert.Equal(t, uint16(3), e.ClrInstanceID())
		assert.Equal(t, uint32(64), e.MethodSize())
	}
}

func TestMethodILToNativeMap(t *testing.T) {
	require.Same(t, methodILToNativeMap, samples[20].desc)
	e := methodILToNativeMap.Project(build(samples[20], 8, 0)).(MethodILToNativeMap)
	require.NoError(t, e.Validate())
	require.Equal(t, 3, e.CountOfMapEntries())

	var il, native []uint32
	for i := 0; i < e.CountOfMapEntries(); i++ {
		il = append(il, e.ILOffset(i))
		native = append(native, e.NativeOffset(i))
	}
	assert.Equal(t, []uint32{0, 4, 9}, il)
	assert.Equal(t, []uint32{0, 16, 40}, native)
	assert.Equal(t, uint16(3), e.ClrInstanceID())
	assert.Equal(t, []interface{}{uint32(0), uint32(16), uint32(40)}, e.Value(5))

	// An empty map is just the header and the instance id.
	empty := methodILToNativeMap.Project(tracegen.New(8).
		Uint64(1).Uint64(0).Uint8(0).Uint16(0).Uint16(3).Record(event.Header{})).(MethodILToNativeMap)
	require.NoError(t, empty.Validate())
	assert.Equal(t, 21, empty.Size())
	assert.Equal(t, uint16(3), empty.ClrInstanceID())
}

func TestMethodILToNativeMapShortHeader(t *testing.T) {
	e := methodILToNativeMap.Project(tracegen.New(8).Uint64(1).Record(event.Header{})).(MethodILToNativeMap)
	assert.NotPanics(t, func() {
		assert.Error(t, e.Validate())
	})
	assert.Equal(t, 0, e.CountOfMapEntries())
}

func TestModuleLoadChain(t *testing.T) {
	b := tracegen.New(8).
		Uint64(1).Uint64(2).Uint32(8).Uint32(0).
		UTF16(`C:\app\app.dll`).UTF16(`C:\app\app.ni.dll`).Uint16(3).
		GUID(comGUID).Uint32(7).UTF16(`D:\b\app.pdb`).
		GUID(uuid.Nil).Uint32(1).UTF16(`D:\b\app.ni.pdb`)

	e := moduleLoad.Project(b.Record(event.Header{Version: 2})).(ModuleLoad)
	require.NoError(t, e.Validate())
	assert.Equal(t, `C:\app\app.dll`, e.ModuleILPath())
	assert.Equal(t, `C:\app\app.ni.dll`, e.ModuleNativePath())
	assert.Equal(t, uint16(3), e.ClrInstanceID())
	assert.Equal(t, comGUID, e.ManagedPdbSignature())
	assert.Equal(t, uint32(7), e.ManagedPdbAge())
	assert.Equal(t, `D:\b\app.pdb`, e.ManagedPdbBuildPath())
	assert.Equal(t, uuid.Nil, e.NativePdbSignature())
	assert.Equal(t, uint32(1), e.NativePdbAge())
	assert.Equal(t, `D:\b\app.ni.pdb`, e.NativePdbBuildPath())
	assert.Equal(t, b.Len(), e.Size())

	// Version 1 of the same prefix ignores the pdb tail.
	v1 := moduleLoad.Project(b.Record(event.Header{Version: 1})).(ModuleLoad)
	assert.Error(t, v1.Validate())
	assert.Equal(t, uuid.Nil, v1.ManagedPdbSignature())
	assert.Equal(t, ``, v1.NativePdbBuildPath())
}

func TestAssemblyLoadRelocation(t *testing.T) {
	require.Same(t, assemblyLoad, samples[22].desc)
	v0 := assemblyLoad.Project(build(samples[22], 8, 0)).(AssemblyLoad)
	v1 := assemblyLoad.Project(build(samples[22], 8, 1)).(AssemblyLoad)
	require.NoError(t, v0.Validate())
	require.NoError(t, v1.Validate())

	for _, e := range []AssemblyLoad{v0, v1} {
		assert.Equal(t, uint64(1), e.AssemblyID())
		assert.Equal(t, uint64(2), e.AppDomainID())
		assert.Equal(t, uint32(4), e.AssemblyFlags())
		assert.Equal(t, `app, Version=1.0.0.0`, e.FullyQualifiedAssemblyName())
	}
	assert.Equal(t, uint64(0), v0.BindingID())
	assert.Equal(t, uint64(99), v1.BindingID())
	assert.Equal(t, uint16(0), v0.ClrInstanceID())
	assert.Equal(t, uint16(3), v1.ClrInstanceID())
	assert.Equal(t, v0.Size()+10, v1.Size())
}

func TestExceptionThrown(t *testing.T) {
	s := samples[15]
	require.Same(t, exceptionThrown, s.desc)

	for _, ptr := range []int{event.PointerSize32, event.PointerSize64} {
		e := exceptionThrown.Project(build(s, ptr, 1)).(ExceptionThrown)
		require.NoError(t, e.Validate())
		assert.Equal(t, `System.InvalidOperationException`, e.ExceptionType())
		assert.Equal(t, `bad state`, e.ExceptionMessage())
		assert.Equal(t, event.Address(0xdead), e.ExceptionEIP())
		assert.Equal(t, uint32(0x80131509), e.ExceptionHRESULT())
		assert.Equal(t, uint16(16), e.ExceptionFlags())
		assert.Equal(t, uint16(3), e.ClrInstanceID())
	}

	v0 := exceptionThrown.Project(event.NewRecord(event.Header{}, nil)).(ExceptionThrown)
	require.NoError(t, v0.Validate())
	assert.Equal(t, ``, v0.ExceptionType())
}

func TestContention(t *testing.T) {
	start := contentionStart.Project(build(samples[16], 4, 2)).(ContentionStart)
	require.NoError(t, start.Validate())
	assert.Equal(t, 19, start.Size())
	assert.Equal(t, event.Address(0x1000), start.LockID())
	assert.Equal(t, event.Address(0x2000), start.AssociatedObjectID())
	assert.Equal(t, uint64(42), start.LockOwnerThreadID())

	v1 := contentionStart.Project(build(samples[16], 4, 1)).(ContentionStart)
	require.NoError(t, v1.Validate())
	assert.Equal(t, event.Address(0), v1.LockID())

	stop := contentionStop.Project(build(samples[17], 8, 1)).(ContentionStop)
	require.NoError(t, stop.Validate())
	assert.Equal(t, ContentionNative, stop.ContentionFlags())
	assert.Equal(t, 1500.0, stop.DurationNs())
}

func TestRuntimeInformation(t *testing.T) {
	e := runtimeInformation.Project(build(samples[18], 8, 0)).(RuntimeInformation)
	require.NoError(t, e.Validate())
	assert.Equal(t, [4]uint16{0, 1, 2, 3}, e.BclVersion())
	assert.Equal(t, [4]uint16{4, 5, 6, 7}, e.VMVersion())
	assert.Equal(t, `dotnet app.dll`, e.CommandLine())
	assert.Equal(t, comGUID, e.ComObjectGuid())
	assert.Equal(t, `C:\coreclr.dll`, e.RuntimeDllPath())
	assert.Equal(t, uint8(1), e.StartupMode())
}

func TestThreadPoolAdjustment(t *testing.T) {
	e := threadPoolAdjustment.Project(build(samples[14], 8, 0)).(ThreadPoolWorkerThreadAdjustment)
	require.NoError(t, e.Validate())
	assert.Equal(t, 12.5, e.AverageThroughput())
	assert.Equal(t, uint32(8), e.NewWorkerThreadCount())
	assert.Equal(t, AdjustmentClimbingMove, e.Reason())
}
