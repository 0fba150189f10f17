package trace

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoftarchive/semantic-logging-sub002/encoding"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/internal/tracefile"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/clr"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/kernel"
	"github.com/microsoftarchive/semantic-logging-sub002/schema"
)

func testSource(t testing.TB, c *tracefile.Capture, cfg Config, opts ...Option) *Source {
	src, err := NewSource(c.Reader(), cfg, opts...)
	require.NoError(t, err)
	return src
}

func TestSourceGC(t *testing.T) {
	for _, c := range tracefile.List().ByName(`gc.capture`) {
		t.Logf(`test exp ptr%d %v to dispatch`, c.PointerSize, c.Version)
		src := testSource(t, c, DefaultConfig())

		var msgs []string
		src.CLR().OnExceptionThrown(func(e clr.ExceptionThrown) error {
			msgs = append(msgs, e.ExceptionMessage())
			return nil
		})
		require.NoError(t, src.Process(context.Background()))

		assert.Equal(t, []string{`Collection was modified`}, msgs)
		assert.Equal(t, int64(tracefile.GCAllocated), src.Allocated())

		stats := src.Stats()
		assert.Equal(t, c.Records, stats.Capture.Records)
		assert.Equal(t, uint64(c.Records), stats.Dispatch.Dispatched)
		assert.Zero(t, stats.Dispatch.Invalid)
		assert.Zero(t, stats.Dispatch.Unknown)
		assert.Equal(t, int64(tracefile.GCAllocated), stats.Allocated)
	}
}

func TestSourceAllocationClamp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllocClampMax = 1000
	c := tracefile.List().ByName(`gc.capture`)[0]
	src := testSource(t, c, cfg)
	require.NoError(t, src.Process(context.Background()))
	assert.Equal(t, int64(100+2000+1+1000+50), src.Allocated())
}

func TestSourceKernel(t *testing.T) {
	c := tracefile.List().ByName(`process.capture`).ByPointerSize(event.PointerSize32)[0]
	src := testSource(t, c, DefaultConfig())

	var got []string
	src.Kernel().OnProcess(func(e kernel.Process) error {
		got = append(got, e.Descriptor().EventName()+` `+e.ImageFileName())
		return nil
	})
	var images []string
	src.Kernel().OnImageLoad(func(e kernel.ImageLoad) error {
		images = append(images, e.FileName())
		return nil
	})

	var ts []int64
	src.Table().RegisterAll(event.VisitorFunc(func(p event.Payload) error {
		ts = append(ts, p.Raw().Timestamp)
		return nil
	}))
	require.NoError(t, src.Process(context.Background()))

	exp := []string{
		`Process/DCStart System`,
		`Process/Start notepad.exe`,
		`Process/Stop notepad.exe`,
	}
	assert.Equal(t, exp, got)
	assert.Equal(t, []string{`\Device\HarddiskVolume1\Windows\notepad.exe`}, images)
	assert.Equal(t, []int64{1000, 1010, 1020, 1030, 1040}, ts)
	assert.Zero(t, src.Stats().Dispatch.Invalid)
}

func TestSourceSchemaDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, tracefile.AppProvider.String()+`.yaml`)
	require.NoError(t, os.WriteFile(path, []byte(tracefile.AppManifest), 0o644))

	cfg := DefaultConfig()
	cfg.SchemaDir = dir
	c := tracefile.List().ByName(`app.capture`).ByVersion(encoding.Version2)[0]
	src := testSource(t, c, cfg)

	var got []string
	src.Table().RegisterAll(event.VisitorFunc(func(p event.Payload) error {
		got = append(got, event.XML(p))
		return nil
	}))
	require.NoError(t, src.Process(context.Background()))

	exp := `<Event Timestamp="1000" PID="4242" TID="7" EventName="Net/Send"` +
		` ProviderName="Contoso-App" ID="10" Version="2" ProcessID="4242"` +
		` Size="512" Name="eth0" DataLength="2" Data="0xcafe"/>`
	require.Len(t, got, 3)
	assert.Equal(t, exp, got[0])
	assert.Contains(t, got[1], `EventName="UnknownEvent"`)
	assert.Contains(t, got[2], `Name="lo"`)

	stats := src.Stats()
	assert.Equal(t, uint64(1), stats.Dispatch.Resolved)
	assert.Equal(t, uint64(1), stats.Dispatch.Unknown)
	assert.Equal(t, schema.CacheStats{Queries: 2, Misses: 1}, stats.Schema)
}

func TestSourceSchemaDirVersion1(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, tracefile.AppProvider.String()+`.yaml`)
	require.NoError(t, os.WriteFile(path, []byte(tracefile.AppManifest), 0o644))

	cfg := DefaultConfig()
	cfg.SchemaDir = dir
	c := tracefile.List().ByName(`app.capture`).ByVersion(encoding.Version1)[0]
	src := testSource(t, c, cfg)

	var got []string
	src.Table().RegisterAll(event.VisitorFunc(func(p event.Payload) error {
		got = append(got, event.XML(p))
		return nil
	}))
	require.NoError(t, src.Process(context.Background()))

	// Version 1 frames carry no process or thread.
	require.Len(t, got, 3)
	assert.Contains(t, got[0], `PID="0" TID="0" EventName="Net/Send"`)
	assert.Contains(t, got[0], `ProcessID="4242"`)
}

func TestSourceWithSchema(t *testing.T) {
	m, err := schema.ParseManifest([]byte(tracefile.AppManifest))
	require.NoError(t, err)

	c := tracefile.List().ByName(`app.capture`)[0]
	src := testSource(t, c, DefaultConfig(), WithSchema(schema.NewDatabase(m)))
	require.NoError(t, src.Process(context.Background()))
	assert.Equal(t, uint64(1), src.Stats().Dispatch.Resolved)

	// Without metadata every app record is unknown.
	src = testSource(t, c, DefaultConfig())
	require.NoError(t, src.Process(context.Background()))
	assert.Equal(t, uint64(3), src.Stats().Dispatch.Unknown)
	assert.Equal(t, schema.CacheStats{}, src.Stats().Schema)
}

func TestSourceStop(t *testing.T) {
	c := tracefile.List().ByName(`gc.capture`)[0]
	src := testSource(t, c, DefaultConfig())
	src.Table().RegisterAll(event.VisitorFunc(func(p event.Payload) error {
		src.Stop()
		return nil
	}))
	require.NoError(t, src.Process(context.Background()))
	assert.Equal(t, uint64(1), src.Stats().Dispatch.Dispatched)
}

func TestSourceCanceled(t *testing.T) {
	c := tracefile.List().ByName(`gc.capture`)[0]
	src := testSource(t, c, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	src.CLR().OnGCStart(func(clr.GCStart) error {
		cancel()
		return nil
	})
	assert.Equal(t, context.Canceled, src.Process(ctx))
	assert.Equal(t, uint64(1), src.Stats().Dispatch.Dispatched)
}

func TestSourceSubscriberError(t *testing.T) {
	c := tracefile.List().ByName(`gc.capture`)[0]
	src := testSource(t, c, DefaultConfig())

	sentinel := errors.New(`sentinel`)
	src.CLR().OnGCAllocationTick(func(clr.GCAllocationTick) error {
		return sentinel
	})
	err := src.Process(context.Background())
	require.Error(t, err)
	assert.Equal(t, sentinel, errors.Cause(err))
	assert.Equal(t, uint64(2), src.Stats().Dispatch.Dispatched)
	assert.Equal(t, uint64(1), src.Stats().Dispatch.Errors)
}

func TestSourceTruncated(t *testing.T) {
	c := tracefile.List().ByName(`gc.capture`)[0]
	data := c.Bytes()
	src, err := NewSource(bytes.NewReader(data[:len(data)-3]), DefaultConfig())
	require.NoError(t, err)

	err = src.Process(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `decode capture`)
	assert.Equal(t, uint64(c.Records-1), src.Stats().Dispatch.Dispatched)
}

func TestNewSourceInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bounds = `loose`
	_, err := NewSource(bytes.NewReader(nil), cfg)
	assert.Error(t, err)
}

func TestNewSourceBounds(t *testing.T) {
	defer event.SetBoundsPolicy(event.CurrentBoundsPolicy())

	cfg := DefaultConfig()
	cfg.Bounds = `lenient`
	_, err := NewSource(bytes.NewReader(nil), cfg)
	require.NoError(t, err)
	assert.Equal(t, event.Lenient, event.CurrentBoundsPolicy())

	_, err = NewSource(bytes.NewReader(nil), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, event.Strict, event.CurrentBoundsPolicy())
}
