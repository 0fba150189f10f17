package tracefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoftarchive/semantic-logging-sub002/encoding"
	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

func TestSmoke(t *testing.T) {
	cl := List()
	require.NotEmpty(t, cl)
	assert.Same(t, cl[0], List()[0])

	per := len(cl) / len(Versions)
	for _, ver := range Versions {
		assert.Len(t, cl.ByName(`gc.capture`), len(Versions)*len(PointerSizes))
		assert.Len(t, cl.ByMaxSize(1024*32), len(cl))

		vcl := cl.ByVersion(ver)
		require.Len(t, vcl, per)
		for _, ptr := range PointerSizes {
			assert.Len(t, vcl.ByPointerSize(ptr).ByName(`gc.capture`), 1)
		}
	}
	assert.Equal(t, `CaptureList()`, CaptureList(nil).String())
	assert.Equal(t, `CaptureList(gc.capture, app.capture)`,
		CaptureList{cl[0], cl[2]}.String())
}

func TestCapturesDecode(t *testing.T) {
	for _, c := range List() {
		t.Logf(`test exp %v ptr%d %v to decode`, c.Name, c.PointerSize, c.Version)

		dec := encoding.NewDecoder(c.Reader())
		rec := new(event.Record)
		var n int
		for dec.More() {
			require.NoError(t, dec.Decode(rec))
			assert.Equal(t, c.PointerSize, rec.Ptr())
			n++
		}
		require.NoError(t, dec.Err())
		assert.Equal(t, c.Records, n)
		assert.Equal(t, 0, dec.Stats().Unordered)
		assert.Equal(t, c.Data, c.Bytes())
	}
}

func TestUnknownCapture(t *testing.T) {
	c, err := NewCapture(`missing.capture`, 8, encoding.Latest)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Records)
	assert.Empty(t, c.Data)
}
