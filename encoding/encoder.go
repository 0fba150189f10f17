package encoding

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

// Encoder writes records framed in the capture format to an output stream.
//
// Records produced by the Encoder are always lexically correct, whether the
// payload matches the layout its version implies is the responsibility of the
// caller. It is included for testing systems that consume captures and for
// filtering existing ones.
type Encoder struct {
	w      *offsetWriter
	err    error
	ver    Version
	encode encodeFn
	frame  [frameSizeVersion2]byte
}

// NewEncoder returns a new encoder that emits records to w in the latest
// version of the capture format.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderVersion(w, Latest)
}

// NewEncoderVersion returns a new encoder that emits records to w in version v
// of the capture format. An invalid version fails on the first Emit.
func NewEncoderVersion(w io.Writer, v Version) *Encoder {
	return &Encoder{w: &offsetWriter{w: w}, ver: v}
}

// Err returns the first error that occurred during encoding, once an error
// occurs all future calls to Err() will return the same value.
func (e *Encoder) Err() error {
	return e.err
}

// Reset the Encoder for writing to w. The header is written again on the next
// call to Emit.
func (e *Encoder) Reset(w io.Writer) {
	e.err, e.encode, e.w.off, e.w.w = nil, nil, 0, w
}

// Emit writes a single record to the the output stream. If Emit returns a
// non-nil error then failure is permanent and all future calls will
// immediately return the same error.
func (e *Encoder) Emit(rec *event.Record) error {
	if e.encode == nil {
		e.init()
	}

	// Once an error occurs the encoder may no longer be used.
	if e.err != nil {
		return e.err
	}
	if rec == nil {
		e.err = errors.New(`nil record given to Emit`)
		return e.err
	}
	if err := e.encode(e.w, e.frame[:e.ver.FrameSize()], rec); err != nil {
		e.err = errors.Wrap(err, fmt.Sprintf(`at 0x%x`, e.w.Off()))
		return e.err
	}
	return nil
}

// init will write the capture header so records may be emitted.
func (e *Encoder) init() {
	if e.err != nil {
		return
	}
	if e.encode != nil {
		e.err = errors.New(`possible unsafe usage from multiple goroutines`)
		return
	}
	e.encode, e.err = encodeInit(e.w, e.ver)
}

type offsetWriter struct {
	w   io.Writer
	off int
}

func (r *offsetWriter) Off() int {
	return r.off
}

func (r *offsetWriter) Write(p []byte) (n int, err error) {
	n, err = r.w.Write(p)
	r.off += n
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return
}

type encodeFn func(w io.Writer, frame []byte, rec *event.Record) error

// encodeInit will send the header and return the frame fn for v.
func encodeInit(w io.Writer, v Version) (encodeFn, error) {
	if err := encodeHeader(w, v); err != nil {
		return nil, err
	}
	if v == Version1 {
		return encodeFrameVersion1, nil
	}
	return encodeFrameVersion2, nil
}

// encodeHeader will encode a valid capture version into a well formed capture
// header.
func encodeHeader(w io.Writer, v Version) error {
	if !v.Valid() {
		return errors.New(`capture header version was invalid`)
	}
	_, err := fmt.Fprintf(w, "etl capture %d\x00\x00\x00", v)
	return err
}

func encodeFrameVersion1(w io.Writer, frame []byte, rec *event.Record) error {
	return encodeFrame(w, frame, rec, false)
}

func encodeFrameVersion2(w io.Writer, frame []byte, rec *event.Record) error {
	return encodeFrame(w, frame, rec, true)
}

// encodeFrame writes the frame of rec followed by its payload. The pointer
// size is normalized the same way readers interpret it.
func encodeFrame(w io.Writer, frame []byte, rec *event.Record, ids bool) error {
	size := rec.Len()
	if size > MaxPayloadSize {
		return errors.Wrapf(ErrPayloadSize, `size %v exceeds allocation limit(%v)`,
			size, MaxPayloadSize)
	}

	encodeGUID(frame[0:16], rec.Provider)
	binary.LittleEndian.PutUint16(frame[16:], rec.ID)
	frame[18] = rec.Opcode
	frame[19] = byte(rec.Version)
	frame[20] = byte(rec.Ptr())
	frame[21], frame[22], frame[23] = 0, 0, 0
	binary.LittleEndian.PutUint64(frame[24:], uint64(rec.Timestamp))
	off := 32
	if ids {
		binary.LittleEndian.PutUint32(frame[32:], rec.ProcessID)
		binary.LittleEndian.PutUint32(frame[36:], rec.ThreadID)
		off += 8
	}
	binary.LittleEndian.PutUint32(frame[off:], uint32(size))

	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write(rec.BytesAt(0, size))
	return err
}

func encodeGUID(b []byte, g uuid.UUID) {
	binary.LittleEndian.PutUint32(b[0:], binary.BigEndian.Uint32(g[0:]))
	binary.LittleEndian.PutUint16(b[4:], binary.BigEndian.Uint16(g[4:]))
	binary.LittleEndian.PutUint16(b[6:], binary.BigEndian.Uint16(g[6:]))
	copy(b[8:16], g[8:])
}
