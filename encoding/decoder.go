package encoding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

// Decoder reads records framed in the capture format from an input stream.
type Decoder struct {
	err    error
	buf    *offsetReader
	state  *state
	decode decodeFn
	frame  [frameSizeVersion2]byte
}

// NewDecoder returns a new decoder that reads from r. If the given r is a
// bufio.Reader then the decoder will use it for buffering, otherwise creating
// a new bufio.Reader.
func NewDecoder(r io.Reader) *Decoder {
	buf, ok := r.(*bufio.Reader)
	if !ok {
		buf = bufio.NewReader(r)
	}
	return &Decoder{buf: &offsetReader{Reader: buf}}
}

// Reset the Decoder to read from r, if r is a bufio.Reader it will use it for
// buffering, otherwise resetting the existing bufio.Reader which may have been
// obtained from the caller of NewDecoder.
func (d *Decoder) Reset(r io.Reader) {
	if r == nil {
		d.err = errors.New(`nil reader given to Reset`)
		return
	}
	buf, ok := r.(*bufio.Reader)
	if ok {
		d.buf.Reader = buf
	} else {
		d.buf.Reset(r)
	}
	d.err, d.state, d.decode, d.buf.off = nil, nil, nil, 0
}

// Err returns the first error that occurred during decoding, if that error was
// io.EOF then Err() returns nil and the decoding was successful.
func (d *Decoder) Err() error {
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

// Version retrieves the version information contained in the capture header.
// You do not need to call this function directly to begin retrieving records,
// it is done on the first call to Decode if it was not called prior. Only the
// first call to Version results in I/O to the underlying reader.
func (d *Decoder) Version() (Version, error) {
	if d.decode == nil {
		d.init()
	}
	if d.err != nil {
		return 0, d.err
	}
	return d.state.ver, nil
}

// Stats returns the counters for the records decoded since the last Reset.
func (d *Decoder) Stats() Stats {
	return d.state.stats()
}

// More returns true when records may still be retrieved, false otherwise. The
// first time More returns false, all future calls will return false until Reset
// is called.
func (d *Decoder) More() bool {
	if d.err != nil {
		return false
	}
	if d.buf.Buffered() == 0 {
		_, d.err = d.buf.Peek(1)
	}
	return d.err == nil
}

// Decode reads the next record from the input stream into rec. The payload
// buffer of rec is reused, so any record previously decoded into rec must no
// longer be referenced. Any error returned indicates permanent failure and all
// future calls will return the same error until Reset. Reaching the end of the
// stream on a frame boundary yields io.EOF, anywhere else io.ErrUnexpectedEOF.
func (d *Decoder) Decode(rec *event.Record) error {
	if d.decode == nil {
		d.init()
	}
	if d.err != nil {
		// Once an error occurs the decoder may no longer be used.
		return d.err
	}
	if rec == nil {
		d.err = errors.New(`nil record given to Decode`)
		return d.err
	}

	off := d.buf.Off()
	if err := d.decode(d.buf, d.frame[:d.state.frameSize], rec); err != nil {
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			err = errors.Wrapf(err, `frame at 0x%x`, off)
		}
		d.err = err
		return err
	}
	if err := d.state.visit(rec); err != nil {
		d.err = errors.Wrapf(err, `frame at 0x%x`, off)
		return d.err
	}
	return nil
}

// init will initialize the Decoder so it may begin receiving records by
// decoding the capture header within the first 16 bytes of r.
func (d *Decoder) init() {
	if d.err != nil {
		return
	}
	if d.decode != nil {
		d.err = errors.New(`possible unsafe usage from multiple goroutines`)
		return
	}
	d.decode, d.state, d.err = decodeInit(d.buf)
}

type reader interface {
	io.Reader
	Off() int
}

type offsetReader struct {
	*bufio.Reader
	off int
}

func (r *offsetReader) Off() int {
	return r.off
}

func (r *offsetReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	r.off += n
	return
}

// decodeFn is a function that knows how to decode frames for a specific
// version of the capture format into the given record. The frame buffer is
// sized for the version.
type decodeFn func(r reader, frame []byte, rec *event.Record) error

// decodeInit will read the header and initialize the associated codec.
func decodeInit(r io.Reader) (decodeFn, *state, error) {
	ver, err := decodeHeader(r)
	if err != nil {
		return decodeFrameVersionErr, nil, err
	}
	return decodeInitVersion(ver)
}

// decodeInitVersion returns the codec for v.
func decodeInitVersion(v Version) (fn decodeFn, s *state, err error) {
	s = newState(v)
	switch v {
	case Version1:
		fn = decodeFrameVersion1
	case Version2:
		fn = decodeFrameVersion2
	default:
		fn = decodeFrameVersionErr
		err = ErrVersion
	}
	return
}

var headerLut = [3]byte{0, 0, 0}

// decodeHeader will read a valid capture header consisting of exactly 16
// bytes from r, returning the version on success and an error on failure.
func decodeHeader(r io.Reader) (Version, error) {
	var b [headerSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}

	// "etl capture 2\x00\x00\x00"
	//  ++++++++++++|------------
	if !bytes.Equal([]byte(`etl capture `), b[:12]) {
		return 0, errors.New(`capture header prefix was malformed`)
	}

	// "etl capture 2\x00\x00\x00"
	//  xxxxxxxxxxxx+|-----------
	var ver Version
	switch b[12] {
	case '1':
		ver = Version1
	case '2':
		ver = Version2
	default:
		return 0, ErrVersion
	}

	// "etl capture 2\x00\x00\x00"
	//  xxxxxxxxxxxxx++++++++++++|
	if !bytes.Equal(headerLut[:], b[13:]) {
		return 0, errors.New(`capture header suffix was malformed`)
	}
	return ver, nil
}

// decodeFrameVersionErr will simply return ErrVersion.
func decodeFrameVersionErr(reader, []byte, *event.Record) error {
	return ErrVersion
}

// decodeFrameVersion1 decodes a frame without process identity, the producer
// pid and tid of the record are left zero.
func decodeFrameVersion1(r reader, frame []byte, rec *event.Record) error {
	return decodeFrame(r, frame, rec, false)
}

// decodeFrameVersion2 decodes a frame carrying the producer pid and tid.
func decodeFrameVersion2(r reader, frame []byte, rec *event.Record) error {
	return decodeFrame(r, frame, rec, true)
}

// decodeFrame reads the fixed frame into frame, then the payload into the
// buffer of rec.
//
//   0   provider   16
//   16  id         2
//   18  opcode     1
//   19  version    1
//   20  ptrsize    1
//   21  reserved   3
//   24  timestamp  8
//   32  pid, tid   8    (Version2)
//   ..  length     4
func decodeFrame(r reader, frame []byte, rec *event.Record, ids bool) error {
	if _, err := io.ReadFull(r, frame); err != nil {
		return err
	}

	h := event.Header{
		Provider:    decodeGUID(frame[0:16]),
		ID:          binary.LittleEndian.Uint16(frame[16:]),
		Opcode:      frame[18],
		Version:     event.Version(frame[19]),
		PointerSize: int(frame[20]),
		Timestamp:   int64(binary.LittleEndian.Uint64(frame[24:])),
	}
	off := 32
	if ids {
		h.ProcessID = binary.LittleEndian.Uint32(frame[32:])
		h.ThreadID = binary.LittleEndian.Uint32(frame[36:])
		off += 8
	}

	size := binary.LittleEndian.Uint32(frame[off:])
	if size > MaxPayloadSize {
		return errors.Wrapf(ErrPayloadSize, `size %v exceeds allocation limit(%v)`,
			size, MaxPayloadSize)
	}

	// Reset keeps the payload capacity so the Alloc below reuses it.
	rec.Reset()
	rec.Header = h
	if _, err := io.ReadFull(r, rec.Alloc(int(size))); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func decodeGUID(b []byte) uuid.UUID {
	var g uuid.UUID
	binary.BigEndian.PutUint32(g[0:], binary.LittleEndian.Uint32(b[0:]))
	binary.BigEndian.PutUint16(g[4:], binary.LittleEndian.Uint16(b[4:]))
	binary.BigEndian.PutUint16(g[6:], binary.LittleEndian.Uint16(b[6:]))
	copy(g[8:], b[8:16])
	return g
}
