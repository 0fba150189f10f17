package encoding

import (
	"github.com/pkg/errors"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

// state tracks a single capture stream across frames.
type state struct {
	ver       Version
	count     int
	bytes     int
	frameSize int

	// look behind state tracking
	lastTs    int64
	unordered int
}

func newState(v Version) *state {
	return &state{ver: v, frameSize: v.FrameSize()}
}

// visit the given record with this state after its frame was read.
func (s *state) visit(rec *event.Record) error {
	switch rec.PointerSize {
	case event.PointerSize32, event.PointerSize64:
	default:
		return errors.Errorf(`record %v has invalid pointer size %d`,
			rec.Key(), rec.PointerSize)
	}

	// Timestamps are assigned by the delivery layer and normally ascend, a
	// record that goes backwards is kept but counted.
	if s.count > 0 && rec.Timestamp < s.lastTs {
		s.unordered++
	}
	s.lastTs = rec.Timestamp
	s.bytes += s.frameSize + rec.Len()
	s.count++
	return nil
}

// Stats describes the records seen by a Decoder since the last Reset.
type Stats struct {
	Version   Version
	Records   int
	Bytes     int
	Unordered int
}

func (s *state) stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		Version:   s.ver,
		Records:   s.count,
		Bytes:     headerSize + s.bytes,
		Unordered: s.unordered,
	}
}
