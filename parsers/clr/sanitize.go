package clr

// Default clamp bounds of an AllocationSanitizer. The floor is positive so a
// clamped amount is never the corrupt reading itself.
const (
	DefaultAllocationMin int64 = 1
	DefaultAllocationMax int64 = 100000
)

// AllocationSanitizer turns raw GCAllocationTick amounts into amounts safe to
// sum. Some runtimes report garbage amounts once the 32-bit counter
// overflows, so the first negative or zero amount seen flags the stream as
// bad and from then on every amount outside [Min, Max] is clamped to the
// nearest bound. Amounts seen before that pass through unchanged.
//
// An AllocationSanitizer carries state across records of one stream and is
// not safe for concurrent use.
type AllocationSanitizer struct {
	Min, Max int64

	seenBad bool
}

// NewAllocationSanitizer returns a sanitizer clamping to [min, max].
func NewAllocationSanitizer(min, max int64) *AllocationSanitizer {
	if max < min {
		min, max = max, min
	}
	return &AllocationSanitizer{Min: min, Max: max}
}

// Amount returns the sanitized allocation amount of e.
func (s *AllocationSanitizer) Amount(e GCAllocationTick) int64 {
	return s.Sanitize(e.Amount())
}

// Sanitize returns the sanitized form of amount.
func (s *AllocationSanitizer) Sanitize(amount int64) int64 {
	if amount <= 0 {
		s.seenBad = true
	}
	if !s.seenBad {
		return amount
	}
	if amount < s.Min {
		return s.Min
	}
	if amount > s.Max {
		return s.Max
	}
	return amount
}

// SeenBad reports if a negative or zero amount has been seen.
func (s *AllocationSanitizer) SeenBad() bool {
	return s.seenBad
}

// Reset forgets any bad amount seen so far.
func (s *AllocationSanitizer) Reset() {
	s.seenBad = false
}
