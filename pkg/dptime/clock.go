package dptime

import "fmt"

// SamplingClock is a uniform timebase: Count samples spaced PeriodNanos
// apart starting at Start.
type SamplingClock struct {
	Start       Timestamp
	PeriodNanos int64
	Count       int64
}

// Validate checks the clock's own invariants (period > 0, count >= 0).
func (c SamplingClock) Validate() error {
	if c.PeriodNanos <= 0 {
		return fmt.Errorf("dptime: sampling clock period must be > 0, got %d", c.PeriodNanos)
	}
	if c.Count < 0 {
		return fmt.Errorf("dptime: sampling clock count must be >= 0, got %d", c.Count)
	}
	return nil
}

// Domain returns the closed interval spanned by the clock. A clock
// with Count == 0 has no domain and ErrEmptyDomain is returned.
func (c SamplingClock) Domain() (TimeInterval, error) {
	if err := c.Validate(); err != nil {
		return TimeInterval{}, err
	}
	if c.Count == 0 {
		return TimeInterval{}, ErrEmptyDomain
	}

	span, ok := mulInt64(c.PeriodNanos, c.Count-1)
	if !ok {
		return TimeInterval{}, fmt.Errorf("dptime: sampling clock domain overflow for %+v", c)
	}
	end, err := AddNanos(c.Start, span)
	if err != nil {
		return TimeInterval{}, err
	}
	return NewInterval(c.Start, end)
}

// ErrEmptyDomain is returned by Domain for a clock with zero samples.
var ErrEmptyDomain = fmt.Errorf("dptime: sampling clock has no domain (count=0)")

// Equivalent reports whether a and b describe the same sampling
// domain: equal periods, equal counts, and equivalent (normalised)
// start instants. This is the notion correlator keys must use.
func (c SamplingClock) Equivalent(other SamplingClock) (bool, error) {
	if c.PeriodNanos != other.PeriodNanos || c.Count != other.Count {
		return false, nil
	}
	return Equivalent(c.Start, other.Start)
}

// Equals is strict field-wise equality, distinct from Equivalent. It
// is kept here for completeness but no call site in this repo uses
// it — correlator keys always use Equivalent.
func (c SamplingClock) Equals(other SamplingClock) bool {
	return c == other
}

// Key returns the canonical (period, count, normalised start) triple
// used as a correlator grouping key.
func (c SamplingClock) Key() (ClockKey, error) {
	n, err := c.Start.Normalise()
	if err != nil {
		return ClockKey{}, err
	}
	return ClockKey{PeriodNanos: c.PeriodNanos, Count: c.Count, Start: n}, nil
}

// ClockKey is the canonical, comparable form of a SamplingClock used
// as a Go map key.
type ClockKey struct {
	PeriodNanos int64
	Count       int64
	Start       Timestamp
}
