package dptime

import (
	"fmt"
	"hash/fnv"
)

// TimestampList is a strictly-increasing, explicit sequence of instants.
type TimestampList struct {
	Timestamps []Timestamp
}

// Validate checks strict monotonicity.
func (l TimestampList) Validate() error {
	for i := 1; i < len(l.Timestamps); i++ {
		c, err := Compare(l.Timestamps[i-1], l.Timestamps[i])
		if err != nil {
			return err
		}
		if c >= 0 {
			return fmt.Errorf("dptime: timestamp list not strictly increasing at index %d", i)
		}
	}
	return nil
}

// Domain returns the closed interval spanned by the list. An empty
// list has no domain.
func (l TimestampList) Domain() (TimeInterval, error) {
	if len(l.Timestamps) == 0 {
		return TimeInterval{}, ErrEmptyDomain
	}
	if err := l.Validate(); err != nil {
		return TimeInterval{}, err
	}
	return NewInterval(l.Timestamps[0], l.Timestamps[len(l.Timestamps)-1])
}

// ContentHash returns a content-derived hash of the list, used as a
// provisional correlator grouping key before an equality check
// resolves any hash collision.
func (l TimestampList) ContentHash() (uint64, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	h := fnv.New64a()
	for _, ts := range l.Timestamps {
		n, err := ts.Normalise()
		if err != nil {
			return 0, err
		}
		fmt.Fprintf(h, "%d:%d;", n.Secs, n.Nanos)
	}
	return h.Sum64(), nil
}

// Equal reports whether two lists denote the identical sequence of
// instants after normalisation — used to resolve a ContentHash
// collision.
func (l TimestampList) Equal(other TimestampList) (bool, error) {
	if len(l.Timestamps) != len(other.Timestamps) {
		return false, nil
	}
	for i := range l.Timestamps {
		eq, err := Equivalent(l.Timestamps[i], other.Timestamps[i])
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}
