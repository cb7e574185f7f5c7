// Package dptime implements the time and domain primitives: normalised
// timestamps, closed time intervals, and sampling clocks.
package dptime

import (
	"fmt"
	"math"
)

const nanosPerSecond = int64(1e9)

// Timestamp is an (epoch seconds, nanos) pair. Normal form requires
// 0 <= Nanos < 1e9; use Normalise to obtain it.
type Timestamp struct {
	Secs  int64
	Nanos int64
}

// Normalise returns t in normal form, or an error if doing so would
// overflow an int64.
func (t Timestamp) Normalise() (Timestamp, error) {
	if t.Nanos >= 0 && t.Nanos < nanosPerSecond {
		return t, nil
	}

	q := t.Nanos / nanosPerSecond
	r := t.Nanos % nanosPerSecond
	if r < 0 {
		r += nanosPerSecond
		q--
	}

	secs, ok := addInt64(t.Secs, q)
	if !ok {
		return Timestamp{}, fmt.Errorf("dptime: normalise overflow for %+v", t)
	}
	return Timestamp{Secs: secs, Nanos: r}, nil
}

// MustNormalise panics on overflow. Used only where the input is
// known-valid, e.g. literals in tests.
func (t Timestamp) MustNormalise() Timestamp {
	n, err := t.Normalise()
	if err != nil {
		panic(err)
	}
	return n
}

// Equivalent reports whether a and b denote the same instant after
// normalisation.
func Equivalent(a, b Timestamp) (bool, error) {
	na, err := a.Normalise()
	if err != nil {
		return false, err
	}
	nb, err := b.Normalise()
	if err != nil {
		return false, err
	}
	return na == nb, nil
}

// Compare returns -1, 0, or 1 as a is before, equivalent to, or after b.
func Compare(a, b Timestamp) (int, error) {
	na, err := a.Normalise()
	if err != nil {
		return 0, err
	}
	nb, err := b.Normalise()
	if err != nil {
		return 0, err
	}
	switch {
	case na.Secs != nb.Secs:
		if na.Secs < nb.Secs {
			return -1, nil
		}
		return 1, nil
	case na.Nanos != nb.Nanos:
		if na.Nanos < nb.Nanos {
			return -1, nil
		}
		return 1, nil
	default:
		return 0, nil
	}
}

// AddNanos returns t shifted by n nanoseconds, normalised.
func AddNanos(t Timestamp, n int64) (Timestamp, error) {
	nanos, ok := addInt64(t.Nanos, n)
	if !ok {
		return Timestamp{}, fmt.Errorf("dptime: add_nanos overflow for %+v + %d", t, n)
	}
	return Timestamp{Secs: t.Secs, Nanos: nanos}.Normalise()
}

func addInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// mulInt64 reports a*b and whether it overflowed int64.
func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	if a == math.MinInt64 || b == math.MinInt64 {
		return 0, false
	}
	return p, true
}
