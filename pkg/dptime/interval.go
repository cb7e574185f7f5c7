package dptime

import "fmt"

// TimeInterval is a closed [Start, End] interval with Start <= End.
type TimeInterval struct {
	Start Timestamp
	End   Timestamp
}

// NewInterval validates start <= end and returns the interval.
func NewInterval(start, end Timestamp) (TimeInterval, error) {
	c, err := Compare(start, end)
	if err != nil {
		return TimeInterval{}, err
	}
	if c > 0 {
		return TimeInterval{}, fmt.Errorf("dptime: invalid interval, start %+v after end %+v", start, end)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// IntersectsClosed reports whether a and b, treated as closed
// intervals, share at least one instant. Symmetric in a and b.
func IntersectsClosed(a, b TimeInterval) (bool, error) {
	aStartLEbEnd, err := Compare(a.Start, b.End)
	if err != nil {
		return false, err
	}
	bStartLEaEnd, err := Compare(b.Start, a.End)
	if err != nil {
		return false, err
	}
	return aStartLEbEnd <= 0 && bStartLEaEnd <= 0, nil
}

// WidthNanos returns End-Start in nanoseconds, or an error on overflow.
func (iv TimeInterval) WidthNanos() (int64, error) {
	startNanos, ok := toTotalNanos(iv.Start)
	if !ok {
		return 0, fmt.Errorf("dptime: start %+v does not fit in total nanos", iv.Start)
	}
	endNanos, ok := toTotalNanos(iv.End)
	if !ok {
		return 0, fmt.Errorf("dptime: end %+v does not fit in total nanos", iv.End)
	}
	width, ok := subInt64(endNanos, startNanos)
	if !ok {
		return 0, fmt.Errorf("dptime: interval width overflow for %+v", iv)
	}
	return width, nil
}

func toTotalNanos(t Timestamp) (int64, bool) {
	n, err := t.Normalise()
	if err != nil {
		return 0, false
	}
	secsAsNanos, ok := mulInt64(n.Secs, nanosPerSecond)
	if !ok {
		return 0, false
	}
	return addInt64(secsAsNanos, n.Nanos)
}

func subInt64(a, b int64) (int64, bool) {
	return addInt64(a, -b)
}
