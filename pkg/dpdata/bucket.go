// Package dpdata holds the core domain types shared by the read-path
// engines: Bucket, Frame, and CorrelatedBlock. These are the decoded,
// internal counterparts of the wire types in pkg/dppb — wire Frames
// are converted to the internal Frame type before they ever reach the
// Message Buffer, so that neither the buffer nor the correlator
// depends on the wire package directly.
package dpdata

import (
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

// Bucket is a per-source value carrier: a timestamp specification
// (either a SamplingClock or a TimestampList, never both) plus one
// value per timestamp.
type Bucket struct {
	SourceName string
	Clock      *dptime.SamplingClock
	Explicit   *dptime.TimestampList
	Values     []float64
	ByteSize   int64
}

// SampleCount returns the number of timestamps this bucket's
// specification carries.
func (b Bucket) SampleCount() (int64, error) {
	switch {
	case b.Clock != nil:
		if err := b.Clock.Validate(); err != nil {
			return 0, err
		}
		return b.Clock.Count, nil
	case b.Explicit != nil:
		return int64(len(b.Explicit.Timestamps)), nil
	default:
		return 0, fmt.Errorf("dpdata: bucket %q has neither a sampling clock nor an explicit timestamp list", b.SourceName)
	}
}

// Validate checks the InvalidBucket invariant: the bucket's value
// count must equal its timestamp count.
func (b Bucket) Validate() error {
	n, err := b.SampleCount()
	if err != nil {
		return err
	}
	if int64(len(b.Values)) != n {
		return dperr.Wrapf(dperr.ErrInvalidBucket, "source %q: %d values for %d timestamps", b.SourceName, len(b.Values), n)
	}
	return nil
}

// Domain returns the closed time interval this bucket's timestamp
// specification spans.
func (b Bucket) Domain() (dptime.TimeInterval, error) {
	switch {
	case b.Clock != nil:
		return b.Clock.Domain()
	case b.Explicit != nil:
		return b.Explicit.Domain()
	default:
		return dptime.TimeInterval{}, fmt.Errorf("dpdata: bucket %q has no timestamp specification", b.SourceName)
	}
}

// BucketFromWire converts a pkg/dppb.Bucket into the internal
// representation.
func BucketFromWire(w *dppb.Bucket) (Bucket, error) {
	if w == nil {
		return Bucket{}, fmt.Errorf("dpdata: nil wire bucket")
	}
	b := Bucket{
		SourceName: w.SourceName,
		Values:     w.Values,
		ByteSize:   w.ValueByteCount,
	}
	switch {
	case w.Clock != nil:
		if w.Clock.Start == nil {
			return Bucket{}, fmt.Errorf("dpdata: bucket %q clock missing start", w.SourceName)
		}
		b.Clock = &dptime.SamplingClock{
			Start:       dptime.Timestamp{Secs: w.Clock.Start.EpochSeconds, Nanos: w.Clock.Start.Nanos},
			PeriodNanos: w.Clock.PeriodNanos,
			Count:       w.Clock.Count,
		}
	case w.ExplicitTimes != nil:
		ts := make([]dptime.Timestamp, len(w.ExplicitTimes.Timestamps))
		for i, t := range w.ExplicitTimes.Timestamps {
			if t == nil {
				return Bucket{}, fmt.Errorf("dpdata: bucket %q has a nil explicit timestamp at index %d", w.SourceName, i)
			}
			ts[i] = dptime.Timestamp{Secs: t.EpochSeconds, Nanos: t.Nanos}
		}
		b.Explicit = &dptime.TimestampList{Timestamps: ts}
	default:
		return Bucket{}, fmt.Errorf("dpdata: bucket %q has neither a clock nor explicit timestamps on the wire", w.SourceName)
	}
	return b, nil
}

// ToWire converts b back into its wire representation, e.g. for the
// ingestion write path.
func (b Bucket) ToWire() *dppb.Bucket {
	w := &dppb.Bucket{
		SourceName:     b.SourceName,
		Values:         b.Values,
		ValueByteCount: b.ByteSize,
	}
	if b.Clock != nil {
		w.Clock = &dppb.SamplingClock{
			Start:       &dppb.Timestamp{EpochSeconds: b.Clock.Start.Secs, Nanos: b.Clock.Start.Nanos},
			PeriodNanos: b.Clock.PeriodNanos,
			Count:       b.Clock.Count,
		}
	}
	if b.Explicit != nil {
		ts := make([]*dppb.Timestamp, len(b.Explicit.Timestamps))
		for i, t := range b.Explicit.Timestamps {
			ts[i] = &dppb.Timestamp{EpochSeconds: t.Secs, Nanos: t.Nanos}
		}
		w.ExplicitTimes = &dppb.TimestampList{Timestamps: ts}
	}
	return w
}
