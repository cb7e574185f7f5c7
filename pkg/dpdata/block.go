package dpdata

import "github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"

// CorrelatedBlock is a maximal set of Buckets sharing one timestamp
// specification. It owns the shared timestamps, a
// source -> values mapping, and a running byte-allocation counter.
type CorrelatedBlock struct {
	Clock    *dptime.SamplingClock
	Explicit *dptime.TimestampList
	Values   map[string][]float64
	Bytes    int64
}

// SourceCount returns the number of distinct sources in the block.
func (c *CorrelatedBlock) SourceCount() int {
	return len(c.Values)
}

// SampleCount returns the number of timestamps shared by every bucket
// in the block.
func (c *CorrelatedBlock) SampleCount() (int64, error) {
	switch {
	case c.Clock != nil:
		return c.Clock.Count, nil
	case c.Explicit != nil:
		return int64(len(c.Explicit.Timestamps)), nil
	default:
		return 0, nil
	}
}

// Domain returns the closed interval the block's shared timestamps span.
func (c *CorrelatedBlock) Domain() (dptime.TimeInterval, error) {
	switch {
	case c.Clock != nil:
		return c.Clock.Domain()
	case c.Explicit != nil:
		return c.Explicit.Domain()
	default:
		return dptime.TimeInterval{}, dptime.ErrEmptyDomain
	}
}
