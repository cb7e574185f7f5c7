// Package decompose splits a single dprequest.Request into a set of
// smaller sub-requests along the source axis, the time axis, or a
// grid of both. It is a pure package: building the set of sub-units
// is kept separate from the worker pool that recovers them
// (pkg/querychannel) — the same separation cmd/tempo-federated-querier/
// querier.go's QueryAllInstances draws between building a fan-out
// list and running it: that function takes a pre-built client slice
// and does not construct one itself.
package decompose

import (
	"fmt"
	"math"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

// Strategy selects the axis (or axes) a Request is split along.
type Strategy int

const (
	Horizontal Strategy = iota // source-parallel
	Vertical                   // time-parallel
	Grid                       // both axes
)

// Result is the outcome of a Split call: the sub-requests and the
// effective count actually used, which may be lower than the
// requested K when K exceeded the ceiling on that axis.
type Result struct {
	Requests     []dprequest.Request
	EffectiveK   int
}

// Split partitions r into up to k sub-requests under strategy s.
func Split(r dprequest.Request, s Strategy, k int) (Result, error) {
	if k < 1 {
		return Result{}, fmt.Errorf("decompose: k must be >= 1, got %d", k)
	}
	if k == 1 {
		return Result{Requests: []dprequest.Request{r}, EffectiveK: 1}, nil
	}

	switch s {
	case Horizontal:
		return splitHorizontal(r, k)
	case Vertical:
		return splitVertical(r, k)
	case Grid:
		return splitGrid(r, k)
	default:
		return Result{}, fmt.Errorf("decompose: unknown strategy %d", s)
	}
}

func splitHorizontal(r dprequest.Request, k int) (Result, error) {
	sources := r.SortedSources()
	if k > len(sources) {
		k = len(sources)
	}
	if k < 1 {
		k = 1
	}

	slices := partitionContiguous(len(sources), k)
	out := make([]dprequest.Request, 0, k)
	offset := 0
	for _, size := range slices {
		sub := sources[offset : offset+size]
		offset += size

		sb := dprequest.NewBuilder().SelectSources(sub).RangeBetween(r.Range.Start, r.Range.End)
		req, err := sb.Build()
		if err != nil {
			return Result{}, err
		}
		out = append(out, req)
	}
	return Result{Requests: out, EffectiveK: len(out)}, nil
}

func splitVertical(r dprequest.Request, k int) (Result, error) {
	width, err := r.Range.WidthNanos()
	if err != nil {
		return Result{}, err
	}
	if width < 0 {
		return Result{}, dperr.ErrInvalidRange
	}
	if int64(k) > width && width > 0 {
		k = int(width)
	}
	if k < 1 {
		k = 1
	}

	sources := r.SortedSources()
	bounds, err := subIntervalBounds(r.Range.Start, width, k)
	if err != nil {
		return Result{}, err
	}

	out := make([]dprequest.Request, 0, k)
	for _, b := range bounds {
		sb := dprequest.NewBuilder().SelectSources(sources).RangeBetween(b.Start, b.End)
		req, err := sb.Build()
		if err != nil {
			return Result{}, err
		}
		out = append(out, req)
	}
	return Result{Requests: out, EffectiveK: len(out)}, nil
}

// subIntervalBounds divides [start, start+width] into n adjacent
// sub-intervals, half-open except the last, which is closed, so their
// union equals the original range exactly with no sample duplicated
// at a boundary. Since TimeInterval is represented as a closed
// [start,end] pair, the half-open upper bound is approximated by
// ending each non-final sub-interval one nanosecond before the next
// one starts.
func subIntervalBounds(start dptime.Timestamp, width int64, n int) ([]dptime.TimeInterval, error) {
	base := width / int64(n)
	remainder := width % int64(n)

	out := make([]dptime.TimeInterval, 0, n)
	cursor := start
	for i := 0; i < n; i++ {
		size := base
		if i == n-1 {
			size += remainder
		}
		subStart := cursor
		subEnd, err := dptime.AddNanos(cursor, size)
		if err != nil {
			return nil, err
		}

		endForThisSlice := subEnd
		if i < n-1 {
			endForThisSlice, err = dptime.AddNanos(subEnd, -1)
			if err != nil {
				return nil, err
			}
		}

		iv, err := dptime.NewInterval(subStart, endForThisSlice)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
		cursor = subEnd
	}
	return out, nil
}

// splitGrid picks a near-square sourceSlices x timeSlices grid whose
// product is k, then caps each axis to its own ceiling (source count,
// range width). A cap on one axis is followed by recomputing the
// other as ceil(k / cappedAxis) rather than leaving it at its
// original uncapped value, so the grid still yields k sub-requests
// whenever the two ceilings' product allows it; only when
// len(sources)*width < k is the effective count left below k.
func splitGrid(r dprequest.Request, k int) (Result, error) {
	sources := r.SortedSources()
	width, err := r.Range.WidthNanos()
	if err != nil {
		return Result{}, err
	}
	if width < 0 {
		return Result{}, dperr.ErrInvalidRange
	}

	sourceSlices := int(math.Ceil(math.Sqrt(float64(k))))
	if sourceSlices < 1 {
		sourceSlices = 1
	}
	timeSlices := ceilDiv(k, sourceSlices)

	if sourceSlices > len(sources) {
		sourceSlices = maxInt(len(sources), 1)
		timeSlices = ceilDiv(k, sourceSlices)
	}
	if width > 0 && int64(timeSlices) > width {
		timeSlices = maxInt(int(width), 1)
		sourceSlices = ceilDiv(k, timeSlices)
		if sourceSlices > len(sources) {
			sourceSlices = maxInt(len(sources), 1)
		}
	}
	if timeSlices < 1 {
		timeSlices = 1
	}
	if sourceSlices < 1 {
		sourceSlices = 1
	}

	sourceSets := partitionSources(sources, sourceSlices)
	timeBounds, err := subIntervalBounds(r.Range.Start, width, timeSlices)
	if err != nil {
		return Result{}, err
	}

	out := make([]dprequest.Request, 0, sourceSlices*timeSlices)
	for _, tb := range timeBounds {
		for _, ss := range sourceSets {
			sb := dprequest.NewBuilder().SelectSources(ss).RangeBetween(tb.Start, tb.End)
			req, err := sb.Build()
			if err != nil {
				return Result{}, err
			}
			out = append(out, req)
			if len(out) == k {
				return Result{Requests: out, EffectiveK: len(out)}, nil
			}
		}
	}
	return Result{Requests: out, EffectiveK: len(out)}, nil
}

func partitionSources(sources []string, n int) [][]string {
	sizes := partitionContiguous(len(sources), n)
	out := make([][]string, 0, n)
	offset := 0
	for _, size := range sizes {
		out = append(out, sources[offset:offset+size])
		offset += size
	}
	return out
}

// partitionContiguous returns n sizes summing to total. Each size is
// ceil(total/n) unless that would leave a later slice empty, in which
// case it is reduced so every slice gets at least one element; the
// last slice absorbs the rest. Only when total < n are zero-size
// slices produced, and those are dropped, so fewer than n sizes come
// back.
func partitionContiguous(total, n int) []int {
	if n <= 0 {
		return nil
	}
	base := int(math.Ceil(float64(total) / float64(n)))
	sizes := make([]int, 0, n)
	remaining := total
	for i := 0; i < n; i++ {
		if remaining <= 0 {
			sizes = append(sizes, 0)
			continue
		}
		size := base
		if size > remaining {
			size = remaining
		}
		if floor := remaining - (n - i - 1); floor > 0 && size > floor {
			size = floor
		}
		sizes = append(sizes, size)
		remaining -= size
	}
	return compact(sizes)
}

func ceilDiv(a, b int) int {
	if b < 1 {
		b = 1
	}
	return (a + b - 1) / b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func compact(sizes []int) []int {
	out := sizes[:0:0]
	for _, s := range sizes {
		if s > 0 {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return sizes
	}
	return out
}
