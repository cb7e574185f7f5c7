// Package dprequest implements the Data Request builder: a source set
// plus a time range, with a deterministic fingerprint.
package dprequest

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/google/uuid"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

// Request is a caller-owned query over a set of data sources and a
// time range.
type Request struct {
	Sources   map[string]struct{}
	Range     dptime.TimeInterval
	RequestID string

	hasRange bool
}

// Builder accumulates selections before producing a Request. The zero
// value is ready to use, the same RegisterFlagsAndApplyDefaults-then-
// Validate shape cmd/tempo-federated-querier/config.go uses, applied
// to an in-process builder instead of flags.
type Builder struct {
	sources   map[string]struct{}
	rng       dptime.TimeInterval
	hasRange  bool
	requestID string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{sources: make(map[string]struct{})}
}

// SelectSource adds one source name to the set.
func (b *Builder) SelectSource(name string) *Builder {
	b.sources[name] = struct{}{}
	return b
}

// SelectSources adds every name in list to the set.
func (b *Builder) SelectSources(list []string) *Builder {
	for _, n := range list {
		b.sources[n] = struct{}{}
	}
	return b
}

// RangeBetween sets the range to [start, end].
func (b *Builder) RangeBetween(start, end dptime.Timestamp) *Builder {
	b.rng = dptime.TimeInterval{Start: start, End: end}
	b.hasRange = true
	return b
}

// RangeDuration sets the range to [start, start+d].
func (b *Builder) RangeDuration(start dptime.Timestamp, d int64) *Builder {
	end, err := dptime.AddNanos(start, d)
	if err != nil {
		// d is caller-controlled and expected valid; surfaced at Build.
		b.rng = dptime.TimeInterval{Start: start, End: start}
		b.hasRange = true
		return b
	}
	return b.RangeBetween(start, end)
}

// RangeBefore sets the range to (-inf, ts] represented with a
// zero-value Start, leaving open-ended bounds to the service layer's
// "archive before inception" policy.
func (b *Builder) RangeBefore(ts dptime.Timestamp) *Builder {
	return b.RangeBetween(dptime.Timestamp{}, ts)
}

// RangeAfter sets the range to [ts, +inf) represented with a
// sentinel End of 2^62-1 seconds.
func (b *Builder) RangeAfter(ts dptime.Timestamp) *Builder {
	return b.RangeBetween(ts, dptime.Timestamp{Secs: 1<<62 - 1})
}

// RangeOffset sets the range to [now-d, now].
func (b *Builder) RangeOffset(now dptime.Timestamp, d int64) *Builder {
	start, err := dptime.AddNanos(now, -d)
	if err != nil {
		start = dptime.Timestamp{}
	}
	return b.RangeBetween(start, now)
}

// WithRequestID overrides the default (random) request id.
func (b *Builder) WithRequestID(id string) *Builder {
	b.requestID = id
	return b
}

// Reset clears the builder back to its zero state.
func (b *Builder) Reset() *Builder {
	b.sources = make(map[string]struct{})
	b.rng = dptime.TimeInterval{}
	b.hasRange = false
	b.requestID = ""
	return b
}

// Build validates and returns the Request, returning EmptySourceSet
// or InvalidRange when the accumulated selections don't form a valid
// Request.
func (b *Builder) Build() (Request, error) {
	if len(b.sources) == 0 {
		return Request{}, dperr.ErrEmptySourceSet
	}
	if !b.hasRange {
		return Request{}, dperr.Wrap(dperr.ErrInvalidRequest, "no range selected")
	}
	cmp, err := dptime.Compare(b.rng.Start, b.rng.End)
	if err != nil {
		return Request{}, err
	}
	if cmp >= 0 {
		return Request{}, dperr.ErrInvalidRange
	}

	id := b.requestID
	if id == "" {
		id = uuid.NewString()
	}

	sources := make(map[string]struct{}, len(b.sources))
	for s := range b.sources {
		sources[s] = struct{}{}
	}
	return Request{Sources: sources, Range: b.rng, RequestID: id}, nil
}

// SortedSources returns r's sources in deterministic ascending order.
func (r Request) SortedSources() []string {
	out := make([]string, 0, len(r.Sources))
	for s := range r.Sources {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Fingerprint returns a deterministic, implementation-agnostic digest
// of (sorted sources, start_nanos, end_nanos).
func (r Request) Fingerprint() (string, error) {
	startNanos, err := totalNanosOf(r.Range.Start)
	if err != nil {
		return "", err
	}
	endNanos, err := totalNanosOf(r.Range.End)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, s := range r.SortedSources() {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(startNanos))
	binary.BigEndian.PutUint64(buf[8:16], uint64(endNanos))
	h.Write(buf[:])

	return string(h.Sum(nil)), nil
}

// BuildWire converts r into its wire representation, failing with
// EmptySourceSet if, somehow, r was constructed without going through
// Build (e.g. by a caller composing a zero-value Request directly).
func (r Request) BuildWire() (*dppb.QueryDataRequest, error) {
	if len(r.Sources) == 0 {
		return nil, dperr.ErrEmptySourceSet
	}
	start, err := r.Range.Start.Normalise()
	if err != nil {
		return nil, err
	}
	end, err := r.Range.End.Normalise()
	if err != nil {
		return nil, err
	}
	return &dppb.QueryDataRequest{
		RequestID:   r.RequestID,
		SourceNames: r.SortedSources(),
		StartEpoch:  start.Secs,
		StartNanos:  start.Nanos,
		EndEpoch:    end.Secs,
		EndNanos:    end.Nanos,
	}, nil
}

func totalNanosOf(t dptime.Timestamp) (int64, error) {
	n, err := t.Normalise()
	if err != nil {
		return 0, err
	}
	return n.Secs*int64(1e9) + n.Nanos, nil
}
