package dpdata

import (
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
)

// Status mirrors dppb.Status in the internal domain.
type Status int32

const (
	StatusOK Status = iota
	StatusRejected
	StatusError
)

// Frame is a single response message carrying zero or more Buckets
// and a status, the unit the Message Buffer queues.
type Frame struct {
	// StreamIndex identifies which recovery stream produced this
	// frame, used only to preserve and test per-stream FIFO order; it
	// is not part of the wire contract.
	StreamIndex int
	Status      Status
	Message     string
	Buckets     []Bucket
	ByteSize    int64
}

// IsEmpty reports whether the frame carries no buckets, the no-op
// case for Correlator.PushFrame.
func (f Frame) IsEmpty() bool {
	return len(f.Buckets) == 0
}

// FrameFromWire converts a pkg/dppb.QueryDataResponse into the
// internal Frame representation.
func FrameFromWire(streamIndex int, w *dppb.QueryDataResponse) (Frame, error) {
	f := Frame{
		StreamIndex: streamIndex,
		Status:      Status(w.Status),
		Message:     w.StatusMessage,
		ByteSize:    w.ByteSize,
	}
	f.Buckets = make([]Bucket, 0, len(w.Buckets))
	for _, wb := range w.Buckets {
		b, err := BucketFromWire(wb)
		if err != nil {
			return Frame{}, err
		}
		f.Buckets = append(f.Buckets, b)
	}
	return f, nil
}
