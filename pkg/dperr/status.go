package dperr

import (
	"context"

	gogostatus "github.com/gogo/status"
	"google.golang.org/grpc/codes"
)

// FromGRPC classifies an error returned by a stream or unary RPC call
// into the taxonomy's Timeout/Cancelled/Transport buckets, so a
// per-stream TransportError or Timeout can cancel all sibling streams
// uniformly.
func FromGRPC(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := gogostatus.FromError(err); ok {
		switch s.Code() {
		case codes.DeadlineExceeded:
			return Wrap(ErrTimeout, s.Message())
		case codes.Canceled:
			return Wrap(ErrCancelled, s.Message())
		default:
			return Wrap(ErrTransport, s.Message())
		}
	}
	if err == context.DeadlineExceeded {
		return ErrTimeout
	}
	if err == context.Canceled {
		return ErrCancelled
	}
	return Wrap(ErrTransport, err.Error())
}
