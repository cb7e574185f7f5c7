// Package ingestchannel implements the Ingestion Channel: the
// write-path mirror of pkg/querychannel. It pulls Buckets
// from a caller-supplied source, sends each as an IngestDataRequest
// over one or more parallel upstream RPCs, and aggregates the acks
// into one Result.
//
// Grounded on the same errgroup-supervised worker shape as
// pkg/querychannel, with the send/ack loop modeled on
// cmd/tempo-cli/cmd-write-trace.go's span-emission loop (a bounded
// loop pulling from a source, one RPC call per item) turned around to
// the write/ack direction: here every send has a corresponding async
// recv that classifies the resulting ack.
package ingestchannel

import (
	"context"
	"io"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
)

// MessageSupplier yields Buckets to send, one at a time. Next must
// return dperr.ErrEndOfStream once exhausted. Implementations must be
// safe for concurrent calls when Config.Streams > 1.
type MessageSupplier interface {
	Next(ctx context.Context) (dpdata.Bucket, error)
}

// Config holds the Ingestion Channel's fan-out knob.
type Config struct {
	Streams int
}

// DefaultConfig returns a single-stream default.
func DefaultConfig() Config {
	return Config{Streams: 1}
}

// Result aggregates the outcome of one Ingest call.
type Result struct {
	Sent     int
	Acked    int
	Rejected int
	Errors   error // multierr-aggregated per-message failures, nil if none
}

// Channel sends Buckets over the write path and tracks acks. A
// Channel is single-use per call to Ingest.
type Channel struct {
	client dppb.IngestionServiceClient
	logger log.Logger

	requestCount  atomic.Int64
	responseCount atomic.Int64
}

// New constructs a Channel bound to client. A nil logger defaults to
// a no-op logger.
func New(client dppb.IngestionServiceClient, logger log.Logger) *Channel {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Channel{client: client, logger: logger}
}

// RequestCount returns the number of IngestDataRequests sent so far.
func (ch *Channel) RequestCount() int {
	return int(ch.requestCount.Load())
}

// ResponseCount returns the number of acks received so far.
func (ch *Channel) ResponseCount() int {
	return int(ch.responseCount.Load())
}

// Ingest drains supplier over cfg.Streams parallel upstream RPCs
// sharing requestID, returning the aggregated Result once every
// stream has sent its last message and drained its acks.
func (ch *Channel) Ingest(ctx context.Context, requestID string, supplier MessageSupplier, cfg Config) (Result, error) {
	if cfg.Streams < 1 {
		cfg.Streams = 1
	}

	var (
		mu  sync.Mutex
		res Result
	)
	merge := func(sent, acked, rejected int, errs []error) {
		mu.Lock()
		defer mu.Unlock()
		res.Sent += sent
		res.Acked += acked
		res.Rejected += rejected
		for _, e := range errs {
			res.Errors = multierr.Append(res.Errors, e)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Streams; i++ {
		g.Go(func() error {
			sent, acked, rejected, errs := ch.runStream(gctx, requestID, supplier)
			merge(sent, acked, rejected, errs)
			if len(errs) > 0 {
				return errs[0]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

// runStream sends buckets from supplier over one upstream RPC until
// the supplier is exhausted or the stream fails. On a mid-flight
// failure, every message sent but never acked is reported as its own
// entry in errs so request_count stays equal to
// accepted + rejected + len(errs) at the Result level — one
// aggregated error per stream would undercount the dropped messages.
func (ch *Channel) runStream(ctx context.Context, requestID string, supplier MessageSupplier) (sent, acked, rejected int, errs []error) {
	stream, err := ch.client.IngestData(ctx)
	if err != nil {
		return 0, 0, 0, []error{dperr.FromGRPC(err)}
	}

	recvDone := make(chan struct{})
	var recvErr error
	go func() {
		defer close(recvDone)
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				recvErr = dperr.FromGRPC(err)
				return
			}
			ch.responseCount.Add(1)
			acked++
			if resp.Status == dppb.StatusRejected {
				rejected++
				level.Debug(ch.logger).Log("msg", "ingestion message rejected", "request_id", resp.RequestID, "reason", resp.RejectReason)
			}
		}
	}()

	var sendErr error
	for {
		bucket, err := supplier.Next(ctx)
		if err == dperr.ErrEndOfStream {
			break
		}
		if err != nil {
			sendErr = err
			break
		}

		req := &dppb.IngestDataRequest{RequestID: requestID, Bucket: bucket.ToWire()}
		if err := stream.Send(req); err != nil {
			sendErr = dperr.FromGRPC(err)
			break
		}
		ch.requestCount.Add(1)
		sent++
	}

	_ = stream.CloseSend()
	<-recvDone

	cause := sendErr
	if cause == nil {
		cause = recvErr
	}

	shortfall := sent - acked
	if shortfall <= 0 {
		if cause != nil {
			errs = append(errs, cause)
		}
		return sent, acked, rejected, errs
	}

	if cause == nil {
		cause = dperr.ErrTransport
	}
	errs = make([]error, 0, shortfall)
	for i := 0; i < shortfall; i++ {
		errs = append(errs, dperr.Wrapf(cause, "message %d of %d dropped before ack", acked+i+1, sent))
	}
	return sent, acked, rejected, errs
}
