// Package dpclient is the thin service façade: it wires a
// Connection's generated clients into a Query Channel and an
// Ingestion Channel and exposes two calls, Query and Ingest. No
// business logic lives here — every decision (decomposition strategy,
// correlation policy, buffering) is made by the package it delegates
// to.
//
// Grounded on cmd/frigg-query/main.go's "load config, construct
// backend, hand caller a ready client" shape, collapsed to a
// constructor plus two passthrough methods since this repo has no
// HTTP server of its own to run.
package dpclient

import (
	"context"
	"sync"

	"github.com/go-kit/log"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/correlator"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpconn"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/ingestchannel"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/querychannel"
)

// Client is the top-level entry point a caller constructs once per
// Connection.
type Client struct {
	conn   *dpconn.Connection
	logger log.Logger
}

// New constructs a Client bound to conn. A nil logger defaults to a
// no-op logger.
func New(conn *dpconn.Connection, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{conn: conn, logger: logger}
}

// QueryResult is the outcome of a Query call: the correlated blocks
// plus the channel's bookkeeping counters, useful for diagnostics and
// for cmd/dp-cli's --pivot/--threads sweeps.
type QueryResult struct {
	Blocks        []dpdata.CorrelatedBlock
	RequestCount  int
	ResponseCount int
}

// Query recovers req's data, correlating every received Frame as it
// arrives, and returns the finished CorrelatedBlocks.
func (c *Client) Query(ctx context.Context, req dprequest.Request, chanCfg querychannel.Config, corrCfg correlator.Config) (QueryResult, error) {
	ch := querychannel.New(c.conn.QueryClient(), c.logger)
	buf, err := ch.Recover(ctx, req, chanCfg)
	if err != nil {
		return QueryResult{}, err
	}

	corr := correlator.New(corrCfg, c.logger)
	for {
		frame, err := buf.Take(ctx)
		if err != nil {
			break
		}
		if err := corr.PushFrame(frame); err != nil {
			return QueryResult{}, err
		}
	}

	if err := ch.Error(); err != nil {
		return QueryResult{}, err
	}

	blocks, err := corr.Finish()
	if err != nil {
		return QueryResult{}, err
	}

	return QueryResult{
		Blocks:        blocks,
		RequestCount:  ch.RequestCount(),
		ResponseCount: ch.ResponseCount(),
	}, nil
}

// Ingest sends every Bucket supplier yields under requestID, over
// cfg.Streams parallel upstream RPCs, and returns the aggregated
// Result.
func (c *Client) Ingest(ctx context.Context, requestID string, supplier ingestchannel.MessageSupplier, cfg ingestchannel.Config) (ingestchannel.Result, error) {
	ch := ingestchannel.New(c.conn.IngestClient(), c.logger)
	return ch.Ingest(ctx, requestID, supplier, cfg)
}

// BucketSupplierFromSlice adapts a fixed slice of Buckets into a
// MessageSupplier, the common case for cmd/dp-cli's fixture-driven
// ingest runs.
func BucketSupplierFromSlice(buckets []dpdata.Bucket) ingestchannel.MessageSupplier {
	return &sliceSupplier{buckets: buckets}
}

// sliceSupplier is safe for concurrent Next calls, since
// ingestchannel.Config.Streams > 1 fans the same supplier out across
// multiple goroutines.
type sliceSupplier struct {
	mu      sync.Mutex
	buckets []dpdata.Bucket
	idx     int
}

func (s *sliceSupplier) Next(ctx context.Context) (dpdata.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.buckets) {
		return dpdata.Bucket{}, dperr.ErrEndOfStream
	}
	b := s.buckets[s.idx]
	s.idx++
	return b, nil
}
