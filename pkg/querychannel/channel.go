// Package querychannel implements the Query Channel: it decomposes
// one Request into sub-requests, opens one recovery
// stream per sub-request against the Query Service, and pumps every
// Frame received into a shared Message Buffer for a consumer to
// drain independently of recovery progress.
//
// Grounded on cmd/tempo-federated-querier/querier.go's
// QueryAllInstances, which fans a single search out across every
// backend instance and merges the per-instance results; here the
// fan-out axis is decompose.Result's sub-requests instead of backend
// instances, and golang.org/x/sync/errgroup replaces querier.go's
// hand-rolled WaitGroup+channel-of-errors for cancellation
// propagation. The per-stream receive loop is grounded on
// cmd/tempo-cli/cmd-query-search.go's searchGRPC, which calls
// stream.Recv() in a loop until io.EOF or a non-nil error.
package querychannel

import (
	"context"
	"io"
	"math"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/decompose"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/framebuffer"
)

// AutoStrategy, used as Config.Strategy, tells Recover to pick both
// the stream count and the decomposition axis itself rather than
// taking an explicit Strategy/K from the caller. It is a sentinel
// value of decompose.Strategy's underlying type, never passed to
// decompose.Split directly — Recover resolves it to a concrete
// Horizontal/Vertical/Grid strategy first.
const AutoStrategy decompose.Strategy = -1

// Config holds the Query Channel's decomposition and streaming knobs.
type Config struct {
	// Strategy selects the decomposition axis. AutoStrategy defers
	// both the axis and the stream count to MaxStreams/
	// MultistreamDomainPivot; any other value uses K as an explicit
	// stream count.
	Strategy decompose.Strategy
	K        int

	// MaxStreams and MultistreamDomainPivot apply only when Strategy
	// is AutoStrategy: est_size(request) is compared against
	// MultistreamDomainPivot, and the resulting stream count is
	// min(MaxStreams, ceil(est_size/MultistreamDomainPivot)).
	MaxStreams             int
	MultistreamDomainPivot uint64

	UseBidiStream bool
	Buffer        framebuffer.Config
}

// DefaultConfig returns a single-stream, unidirectional default.
func DefaultConfig() Config {
	return Config{
		Strategy: decompose.Horizontal,
		K:        1,
		Buffer:   framebuffer.DefaultConfig(),
	}
}

// AutoConfig returns a Config that lets Recover pick the stream count
// and decomposition axis per request, capped at maxStreams and
// switching away from a single stream once est_size(request) exceeds
// pivot.
func AutoConfig(maxStreams int, pivot uint64) Config {
	return Config{
		Strategy:               AutoStrategy,
		MaxStreams:             maxStreams,
		MultistreamDomainPivot: pivot,
		Buffer:                 framebuffer.DefaultConfig(),
	}
}

// estimateSize is est_size(request): the product of its source count
// and its range width in seconds, used only to compare against a
// Config's MultistreamDomainPivot when deciding whether a request is
// worth spreading across more than one stream.
func estimateSize(req dprequest.Request) (uint64, error) {
	width, err := req.Range.WidthNanos()
	if err != nil {
		return 0, err
	}
	seconds := uint64(math.Ceil(float64(width) / 1e9))
	return uint64(len(req.Sources)) * seconds, nil
}

// resolveDecomposition turns an AutoStrategy Config into a concrete
// strategy and stream count for one request, following §4.E step 1:
// below the pivot (or with MaxStreams capped to 1) a single stream is
// used; otherwise the count is min(MaxStreams, ceil(est_size/pivot))
// and the axis is chosen from the request's own shape — Vertical for
// a single-source request, Horizontal once the source count is at
// least that stream count, Grid otherwise.
func resolveDecomposition(req dprequest.Request, cfg Config) (decompose.Strategy, int, error) {
	if cfg.Strategy != AutoStrategy {
		return cfg.Strategy, cfg.K, nil
	}

	maxStreams := cfg.MaxStreams
	if maxStreams < 1 {
		maxStreams = 1
	}

	size, err := estimateSize(req)
	if err != nil {
		return 0, 0, err
	}
	if maxStreams == 1 || size < cfg.MultistreamDomainPivot {
		return decompose.Horizontal, 1, nil
	}

	pivot := cfg.MultistreamDomainPivot
	if pivot == 0 {
		pivot = 1
	}
	k := int(math.Ceil(float64(size) / float64(pivot)))
	if k > maxStreams {
		k = maxStreams
	}
	if k < 1 {
		k = 1
	}

	sources := len(req.Sources)
	switch {
	case sources <= 1:
		return decompose.Vertical, k, nil
	case sources >= k:
		return decompose.Horizontal, k, nil
	default:
		return decompose.Grid, k, nil
	}
}

// Channel recovers one Request's data over one or more gRPC streams,
// feeding a shared Message Buffer. A Channel is single-use: call
// Recover once, drain the returned Buffer, then discard the Channel.
type Channel struct {
	client dppb.QueryServiceClient
	logger log.Logger

	requestCount  atomic.Int64
	responseCount atomic.Int64

	errMu sync.Mutex
	err   error
}

// New constructs a Channel bound to client. A nil logger defaults to
// a no-op logger.
func New(client dppb.QueryServiceClient, logger log.Logger) *Channel {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Channel{client: client, logger: logger}
}

// RequestCount returns the number of sub-requests dispatched so far.
func (ch *Channel) RequestCount() int {
	return int(ch.requestCount.Load())
}

// ResponseCount returns the number of Frames received so far, across
// every stream.
func (ch *Channel) ResponseCount() int {
	return int(ch.responseCount.Load())
}

// Error returns the first error recorded by any stream, or nil.
func (ch *Channel) Error() error {
	ch.errMu.Lock()
	defer ch.errMu.Unlock()
	return ch.err
}

func (ch *Channel) recordErr(err error) {
	ch.errMu.Lock()
	defer ch.errMu.Unlock()
	if ch.err == nil {
		ch.err = err
	}
}

// Recover decomposes req per cfg, opens one stream per sub-request,
// and returns a Buffer that will receive every Frame recovered. The
// Buffer is Activated before Recover returns; it transitions to
// Draining/Closed once every stream finishes, whether normally or on
// error.
func (ch *Channel) Recover(ctx context.Context, req dprequest.Request, cfg Config) (*framebuffer.Buffer, error) {
	strategy, k, err := resolveDecomposition(req, cfg)
	if err != nil {
		return nil, err
	}
	result, err := decompose.Split(req, strategy, k)
	if err != nil {
		return nil, err
	}

	buf := framebuffer.New(cfg.Buffer, ch.logger)
	if err := buf.Activate(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range result.Requests {
		i, sub := i, sub
		ch.requestCount.Add(1)
		g.Go(func() error {
			return ch.pumpStream(gctx, i, sub, cfg, buf)
		})
	}

	go func() {
		err := g.Wait()
		if err != nil {
			ch.recordErr(err)
			if _, shutErr := buf.ShutdownNow(); shutErr != nil {
				level.Warn(ch.logger).Log("msg", "shutdown_now after stream error failed", "err", shutErr)
			}
			return
		}
		if shutErr := buf.Shutdown(); shutErr != nil {
			level.Warn(ch.logger).Log("msg", "shutdown after successful recovery failed", "err", shutErr)
		}
	}()

	return buf, nil
}

func (ch *Channel) pumpStream(ctx context.Context, streamIndex int, sub dprequest.Request, cfg Config, buf *framebuffer.Buffer) error {
	wireReq, err := sub.BuildWire()
	if err != nil {
		return err
	}

	if cfg.UseBidiStream {
		return ch.pumpBidiStream(ctx, streamIndex, wireReq, buf)
	}
	return ch.pumpUnaryStream(ctx, streamIndex, wireReq, buf)
}

func (ch *Channel) pumpUnaryStream(ctx context.Context, streamIndex int, wireReq *dppb.QueryDataRequest, buf *framebuffer.Buffer) error {
	stream, err := ch.client.QueryData(ctx, wireReq)
	if err != nil {
		return dperr.FromGRPC(err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return dperr.FromGRPC(err)
		}
		if err := ch.deliver(ctx, streamIndex, resp, buf); err != nil {
			return err
		}
	}
}

func (ch *Channel) pumpBidiStream(ctx context.Context, streamIndex int, wireReq *dppb.QueryDataRequest, buf *framebuffer.Buffer) error {
	stream, err := ch.client.QueryDataBidiStream(ctx)
	if err != nil {
		return dperr.FromGRPC(err)
	}
	if err := stream.Send(wireReq); err != nil {
		return dperr.FromGRPC(err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return dperr.FromGRPC(err)
		}
		if err := ch.deliver(ctx, streamIndex, resp, buf); err != nil {
			return err
		}
	}
}

func (ch *Channel) deliver(ctx context.Context, streamIndex int, resp *dppb.QueryDataResponse, buf *framebuffer.Buffer) error {
	frame, err := dpdata.FrameFromWire(streamIndex, resp)
	if err != nil {
		return err
	}
	ch.responseCount.Add(1)
	if frame.Status == dpdata.StatusError {
		return dperr.Wrap(dperr.ErrTransport, frame.Message)
	}
	return buf.Offer(ctx, frame)
}
