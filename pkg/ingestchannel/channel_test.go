package ingestchannel

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"google.golang.org/grpc"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

// sliceSupplier hands out a fixed slice of Buckets, safe for
// concurrent Next calls.
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

func testBucket(source string, reject bool) dpdata.Bucket {
	return dpdata.Bucket{
		SourceName: source,
		Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{}, PeriodNanos: 1000, Count: 2},
		Values:     []float64{1, 2},
		ByteSize:   16,
	}
}

type fakeIngestStream struct {
	mu          sync.Mutex
	rejectAll   bool
	received    []*dppb.IngestDataRequest
	acksLeft    int
	closed      bool
	ackLimit    int   // once acksGiven reaches this, Recv fails with recvFailErr; 0 disables
	acksGiven   int
	recvFailErr error
	grpc.ClientStream
}

func (s *fakeIngestStream) Send(req *dppb.IngestDataRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, req)
	s.acksLeft++
	return nil
}

func (s *fakeIngestStream) Recv() (*dppb.IngestDataResponse, error) {
	for {
		s.mu.Lock()
		if s.ackLimit > 0 && s.acksGiven >= s.ackLimit {
			s.mu.Unlock()
			return nil, s.recvFailErr
		}
		if s.acksLeft > 0 {
			s.acksLeft--
			s.acksGiven++
			status := dppb.StatusOK
			if s.rejectAll {
				status = dppb.StatusRejected
			}
			s.mu.Unlock()
			return &dppb.IngestDataResponse{Status: status}, nil
		}
		if s.closed {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (s *fakeIngestStream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeIngestClient struct {
	stream *fakeIngestStream
}

func (f *fakeIngestClient) IngestData(ctx context.Context, opts ...grpc.CallOption) (dppb.IngestionService_IngestDataClient, error) {
	return f.stream, nil
}

func TestIngestSingleStreamAllAcked(t *testing.T) {
	stream := &fakeIngestStream{}
	client := &fakeIngestClient{stream: stream}
	ch := New(client, nil)

	supplier := &sliceSupplier{buckets: []dpdata.Bucket{
		testBucket("a", false),
		testBucket("b", false),
		testBucket("c", false),
	}}

	res, err := ch.Ingest(context.Background(), "req-1", supplier, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 3, res.Acked)
	assert.Equal(t, 0, res.Rejected)
	assert.NoError(t, res.Errors)
	assert.Equal(t, 3, ch.RequestCount())
	assert.Equal(t, 3, ch.ResponseCount())
}

func TestIngestTracksRejections(t *testing.T) {
	stream := &fakeIngestStream{rejectAll: true}
	client := &fakeIngestClient{stream: stream}
	ch := New(client, nil)

	supplier := &sliceSupplier{buckets: []dpdata.Bucket{testBucket("a", true)}}

	res, err := ch.Ingest(context.Background(), "req-2", supplier, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Acked)
	assert.Equal(t, 1, res.Rejected)
}

func TestIngestMidFlightFailureRecordsOneErrorPerDroppedMessage(t *testing.T) {
	stream := &fakeIngestStream{ackLimit: 3, recvFailErr: io.ErrClosedPipe}
	client := &fakeIngestClient{stream: stream}
	ch := New(client, nil)

	supplier := &sliceSupplier{buckets: []dpdata.Bucket{
		testBucket("a", false),
		testBucket("b", false),
		testBucket("c", false),
		testBucket("d", false),
		testBucket("e", false),
	}}

	res, err := ch.Ingest(context.Background(), "req-4", supplier, DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, 5, res.Sent)
	assert.Equal(t, 3, res.Acked)
	assert.Equal(t, 0, res.Rejected)
	assert.Equal(t, res.Sent, res.Acked+len(multierr.Errors(res.Errors)),
		"request_count must equal accepted+rejected+errors.len()")
}

func TestIngestEmptySupplierSendsNothing(t *testing.T) {
	stream := &fakeIngestStream{}
	client := &fakeIngestClient{stream: stream}
	ch := New(client, nil)

	supplier := &sliceSupplier{}
	res, err := ch.Ingest(context.Background(), "req-3", supplier, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 0, res.Acked)
}
