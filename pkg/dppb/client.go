package dppb

import (
	"context"

	"google.golang.org/grpc"
)

// QueryServiceClient is the generated-shape client for the read path,
// exposing the server-streaming and bidirectional-streaming recovery
// RPCs the Connection abstraction surfaces.
type QueryServiceClient interface {
	// QueryData is the unidirectional (server-streaming) recovery RPC:
	// the client sends one request and receives a stream of Frames.
	QueryData(ctx context.Context, req *QueryDataRequest, opts ...grpc.CallOption) (QueryService_QueryDataClient, error)
	// QueryDataBidiStream is the bidirectional variant, allowing the
	// caller to send cursor/page acks back on the same stream.
	QueryDataBidiStream(ctx context.Context, opts ...grpc.CallOption) (QueryService_QueryDataBidiStreamClient, error)
}

// QueryService_QueryDataClient receives Frames on a unidirectional stream.
type QueryService_QueryDataClient interface {
	Recv() (*QueryDataResponse, error)
	grpc.ClientStream
}

// QueryService_QueryDataBidiStreamClient sends requests/acks and
// receives Frames on the same stream.
type QueryService_QueryDataBidiStreamClient interface {
	Send(*QueryDataRequest) error
	Recv() (*QueryDataResponse, error)
	grpc.ClientStream
}

const (
	queryServiceQueryDataMethod           = "/dp.query.v1.QueryService/QueryData"
	queryServiceQueryDataBidiStreamMethod = "/dp.query.v1.QueryService/QueryDataBidiStream"
)

type queryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewQueryServiceClient wraps cc in the QueryServiceClient shape.
func NewQueryServiceClient(cc grpc.ClientConnInterface) QueryServiceClient {
	return &queryServiceClient{cc: cc}
}

func (c *queryServiceClient) QueryData(ctx context.Context, req *QueryDataRequest, opts ...grpc.CallOption) (QueryService_QueryDataClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "QueryData", ServerStreams: true}, queryServiceQueryDataMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &queryServiceQueryDataClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type queryServiceQueryDataClient struct {
	grpc.ClientStream
}

func (x *queryServiceQueryDataClient) Recv() (*QueryDataResponse, error) {
	m := new(QueryDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *queryServiceClient) QueryDataBidiStream(ctx context.Context, opts ...grpc.CallOption) (QueryService_QueryDataBidiStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "QueryDataBidiStream", ServerStreams: true, ClientStreams: true}, queryServiceQueryDataBidiStreamMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &queryServiceQueryDataBidiStreamClient{stream}, nil
}

type queryServiceQueryDataBidiStreamClient struct {
	grpc.ClientStream
}

func (x *queryServiceQueryDataBidiStreamClient) Send(req *QueryDataRequest) error {
	return x.ClientStream.SendMsg(req)
}

func (x *queryServiceQueryDataBidiStreamClient) Recv() (*QueryDataResponse, error) {
	m := new(QueryDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// IngestionServiceClient is the generated-shape client for the write path.
type IngestionServiceClient interface {
	IngestData(ctx context.Context, opts ...grpc.CallOption) (IngestionService_IngestDataClient, error)
}

// IngestionService_IngestDataClient sends IngestDataRequests and
// receives IngestDataResponses (acks) on the same bidirectional-streaming RPC.
type IngestionService_IngestDataClient interface {
	Send(*IngestDataRequest) error
	Recv() (*IngestDataResponse, error)
	grpc.ClientStream
}

const ingestionServiceIngestDataMethod = "/dp.ingest.v1.IngestionService/IngestData"

type ingestionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewIngestionServiceClient wraps cc in the IngestionServiceClient shape.
func NewIngestionServiceClient(cc grpc.ClientConnInterface) IngestionServiceClient {
	return &ingestionServiceClient{cc: cc}
}

func (c *ingestionServiceClient) IngestData(ctx context.Context, opts ...grpc.CallOption) (IngestionService_IngestDataClient, error) {
	stream, err := c.cc.NewStream(ctx, &grpc.StreamDesc{StreamName: "IngestData", ServerStreams: true, ClientStreams: true}, ingestionServiceIngestDataMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &ingestionServiceIngestDataClient{stream}, nil
}

type ingestionServiceIngestDataClient struct {
	grpc.ClientStream
}

func (x *ingestionServiceIngestDataClient) Send(req *IngestDataRequest) error {
	return x.ClientStream.SendMsg(req)
}

func (x *ingestionServiceIngestDataClient) Recv() (*IngestDataResponse, error) {
	m := new(IngestDataResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
