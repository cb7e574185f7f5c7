// Package dppb holds the wire message types exchanged with the Data
// Platform's Ingestion and Query services. The wire schema is treated
// as a fixed, opaque external collaborator; these types give that
// black box a concrete Go shape in the style of a
// protoc-gen-gogo client (gogo/protobuf's legacy Message interface:
// Reset/String/ProtoMessage, exported fields, a NewXxxClient
// constructor over a grpc.ClientConnInterface) without depending on
// an actual .proto/codegen pipeline, since none ships with this spec.
package dppb

import "fmt"

// Status is a Frame or ingestion ack's outcome.
type Status int32

const (
	StatusOK Status = iota
	StatusRejected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRejected:
		return "REJECTED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(s))
	}
}

// Timestamp mirrors dptime.Timestamp on the wire.
type Timestamp struct {
	EpochSeconds int64
	Nanos        int64
}

// SamplingClock mirrors dptime.SamplingClock on the wire.
type SamplingClock struct {
	Start       *Timestamp
	PeriodNanos int64
	Count       int64
}

// TimestampList mirrors dptime.TimestampList on the wire.
type TimestampList struct {
	Timestamps []*Timestamp
}

// Bucket is a per-source payload: either a SamplingClock or a
// TimestampList, plus one float64 per timestamp.
type Bucket struct {
	SourceName     string
	Clock          *SamplingClock
	ExplicitTimes  *TimestampList
	Values         []float64
	ValueByteCount int64
}

// QueryDataRequest is the wire request for the read path.
type QueryDataRequest struct {
	RequestID    string
	SourceNames  []string
	StartEpoch   int64
	StartNanos   int64
	EndEpoch     int64
	EndNanos     int64
	CursorToken  string // set on bidirectional-stream page acks
}

func (*QueryDataRequest) Reset()         {}
func (*QueryDataRequest) String() string { return "QueryDataRequest" }
func (*QueryDataRequest) ProtoMessage()  {}

// QueryDataResponse is a single Frame on the read path.
type QueryDataResponse struct {
	Status        Status
	StatusMessage string
	Buckets       []*Bucket
	ByteSize      int64
}

func (*QueryDataResponse) Reset()         {}
func (*QueryDataResponse) String() string { return "QueryDataResponse" }
func (*QueryDataResponse) ProtoMessage()  {}

// IngestDataRequest is a single outbound write-path message.
type IngestDataRequest struct {
	RequestID string
	Bucket    *Bucket
}

func (*IngestDataRequest) Reset()         {}
func (*IngestDataRequest) String() string { return "IngestDataRequest" }
func (*IngestDataRequest) ProtoMessage()  {}

// IngestDataResponse is the ack for one IngestDataRequest.
type IngestDataResponse struct {
	RequestID     string
	Status        Status
	RejectReason  string
}

func (*IngestDataResponse) Reset()         {}
func (*IngestDataResponse) String() string { return "IngestDataResponse" }
func (*IngestDataResponse) ProtoMessage()  {}
