// Package dpconn implements the Connection abstraction: one value
// owning the transport channel, exposing the generated-shape query
// and ingestion service clients that pkg/querychannel and
// pkg/ingestchannel drive directly for their unary, server-streaming,
// and bidirectional-streaming RPCs. Construction, credential
// plumbing, and keepalive options are kept out of the core channels,
// but the type itself is needed by every channel in this repo, so it
// lives here rather than in an external package.
//
// Grounded on the repeated grpc.DialContext(ctx, hostPort,
// grpc.WithTransportCredentials(...)) calls in
// cmd/tempo-cli/cmd-query-search.go and
// cmd/tempo-cli/cmd-query-metrics-query-range.go.
package dpconn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/keepalive"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dppb"
)

const defaultKeepaliveTime = 30 * time.Second

// TLSMode selects the connection's transport security.
type TLSMode int

const (
	TLSOff TLSMode = iota
	TLSSystemDefault
	TLSFromFiles
)

// Security holds the connection's transport options. PlainText, when
// true, disables TLS regardless of every other field.
type Security struct {
	TLS                   TLSMode
	TrustedCertsPath      string
	ClientCertChainPath   string
	ClientKeyPath         string
	PlainText             bool
	KeepAliveWithoutCalls bool
	MaxMessageBytes       uint32 // must be a power of two
	GzipCompression       bool
	KeepAliveTimeLimit    int64 // (limit, unit) collapsed to nanoseconds
}

// Validate checks MaxMessageBytes is a power of two when set.
func (s Security) Validate() error {
	if s.MaxMessageBytes != 0 && s.MaxMessageBytes&(s.MaxMessageBytes-1) != 0 {
		return dperr.Wrapf(dperr.ErrConfig, "max_message_bytes %d is not a power of two", s.MaxMessageBytes)
	}
	return nil
}

// Connection owns one gRPC channel plus the generated-shape service
// clients for both the query and ingestion services.
type Connection struct {
	cc     *grpc.ClientConn
	query  dppb.QueryServiceClient
	ingest dppb.IngestionServiceClient
}

// Dial opens a Connection to hostPort under the given security options.
func Dial(ctx context.Context, hostPort string, sec Security) (*Connection, error) {
	if err := sec.Validate(); err != nil {
		return nil, err
	}

	cred, err := dialCredentials(sec)
	if err != nil {
		return nil, err
	}
	opts := []grpc.DialOption{cred}
	if sec.KeepAliveWithoutCalls || sec.KeepAliveTimeLimit > 0 {
		opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                durationOrDefault(sec.KeepAliveTimeLimit),
			PermitWithoutStream: sec.KeepAliveWithoutCalls,
		}))
	}
	if sec.MaxMessageBytes > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(int(sec.MaxMessageBytes)),
			grpc.MaxCallSendMsgSize(int(sec.MaxMessageBytes)),
		))
	}
	if sec.GzipCompression {
		opts = append(opts, grpc.WithDefaultCallOptions(grpc.UseCompressor(gzip.Name)))
	}

	cc, err := grpc.DialContext(ctx, hostPort, opts...)
	if err != nil {
		return nil, dperr.FromGRPC(err)
	}

	return &Connection{
		cc:     cc,
		query:  dppb.NewQueryServiceClient(cc),
		ingest: dppb.NewIngestionServiceClient(cc),
	}, nil
}

func dialCredentials(sec Security) (grpc.DialOption, error) {
	if sec.PlainText || sec.TLS == TLSOff {
		return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
	}

	switch sec.TLS {
	case TLSFromFiles:
		creds, err := loadTLSFromFiles(sec)
		if err != nil {
			return nil, dperr.Wrap(dperr.ErrConfig, err.Error())
		}
		return grpc.WithTransportCredentials(creds), nil
	case TLSSystemDefault:
		return grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})), nil
	default:
		return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
	}
}

func loadTLSFromFiles(sec Security) (credentials.TransportCredentials, error) {
	pool := x509.NewCertPool()
	pem, err := os.ReadFile(sec.TrustedCertsPath)
	if err != nil {
		return nil, err
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, dperr.Wrapf(dperr.ErrConfig, "no certs parsed from %s", sec.TrustedCertsPath)
	}

	cfg := &tls.Config{RootCAs: pool}
	if sec.ClientCertChainPath != "" {
		cert, err := tls.LoadX509KeyPair(sec.ClientCertChainPath, sec.ClientKeyPath)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return credentials.NewTLS(cfg), nil
}

func durationOrDefault(nanos int64) time.Duration {
	if nanos <= 0 {
		return defaultKeepaliveTime
	}
	return time.Duration(nanos)
}

// Close closes the underlying channel.
func (c *Connection) Close() error {
	return c.cc.Close()
}

// QueryClient returns the generated-shape read-path client.
func (c *Connection) QueryClient() dppb.QueryServiceClient {
	return c.query
}

// IngestClient returns the generated-shape write-path client.
func (c *Connection) IngestClient() dppb.IngestionServiceClient {
	return c.ingest
}
