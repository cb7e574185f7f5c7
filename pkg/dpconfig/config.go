// Package dpconfig is an explicit configuration type tree, in place
// of the kind of overlapping, reflectively bound configuration
// structures this library's upstream surfaces used to carry: one
// Config with a Query and an Ingest field, both of the same
// ServiceConfig shape.
//
// Grounded on cmd/tempo-federated-querier/config.go's
// RegisterFlagsAndApplyDefaults/Validate pattern: defaults are applied
// eagerly by a constructor rather than relying on Go's zero values,
// and Validate returns a sentinel-wrapped error rather than panicking.
package dpconfig

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
)

// ConnectionConfig holds the dpconn.Security options plus the host to
// dial, shared verbatim between the query and ingest sides.
type ConnectionConfig struct {
	HostPort              string        `yaml:"host_port"`
	PlainText             bool          `yaml:"plain_text"`
	TLSSystemDefault      bool          `yaml:"tls_system_default"`
	TrustedCertsPath      string        `yaml:"trusted_certs_path"`
	ClientCertChainPath   string        `yaml:"client_cert_chain_path"`
	ClientKeyPath         string        `yaml:"client_key_path"`
	KeepAliveWithoutCalls bool          `yaml:"keep_alive_without_calls"`
	KeepAliveTime         time.Duration `yaml:"keep_alive_time"`
	MaxMessageBytes       uint32        `yaml:"max_message_bytes"`
	GzipCompression       bool          `yaml:"gzip_compression"`
}

// DecomposeConfig mirrors query.data.request.decompose: whether the
// channel may split a request at all, which axis it prefers, and the
// ceilings beyond which it splits regardless of preference.
type DecomposeConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Preferred   string        `yaml:"preferred"` // Horizontal | Vertical | Grid
	MaxSources  int           `yaml:"max_sources"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

// MultistreamConfig mirrors query.data.response.multistream: the
// Auto decomposition knobs the Query Channel's stream-count-selection
// step consumes.
type MultistreamConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MaxStreams  int    `yaml:"max_streams"`
	DomainPivot uint64 `yaml:"domain_pivot"`
}

// ConcurrencyConfig mirrors query.data.recovery.correlate.concurrency.
type ConcurrencyConfig struct {
	Active      bool `yaml:"active"`
	PivotSize   int  `yaml:"pivot_size"`
	ThreadCount int  `yaml:"thread_count"`
}

// CorrelateConfig mirrors query.data.recovery.correlate.
type CorrelateConfig struct {
	WhileStreaming bool              `yaml:"while_streaming"`
	Concurrency    ConcurrencyConfig `yaml:"concurrency"`
}

// Stream preference values for RecoveryConfig.StreamPreferred.
const (
	StreamPreferredUnidirectional = "Unidirectional"
	StreamPreferredBidirectional  = "Bidirectional"
)

// RecoveryConfig mirrors query.data.recovery.
type RecoveryConfig struct {
	StreamPreferred string          `yaml:"stream_preferred"` // Unidirectional | Bidirectional
	Correlate       CorrelateConfig `yaml:"correlate"`
}

// Domain collision policy values for TableConfig.DomainCollision.
const (
	DomainCollisionMergeLastWriteWins = "merge_last_write_wins"
	DomainCollisionReject             = "reject"
)

// TableConfig mirrors query.data.table.construction.
type TableConfig struct {
	ErrorChecking   bool   `yaml:"error_checking"`
	DomainCollision string `yaml:"domain_collision"` // merge_last_write_wins | reject
}

// DataConfig mirrors the query.data.* / ingest.data.* subtree.
type DataConfig struct {
	Request  DecomposeConfig   `yaml:"request"`
	Response MultistreamConfig `yaml:"response"`
	Recovery RecoveryConfig    `yaml:"recovery"`
	Table    TableConfig       `yaml:"table"`
}

// TimeoutConfig mirrors query.timeout.limit/query.timeout.unit: a
// bare magnitude plus a unit string rather than a single
// time.Duration field. Duration resolves it to a time.Duration for
// internal use.
type TimeoutConfig struct {
	Limit int64  `yaml:"limit"`
	Unit  string `yaml:"unit"`
}

var timeoutUnitScale = map[string]time.Duration{
	"":   time.Nanosecond,
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
}

// Duration resolves t to a time.Duration, or ErrConfig if Unit is not
// one of ns/us/ms/s/m. An empty Unit is read as nanoseconds.
func (t TimeoutConfig) Duration() (time.Duration, error) {
	scale, ok := timeoutUnitScale[t.Unit]
	if !ok {
		return 0, dperr.Wrapf(dperr.ErrConfig, "unknown timeout unit %q", t.Unit)
	}
	return time.Duration(t.Limit) * scale, nil
}

// LoggingConfig mirrors query.logging.enabled/query.logging.level.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// ServiceConfig is shared by the query and ingestion sides: a
// connection, the per-request decomposition/multistream/recovery/table
// policy, and the timeout and logging knobs that apply to it.
type ServiceConfig struct {
	Connection  ConnectionConfig `yaml:"connection"`
	DefaultK    int              `yaml:"default_k"`
	BufferBytes uint64           `yaml:"buffer_bytes"`
	Data        DataConfig       `yaml:"data"`
	Timeout     TimeoutConfig    `yaml:"timeout"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// Config is the single converged schema, resolved in DESIGN.md: one
// Query and one Ingest ServiceConfig.
type Config struct {
	Query  ServiceConfig `yaml:"query"`
	Ingest ServiceConfig `yaml:"ingest"`
}

// Defaults returns a Config with every field eagerly populated, the
// teacher's RegisterFlagsAndApplyDefaults shape applied to a plain
// struct instead of a flag set.
func Defaults() Config {
	svc := ServiceConfig{
		DefaultK:    1,
		BufferBytes: 64 << 20,
		Connection: ConnectionConfig{
			KeepAliveTime:   30 * time.Second,
			MaxMessageBytes: 4 << 20,
		},
		Data: DataConfig{
			Request: DecomposeConfig{
				Enabled:   false,
				Preferred: "Horizontal",
			},
			Response: MultistreamConfig{
				Enabled:     false,
				MaxStreams:  1,
				DomainPivot: 1 << 20,
			},
			Recovery: RecoveryConfig{
				StreamPreferred: StreamPreferredUnidirectional,
				Correlate: CorrelateConfig{
					WhileStreaming: false,
					Concurrency: ConcurrencyConfig{
						Active:      false,
						PivotSize:   64,
						ThreadCount: 1,
					},
				},
			},
			Table: TableConfig{
				ErrorChecking:   true,
				DomainCollision: DomainCollisionMergeLastWriteWins,
			},
		},
		Timeout: TimeoutConfig{Limit: 30, Unit: "s"},
		Logging: LoggingConfig{Enabled: true, Level: "info"},
	}
	return Config{Query: svc, Ingest: svc}
}

// Load decodes a YAML document over Defaults(), applies env overrides,
// and validates the result.
func Load(doc []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(doc, &cfg); err != nil {
		return Config{}, dperr.Wrap(dperr.ErrConfig, err.Error())
	}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks both ServiceConfigs.
func (c Config) Validate() error {
	if err := c.Query.Validate(); err != nil {
		return dperr.Wrap(err, "query config")
	}
	if err := c.Ingest.Validate(); err != nil {
		return dperr.Wrap(err, "ingest config")
	}
	return nil
}

var validPreferredStrategy = map[string]bool{"Horizontal": true, "Vertical": true, "Grid": true}
var validStreamPreference = map[string]bool{StreamPreferredUnidirectional: true, StreamPreferredBidirectional: true}
var validDomainCollision = map[string]bool{DomainCollisionMergeLastWriteWins: true, DomainCollisionReject: true}

// Validate checks one ServiceConfig's invariants.
func (s ServiceConfig) Validate() error {
	if s.Connection.HostPort == "" {
		return dperr.Wrap(dperr.ErrConfig, "connection.host_port is required")
	}
	if s.DefaultK < 1 {
		return dperr.Wrap(dperr.ErrConfig, "default_k must be >= 1")
	}
	if s.Connection.MaxMessageBytes != 0 && s.Connection.MaxMessageBytes&(s.Connection.MaxMessageBytes-1) != 0 {
		return dperr.Wrap(dperr.ErrConfig, "connection.max_message_bytes must be a power of two")
	}
	if s.Data.Request.Enabled && !validPreferredStrategy[s.Data.Request.Preferred] {
		return dperr.Wrapf(dperr.ErrConfig, "data.request.preferred %q is not Horizontal/Vertical/Grid", s.Data.Request.Preferred)
	}
	if s.Data.Response.Enabled && s.Data.Response.MaxStreams < 1 {
		return dperr.Wrap(dperr.ErrConfig, "data.response.max_streams must be >= 1 when enabled")
	}
	if !validStreamPreference[s.Data.Recovery.StreamPreferred] {
		return dperr.Wrapf(dperr.ErrConfig, "data.recovery.stream_preferred %q is not Unidirectional/Bidirectional", s.Data.Recovery.StreamPreferred)
	}
	if !validDomainCollision[s.Data.Table.DomainCollision] {
		return dperr.Wrapf(dperr.ErrConfig, "data.table.domain_collision %q is not merge_last_write_wins/reject", s.Data.Table.DomainCollision)
	}
	if _, err := s.Timeout.Duration(); err != nil {
		return err
	}
	return nil
}

// ExampleConfig renders Defaults() as a YAML document, a
// self-documenting starting point a caller can copy and edit.
func ExampleConfig() (string, error) {
	out, err := yaml.Marshal(Defaults())
	if err != nil {
		return "", err
	}
	return string(out), nil
}
