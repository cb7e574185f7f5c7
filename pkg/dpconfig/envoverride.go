// envoverride.go binds environment variables onto a Config with an
// explicit field_path -> env_var table rather than a reflective
// binder: no reflection walks the struct tree, every override is
// named here.
package dpconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
)

// envBinding is one entry in the override table: a human-readable
// field path (for error messages) and a setter closure bound to a
// live Config pointer.
type envBinding struct {
	fieldPath string
	envVar    string
	apply     func(cfg *Config, raw string) error
}

func envTable() []envBinding {
	return []envBinding{
		{"query.connection.host_port", "DP_QUERY_HOST_PORT", func(c *Config, v string) error {
			c.Query.Connection.HostPort = v
			return nil
		}},
		{"ingest.connection.host_port", "DP_INGEST_HOST_PORT", func(c *Config, v string) error {
			c.Ingest.Connection.HostPort = v
			return nil
		}},
		{"query.connection.plain_text", "DP_QUERY_PLAIN_TEXT", func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			c.Query.Connection.PlainText = b
			return nil
		}},
		{"ingest.connection.plain_text", "DP_INGEST_PLAIN_TEXT", func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			c.Ingest.Connection.PlainText = b
			return nil
		}},
		{"query.default_k", "DP_QUERY_DEFAULT_K", func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Query.DefaultK = n
			return nil
		}},
		{"ingest.default_k", "DP_INGEST_DEFAULT_K", func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Ingest.DefaultK = n
			return nil
		}},
		{"query.timeout", "DP_QUERY_TIMEOUT", func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.Query.Timeout = TimeoutConfig{Limit: int64(d), Unit: "ns"}
			return nil
		}},
		{"ingest.timeout", "DP_INGEST_TIMEOUT", func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.Ingest.Timeout = TimeoutConfig{Limit: int64(d), Unit: "ns"}
			return nil
		}},
		{"query.data.response.multistream.max_streams", "DP_QUERY_MAX_STREAMS", func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			c.Query.Data.Response.MaxStreams = n
			return nil
		}},
		{"query.data.response.multistream.domain_pivot", "DP_QUERY_MULTISTREAM_DOMAIN_PIVOT", func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return err
			}
			c.Query.Data.Response.DomainPivot = n
			return nil
		}},
	}
}

// ApplyEnvOverrides walks the declarative table above, applying every
// env var that is actually set. Unset vars leave the existing value
// (typically a YAML-decoded or default value) untouched.
func ApplyEnvOverrides(cfg *Config) error {
	for _, b := range envTable() {
		raw, ok := os.LookupEnv(b.envVar)
		if !ok {
			continue
		}
		if err := b.apply(cfg, raw); err != nil {
			return dperr.Wrapf(dperr.ErrConfig, "env override %s (%s): %v", b.envVar, b.fieldPath, err)
		}
	}
	return nil
}
