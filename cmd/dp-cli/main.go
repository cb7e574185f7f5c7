// Command dp-cli is a sweep runner over the query and ingest paths,
// recording one result per (threads, pivot) combination for query and
// one per stream count for ingest.
//
// Grounded on cmd/tempo-cli's per-subcommand struct + Run(*globalOptions)
// error shape and its arg:""/help:"" field tags (alecthomas/kong), and
// on cmd/tempo-vulture/main.go's use of go.uber.org/zap for the
// process's own diagnostics, kept separate from the go-kit logger the
// library packages take.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/decompose"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpconfig"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpconn"
)

var version = "dev"

type globalOptions struct {
	ConfigPath     string `help:"path to a YAML config file (see dpconfig.ExampleConfig for the schema)." type:"path"`
	QueryHostPort  string `help:"host:port of the Query Service, overriding the config file." default:"localhost:50051"`
	IngestHostPort string `help:"host:port of the Ingestion Service, overriding the config file." default:"localhost:50052"`
	PlainText      bool   `help:"disable TLS for both connections, overriding the config file."`

	config dpconfig.Config
	logger *zap.Logger
}

var cli struct {
	Query   queryCmd   `cmd:"" help:"recover data for a fixture, sweeping thread count and correlator pivot."`
	Ingest  ingestCmd  `cmd:"" help:"send a fixture's messages, sweeping stream count."`
	Version kong.VersionFlag `help:"print dp-cli's version and exit."`

	globalOptions
}

func main() {
	parser, err := kong.New(&cli,
		kong.Name("dp-cli"),
		kong.Description("evaluator tool for the Data Platform client library"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()
	cli.globalOptions.logger = logger

	cfg, err := loadConfig(&cli.globalOptions)
	if err != nil {
		logger.Error("config load failed", zap.Error(err))
		os.Exit(1)
	}
	cli.globalOptions.config = cfg

	if err := kctx.Run(&cli.globalOptions); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
	os.Exit(0)
}

// loadConfig resolves a dpconfig.Config for the run: defaults, or a
// YAML document from g.ConfigPath if given, with --query-host-port/
// --ingest-host-port/--plain-text applied on top as the CLI's own
// override of whatever the config file says.
func loadConfig(g *globalOptions) (dpconfig.Config, error) {
	cfg := dpconfig.Defaults()
	if g.ConfigPath != "" {
		doc, err := os.ReadFile(g.ConfigPath)
		if err != nil {
			return dpconfig.Config{}, err
		}
		cfg, err = dpconfig.Load(doc)
		if err != nil {
			return dpconfig.Config{}, err
		}
	}

	if g.QueryHostPort != "" {
		cfg.Query.Connection.HostPort = g.QueryHostPort
	}
	if g.IngestHostPort != "" {
		cfg.Ingest.Connection.HostPort = g.IngestHostPort
	}
	if g.PlainText {
		cfg.Query.Connection.PlainText = true
		cfg.Ingest.Connection.PlainText = true
	}
	return cfg, cfg.Validate()
}

// securityFromConnection translates a dpconfig.ConnectionConfig into
// the dpconn.Security Dial expects.
func securityFromConnection(c dpconfig.ConnectionConfig) dpconn.Security {
	sec := dpconn.Security{
		PlainText:             c.PlainText,
		TrustedCertsPath:      c.TrustedCertsPath,
		ClientCertChainPath:   c.ClientCertChainPath,
		ClientKeyPath:         c.ClientKeyPath,
		KeepAliveWithoutCalls: c.KeepAliveWithoutCalls,
		KeepAliveTimeLimit:    int64(c.KeepAliveTime),
		MaxMessageBytes:       c.MaxMessageBytes,
		GzipCompression:       c.GzipCompression,
	}
	switch {
	case c.PlainText:
		sec.TLS = dpconn.TLSOff
	case c.TrustedCertsPath != "":
		sec.TLS = dpconn.TLSFromFiles
	case c.TLSSystemDefault:
		sec.TLS = dpconn.TLSSystemDefault
	default:
		sec.TLS = dpconn.TLSOff
	}
	return sec
}

var decomposeStrategyByName = map[string]decompose.Strategy{
	"Horizontal": decompose.Horizontal,
	"Vertical":   decompose.Vertical,
	"Grid":       decompose.Grid,
}

// decomposeStrategyFromName maps a dpconfig preferred-strategy name
// to its decompose.Strategy value, defaulting to Horizontal for the
// empty string so a Config built without a data.request section
// still runs.
func decomposeStrategyFromName(name string) (decompose.Strategy, error) {
	if name == "" {
		return decompose.Horizontal, nil
	}
	s, ok := decomposeStrategyByName[name]
	if !ok {
		return 0, fmt.Errorf("dp-cli: unknown decomposition strategy %q", name)
	}
	return s, nil
}
