package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpclient"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpconn"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/ingestchannel"
)

// ingestResultRecord mirrors queryResultRecord for the write path.
type ingestResultRecord struct {
	Fixture  string
	Streams  int
	Sent     int
	Acked    int
	Rejected int
	Err      string
}

type ingestCmd struct {
	Fixture string `arg:"" help:"fixture name (burst, steady)."`
	Streams []int  `help:"repeatable upstream stream counts to sweep." default:"1"`
	Output  string `help:"output path, or - for stdout." default:"-"`
}

func (cmd *ingestCmd) Run(g *globalOptions) error {
	buckets, err := loadIngestFixture(cmd.Fixture)
	if err != nil {
		return err
	}

	icfg := g.config.Ingest
	timeout, err := icfg.Timeout.Duration()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := dpconn.Dial(ctx, icfg.Connection.HostPort, securityFromConnection(icfg.Connection))
	if err != nil {
		return err
	}
	defer conn.Close()

	client := dpclient.New(conn, nil)

	var records []ingestResultRecord
	for _, streams := range cmd.Streams {
		rec := ingestResultRecord{Fixture: cmd.Fixture, Streams: streams}

		supplier := dpclient.BucketSupplierFromSlice(buckets)
		cfg := ingestchannel.Config{Streams: streams}

		result, err := client.Ingest(ctx, cmd.Fixture, supplier, cfg)
		if err != nil {
			rec.Err = err.Error()
			g.logger.Warn("ingest sweep point failed", zap.Int("streams", streams), zap.Error(err))
		} else {
			rec.Sent = result.Sent
			rec.Acked = result.Acked
			rec.Rejected = result.Rejected
		}
		records = append(records, rec)
	}

	return writeGob(cmd.Output, records)
}
