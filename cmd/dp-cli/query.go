package main

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/correlator"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpclient"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpconfig"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpconn"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/querychannel"
)

// queryResultRecord is dp-cli's own binary-serialised output shape,
// one per (threads, pivot) combination swept.
type queryResultRecord struct {
	Fixture     string
	Threads     int
	Pivot       int
	BlockCount  int
	SourceCount int
	Requests    int
	Responses   int
	Err         string
}

type queryCmd struct {
	Fixture string `arg:"" help:"fixture name (small, wide, long)."`
	Threads []int  `help:"repeatable stream/thread counts to sweep." default:"1"`
	Pivot   []int  `help:"repeatable correlator concurrency pivots to sweep." default:"64"`
	Output  string `help:"output path, or - for stdout." default:"-"`
}

func (cmd *queryCmd) Run(g *globalOptions) error {
	req, err := loadQueryFixture(cmd.Fixture)
	if err != nil {
		return err
	}

	qcfg := g.config.Query
	preferred, err := decomposeStrategyFromName(qcfg.Data.Request.Preferred)
	if err != nil {
		return err
	}
	timeout, err := qcfg.Timeout.Duration()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := dpconn.Dial(ctx, qcfg.Connection.HostPort, securityFromConnection(qcfg.Connection))
	if err != nil {
		return err
	}
	defer conn.Close()

	client := dpclient.New(conn, nil)
	useBidi := qcfg.Data.Recovery.StreamPreferred == dpconfig.StreamPreferredBidirectional

	var records []queryResultRecord
	for _, threads := range cmd.Threads {
		for _, pivot := range cmd.Pivot {
			rec := queryResultRecord{Fixture: cmd.Fixture, Threads: threads, Pivot: pivot}

			chanCfg := querychannel.DefaultConfig()
			chanCfg.Strategy = preferred
			chanCfg.K = threads
			chanCfg.UseBidiStream = useBidi
			chanCfg.MaxStreams = qcfg.Data.Response.MaxStreams
			chanCfg.MultistreamDomainPivot = qcfg.Data.Response.DomainPivot
			chanCfg.Buffer.CapacityBytes = qcfg.BufferBytes
			if qcfg.Data.Response.Enabled {
				chanCfg.Strategy = querychannel.AutoStrategy
			}

			corrCfg := correlator.DefaultConfig()
			corrCfg.MaxThreads = threads
			corrCfg.ConcurrencyPivot = pivot
			corrCfg.ConcurrencyEnabled = threads > 1
			corrCfg.ErrorChecking = qcfg.Data.Table.ErrorChecking
			corrCfg.AllowDomainCollision = qcfg.Data.Table.DomainCollision == dpconfig.DomainCollisionMergeLastWriteWins

			result, err := client.Query(ctx, req, chanCfg, corrCfg)
			if err != nil {
				rec.Err = err.Error()
				g.logger.Warn("query sweep point failed", zap.Int("threads", threads), zap.Int("pivot", pivot), zap.Error(err))
			} else {
				rec.BlockCount = len(result.Blocks)
				rec.Requests = result.RequestCount
				rec.Responses = result.ResponseCount
				for _, b := range result.Blocks {
					rec.SourceCount += b.SourceCount()
				}
			}
			records = append(records, rec)
		}
	}

	return writeGob(cmd.Output, records)
}

func writeGob(path string, v interface{}) error {
	var w io.Writer
	if path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := gob.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("dp-cli: encoding output: %w", err)
	}
	return nil
}
