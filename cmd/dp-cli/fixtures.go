package main

import (
	"fmt"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dprequest"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

// queryFixtures is the small, enumerated set of canned requests the
// evaluator tool sweeps against, named rather than loaded from an
// external file — this tool has no filesystem fixture format to
// define.
var queryFixtures = map[string]func() (dprequest.Request, error){
	"small": func() (dprequest.Request, error) {
		return dprequest.NewBuilder().
			SelectSources([]string{"src_1", "src_2"}).
			RangeBetween(dptime.Timestamp{Secs: 0}, dptime.Timestamp{Secs: 10}).
			Build()
	},
	"wide": func() (dprequest.Request, error) {
		sources := make([]string, 0, 50)
		for i := 0; i < 50; i++ {
			sources = append(sources, fmt.Sprintf("src_%d", i))
		}
		return dprequest.NewBuilder().
			SelectSources(sources).
			RangeBetween(dptime.Timestamp{Secs: 0}, dptime.Timestamp{Secs: 60}).
			Build()
	},
	"long": func() (dprequest.Request, error) {
		return dprequest.NewBuilder().
			SelectSources([]string{"src_1"}).
			RangeBetween(dptime.Timestamp{Secs: 0}, dptime.Timestamp{Secs: 3600}).
			Build()
	},
}

// ingestFixtures is the enumerated set of canned message batches.
var ingestFixtures = map[string]func() []dpdata.Bucket{
	"burst": func() []dpdata.Bucket {
		values := make([]float64, 100)
		for i := range values {
			values[i] = float64(i)
		}
		out := make([]dpdata.Bucket, 0, 10)
		for i := 0; i < 10; i++ {
			out = append(out, dpdata.Bucket{
				SourceName: fmt.Sprintf("src_%d", i),
				Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{}, PeriodNanos: 1_000_000, Count: 100},
				Values:     values,
				ByteSize:   int64(len(values)) * 8,
			})
		}
		return out
	},
	"steady": func() []dpdata.Bucket {
		out := make([]dpdata.Bucket, 0, 3)
		for i := 0; i < 3; i++ {
			out = append(out, dpdata.Bucket{
				SourceName: fmt.Sprintf("src_%d", i),
				Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{}, PeriodNanos: 1_000_000_000, Count: 5},
				Values:     []float64{1, 2, 3, 4, 5},
				ByteSize:   40,
			})
		}
		return out
	},
}

func loadQueryFixture(name string) (dprequest.Request, error) {
	f, ok := queryFixtures[name]
	if !ok {
		return dprequest.Request{}, fmt.Errorf("dp-cli: unknown query fixture %q", name)
	}
	return f()
}

func loadIngestFixture(name string) ([]dpdata.Bucket, error) {
	f, ok := ingestFixtures[name]
	if !ok {
		return nil, fmt.Errorf("dp-cli: unknown ingest fixture %q", name)
	}
	return f(), nil
}
