package correlator

import (
	"math/rand"
	"testing"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clockBucket(source string, start int64, period int64, count int64, values []float64) dpdata.Bucket {
	return dpdata.Bucket{
		SourceName: source,
		Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{Secs: start}, PeriodNanos: period, Count: count},
		Values:     values,
		ByteSize:   int64(len(values)) * 8,
	}
}

func frameOf(buckets ...dpdata.Bucket) dpdata.Frame {
	sz := int64(0)
	for _, b := range buckets {
		sz += b.ByteSize
	}
	return dpdata.Frame{Buckets: buckets, ByteSize: sz}
}

func TestSingleBlockSingleSource(t *testing.T) {
	values := make([]float64, 1001)
	c := New(DefaultConfig(), nil)
	require.NoError(t, c.PushFrame(frameOf(clockBucket("src_1", 0, 1_000_000, 1001, values))))

	blocks, err := c.Finish()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 1001, len(blocks[0].Values["src_1"]))
}

func TestDeterministicAcrossPermutations(t *testing.T) {
	var buckets []dpdata.Bucket
	for i := 0; i < 20; i++ {
		buckets = append(buckets, clockBucket("src_"+string(rune('a'+i)), int64(i%3), 1000, 5, []float64{1, 2, 3, 4, 5}))
	}

	run := func(order []dpdata.Bucket) []dpdata.CorrelatedBlock {
		c := New(DefaultConfig(), nil)
		for _, b := range order {
			require.NoError(t, c.PushFrame(frameOf(b)))
		}
		blocks, err := c.Finish()
		require.NoError(t, err)
		return blocks
	}

	orig := run(buckets)

	shuffled := make([]dpdata.Bucket, len(buckets))
	copy(shuffled, buckets)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	reordered := run(shuffled)

	require.Len(t, reordered, len(orig))
	for i := range orig {
		assert.Equal(t, orig[i].Values, reordered[i].Values)
	}
}

func TestConservationBytesAndBucketCount(t *testing.T) {
	c := New(DefaultConfig(), nil)
	f1 := frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2, 3}))
	f2 := frameOf(clockBucket("b", 0, 1000, 3, []float64{4, 5, 6}))
	require.NoError(t, c.PushFrame(f1))
	require.NoError(t, c.PushFrame(f2))

	assert.Equal(t, f1.ByteSize+f2.ByteSize, c.BytesProcessed())

	blocks, err := c.Finish()
	require.NoError(t, err)
	totalSources := 0
	for _, b := range blocks {
		totalSources += b.SourceCount()
	}
	assert.Equal(t, 2, totalSources)
}

func TestDuplicateSourceDifferentClocksAreSeparateBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDomainCollision = false
	cfg.ErrorChecking = true
	c := New(cfg, nil)

	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2, 3}))))
	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 2000, 3, []float64{4, 5, 6}))))

	blocks, err := c.Finish()
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestDuplicateSourceSameClockFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDomainCollision = false
	cfg.ErrorChecking = true
	c := New(cfg, nil)

	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2, 3}))))
	err := c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{4, 5, 6})))
	assert.ErrorIs(t, err, dperr.ErrDuplicateSourceInBlock)

	_, err = c.Finish()
	assert.ErrorIs(t, err, dperr.ErrDuplicateSourceInBlock, "a fatal push error must abort finish until Reset")

	c.Reset()
	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2, 3}))))
	_, err = c.Finish()
	assert.NoError(t, err)
}

func TestDomainCollisionAllowedLastWriteWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowDomainCollision = true
	c := New(cfg, nil)

	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2, 3}))))
	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{9, 9, 9}))))

	blocks, err := c.Finish()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, []float64{9, 9, 9}, blocks[0].Values["a"])
	assert.Equal(t, int64(3)*8, blocks[0].Bytes, "overwritten source must not double-count its bytes")
}

func TestInvalidBucketErrorCheckingOn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorChecking = true
	c := New(cfg, nil)
	err := c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2})))
	assert.ErrorIs(t, err, dperr.ErrInvalidBucket)
}

func TestInvalidBucketErrorCheckingOffSkips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorChecking = false
	c := New(cfg, nil)
	err := c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2})))
	require.NoError(t, err)
	blocks, err := c.Finish()
	require.NoError(t, err)
	assert.Len(t, blocks, 0)
}

func TestFinishIsIdempotent(t *testing.T) {
	c := New(DefaultConfig(), nil)
	require.NoError(t, c.PushFrame(frameOf(clockBucket("a", 0, 1000, 3, []float64{1, 2, 3}))))
	b1, err := c.Finish()
	require.NoError(t, err)
	b2, err := c.Finish()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestPushEmptyFrameIsNoop(t *testing.T) {
	c := New(DefaultConfig(), nil)
	require.NoError(t, c.PushFrame(dpdata.Frame{}))
	assert.Equal(t, int64(0), c.BytesProcessed())
}

func TestConcurrentPushMatchesSequential(t *testing.T) {
	var buckets []dpdata.Bucket
	for i := 0; i < 200; i++ {
		buckets = append(buckets, clockBucket(string(rune('a'+i)), int64(i%4), 1000, 2, []float64{1, 2}))
	}

	seqCfg := DefaultConfig()
	seq := New(seqCfg, nil)
	require.NoError(t, seq.PushFrame(frameOf(buckets...)))
	seqBlocks, err := seq.Finish()
	require.NoError(t, err)

	parCfg := DefaultConfig()
	parCfg.ConcurrencyEnabled = true
	parCfg.ConcurrencyPivot = 10
	parCfg.MaxThreads = 4
	par := New(parCfg, nil)
	require.NoError(t, par.PushFrame(frameOf(buckets...)))
	parBlocks, err := par.Finish()
	require.NoError(t, err)

	require.Len(t, parBlocks, len(seqBlocks))
	for i := range seqBlocks {
		assert.Equal(t, seqBlocks[i].Values, parBlocks[i].Values)
	}
}
