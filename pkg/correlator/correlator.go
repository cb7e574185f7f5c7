// Package correlator implements the Raw Data Correlator: a streaming
// group-by that ingests out-of-order Frames and builds
// CorrelatedBlocks keyed by sampling domain.
//
// The keyed store is sharded by hash(key) mod MaxThreads so that
// concurrent writers touch disjoint shards without cross-thread
// locking on the hot path, the same disjoint-ownership idea
// friggdb/pool/pool.go uses for its worker queue (there, jobs; here,
// buckets), and the result-classification shape of
// cmd/tempo-federated-querier/combiner's Combine* functions —
// iterate inputs, classify, accumulate into one structure, return it
// plus counters — generalized from "combine N whole responses" to
// "group buckets by content-derived key".
package correlator

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

// Config holds the correlator's concurrency and policy knobs.
type Config struct {
	ConcurrencyEnabled   bool
	ConcurrencyPivot     int
	MaxThreads           int
	AllowDomainCollision bool
	ErrorChecking        bool
}

// DefaultConfig returns the single-threaded, strict-checking default.
func DefaultConfig() Config {
	return Config{
		ConcurrencyEnabled:   false,
		ConcurrencyPivot:     64,
		MaxThreads:           1,
		AllowDomainCollision: false,
		ErrorChecking:        true,
	}
}

type partialBlock struct {
	clock         *dptime.SamplingClock
	explicit      *dptime.TimestampList
	values        map[string][]float64
	bytesBySource map[string]int64
	bytes         int64
}

type explicitEntry struct {
	list  dptime.TimestampList
	block *partialBlock
}

type shard struct {
	mu        sync.Mutex
	byClock   map[dptime.ClockKey]*partialBlock
	byHash    map[uint64][]*explicitEntry
}

// Correlator consumes Frames and accumulates CorrelatedBlocks. A
// Correlator is not safe to reuse across unrelated recoveries without
// calling Reset first.
type Correlator struct {
	cfg    Config
	logger log.Logger

	shards []*shard

	bytesProcessed atomic.Int64

	mu             sync.Mutex
	fatalErr       error
	finished       bool
	finishedBlocks []dpdata.CorrelatedBlock
}

// New constructs a Correlator. A nil logger defaults to a no-op logger.
func New(cfg Config, logger log.Logger) *Correlator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if cfg.MaxThreads < 1 {
		cfg.MaxThreads = 1
	}
	c := &Correlator{cfg: cfg, logger: logger}
	c.initShards()
	return c
}

func (c *Correlator) initShards() {
	c.shards = make([]*shard, c.cfg.MaxThreads)
	for i := range c.shards {
		c.shards[i] = &shard{
			byClock: make(map[dptime.ClockKey]*partialBlock),
			byHash:  make(map[uint64][]*explicitEntry),
		}
	}
}

// BytesProcessed returns the cumulative byte size of every Frame
// passed to PushFrame, so callers can check that no bytes were
// silently dropped between ingestion and the final blocks.
func (c *Correlator) BytesProcessed() int64 {
	return c.bytesProcessed.Load()
}

// BlockCount returns the number of distinct partial (or, after
// Finish, final) blocks currently held.
func (c *Correlator) BlockCount() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.byClock) + len(s.byHash)
		s.mu.Unlock()
	}
	return total
}

// Reset discards all accumulated state, the only valid operation
// after a fatal error.
func (c *Correlator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initShards()
	c.bytesProcessed.Store(0)
	c.fatalErr = nil
	c.finished = false
	c.finishedBlocks = nil
}

// PushFrame ingests one Frame's Buckets into the keyed store. An
// empty Frame is a no-op.
func (c *Correlator) PushFrame(frame dpdata.Frame) error {
	if frame.IsEmpty() {
		return nil
	}

	c.mu.Lock()
	if c.fatalErr != nil {
		err := c.fatalErr
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.bytesProcessed.Add(frame.ByteSize)

	var err error
	if c.cfg.ConcurrencyEnabled && len(frame.Buckets) > c.cfg.ConcurrencyPivot {
		err = c.pushConcurrent(frame.Buckets)
	} else {
		err = c.pushSequential(frame.Buckets)
	}
	if err != nil {
		c.mu.Lock()
		c.fatalErr = err
		c.mu.Unlock()
	}
	return err
}

func (c *Correlator) pushSequential(buckets []dpdata.Bucket) error {
	for _, b := range buckets {
		if err := c.processBucket(b); err != nil {
			return err
		}
	}
	return nil
}

// pushConcurrent partitions buckets by hash(key) mod MaxThreads and
// processes each partition on its own goroutine; since every
// partition owns a disjoint set of shards, no bucket-level locking
// beyond the per-shard mutex is required.
func (c *Correlator) pushConcurrent(buckets []dpdata.Bucket) error {
	partitions := make([][]dpdata.Bucket, c.cfg.MaxThreads)
	for _, b := range buckets {
		idx, err := c.shardIndex(b)
		if err != nil {
			return err
		}
		partitions[idx] = append(partitions[idx], b)
	}

	var wg sync.WaitGroup
	errs := make([]error, c.cfg.MaxThreads)
	for i, part := range partitions {
		if len(part) == 0 {
			continue
		}
		wg.Add(1)
		go func(i int, part []dpdata.Bucket) {
			defer wg.Done()
			for _, b := range part {
				if err := c.processBucketAt(b, i); err != nil {
					errs[i] = err
					return
				}
			}
		}(i, part)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Correlator) shardIndex(b dpdata.Bucket) (int, error) {
	var h uint64
	switch {
	case b.Clock != nil:
		key, err := b.Clock.Key()
		if err != nil {
			return 0, err
		}
		h = hashClockKey(key)
	case b.Explicit != nil:
		hh, err := b.Explicit.ContentHash()
		if err != nil {
			return 0, err
		}
		h = hh
	default:
		return 0, dperr.Wrapf(dperr.ErrInvalidBucket, "source %q has no timestamp specification", b.SourceName)
	}
	return int(h % uint64(c.cfg.MaxThreads)), nil
}

func (c *Correlator) processBucket(b dpdata.Bucket) error {
	idx, err := c.shardIndex(b)
	if err != nil {
		return err
	}
	return c.processBucketAt(b, idx)
}

// processBucketAt processes b against the shard at idx, skipping the
// hash(key) recomputation pushConcurrent already did to choose that
// shard.
func (c *Correlator) processBucketAt(b dpdata.Bucket, idx int) error {
	if err := b.Validate(); err != nil {
		if c.cfg.ErrorChecking {
			return err
		}
		level.Warn(c.logger).Log("msg", "skipping invalid bucket", "source", b.SourceName, "err", err)
		return nil
	}

	s := c.shards[idx]
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case b.Clock != nil:
		key, err := b.Clock.Key()
		if err != nil {
			return err
		}
		pb, ok := s.byClock[key]
		if !ok {
			pb = &partialBlock{clock: b.Clock, values: make(map[string][]float64)}
			s.byClock[key] = pb
		}
		return mergeInto(pb, b, c.cfg)
	default:
		hh, err := b.Explicit.ContentHash()
		if err != nil {
			return err
		}
		for _, entry := range s.byHash[hh] {
			eq, err := entry.list.Equal(*b.Explicit)
			if err != nil {
				return err
			}
			if eq {
				return mergeInto(entry.block, b, c.cfg)
			}
		}
		pb := &partialBlock{explicit: b.Explicit, values: make(map[string][]float64)}
		s.byHash[hh] = append(s.byHash[hh], &explicitEntry{list: *b.Explicit, block: pb})
		return mergeInto(pb, b, c.cfg)
	}
}

// mergeInto inserts b's values into pb, applying the duplicate-source
// policy recorded in DESIGN.md: reject unless collisions are
// explicitly allowed or checking is off, in which case the later
// write wins.
func mergeInto(pb *partialBlock, b dpdata.Bucket, cfg Config) error {
	if _, exists := pb.values[b.SourceName]; exists {
		if !cfg.AllowDomainCollision && cfg.ErrorChecking {
			return dperr.Wrapf(dperr.ErrDuplicateSourceInBlock, "source %q already present in block", b.SourceName)
		}
		pb.bytes -= pb.bytesBySource[b.SourceName]
	}
	if pb.bytesBySource == nil {
		pb.bytesBySource = make(map[string]int64)
	}
	pb.values[b.SourceName] = b.Values
	pb.bytesBySource[b.SourceName] = b.ByteSize
	pb.bytes += b.ByteSize
	return nil
}

func hashClockKey(k dptime.ClockKey) uint64 {
	h := fnv.New64a()
	var buf [24]byte
	putInt64(buf[0:8], k.PeriodNanos)
	putInt64(buf[8:16], k.Count)
	putInt64(buf[16:24], k.Start.Secs+k.Start.Nanos)
	h.Write(buf[:])
	return h.Sum64()
}

func putInt64(b []byte, v int64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Finish freezes all partial blocks into CorrelatedBlocks, sorted by
// (start instant, period, count). A second call is idempotent and
// returns the same blocks without clearing them; only Reset restarts
// accumulation.
func (c *Correlator) Finish() ([]dpdata.CorrelatedBlock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fatalErr != nil {
		return nil, c.fatalErr
	}
	if c.finished {
		return c.finishedBlocks, nil
	}

	var out []dpdata.CorrelatedBlock
	for _, s := range c.shards {
		s.mu.Lock()
		for _, pb := range s.byClock {
			out = append(out, freeze(pb))
		}
		for _, entries := range s.byHash {
			for _, e := range entries {
				out = append(out, freeze(e.block))
			}
		}
		s.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return blockLess(out[i], out[j])
	})

	c.finished = true
	c.finishedBlocks = out
	return out, nil
}

func freeze(pb *partialBlock) dpdata.CorrelatedBlock {
	return dpdata.CorrelatedBlock{
		Clock:    pb.clock,
		Explicit: pb.explicit,
		Values:   pb.values,
		Bytes:    pb.bytes,
	}
}

func blockLess(a, b dpdata.CorrelatedBlock) bool {
	da, errA := a.Domain()
	db, errB := b.Domain()
	if errA != nil || errB != nil {
		return errA == nil
	}
	c, err := dptime.Compare(da.Start, db.Start)
	if err != nil || c != 0 {
		return c < 0
	}

	pa, pb := clockPeriod(a), clockPeriod(b)
	if pa != pb {
		return pa < pb
	}

	ca, _ := a.SampleCount()
	cb, _ := b.SampleCount()
	return ca < cb
}

func clockPeriod(b dpdata.CorrelatedBlock) int64 {
	if b.Clock != nil {
		return b.Clock.PeriodNanos
	}
	return 0
}
