package framebuffer

import (
	"context"
	"testing"
	"time"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(n int) dpdata.Frame {
	return dpdata.Frame{StreamIndex: n, ByteSize: 1}
}

func TestOfferBeforeActivateFails(t *testing.T) {
	b := New(DefaultConfig(), nil)
	err := b.Offer(context.Background(), frame(0))
	assert.ErrorIs(t, err, dperr.ErrInvalidState)
}

func TestFIFOSingleProducerSingleConsumer(t *testing.T) {
	b := New(DefaultConfig(), nil)
	require.NoError(t, b.Activate())

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, b.Offer(ctx, frame(i)))
	}
	for i := 0; i < 10; i++ {
		f, err := b.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, f.StreamIndex)
	}
}

func TestDrainCompleteness(t *testing.T) {
	b := New(DefaultConfig(), nil)
	require.NoError(t, b.Activate())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Offer(ctx, frame(i)))
	}
	require.NoError(t, b.Shutdown())

	err := b.Offer(ctx, frame(99))
	assert.ErrorIs(t, err, dperr.ErrShuttingDown, "no further offer should succeed after shutdown")

	for i := 0; i < 5; i++ {
		f, err := b.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, f.StreamIndex)
	}

	_, err = b.Take(ctx)
	assert.ErrorIs(t, err, dperr.ErrEndOfStream)
	assert.Equal(t, Closed, b.State())
}

func TestShutdownNowDiscardsQueued(t *testing.T) {
	b := New(DefaultConfig(), nil)
	require.NoError(t, b.Activate())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Offer(ctx, frame(i)))
	}

	discarded, err := b.ShutdownNow()
	require.NoError(t, err)
	assert.Equal(t, 3, discarded)
	assert.Equal(t, Closed, b.State())

	_, err = b.Take(ctx)
	assert.ErrorIs(t, err, dperr.ErrEndOfStream)
}

func TestOfferBlocksOnBackpressureAndUnblocksOnTake(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapacityBytes = 2
	b := New(cfg, nil)
	require.NoError(t, b.Activate())
	ctx := context.Background()

	require.NoError(t, b.Offer(ctx, frame(0)))
	require.NoError(t, b.Offer(ctx, frame(1)))

	done := make(chan error, 1)
	go func() {
		done <- b.Offer(ctx, frame(2))
	}()

	select {
	case <-done:
		t.Fatal("offer should have blocked while at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := b.Take(ctx)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("offer did not unblock after capacity freed")
	}
}

func TestOfferRespectsContextCancellation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CapacityBytes = 1
	b := New(cfg, nil)
	require.NoError(t, b.Activate())

	ctx := context.Background()
	require.NoError(t, b.Offer(ctx, frame(0)))

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Offer(cctx, frame(1))
	assert.Error(t, err)
}

func TestShutdownFromWrongStateIsInvalid(t *testing.T) {
	b := New(DefaultConfig(), nil)
	assert.ErrorIs(t, b.Shutdown(), dperr.ErrInvalidState)
}
