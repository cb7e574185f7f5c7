package dpdata

import (
	"testing"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketValidateMismatch(t *testing.T) {
	b := Bucket{
		SourceName: "src_1",
		Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{}, PeriodNanos: 1000, Count: 3},
		Values:     []float64{1, 2},
	}
	err := b.Validate()
	assert.ErrorIs(t, err, dperr.ErrInvalidBucket)
}

func TestBucketValidateOK(t *testing.T) {
	b := Bucket{
		SourceName: "src_1",
		Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{}, PeriodNanos: 1000, Count: 3},
		Values:     []float64{1, 2, 3},
	}
	require.NoError(t, b.Validate())
}

func TestBucketWireRoundTrip(t *testing.T) {
	b := Bucket{
		SourceName: "src_1",
		Clock:      &dptime.SamplingClock{Start: dptime.Timestamp{Secs: 5}, PeriodNanos: 1_000_000, Count: 2},
		Values:     []float64{1.5, 2.5},
	}
	w := b.ToWire()
	back, err := BucketFromWire(w)
	require.NoError(t, err)
	assert.Equal(t, b.SourceName, back.SourceName)
	assert.Equal(t, b.Values, back.Values)
	assert.Equal(t, *b.Clock, *back.Clock)
}
