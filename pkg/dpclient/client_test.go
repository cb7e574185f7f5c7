package dpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dpdata"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
)

func TestBucketSupplierFromSliceExhausts(t *testing.T) {
	buckets := []dpdata.Bucket{
		{SourceName: "a", Clock: &dptime.SamplingClock{PeriodNanos: 1, Count: 1}, Values: []float64{1}},
		{SourceName: "b", Clock: &dptime.SamplingClock{PeriodNanos: 1, Count: 1}, Values: []float64{2}},
	}
	supplier := BucketSupplierFromSlice(buckets)

	b, err := supplier.Next(nil)
	assert.NoError(t, err)
	assert.Equal(t, "a", b.SourceName)

	b, err = supplier.Next(nil)
	assert.NoError(t, err)
	assert.Equal(t, "b", b.SourceName)

	_, err = supplier.Next(nil)
	assert.ErrorIs(t, err, dperr.ErrEndOfStream)
}
