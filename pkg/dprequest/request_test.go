package dprequest

import (
	"testing"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
	"github.com/osprey-dcs/dp-jal-sub013/pkg/dptime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEmptySourceSet(t *testing.T) {
	_, err := NewBuilder().RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 1}).Build()
	assert.ErrorIs(t, err, dperr.ErrEmptySourceSet)
}

func TestBuildInvalidRange(t *testing.T) {
	_, err := NewBuilder().SelectSource("src_1").RangeBetween(dptime.Timestamp{Secs: 5}, dptime.Timestamp{Secs: 1}).Build()
	assert.ErrorIs(t, err, dperr.ErrInvalidRange)
}

func TestBuildAssignsRequestID(t *testing.T) {
	r, err := NewBuilder().SelectSource("src_1").RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 1}).Build()
	require.NoError(t, err)
	assert.NotEmpty(t, r.RequestID)
}

func TestFingerprintDeterministic(t *testing.T) {
	r1, err := NewBuilder().SelectSources([]string{"b", "a"}).RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 1}).Build()
	require.NoError(t, err)
	r2, err := NewBuilder().SelectSources([]string{"a", "b"}).RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 1}).WithRequestID("other-id").Build()
	require.NoError(t, err)

	f1, err := r1.Fingerprint()
	require.NoError(t, err)
	f2, err := r2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2, "fingerprint must not depend on request_id or source insertion order")
}

func TestFingerprintSensitiveToRange(t *testing.T) {
	r1, err := NewBuilder().SelectSource("a").RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 1}).Build()
	require.NoError(t, err)
	r2, err := NewBuilder().SelectSource("a").RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 2}).Build()
	require.NoError(t, err)

	f1, err := r1.Fingerprint()
	require.NoError(t, err)
	f2, err := r2.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestBuildWireSortsSources(t *testing.T) {
	r, err := NewBuilder().SelectSources([]string{"z", "a", "m"}).RangeBetween(dptime.Timestamp{}, dptime.Timestamp{Secs: 1}).Build()
	require.NoError(t, err)
	wire, err := r.BuildWire()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, wire.SourceNames)
}
