package dptime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplingClockDomainSingleSource(t *testing.T) {
	// 1kHz double-valued source over 1s.
	c := SamplingClock{Start: Timestamp{}, PeriodNanos: 1_000_000, Count: 1001}
	d, err := c.Domain()
	require.NoError(t, err)
	assert.Equal(t, Timestamp{}, d.Start)
	assert.Equal(t, Timestamp{Secs: 1}, d.End)
}

func TestSamplingClockEmptyDomain(t *testing.T) {
	c := SamplingClock{Start: Timestamp{}, PeriodNanos: 1000, Count: 0}
	_, err := c.Domain()
	assert.ErrorIs(t, err, ErrEmptyDomain)
}

func TestSamplingClockEquivalence(t *testing.T) {
	a := SamplingClock{Start: Timestamp{Secs: 1, Nanos: 500_000_000}, PeriodNanos: 1000, Count: 10}
	b := SamplingClock{Start: Timestamp{Secs: 2, Nanos: -500_000_000}, PeriodNanos: 1000, Count: 10}
	eq, err := a.Equivalent(b)
	require.NoError(t, err)
	assert.True(t, eq)
	assert.False(t, a.Equals(b), "field-wise equality must stay stricter than equivalence")
}

func TestTimestampListContentHashStable(t *testing.T) {
	l1 := TimestampList{Timestamps: []Timestamp{{Secs: 1}, {Secs: 2}, {Secs: 3}}}
	l2 := TimestampList{Timestamps: []Timestamp{{Secs: 1}, {Secs: 2}, {Secs: 3}}}
	h1, err := l1.ContentHash()
	require.NoError(t, err)
	h2, err := l2.ContentHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	eq, err := l1.Equal(l2)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestTimestampListValidateRejectsNonIncreasing(t *testing.T) {
	l := TimestampList{Timestamps: []Timestamp{{Secs: 2}, {Secs: 1}}}
	assert.Error(t, l.Validate())
}
