package dptime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseIdempotent(t *testing.T) {
	cases := []Timestamp{
		{Secs: 5, Nanos: 0},
		{Secs: 5, Nanos: 1_500_000_000},
		{Secs: 5, Nanos: -500_000_000},
		{Secs: -5, Nanos: -1_500_000_000},
	}
	for _, c := range cases {
		n1, err := c.Normalise()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n1.Nanos, int64(0))
		assert.Less(t, n1.Nanos, nanosPerSecond)

		n2, err := n1.Normalise()
		require.NoError(t, err)
		assert.Equal(t, n1, n2)
	}
}

func TestNormaliseBorrow(t *testing.T) {
	n, err := Timestamp{Secs: 5, Nanos: -500_000_000}.Normalise()
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Secs: 4, Nanos: 500_000_000}, n)
}

func TestEquivalentAcrossForms(t *testing.T) {
	a := Timestamp{Secs: 5, Nanos: 1_500_000_000}
	b := Timestamp{Secs: 6, Nanos: 500_000_000}
	eq, err := Equivalent(a, b)
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestIntersectsClosedSymmetric(t *testing.T) {
	a := TimeInterval{Start: Timestamp{Secs: 0}, End: Timestamp{Secs: 10}}
	b := TimeInterval{Start: Timestamp{Secs: 10}, End: Timestamp{Secs: 20}}
	ab, err := IntersectsClosed(a, b)
	require.NoError(t, err)
	ba, err := IntersectsClosed(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.True(t, ab, "closed intervals touching at a single instant must intersect")
}

func TestIntersectsClosedDisjoint(t *testing.T) {
	a := TimeInterval{Start: Timestamp{Secs: 0}, End: Timestamp{Secs: 9}}
	b := TimeInterval{Start: Timestamp{Secs: 10}, End: Timestamp{Secs: 20}}
	ok, err := IntersectsClosed(a, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddNanosOverflow(t *testing.T) {
	_, err := AddNanos(Timestamp{Secs: 0, Nanos: 1<<62}, 1<<62)
	assert.Error(t, err)
}
