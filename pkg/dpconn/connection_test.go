package dpconn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osprey-dcs/dp-jal-sub013/pkg/dperr"
)

func TestSecurityValidateRejectsNonPowerOfTwo(t *testing.T) {
	sec := Security{MaxMessageBytes: 100}
	err := sec.Validate()
	assert.ErrorIs(t, err, dperr.ErrConfig)
}

func TestSecurityValidateAcceptsPowerOfTwo(t *testing.T) {
	sec := Security{MaxMessageBytes: 4 << 20}
	assert.NoError(t, sec.Validate())
}

func TestSecurityValidateAcceptsZero(t *testing.T) {
	sec := Security{}
	assert.NoError(t, sec.Validate())
}

func TestDurationOrDefaultFallsBackWhenUnset(t *testing.T) {
	assert.Equal(t, defaultKeepaliveTime, durationOrDefault(0))
	assert.Equal(t, defaultKeepaliveTime, durationOrDefault(-1))
}
