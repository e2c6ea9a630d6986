package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCostSixDecimalRounding(t *testing.T) {
	// 15s of speech at the spec's $0.006/minute rate: 0.25 * 0.006 = 0.0015,
	// the S1 scenario's exact expected charge. Two-decimal rounding would
	// silently zero this out, which is why the contract fixes six places.
	assert.InDelta(t, 0.0015, computeCost(RateTranscribe.PerUnit, 0.25), 1e-9)
}

func TestComputeCostHalfEvenTiesToEven(t *testing.T) {
	perUnit := mustRate(0.000001)
	// 0.5 units -> exactly 0.0000005 at the seventh decimal -> ties to even (0.000000)
	assert.InDelta(t, 0.000000, computeCost(perUnit, 0.5), 1e-12)
	// 1.5 units -> exactly 0.0000015 -> ties to even (0.000002)
	assert.InDelta(t, 0.000002, computeCost(perUnit, 1.5), 1e-12)
}

func TestComputeCostKeyVaultRetrieve(t *testing.T) {
	assert.InDelta(t, 0.05, computeCost(RateKeyVaultRetrieve.PerUnit, 1), 1e-9)
}

func TestComputeCostMailPerThousand(t *testing.T) {
	// One email billed against the "per 1000 messages" rate: 0.001 * 0.10.
	assert.InDelta(t, 0.0001, computeCost(RateMail.PerUnit, 0.001), 1e-9)
}
