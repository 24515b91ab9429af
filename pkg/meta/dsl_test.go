package meta_test

import (
	"math"
	"testing"

	"github.com/genobase/pairmeta/pkg/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPoolFixture reproduces the hand-computed reference for three studies
// with theta = [0.2, 0.5, 0.3] and SE = [0.1, 0.2, 0.15]:
//
//	w  = [100, 25, 400/9]
//	S1 = 1525/9, Stheta = 275/6, Stheta2 = 57/4
//	Q  = 1.8524590164, C = 95.0819672
//	tau2 = max(0, (Q-2)/C) = 0
//	theta = 33/122 = 0.2704918033, SE = 3/sqrt(1525) = 0.0768221279
//	I2 = max(0, (Q-2)/Q)*100 = 0
func TestPoolFixture(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 0))
	s.Apply(mustContribution(t, "GSE2", 0.5, 0.2, 0))
	s.Apply(mustContribution(t, "GSE3", 0.3, 0.15, 0))

	res, ok := meta.Pool(s)
	require.True(t, ok)

	assert.InDelta(t, 1.8524590164, res.Q, 1e-6)
	assert.InDelta(t, 0.0, res.Tau2, 1e-12)
	assert.InDelta(t, 0.2704918033, res.ThetaPooled, 1e-6)
	assert.InDelta(t, 0.0768221279, res.SEPooled, 1e-6)
	require.NotNil(t, res.I2)
	assert.InDelta(t, 0.0, *res.I2, 1e-6)
	assert.InDelta(t, 3.5210, res.Z, 1e-3)
	assert.Less(t, res.P, 0.001)
	assert.Greater(t, res.P, 0.0)
	assert.Equal(t, 3, res.K)
}

// TestPoolHeterogeneous uses a symmetric two-study fixture where tau2 > 0,
// exercising the random-effects second pass over the ledger:
//
//	theta = [0.1, 0.9], SE = [0.1, 0.1]
//	Q = 32, C = 100, tau2 = 0.31
//	w* = 1/(0.01+0.31) = 3.125 each
//	theta_RE = 0.5, SE_RE = sqrt(1/6.25) = 0.4
//	I2 = 31/32*100 = 96.875
func TestPoolHeterogeneous(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.1, 0.1, 0))
	s.Apply(mustContribution(t, "GSE2", 0.9, 0.1, 0))

	res, ok := meta.Pool(s)
	require.True(t, ok)

	assert.InDelta(t, 32.0, res.Q, 1e-9)
	assert.InDelta(t, 0.31, res.Tau2, 1e-9)
	assert.InDelta(t, 0.5, res.ThetaPooled, 1e-9)
	assert.InDelta(t, 0.4, res.SEPooled, 1e-9)
	require.NotNil(t, res.I2)
	assert.InDelta(t, 96.875, *res.I2, 1e-9)
	assert.Less(t, res.HetP, 0.001)
}

func TestPoolSingleStudy(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.42, 0.2, 30))

	res, ok := meta.Pool(s)
	require.True(t, ok)

	assert.InDelta(t, 0.42, res.ThetaPooled, 1e-12)
	assert.InDelta(t, 0.2, res.SEPooled, 1e-12)
	assert.Zero(t, res.Tau2)
	assert.Nil(t, res.I2, "I2 is undefined for a single study")
	assert.InDelta(t, 1.0, res.HetP, 1e-12)
	assert.Equal(t, 1, res.K)
	assert.Equal(t, int64(30), res.TotalN)
}

func TestPoolEmpty(t *testing.T) {
	_, ok := meta.Pool(meta.NewSufficientStats())
	assert.False(t, ok)

	_, ok = meta.Pool(nil)
	assert.False(t, ok)
}

func TestPoolConfidenceInterval(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.3, 0.1, 50))

	res, ok := meta.Pool(s)
	require.True(t, ok)

	assert.InDelta(t, 0.3-1.9599639845*0.1, res.CILower, 1e-6)
	assert.InDelta(t, 0.3+1.9599639845*0.1, res.CIUpper, 1e-6)
	assert.Less(t, res.CILower, res.ThetaPooled)
	assert.Greater(t, res.CIUpper, res.ThetaPooled)
}

func TestPoolPValueSymmetry(t *testing.T) {
	pos := meta.NewSufficientStats()
	pos.Apply(mustContribution(t, "GSE1", 0.3, 0.1, 50))
	neg := meta.NewSufficientStats()
	neg.Apply(mustContribution(t, "GSE1", -0.3, 0.1, 50))

	rp, ok := meta.Pool(pos)
	require.True(t, ok)
	rn, ok := meta.Pool(neg)
	require.True(t, ok)

	assert.InDelta(t, rp.P, rn.P, 1e-12)
	assert.InDelta(t, rp.Z, -rn.Z, 1e-12)
	assert.False(t, math.Signbit(rp.Z))
	assert.True(t, math.Signbit(rn.Z))
}
