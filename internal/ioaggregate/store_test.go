package ioaggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genobase/pairmeta/pkg/component"
	"github.com/genobase/pairmeta/pkg/meta"
)

func TestStorageScaleCorrelation(t *testing.T) {
	s := meta.NewSufficientStats()
	for _, study := range []string{"GSE1", "GSE2", "GSE3"} {
		c, err := meta.CorrelationContribution(study, 0.9, 100, 4)
		require.NoError(t, err)
		s.Apply(c)
	}
	pooled, ok := meta.Pool(s)
	require.True(t, ok)

	theta, lo, hi := storageScale(component.Correlation, pooled)

	// The stored estimate and interval share the r scale: the point
	// estimate sits inside its own interval.
	assert.Less(t, lo, theta)
	assert.Less(t, theta, hi)
	assert.InDelta(t, math.Tanh(pooled.ThetaPooled), theta, 1e-12)
	assert.Greater(t, lo, -1.0)
	assert.Less(t, hi, 1.0)
}

func TestStorageScaleEffectSizePassthrough(t *testing.T) {
	s := meta.NewSufficientStats()
	for _, v := range []struct {
		study string
		d     float64
		se    float64
	}{
		{"GSE1", 0.5, 0.1},
		{"GSE2", 0.7, 0.2},
	} {
		c, err := meta.NewContribution(v.study, v.d, v.se, 40)
		require.NoError(t, err)
		s.Apply(c)
	}
	pooled, ok := meta.Pool(s)
	require.True(t, ok)

	theta, lo, hi := storageScale(component.EffectSize, pooled)
	assert.Equal(t, pooled.ThetaPooled, theta)
	assert.Equal(t, pooled.CILower, lo)
	assert.Equal(t, pooled.CIUpper, hi)
}
