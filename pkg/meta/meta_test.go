package meta_test

import (
	"math/rand"
	"testing"

	"github.com/genobase/pairmeta/pkg/meta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustContribution(
	t *testing.T,
	study string,
	theta, se float64,
	n int64,
) meta.Contribution {
	t.Helper()
	c, err := meta.NewContribution(study, theta, se, n)
	require.NoError(t, err)
	return c
}

func TestNewContribution(t *testing.T) {
	tests := []struct {
		name    string
		study   string
		theta   float64
		se      float64
		wantErr bool
	}{
		{"valid", "GSE100", 0.3, 0.1, false},
		{"zero se", "GSE100", 0.3, 0, true},
		{"negative se", "GSE100", 0.3, -0.1, true},
		{"nan se", "GSE100", 0.3, nan(), true},
		{"inf theta", "GSE100", inf(), 0.1, true},
		{"empty study", "", 0.3, 0.1, true},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			c, err := meta.NewContribution(v.study, v.theta, v.se, 10)
			if v.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, 1/(v.se*v.se), c.Weight, 1e-12)
		})
	}
}

func TestApplyIdempotence(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 40))
	s.Apply(mustContribution(t, "GSE2", 0.5, 0.2, 25))

	before := *s
	replaced := s.Apply(mustContribution(t, "GSE2", 0.5, 0.2, 25))

	assert.True(t, replaced)
	assert.Equal(t, before.S1, s.S1)
	assert.Equal(t, before.S2, s.S2)
	assert.Equal(t, before.STheta, s.STheta)
	assert.Equal(t, before.STheta2, s.STheta2)
	assert.Equal(t, before.K, s.K)
}

func TestApplyCorrection(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 40))
	s.Apply(mustContribution(t, "GSE2", 0.5, 0.2, 25))

	// A corrected re-run replaces the old contribution exactly once.
	s.Apply(mustContribution(t, "GSE2", 0.4, 0.25, 30))

	want := meta.NewSufficientStats()
	want.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 40))
	want.Apply(mustContribution(t, "GSE2", 0.4, 0.25, 30))

	assert.Equal(t, want.S1, s.S1)
	assert.Equal(t, want.STheta, s.STheta)
	assert.Equal(t, want.STheta2, s.STheta2)
	assert.Equal(t, 2, s.K)
}

func TestOrderIndependence(t *testing.T) {
	contribs := []meta.Contribution{
		mustContribution(t, "GSE1", 0.2, 0.1, 40),
		mustContribution(t, "GSE2", 0.5, 0.2, 25),
		mustContribution(t, "GSE3", 0.3, 0.15, 60),
		mustContribution(t, "GSE4", -0.1, 0.3, 15),
	}

	base := meta.NewSufficientStats()
	for _, c := range contribs {
		base.Apply(c)
	}
	basePooled, ok := meta.Pool(base)
	require.True(t, ok)

	rng := rand.New(rand.NewSource(42))
	for range 10 {
		perm := rng.Perm(len(contribs))
		s := meta.NewSufficientStats()
		for _, i := range perm {
			s.Apply(contribs[i])
		}

		// Replay in canonical order makes the sums bit-identical
		// regardless of fold order.
		assert.Equal(t, base.S1, s.S1)
		assert.Equal(t, base.S2, s.S2)
		assert.Equal(t, base.STheta, s.STheta)
		assert.Equal(t, base.STheta2, s.STheta2)

		pooled, ok := meta.Pool(s)
		require.True(t, ok)
		assert.Equal(t, basePooled, pooled)
	}
}

func TestRemove(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 40))
	s.Apply(mustContribution(t, "GSE2", 0.5, 0.2, 25))

	assert.True(t, s.Remove("GSE2"))
	assert.False(t, s.Remove("GSE2"))
	assert.Equal(t, 1, s.K)

	want := meta.NewSufficientStats()
	want.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 40))
	assert.Equal(t, want.S1, s.S1)
	assert.Equal(t, want.STheta, s.STheta)
}

func TestRestoreMatchesApply(t *testing.T) {
	contribs := []meta.Contribution{
		mustContribution(t, "GSE1", 0.2, 0.1, 40),
		mustContribution(t, "GSE2", 0.5, 0.2, 25),
		mustContribution(t, "GSE3", 0.3, 0.15, 60),
	}

	applied := meta.NewSufficientStats()
	for _, c := range contribs {
		applied.Apply(c)
	}

	restored := meta.Restore(applied.Contributions())
	assert.Equal(t, applied.S1, restored.S1)
	assert.Equal(t, applied.S2, restored.S2)
	assert.Equal(t, applied.STheta, restored.STheta)
	assert.Equal(t, applied.STheta2, restored.STheta2)
	assert.Equal(t, applied.K, restored.K)
}

func TestContributionsSorted(t *testing.T) {
	s := meta.NewSufficientStats()
	s.Apply(mustContribution(t, "GSE9", 0.1, 0.1, 10))
	s.Apply(mustContribution(t, "GSE1", 0.2, 0.1, 10))
	s.Apply(mustContribution(t, "GSE5", 0.3, 0.1, 10))

	var keys []string
	for _, c := range s.Contributions() {
		keys = append(keys, c.StudyKey)
	}
	assert.Equal(t, []string{"GSE1", "GSE5", "GSE9"}, keys)
}

func nan() float64 {
	var z float64
	return z / z
}

func inf() float64 {
	var z float64
	return 1 / z
}
