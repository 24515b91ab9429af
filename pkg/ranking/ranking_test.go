package ranking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genobase/pairmeta/pkg/ranking"
)

func f64(v float64) *float64 { return &v }

func row(pair, metric string, theta, p float64, i2 *float64, k int, n int64) ranking.MetricResult {
	return ranking.MetricResult{
		PairKey:     pair,
		MetricName:  metric,
		ThetaPooled: theta,
		P:           p,
		I2:          i2,
		K:           k,
		TotalN:      n,
	}
}

func TestBenjaminiHochbergOrdering(t *testing.T) {
	// Three pairs, one metric. With m=3: q_(1)=min over tail, all
	// pass through since 0.01*3/1=0.03 < 0.02*3/2=0.03 ... compute:
	// sorted p: 0.01, 0.02, 0.9 -> raw 0.03, 0.03, 0.9 -> monotone
	// from the tail: 0.03, 0.03, 0.9.
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.5, 0.01, f64(10), 5, 100),
		row("b", "log_fc", 0.4, 0.02, f64(10), 5, 100),
		row("c", "log_fc", 0.1, 0.9, f64(10), 5, 100),
	}
	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.05, KMin: 1, I2Max: 100})

	require.Len(t, res, 2)
	keys := []string{res[0].PairKey, res[1].PairKey}
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
	for _, rp := range res {
		assert.LessOrEqual(t, rp.QStar, 0.05)
	}
}

func TestFilterStudyCount(t *testing.T) {
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.5, 0.001, f64(5), 2, 100),
		row("b", "log_fc", 0.5, 0.001, f64(5), 3, 100),
	}
	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 3, I2Max: 100})

	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].PairKey)
}

func TestFilterHeterogeneity(t *testing.T) {
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.5, 0.001, f64(90), 5, 100),
		row("b", "log_fc", 0.5, 0.001, f64(20), 5, 100),
	}
	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 1, I2Max: 75})

	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].PairKey)
	assert.InDelta(t, 80.0, res[0].ConsistencyScore, 1e-12)
}

func TestMissingI2IsPermissive(t *testing.T) {
	// A nil I2 counts as the bound 100: included when i2_max is 100,
	// excluded for any tighter threshold.
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.5, 0.001, nil, 5, 100),
	}

	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 1, I2Max: 100})
	require.Len(t, res, 1)
	assert.Equal(t, 100.0, res[0].I2Star)

	res = ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 1, I2Max: 75})
	assert.Empty(t, res)
}

func TestQStarTakesBestMetric(t *testing.T) {
	// One metric is significant, the other is not. q_star folds in the
	// best per-metric q, so the pair survives a strict threshold.
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.8, 0.0001, f64(10), 5, 500),
		row("a", "correlation", 0.1, 0.7, f64(10), 5, 500),
	}
	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.01, KMin: 1, I2Max: 100})

	require.Len(t, res, 1)
	assert.LessOrEqual(t, res[0].QStar, 0.01)
	// The combined effect is taken from the most significant metric.
	assert.Equal(t, 0.8, res[0].CombinedEffectSize)
}

func TestSortOrder(t *testing.T) {
	rows := []ranking.MetricResult{
		row("weak", "log_fc", 0.2, 0.001, f64(5), 5, 100),
		row("strong", "log_fc", 0.9, 0.0000001, f64(5), 5, 100),
	}
	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 1, I2Max: 100})

	require.Len(t, res, 2)
	assert.Equal(t, "strong", res[0].PairKey)
	assert.Greater(t, res[0].RankScore, res[1].RankScore)
}

func TestLimit(t *testing.T) {
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.5, 0.001, f64(5), 5, 100),
		row("b", "log_fc", 0.5, 0.001, f64(5), 5, 100),
		row("c", "log_fc", 0.5, 0.001, f64(5), 5, 100),
	}
	res := ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 1, I2Max: 100, Limit: 2})
	assert.Len(t, res, 2)
}

func TestMonotonicityInI2Max(t *testing.T) {
	// Tightening i2_max must never grow the result set.
	rows := []ranking.MetricResult{
		row("a", "log_fc", 0.5, 0.001, f64(90), 5, 100),
		row("b", "log_fc", 0.5, 0.002, f64(60), 5, 100),
		row("c", "log_fc", 0.5, 0.003, f64(30), 5, 100),
		row("d", "log_fc", 0.5, 0.004, nil, 5, 100),
	}
	prev := len(rows) + 1
	for _, i2max := range []float64{100, 90, 75, 50, 25, 1} {
		res := ranking.Rank(rows, ranking.Params{QThreshold: 0.5, KMin: 1, I2Max: i2max})
		assert.LessOrEqual(t, len(res), prev, "i2_max=%v", i2max)
		prev = len(res)
	}
}

func TestEmptyInput(t *testing.T) {
	assert.Nil(t, ranking.Rank(nil, ranking.Params{}))
}
