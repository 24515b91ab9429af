// Package ranking derives the filtered, ordered view of gene pairs from
// pooled fact rows. The view is stateless: FDR adjustment, p-value
// combination, and every derived score are recomputed from the pooled
// rows on each call, so the ranking can be rebuilt at any time from the
// fact table alone.
package ranking

import (
	"math"
	"slices"
	"sort"

	"github.com/genobase/pairmeta/pkg/meta"
)

// MetricResult is one pooled fact row projected into the fields the
// ranking needs.
type MetricResult struct {
	PairKey    string
	MetricName string

	// ThetaPooled supplies the effect direction for p-value combination
	// and the combined-effect sort key.
	ThetaPooled float64

	// P is the pooled two-sided p-value.
	P float64

	// I2 is the heterogeneity percentage; nil when undefined (one study).
	I2 *float64

	// K is the included study count for this metric.
	K int

	// TotalN is the summed sample size of contributing studies.
	TotalN int64
}

// Params control filtering and combination. Zero values fall back to the
// documented defaults.
type Params struct {
	QThreshold float64
	KMin       int
	I2Max      float64
	Weighting  meta.Weighting
	Limit      int
}

// Defaults for the filtered view.
const (
	DefaultQThreshold = 0.05
	DefaultKMin       = 3
	DefaultI2Max      = 75.0
)

func (p Params) withDefaults() Params {
	if p.QThreshold <= 0 {
		p.QThreshold = DefaultQThreshold
	}
	if p.KMin <= 0 {
		p.KMin = DefaultKMin
	}
	if p.I2Max <= 0 {
		p.I2Max = DefaultI2Max
	}
	if p.Weighting == "" {
		p.Weighting = meta.WeightSqrtN
	}
	return p
}

// RankedPair is one pair in the filtered view with its derived scores.
type RankedPair struct {
	PairKey string

	// QStar is min(q_combined, per-metric q values, 1).
	QStar float64

	// I2Star is min(per-metric I2 values, 100); missing I2 counts as
	// the permissive bound 100.
	I2Star float64

	// CombinedZ and CombinedP come from Stouffer combination of the
	// pair's per-metric pooled p-values.
	CombinedZ float64
	CombinedP float64
	CombinedQ float64

	// RankScore is |CombinedZ|.
	RankScore float64

	// PowerScore is the largest per-metric total sample size.
	PowerScore float64

	// ConsistencyScore is 100 - I2Star.
	ConsistencyScore float64

	// CombinedEffectSize is the pooled estimate of the pair's most
	// significant metric.
	CombinedEffectSize float64

	// K is the largest included study count across the pair's metrics.
	K int

	Metrics []MetricResult
}

// Rank builds the filtered, ordered view from pooled fact rows belonging
// to one (disease, technology) slice.
func Rank(rows []MetricResult, params Params) []RankedPair {
	params = params.withDefaults()
	if len(rows) == 0 {
		return nil
	}

	metricQ := adjustPerMetric(rows)

	// Group rows per pair, preserving a deterministic metric order.
	byPair := make(map[string][]MetricResult)
	var pairKeys []string
	for _, r := range rows {
		if _, ok := byPair[r.PairKey]; !ok {
			pairKeys = append(pairKeys, r.PairKey)
		}
		byPair[r.PairKey] = append(byPair[r.PairKey], r)
	}
	slices.Sort(pairKeys)

	pairs := make([]RankedPair, 0, len(pairKeys))
	var combinedPs []float64
	for _, key := range pairKeys {
		metrics := byPair[key]
		slices.SortFunc(metrics, func(a, b MetricResult) int {
			switch {
			case a.MetricName < b.MetricName:
				return -1
			case a.MetricName > b.MetricName:
				return 1
			}
			return 0
		})

		rp := RankedPair{PairKey: key, Metrics: metrics}

		inputs := make([]meta.StoufferInput, 0, len(metrics))
		bestQ := 1.0
		rp.I2Star = 100.0
		for _, m := range metrics {
			inputs = append(inputs, meta.StoufferInput{
				P:        m.P,
				Effect:   m.ThetaPooled,
				NSamples: m.TotalN,
			})

			q := metricQ[rowKey{m.PairKey, m.MetricName}]
			if q < bestQ {
				bestQ = q
				rp.CombinedEffectSize = m.ThetaPooled
			}
			if m.I2 != nil && *m.I2 < rp.I2Star {
				rp.I2Star = *m.I2
			}
			if m.K > rp.K {
				rp.K = m.K
			}
			if float64(m.TotalN) > rp.PowerScore {
				rp.PowerScore = float64(m.TotalN)
			}
		}

		if comb, err := meta.Stouffer(inputs, params.Weighting); err == nil {
			rp.CombinedZ = comb.Z
			rp.CombinedP = comb.P
		} else {
			rp.CombinedP = 1
		}
		rp.QStar = bestQ
		rp.RankScore = math.Abs(rp.CombinedZ)
		rp.ConsistencyScore = 100 - rp.I2Star

		combinedPs = append(combinedPs, rp.CombinedP)
		pairs = append(pairs, rp)
	}

	// BH-adjust the combined p-values across pairs, then fold the
	// combined q into q_star.
	combinedQs := benjaminiHochberg(combinedPs)
	for i := range pairs {
		pairs[i].CombinedQ = combinedQs[i]
		if combinedQs[i] < pairs[i].QStar {
			pairs[i].QStar = combinedQs[i]
		}
		if pairs[i].QStar > 1 {
			pairs[i].QStar = 1
		}
	}

	// Filter.
	filtered := pairs[:0]
	for _, rp := range pairs {
		if rp.K < params.KMin {
			continue
		}
		if rp.QStar > params.QThreshold {
			continue
		}
		if rp.I2Star > params.I2Max {
			continue
		}
		filtered = append(filtered, rp)
	}

	// Sort: q_star asc, rank score desc, power desc, i2_star asc,
	// consistency desc, |combined effect| desc.
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.QStar != b.QStar {
			return a.QStar < b.QStar
		}
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.PowerScore != b.PowerScore {
			return a.PowerScore > b.PowerScore
		}
		if a.I2Star != b.I2Star {
			return a.I2Star < b.I2Star
		}
		if a.ConsistencyScore != b.ConsistencyScore {
			return a.ConsistencyScore > b.ConsistencyScore
		}
		return math.Abs(a.CombinedEffectSize) > math.Abs(b.CombinedEffectSize)
	})

	if params.Limit > 0 && len(filtered) > params.Limit {
		filtered = filtered[:params.Limit]
	}
	return filtered
}

type rowKey struct {
	pairKey    string
	metricName string
}

// adjustPerMetric computes Benjamini-Hochberg q-values for each metric's
// p-values across all pairs in the slice.
func adjustPerMetric(rows []MetricResult) map[rowKey]float64 {
	byMetric := make(map[string][]MetricResult)
	for _, r := range rows {
		byMetric[r.MetricName] = append(byMetric[r.MetricName], r)
	}

	res := make(map[rowKey]float64, len(rows))
	for _, group := range byMetric {
		ps := make([]float64, len(group))
		for i, r := range group {
			ps[i] = r.P
		}
		qs := benjaminiHochberg(ps)
		for i, r := range group {
			res[rowKey{r.PairKey, r.MetricName}] = qs[i]
		}
	}
	return res
}

// benjaminiHochberg returns FDR-adjusted q-values in the input order:
// q_(i) = min over j >= i of p_(j)·m/j, capped at 1.
func benjaminiHochberg(ps []float64) []float64 {
	m := len(ps)
	if m == 0 {
		return nil
	}

	idx := make([]int, m)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return ps[idx[a]] < ps[idx[b]] })

	qs := make([]float64, m)
	running := math.Inf(1)
	for rank := m - 1; rank >= 0; rank-- {
		i := idx[rank]
		q := ps[i] * float64(m) / float64(rank+1)
		if q < running {
			running = q
		}
		if running > 1 {
			qs[i] = 1
		} else {
			qs[i] = running
		}
	}
	return qs
}
