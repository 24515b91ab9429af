package meta

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// PooledResult is the output of DerSimonian-Laird random-effects pooling
// over one sufficient-statistics slice. All estimates stay on the pooling
// scale; correlation metrics are back-transformed separately.
type PooledResult struct {
	// ThetaPooled is the random-effects pooled estimate.
	ThetaPooled float64

	// SEPooled is the standard error of ThetaPooled.
	SEPooled float64

	// Tau2 is the estimated between-study variance.
	Tau2 float64

	// Q is Cochran's heterogeneity statistic.
	Q float64

	// HetP is the chi-squared p-value of Q with K-1 degrees of freedom;
	// 1 when K < 2 (a single study carries no heterogeneity evidence).
	HetP float64

	// I2 is the percentage of total variance attributable to
	// between-study heterogeneity. Nil when K == 1 (undefined).
	I2 *float64

	// Z is ThetaPooled / SEPooled.
	Z float64

	// P is the two-sided normal p-value of Z.
	P float64

	// CILower and CIUpper bound the 95% confidence interval of
	// ThetaPooled on the pooling scale.
	CILower float64
	CIUpper float64

	// K is the number of contributing studies.
	K int

	// TotalN is the summed sample size of contributing studies
	// (known sizes only).
	TotalN int64
}

// Pool computes the DerSimonian-Laird random-effects pooled estimate from
// a sufficient-statistics snapshot. Returns false when the ledger is empty
// (no result row should exist for the slice).
//
// The four running sums alone are not enough once tau² > 0: the
// random-effects weights 1/(SE_i² + tau²) need the per-study raw values,
// which is exactly why the ledger retains them.
func Pool(s *SufficientStats) (PooledResult, bool) {
	var res PooledResult
	if s == nil || s.K == 0 || s.S1 <= 0 {
		return res, false
	}

	k := s.K
	res.K = k
	res.TotalN = s.TotalN()

	// Fixed-effect mean and heterogeneity from the running sums.
	thetaF := s.STheta / s.S1
	q := s.STheta2 - s.STheta*s.STheta/s.S1
	if q < 0 {
		// Q is non-negative analytically; clamp rounding noise.
		q = 0
	}
	res.Q = q

	c := s.S1 - s.S2/s.S1

	var tau2 float64
	if k >= 2 && c > 0 {
		tau2 = (q - float64(k-1)) / c
		if tau2 < 0 {
			tau2 = 0
		}
	}
	res.Tau2 = tau2

	if k >= 2 {
		chi2 := distuv.ChiSquared{K: float64(k - 1)}
		res.HetP = chi2.Survival(q)

		if q > 0 {
			i2 := (q - float64(k-1)) / q * 100
			if i2 < 0 {
				i2 = 0
			}
			res.I2 = &i2
		} else {
			zero := 0.0
			res.I2 = &zero
		}
	} else {
		res.HetP = 1
	}

	// Random-effects second pass over the ledger.
	var sumW, sumWTheta float64
	for _, contrib := range s.Contributions() {
		w := 1 / (contrib.SE*contrib.SE + tau2)
		sumW += w
		sumWTheta += w * contrib.Theta
	}
	res.ThetaPooled = sumWTheta / sumW
	res.SEPooled = math.Sqrt(1 / sumW)

	if k == 1 {
		// A single study pools to itself.
		res.ThetaPooled = thetaF
		res.SEPooled = math.Sqrt(1 / s.S1)
	}

	res.Z = res.ThetaPooled / res.SEPooled
	res.P = 2 * distuv.UnitNormal.Survival(math.Abs(res.Z))

	z975 := distuv.UnitNormal.Quantile(0.975)
	res.CILower = res.ThetaPooled - z975*res.SEPooled
	res.CIUpper = res.ThetaPooled + z975*res.SEPooled

	return res, true
}
