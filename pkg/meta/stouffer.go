package meta

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Weighting selects how Stouffer combination weights its inputs.
type Weighting string

const (
	// WeightSqrtN weights each study z-score by the square root of its
	// sample size.
	WeightSqrtN Weighting = "sqrt_n"

	// WeightEqual gives every study the same weight.
	WeightEqual Weighting = "equal"
)

// minP keeps the normal quantile finite for p-values reported as zero.
const minP = 1e-300

// StoufferInput is one independent significance result to combine: a
// two-sided p-value, the sign of its underlying effect, and an optional
// sample size (0 when unknown).
type StoufferInput struct {
	P        float64
	Effect   float64
	NSamples int64
}

// StoufferResult is a combined significance score.
type StoufferResult struct {
	Z float64
	P float64

	// UsedEqualWeights is true when sqrt_n weighting was requested but
	// at least one input lacked a sample size, so the whole combination
	// fell back to equal weights. Weights are never mixed within one
	// combination.
	UsedEqualWeights bool
}

// Stouffer combines independent two-sided p-values into one z-score:
// Z = Σ w_i·z_i / sqrt(Σ w_i²) with z_i = Φ⁻¹(1 − p_i/2)·sign(effect_i).
func Stouffer(inputs []StoufferInput, weighting Weighting) (StoufferResult, error) {
	var res StoufferResult
	if len(inputs) == 0 {
		return res, fmt.Errorf("no inputs to combine")
	}

	switch weighting {
	case WeightSqrtN, WeightEqual:
	default:
		return res, fmt.Errorf("unknown weighting %q", weighting)
	}

	if weighting == WeightSqrtN {
		for _, in := range inputs {
			if in.NSamples <= 0 {
				weighting = WeightEqual
				res.UsedEqualWeights = true
				break
			}
		}
	}

	var sumWZ, sumW2 float64
	for _, in := range inputs {
		p := in.P
		if math.IsNaN(p) || p < 0 || p > 1 {
			return res, fmt.Errorf("p-value %v outside [0, 1]", p)
		}
		if p < minP {
			p = minP
		}

		z := distuv.UnitNormal.Quantile(1 - p/2)
		if in.Effect < 0 {
			z = -z
		}

		w := 1.0
		if weighting == WeightSqrtN {
			w = math.Sqrt(float64(in.NSamples))
		}

		sumWZ += w * z
		sumW2 += w * w
	}

	res.Z = sumWZ / math.Sqrt(sumW2)
	res.P = 2 * distuv.UnitNormal.Survival(math.Abs(res.Z))
	return res, nil
}
