package meta

import (
	"fmt"
	"math"
)

// MinCorrelationN is the smallest sample size for which the Fisher-z
// standard error 1/sqrt(n-3) is defined and positive.
const MinCorrelationN = 4

// FisherZ transforms a correlation coefficient to the z scale (atanh).
// Returns an error for |r| >= 1 where the transform is unbounded.
func FisherZ(r float64) (float64, error) {
	if math.IsNaN(r) || r <= -1 || r >= 1 {
		return 0, fmt.Errorf("correlation %v outside (-1, 1)", r)
	}
	return math.Atanh(r), nil
}

// InverseFisherZ maps a z-scale estimate back to a correlation.
func InverseFisherZ(z float64) float64 {
	return math.Tanh(z)
}

// CorrelationContribution converts a per-study correlation into a generic
// pooling contribution: theta = atanh(r), SE = 1/sqrt(n-3). minN is the
// configured minimum sample size (at least MinCorrelationN); studies below
// it are rejected so the caller can skip them with a warning.
func CorrelationContribution(
	studyKey string,
	r float64,
	nSamples int64,
	minN int,
) (Contribution, error) {
	var c Contribution
	if minN < MinCorrelationN {
		minN = MinCorrelationN
	}
	if nSamples < int64(minN) {
		return c, fmt.Errorf(
			"study %s: sample size %d below minimum %d for correlation pooling",
			studyKey, nSamples, minN,
		)
	}

	z, err := FisherZ(r)
	if err != nil {
		return c, fmt.Errorf("study %s: %w", studyKey, err)
	}

	se := 1 / math.Sqrt(float64(nSamples-3))
	return NewContribution(studyKey, z, se, nSamples)
}

// CorrelationResult is a pooled correlation back-transformed from the
// Fisher-z scale. The point estimate and confidence bounds are transformed
// together; tanh is monotonic, so their ordering is preserved.
type CorrelationResult struct {
	RPooled float64
	CILower float64
	CIUpper float64
}

// BackTransform maps a pooled Fisher-z result back to the correlation
// scale.
func BackTransform(res PooledResult) CorrelationResult {
	return CorrelationResult{
		RPooled: InverseFisherZ(res.ThetaPooled),
		CILower: InverseFisherZ(res.CILower),
		CIUpper: InverseFisherZ(res.CIUpper),
	}
}
