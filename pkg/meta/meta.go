// Package meta implements the numerical core of cross-study pooling:
// incremental sufficient statistics with a replayable contribution ledger,
// DerSimonian-Laird random-effects pooling, Fisher-z correlation handling,
// and Stouffer p-value combination.
//
// This is a pure package - no I/O, no persistence. The io packages load and
// store its types; all arithmetic lives here so the same code path serves
// both the aggregation orchestrator and the tests.
package meta

import (
	"fmt"
	"math"
	"slices"
)

// Contribution is one study's point estimate on the pooling scale for one
// metric on one gene pair. For correlation metrics Theta is the Fisher-z
// transformed coefficient.
type Contribution struct {
	// StudyKey identifies the contributing study (e.g. "GSE65682").
	StudyKey string

	// Theta is the study-level point estimate.
	Theta float64

	// SE is the standard error of Theta. Always finite and positive.
	SE float64

	// Weight is the inverse-variance weight 1/SE².
	Weight float64

	// NSamples is the study sample size, 0 when unknown.
	NSamples int64
}

// NewContribution validates a study's estimate and derives its
// inverse-variance weight. The standard error must be finite and positive;
// anything else makes the contribution unusable (the caller skips it with
// a warning rather than failing the run).
func NewContribution(
	studyKey string,
	theta, se float64,
	nSamples int64,
) (Contribution, error) {
	var c Contribution
	if studyKey == "" {
		return c, fmt.Errorf("empty study key")
	}
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return c, fmt.Errorf(
			"study %s: theta %v is not finite", studyKey, theta,
		)
	}
	if math.IsNaN(se) || math.IsInf(se, 0) || se <= 0 {
		return c, fmt.Errorf(
			"study %s: standard error %v is not finite and positive",
			studyKey, se,
		)
	}

	c = Contribution{
		StudyKey: studyKey,
		Theta:    theta,
		SE:       se,
		Weight:   1 / (se * se),
		NSamples: nSamples,
	}
	return c, nil
}

// SufficientStats holds the incremental sums for one
// (pair, disease, technology, metric) slice together with the contribution
// ledger. The sums are never mutated in place: every change to the ledger
// triggers a full replay in canonical study-key order, so folding the same
// studies in any order produces bit-identical sums, and re-applying a study
// is exactly idempotent.
type SufficientStats struct {
	// S1 is Σ w_i.
	S1 float64
	// S2 is Σ w_i².
	S2 float64
	// STheta is Σ w_i·θ_i.
	STheta float64
	// STheta2 is Σ w_i·θ_i².
	STheta2 float64
	// K is the number of contributing studies; always equals len(ledger).
	K int

	ledger map[string]Contribution
}

// NewSufficientStats returns empty statistics with an empty ledger.
func NewSufficientStats() *SufficientStats {
	return &SufficientStats{ledger: make(map[string]Contribution)}
}

// Restore rebuilds statistics from persisted ledger entries, replaying
// them so the sums match what any past or future replay would produce.
func Restore(contributions []Contribution) *SufficientStats {
	s := NewSufficientStats()
	for _, c := range contributions {
		s.ledger[c.StudyKey] = c
	}
	s.replay()
	return s
}

// Apply folds a study's contribution into the statistics. If the ledger
// already holds an entry for the same study (re-run or correction), the
// old entry is replaced so the study is counted exactly once. Returns true
// when an existing entry was replaced.
func (s *SufficientStats) Apply(c Contribution) bool {
	_, replaced := s.ledger[c.StudyKey]
	s.ledger[c.StudyKey] = c
	s.replay()
	return replaced
}

// Remove drops a study's contribution from the ledger. Returns false when
// the study was not present.
func (s *SufficientStats) Remove(studyKey string) bool {
	if _, ok := s.ledger[studyKey]; !ok {
		return false
	}
	delete(s.ledger, studyKey)
	s.replay()
	return true
}

// Contains reports whether the ledger holds an entry for the study.
func (s *SufficientStats) Contains(studyKey string) bool {
	_, ok := s.ledger[studyKey]
	return ok
}

// Contributions returns the ledger entries sorted by study key. The order
// is canonical so callers iterating over the ledger (random-effects second
// pass, persistence) stay deterministic.
func (s *SufficientStats) Contributions() []Contribution {
	res := make([]Contribution, 0, len(s.ledger))
	for _, c := range s.ledger {
		res = append(res, c)
	}
	slices.SortFunc(res, func(a, b Contribution) int {
		switch {
		case a.StudyKey < b.StudyKey:
			return -1
		case a.StudyKey > b.StudyKey:
			return 1
		}
		return 0
	})
	return res
}

// TotalN sums the known sample sizes across the ledger.
func (s *SufficientStats) TotalN() int64 {
	var n int64
	for _, c := range s.ledger {
		n += c.NSamples
	}
	return n
}

// replay recomputes the four running sums and K from the ledger in
// canonical order. Replaying instead of incrementing is what makes
// corrections exact: there is no accumulated floating-point drift to
// subtract away.
func (s *SufficientStats) replay() {
	s.S1, s.S2, s.STheta, s.STheta2 = 0, 0, 0, 0
	for _, c := range s.Contributions() {
		w := c.Weight
		s.S1 += w
		s.S2 += w * w
		s.STheta += w * c.Theta
		s.STheta2 += w * c.Theta * c.Theta
	}
	s.K = len(s.ledger)
}
