// Package component defines the input contract between the upstream ETL
// and the aggregation engine: per-study, per-pair, per-metric estimate
// records. Components are transient - they are consumed by one aggregation
// run and never stored durably by this engine.
package component

import (
	"fmt"
	"strconv"
	"strings"
)

// MetricKind distinguishes how a component's value is pooled.
type MetricKind string

const (
	// EffectSize components carry theta and its standard error directly.
	EffectSize MetricKind = "effect_size"

	// Correlation components carry a coefficient r and a sample size;
	// they are Fisher-z transformed before pooling.
	Correlation MetricKind = "correlation"
)

// Component is one study's estimate for one metric on one gene pair, as
// supplied by the ETL collaborator.
type Component struct {
	// StudyKey identifies the contributing study.
	StudyKey string

	// PairID is the external composite pair identifier
	// "<geneA_key>_<geneB_key>". Canonicalized by the pair resolver.
	PairID string

	// MetricName names the pooled metric, e.g. "shock_vs_sepsis_dz"
	// or "coexpr_sepsis".
	MetricName string

	// Kind selects the pooling path.
	Kind MetricKind

	// Value is theta for effect-size metrics, r for correlations.
	Value float64

	// StandardError accompanies effect-size metrics; ignored for
	// correlations, whose SE derives from NSamples.
	StandardError float64

	// NSamples is the study sample size; required for correlations,
	// optional otherwise.
	NSamples int64
}

// Validate checks the contract fields that do not need the gene reference
// set: identifiers present, kind recognized, pair id well-formed.
func (c Component) Validate() error {
	if c.StudyKey == "" {
		return fmt.Errorf("missing study key")
	}
	if c.MetricName == "" {
		return fmt.Errorf("missing metric name")
	}
	switch c.Kind {
	case EffectSize, Correlation:
	default:
		return fmt.Errorf("unknown metric kind %q", c.Kind)
	}
	if _, _, err := ParsePairID(c.PairID); err != nil {
		return err
	}
	return nil
}

// ParsePairID splits a composite pair identifier "<a>_<b>" into its two
// gene keys in canonical (ascending) order. The identifier must contain
// exactly two distinct integer components.
func ParsePairID(pairID string) (int64, int64, error) {
	parts := strings.Split(pairID, "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf(
			"pair id %q: want exactly two '_'-separated components",
			pairID,
		)
	}

	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf(
			"pair id %q: %q is not an integer gene key", pairID, parts[0],
		)
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf(
			"pair id %q: %q is not an integer gene key", pairID, parts[1],
		)
	}

	if a == b {
		return 0, 0, fmt.Errorf(
			"pair id %q: a pair needs two distinct genes", pairID,
		)
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// CanonicalPairName renders a pair of gene keys in the canonical order
// used to derive deterministic pair identities.
func CanonicalPairName(geneA, geneB int64) string {
	if geneA > geneB {
		geneA, geneB = geneB, geneA
	}
	return fmt.Sprintf("%d:%d", geneA, geneB)
}
