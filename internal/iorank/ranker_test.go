package iorank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/genobase/pairmeta/pkg/config"
	"github.com/genobase/pairmeta/pkg/meta"
	"github.com/genobase/pairmeta/pkg/ranking"
)

func TestWithConfigDefaults(t *testing.T) {
	cfg := config.New()
	r := &ranker{cfg: cfg}

	p := r.withConfigDefaults(ranking.Params{})
	assert.InDelta(t, 0.05, p.QThreshold, 1e-12)
	assert.Equal(t, 3, p.KMin)
	assert.InDelta(t, 75.0, p.I2Max, 1e-12)
	assert.Equal(t, meta.WeightSqrtN, p.Weighting)

	// Explicit query parameters win over configuration.
	p = r.withConfigDefaults(ranking.Params{
		QThreshold: 0.01,
		KMin:       5,
		I2Max:      50,
		Weighting:  meta.WeightEqual,
	})
	assert.InDelta(t, 0.01, p.QThreshold, 1e-12)
	assert.Equal(t, 5, p.KMin)
	assert.InDelta(t, 50.0, p.I2Max, 1e-12)
	assert.Equal(t, meta.WeightEqual, p.Weighting)
}
