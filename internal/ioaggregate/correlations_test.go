package ioaggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genobase/pairmeta/pkg/component"
)

func writeMatrix(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCorrelationsMatrix(t *testing.T) {
	matrix := "gene\t10\t20\t30\n" +
		"10\t1.0\t0.5\t0.3\n" +
		"20\t0.5\t1.0\t-0.2\n" +
		"30\t0.3\t-0.2\t1.0\n"
	path := writeMatrix(t, "corr.tsv", matrix)

	data, err := readCorrelations(path, "GSE1", "coexpression", 50)
	require.NoError(t, err)

	// Diagonal and the symmetric half are dropped: 3 unique pairs.
	require.Len(t, data.Components, 3)

	ids := make(map[string]float64)
	for _, c := range data.Components {
		assert.Equal(t, component.Correlation, c.Kind)
		assert.Equal(t, "GSE1", c.StudyKey)
		assert.Equal(t, int64(50), c.NSamples)
		ids[c.PairID] = c.Value
	}
	assert.InDelta(t, 0.5, ids["10_20"], 1e-12)
	assert.InDelta(t, 0.3, ids["10_30"], 1e-12)
	assert.InDelta(t, -0.2, ids["20_30"], 1e-12)
}

func TestReadCorrelationsCSV(t *testing.T) {
	matrix := "gene,10,20\n10,1.0,0.7\n20,0.7,1.0\n"
	path := writeMatrix(t, "corr.csv", matrix)

	data, err := readCorrelations(path, "GSE1", "coexpression", 30)
	require.NoError(t, err)
	require.Len(t, data.Components, 1)
	assert.Equal(t, "10_20", data.Components[0].PairID)
}

func TestReadCorrelationsNonIntegerGene(t *testing.T) {
	matrix := "gene\tTP53\n10\t0.5\n"
	path := writeMatrix(t, "corr.tsv", matrix)

	_, err := readCorrelations(path, "GSE1", "coexpression", 30)
	assert.Error(t, err)
}

func TestReadCorrelationsMissingCells(t *testing.T) {
	matrix := "gene\t10\t20\n10\t1.0\tNA\n20\t\t1.0\n"
	path := writeMatrix(t, "corr.tsv", matrix)

	data, err := readCorrelations(path, "GSE1", "coexpression", 30)
	require.NoError(t, err)
	assert.Empty(t, data.Components)
}
