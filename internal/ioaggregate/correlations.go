package ioaggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/genobase/pairmeta/pkg/component"
	"github.com/genobase/pairmeta/pkg/rowstream"
)

// readCorrelations turns a wide-format correlation matrix into
// correlation components. Row and column labels are gene keys; the
// diagonal and the redundant symmetric half are dropped.
func readCorrelations(
	path, studyKey, metricName string,
	nSamples int64,
) (*studyData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ComponentReadError(path, err)
	}
	defer f.Close()

	delim := '\t'
	if filepath.Ext(path) == ".csv" {
		delim = ','
	}

	data := &studyData{
		Meta: stagingMeta{StudyKey: studyKey, NSamples: nSamples},
	}

	seen := make(map[string]bool)
	err = rowstream.Stream(f, delim, func(rec rowstream.Record) error {
		a, parseErrA := strconv.ParseInt(rec.RowKey, 10, 64)
		b, parseErrB := strconv.ParseInt(rec.ColKey, 10, 64)
		if parseErrA != nil || parseErrB != nil {
			return fmt.Errorf(
				"gene keys %q, %q are not integers", rec.RowKey, rec.ColKey,
			)
		}
		if a == b {
			return nil
		}
		if a > b {
			a, b = b, a
		}

		pairID := fmt.Sprintf("%d_%d", a, b)
		if seen[pairID] {
			return nil
		}
		seen[pairID] = true

		data.Components = append(data.Components, component.Component{
			StudyKey:   studyKey,
			PairID:     pairID,
			MetricName: metricName,
			Kind:       component.Correlation,
			Value:      rec.Value,
			NSamples:   nSamples,
		})
		return nil
	})
	if err != nil {
		return nil, ComponentReadError(path, err)
	}

	return data, nil
}
