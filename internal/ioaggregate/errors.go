package ioaggregate

import (
	"fmt"

	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/gnames/gn"
)

// NotConnectedError creates an error for aggregation attempted without
// a database connection.
func NotConnectedError() error {
	msg := "Aggregation attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// ComponentReadError creates an error for failures reading a study's
// component input.
func ComponentReadError(path string, err error) error {
	msg := "Cannot read study components from <em>%s</em>"
	vars := []any{path}

	return &gn.Error{
		Code: errcode.ComponentReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to read components from %s: %w", path, err),
	}
}

// ComponentEmptyError creates an error for a study whose input yielded
// no usable components.
func ComponentEmptyError(studyKey string) error {
	msg := `Study <em>%s</em> produced no usable components

<em>Possible causes:</em>
  - Every row failed validation (see skip counts in the log)
  - The input file is empty or points at the wrong study`

	vars := []any{studyKey}

	return &gn.Error{
		Code: errcode.ComponentEmptyError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("study %s: no usable components", studyKey),
	}
}

// MissingDiseaseMappingError creates an error for a study with no
// disease mapping.
func MissingDiseaseMappingError(studyKey string) error {
	msg := `No active disease mapping for study <em>%s</em>

<em>How to fix:</em>
  1. Add an active row to study_disease_mappings for this study
  2. Or pass an explicit disease with <em>--disease</em>`

	vars := []any{studyKey}

	return &gn.Error{
		Code: errcode.MissingDiseaseMappingError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("study %s: no active disease mapping", studyKey),
	}
}

// MultiDiseaseMappingError creates an error for a study mapped to more
// than one disease.
func MultiDiseaseMappingError(studyKey string, count int) error {
	msg := `Study <em>%s</em> has %d active disease mappings; exactly one is allowed

<em>How to fix:</em>
  1. Deactivate the superseded rows in study_disease_mappings
  2. Or pass an explicit disease with <em>--disease</em>`

	vars := []any{studyKey, count}

	return &gn.Error{
		Code: errcode.MultiDiseaseMappingError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("study %s: %d active disease mappings", studyKey, count),
	}
}

// UnknownDiseaseError creates an error for a disease key missing from
// the vocabulary.
func UnknownDiseaseError(key string) error {
	msg := "Unknown disease key <em>%s</em>"
	vars := []any{key}

	return &gn.Error{
		Code: errcode.MissingDiseaseMappingError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("unknown disease key %s", key),
	}
}

// PairFormatError creates an error for a composite pair id that does
// not parse.
func PairFormatError(pairID string, err error) error {
	msg := "Malformed pair id <em>%s</em>"
	vars := []any{pairID}

	return &gn.Error{
		Code: errcode.PairIdFormatInvalidError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("malformed pair id %s: %w", pairID, err),
	}
}

// GeneKeyNotFoundError creates an error for gene keys missing from the
// reference set. Genes are admin-loaded; a study referencing an
// unknown gene fails instead of inventing one.
func GeneKeyNotFoundError(missing []int64) error {
	msg := `Study references %d gene keys missing from the reference set
(first missing: <em>%d</em>)

<em>How to fix:</em>
  1. Load the missing genes into the reference set
  2. Or drop the affected pairs from the study input`

	vars := []any{len(missing), missing[0]}

	return &gn.Error{
		Code: errcode.PairGeneKeyNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("%d gene keys not in reference set, first %d",
			len(missing), missing[0]),
	}
}

// PairStoreError creates an error for failures reading or registering
// genes and pairs.
func PairStoreError(table string, err error) error {
	msg := "Cannot access <em>%s</em> while resolving pairs"
	vars := []any{table}

	return &gn.Error{
		Code: errcode.PairStoreError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("pair resolution against %s failed: %w", table, err),
	}
}

// SuffStatsUpsertError creates an error for failures persisting a
// statistics cell or its ledger.
func SuffStatsUpsertError(pairKey, metric string, err error) error {
	msg := "Cannot store statistics for pair <em>%s</em>, metric <em>%s</em>"
	vars := []any{pairKey, metric}

	return &gn.Error{
		Code: errcode.SuffStatsUpsertError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("failed to upsert statistics %s/%s: %w",
			pairKey, metric, err),
	}
}

// PooledRecomputeError creates an error for failures writing a pooled
// result row.
func PooledRecomputeError(pairKey, metric string, err error) error {
	msg := "Cannot store pooled result for pair <em>%s</em>, metric <em>%s</em>"
	vars := []any{pairKey, metric}

	return &gn.Error{
		Code: errcode.PooledRecomputeError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("failed to store pooled result %s/%s: %w",
			pairKey, metric, err),
	}
}

// StoreConflictError creates an error for a row-version conflict. The
// aggregation loop treats it as transient and retries the whole study.
func StoreConflictError(pairKey, metric string) error {
	msg := "Concurrent update detected for pair <em>%s</em>, metric <em>%s</em>"
	vars := []any{pairKey, metric}

	return &gn.Error{
		Code: errcode.StoreConflictError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("row version conflict on %s/%s",
			pairKey, metric),
	}
}

// FeatureRunError creates an error for failures writing the run audit
// record.
func FeatureRunError(studyKey string, err error) error {
	msg := "Cannot record aggregation run for study <em>%s</em>"
	vars := []any{studyKey}

	return &gn.Error{
		Code: errcode.FeatureRunError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to record run for %s: %w", studyKey, err),
	}
}

// RetryExhaustedError creates an error for a study that kept failing
// on transient errors.
func RetryExhaustedError(studyKey string, attempts int, err error) error {
	msg := `Study <em>%s</em> failed after %d attempts

The failures were transient (lock conflicts or connection loss), but
the retry budget is spent. Re-run the study to try again.`

	vars := []any{studyKey, attempts}

	return &gn.Error{
		Code: errcode.RetryExhaustedError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("study %s: %d attempts exhausted: %w",
			studyKey, attempts, err),
	}
}
