package ioaggregate

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/genobase/pairmeta/pkg/component"
	"github.com/genobase/pairmeta/pkg/meta"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// cellKey addresses one sufficient-statistics cell within a
// (disease, technology) slice.
type cellKey struct {
	PairKey    string
	MetricName string
}

// cellState carries one cell through load, pure recompute, and persist.
type cellState struct {
	key        cellKey
	kind       component.MetricKind
	contrib    meta.Contribution
	statsID    uint64 // 0 when the cell is new
	rowVersion int64
	stats      *meta.SufficientStats
	pooled     meta.PooledResult
	replaced   bool
}

// lockSlice takes the transaction-scoped advisory lock that serializes
// writers within one (disease, technology) slice. The lock is released
// automatically at commit or rollback.
func lockSlice(
	ctx context.Context,
	tx pgx.Tx,
	diseaseID uint,
	technology string,
) error {
	h := fnv.New64a()
	h.Write([]byte(technology))
	key := int64(uint64(diseaseID)<<32 ^ h.Sum64())

	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, key)
	return err
}

// loadCell reads a cell's identity and replays its ledger. A missing
// cell comes back with statsID 0 and empty statistics.
func loadCell(
	ctx context.Context,
	tx pgx.Tx,
	key cellKey,
	diseaseID uint,
	technology string,
) (uint64, int64, *meta.SufficientStats, error) {
	var (
		statsID    uint64
		rowVersion int64
	)

	err := tx.QueryRow(ctx, `
		SELECT id, row_version
		FROM sufficient_statistics
		WHERE pair_key = $1 AND disease_id = $2
			AND technology = $3 AND metric_name = $4
	`, key.PairKey, diseaseID, technology, key.MetricName).
		Scan(&statsID, &rowVersion)
	if err == pgx.ErrNoRows {
		return 0, 0, meta.NewSufficientStats(), nil
	}
	if err != nil {
		return 0, 0, nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT study_key, theta, se, weight, n_samples
		FROM study_contributions
		WHERE stats_id = $1
	`, statsID)
	if err != nil {
		return 0, 0, nil, err
	}
	defer rows.Close()

	var contribs []meta.Contribution
	for rows.Next() {
		var c meta.Contribution
		err = rows.Scan(&c.StudyKey, &c.Theta, &c.SE, &c.Weight, &c.NSamples)
		if err != nil {
			return 0, 0, nil, err
		}
		contribs = append(contribs, c)
	}
	if err = rows.Err(); err != nil {
		return 0, 0, nil, err
	}

	return statsID, rowVersion, meta.Restore(contribs), nil
}

// persistCell writes a cell's statistics, its ledger entry for the
// study, and the recomputed pooled row. Existing cells are guarded by
// a row-version check; losing the race is a transient conflict the
// caller retries.
func persistCell(
	ctx context.Context,
	tx pgx.Tx,
	cell *cellState,
	diseaseID uint,
	technology string,
	runID uint64,
) error {
	s := cell.stats

	if cell.statsID == 0 {
		err := tx.QueryRow(ctx, `
			INSERT INTO sufficient_statistics
				(pair_key, disease_id, technology, metric_name,
				 s1, s2, s_theta, s_theta2, k, row_version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10)
			RETURNING id
		`, cell.key.PairKey, diseaseID, technology, cell.key.MetricName,
			s.S1, s.S2, s.STheta, s.STheta2, s.K, time.Now()).
			Scan(&cell.statsID)
		if err != nil {
			return SuffStatsUpsertError(cell.key.PairKey, cell.key.MetricName, err)
		}
		cell.rowVersion = 1
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE sufficient_statistics
			SET s1 = $1, s2 = $2, s_theta = $3, s_theta2 = $4, k = $5,
				row_version = row_version + 1, updated_at = $6
			WHERE id = $7 AND row_version = $8
		`, s.S1, s.S2, s.STheta, s.STheta2, s.K,
			time.Now(), cell.statsID, cell.rowVersion)
		if err != nil {
			return SuffStatsUpsertError(cell.key.PairKey, cell.key.MetricName, err)
		}
		if tag.RowsAffected() == 0 {
			return StoreConflictError(cell.key.PairKey, cell.key.MetricName)
		}
		cell.rowVersion++
	}

	c := cell.contrib
	_, err := tx.Exec(ctx, `
		INSERT INTO study_contributions
			(stats_id, study_key, theta, se, weight, n_samples, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stats_id, study_key) DO UPDATE
		SET theta = EXCLUDED.theta, se = EXCLUDED.se,
			weight = EXCLUDED.weight, n_samples = EXCLUDED.n_samples,
			updated_at = EXCLUDED.updated_at
	`, cell.statsID, c.StudyKey, c.Theta, c.SE, c.Weight, c.NSamples,
		time.Now())
	if err != nil {
		return SuffStatsUpsertError(cell.key.PairKey, cell.key.MetricName, err)
	}

	return persistPooled(ctx, tx, cell, diseaseID, technology, runID)
}

// storageScale picks the persisted point estimate and bounds for a
// cell. Correlation results are back-transformed to the r scale as one
// unit; the estimate and its interval are never on different scales.
func storageScale(
	kind component.MetricKind,
	res meta.PooledResult,
) (theta, ciLower, ciUpper float64) {
	if kind != component.Correlation {
		return res.ThetaPooled, res.CILower, res.CIUpper
	}
	back := meta.BackTransform(res)
	return back.RPooled, back.CILower, back.CIUpper
}

// persistPooled upserts the pooled fact row for a cell.
func persistPooled(
	ctx context.Context,
	tx pgx.Tx,
	cell *cellState,
	diseaseID uint,
	technology string,
	runID uint64,
) error {
	res := cell.pooled
	theta, ciLower, ciUpper := storageScale(cell.kind, res)

	_, err := tx.Exec(ctx, `
		INSERT INTO pooled_metric_results
			(pair_key, disease_id, technology, metric_name,
			 theta_pooled, se_pooled, tau2, q, het_p, i2,
			 z, p, ci_lower, ci_upper, k, total_n,
			 row_version, feature_run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (pair_key, disease_id, technology, metric_name)
		DO UPDATE SET
			theta_pooled = EXCLUDED.theta_pooled,
			se_pooled = EXCLUDED.se_pooled,
			tau2 = EXCLUDED.tau2,
			q = EXCLUDED.q,
			het_p = EXCLUDED.het_p,
			i2 = EXCLUDED.i2,
			z = EXCLUDED.z,
			p = EXCLUDED.p,
			ci_lower = EXCLUDED.ci_lower,
			ci_upper = EXCLUDED.ci_upper,
			k = EXCLUDED.k,
			total_n = EXCLUDED.total_n,
			row_version = EXCLUDED.row_version,
			feature_run_id = EXCLUDED.feature_run_id,
			updated_at = EXCLUDED.updated_at
	`, cell.key.PairKey, diseaseID, technology, cell.key.MetricName,
		theta, res.SEPooled, res.Tau2, res.Q, res.HetP, res.I2,
		res.Z, res.P, ciLower, ciUpper, res.K, res.TotalN,
		cell.rowVersion, runID, time.Now())
	if err != nil {
		return PooledRecomputeError(cell.key.PairKey, cell.key.MetricName, err)
	}
	return nil
}

// insertRun records the start of an aggregation attempt. The run row
// lives outside the study transaction so failed attempts stay audited.
func insertRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	studyKey, technology string,
	attempt int,
) (uint64, error) {
	var id uint64
	err := pool.QueryRow(ctx, `
		INSERT INTO feature_runs
			(study_key, technology, status, attempt, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, studyKey, technology, "PENDING", attempt, time.Now()).Scan(&id)
	if err != nil {
		return 0, FeatureRunError(studyKey, err)
	}
	return id, nil
}

// updateRunStatus advances the run's state machine marker.
func updateRunStatus(
	ctx context.Context,
	pool *pgxpool.Pool,
	runID uint64,
	status string,
) error {
	_, err := pool.Exec(ctx, `
		UPDATE feature_runs SET status = $1 WHERE id = $2
	`, status, runID)
	return err
}

// finishRun records the terminal state and counters of a run.
func finishRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	runID uint64,
	status string,
	diseaseID uint,
	read, upserted, skipped int,
	runErr string,
) error {
	var disease any
	if diseaseID > 0 {
		disease = diseaseID
	}

	_, err := pool.Exec(ctx, `
		UPDATE feature_runs
		SET status = $1, disease_id = $2, components_read = $3,
			contributions_upserted = $4, contributions_skipped = $5,
			error = $6, finished_at = $7
		WHERE id = $8
	`, status, disease, read, upserted, skipped, runErr, time.Now(), runID)
	return err
}
