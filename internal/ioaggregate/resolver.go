package ioaggregate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/genobase/pairmeta/pkg/component"
	"github.com/gnames/gnuuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgQuerier is the slice of pgx.Tx the resolvers need. Tests stub it;
// production code always passes the study transaction.
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// resolveDisease returns the disease id for a study. An explicit
// override key wins; otherwise the study must have exactly one active
// mapping. Deactivated rows are historical and never considered.
func resolveDisease(
	ctx context.Context,
	q pgQuerier,
	studyKey, overrideKey string,
) (uint, error) {
	if overrideKey != "" {
		var id uint
		err := q.QueryRow(ctx,
			`SELECT id FROM diseases WHERE key = $1`,
			overrideKey,
		).Scan(&id)
		if err == pgx.ErrNoRows {
			return 0, UnknownDiseaseError(overrideKey)
		}
		if err != nil {
			return 0, err
		}
		return id, nil
	}

	rows, err := q.Query(ctx, `
		SELECT DISTINCT disease_id
		FROM study_disease_mappings
		WHERE study_key = $1 AND is_active = true
	`, studyKey)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	switch len(ids) {
	case 0:
		return 0, MissingDiseaseMappingError(studyKey)
	case 1:
		return ids[0], nil
	default:
		return 0, MultiDiseaseMappingError(studyKey, len(ids))
	}
}

// pairIdentity derives the deterministic pair key for two gene keys.
// The key is UUID v5 of the canonical "a:b" name, so every run and
// every instance derives the same identity without coordination.
func pairIdentity(geneA, geneB int64) (pairKey, pairName string) {
	pairName = component.CanonicalPairName(geneA, geneB)
	pairKey = gnuuid.New(pairName).String()
	return pairKey, pairName
}

// resolvePairs registers every distinct pair referenced by the
// components. Genes are a precondition, not a side effect: every
// referenced gene key must already exist in the reference set, or the
// whole study fails before anything is written. Returns pair id to
// pair key mapping for the contribution writes.
func resolvePairs(
	ctx context.Context,
	q pgQuerier,
	comps []component.Component,
) (map[string]string, error) {
	type pairRow struct {
		key, name    string
		geneA, geneB int64
	}

	byID := make(map[string]pairRow)
	for _, c := range comps {
		if _, ok := byID[c.PairID]; ok {
			continue
		}
		a, b, err := component.ParsePairID(c.PairID)
		if err != nil {
			return nil, PairFormatError(c.PairID, err)
		}
		key, name := pairIdentity(a, b)
		byID[c.PairID] = pairRow{key: key, name: name, geneA: a, geneB: b}
	}

	genes := make(map[int64]bool)
	for _, p := range byID {
		genes[p.geneA] = true
		genes[p.geneB] = true
	}

	if err := checkGenes(ctx, q, genes); err != nil {
		return nil, err
	}

	// PostgreSQL caps a query at 65535 parameters. With 4 per row,
	// 10000 rows keeps a healthy margin.
	const batchSize = 10000

	pairs := make([]pairRow, 0, len(byID))
	for _, p := range byID {
		pairs = append(pairs, p)
	}

	for i := 0; i < len(pairs); i += batchSize {
		end := min(i+batchSize, len(pairs))
		batch := pairs[i:end]

		var (
			valueStrings []string
			valueArgs    []any
			argIdx       = 1
		)
		for _, p := range batch {
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d, $%d, $%d, $%d)",
				argIdx, argIdx+1, argIdx+2, argIdx+3,
			))
			valueArgs = append(valueArgs, p.key, p.geneA, p.geneB, p.name)
			argIdx += 4
		}

		insertQuery := fmt.Sprintf(
			`INSERT INTO gene_pairs (pair_key, gene_a_id, gene_b_id, pair_name)
			 VALUES %s
			 ON CONFLICT (pair_key) DO NOTHING`,
			strings.Join(valueStrings, ", "),
		)
		if _, err := q.Exec(ctx, insertQuery, valueArgs...); err != nil {
			return nil, PairStoreError("gene_pairs", err)
		}
	}

	res := make(map[string]string, len(byID))
	for id, p := range byID {
		res[id] = p.key
	}
	return res, nil
}

// checkGenes verifies every referenced gene key against the
// admin-loaded gene reference set. Aggregation never creates genes.
func checkGenes(
	ctx context.Context,
	q pgQuerier,
	genes map[int64]bool,
) error {
	ids := make([]int64, 0, len(genes))
	for id := range genes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows, err := q.Query(ctx,
		`SELECT id FROM genes WHERE id = ANY($1)`, ids)
	if err != nil {
		return PairStoreError("genes", err)
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return PairStoreError("genes", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return PairStoreError("genes", err)
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return GeneKeyNotFoundError(missing)
	}
	return nil
}
