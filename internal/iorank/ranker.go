// Package iorank implements the Ranker and ReviewStore interfaces.
// Ranking reads the pooled fact rows for one (disease, technology)
// slice and derives the filtered view in memory; nothing it computes
// is persisted.
package iorank

import (
	"context"

	"github.com/genobase/pairmeta/pkg/config"
	"github.com/genobase/pairmeta/pkg/db"
	"github.com/genobase/pairmeta/pkg/meta"
	"github.com/genobase/pairmeta/pkg/pairmeta"
	"github.com/genobase/pairmeta/pkg/ranking"
)

// ranker implements the pairmeta.Ranker interface.
type ranker struct {
	cfg      *config.Config
	operator db.Operator
}

// New creates a new Ranker.
func New(cfg *config.Config, op db.Operator) pairmeta.Ranker {
	return &ranker{cfg: cfg, operator: op}
}

// pairInfo carries the gene annotations joined alongside pooled rows.
type pairInfo struct {
	PairName string
	GeneA    pairmeta.GeneRef
	GeneB    pairmeta.GeneRef
}

// TopPairs loads the slice's pooled rows and derives the ranked view.
func (r *ranker) TopPairs(
	ctx context.Context,
	q pairmeta.RankQuery,
) ([]pairmeta.TopPair, error) {
	pool := r.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	params := r.withConfigDefaults(q.Params)

	rows, err := pool.Query(ctx, `
		SELECT p.pair_key, p.metric_name, p.theta_pooled, p.p,
			p.i2, p.k, p.total_n,
			gp.pair_name, gp.gene_a_id, gp.gene_b_id,
			ga.symbol, gb.symbol
		FROM pooled_metric_results p
		JOIN diseases d ON d.id = p.disease_id
		JOIN gene_pairs gp ON gp.pair_key = p.pair_key
		JOIN genes ga ON ga.id = gp.gene_a_id
		JOIN genes gb ON gb.id = gp.gene_b_id
		WHERE d.key = $1 AND p.technology = $2
	`, q.DiseaseKey, q.Technology)
	if err != nil {
		return nil, QueryError(q.DiseaseKey, q.Technology, err)
	}
	defer rows.Close()

	var metricRows []ranking.MetricResult
	pairs := make(map[string]pairInfo)
	for rows.Next() {
		var (
			m    ranking.MetricResult
			info pairInfo
		)
		err = rows.Scan(&m.PairKey, &m.MetricName, &m.ThetaPooled, &m.P,
			&m.I2, &m.K, &m.TotalN,
			&info.PairName, &info.GeneA.ID, &info.GeneB.ID,
			&info.GeneA.Symbol, &info.GeneB.Symbol)
		if err != nil {
			return nil, QueryError(q.DiseaseKey, q.Technology, err)
		}
		metricRows = append(metricRows, m)
		pairs[m.PairKey] = info
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(q.DiseaseKey, q.Technology, err)
	}

	ranked := ranking.Rank(metricRows, params)

	res := make([]pairmeta.TopPair, 0, len(ranked))
	for _, rp := range ranked {
		info := pairs[rp.PairKey]
		res = append(res, pairmeta.TopPair{
			RankedPair: rp,
			PairName:   info.PairName,
			GeneA:      info.GeneA,
			GeneB:      info.GeneB,
		})
	}
	return res, nil
}

// withConfigDefaults fills unset query parameters from the configured
// aggregation thresholds.
func (r *ranker) withConfigDefaults(p ranking.Params) ranking.Params {
	agg := r.cfg.Aggregate
	if p.QThreshold <= 0 {
		p.QThreshold = agg.QThreshold
	}
	if p.KMin <= 0 {
		p.KMin = agg.KMin
	}
	if p.I2Max <= 0 {
		p.I2Max = agg.I2Max
	}
	if p.Weighting == "" {
		p.Weighting = meta.Weighting(agg.StoufferWeighting)
	}
	return p
}

// reviewStore implements the pairmeta.ReviewStore interface.
type reviewStore struct {
	operator db.Operator
}

// NewReviewStore creates a new ReviewStore.
func NewReviewStore(op db.Operator) pairmeta.ReviewStore {
	return &reviewStore{operator: op}
}

// AddReview appends an analyst verdict. The pair must exist; reviews
// are never updated in place.
func (s *reviewStore) AddReview(
	ctx context.Context,
	rev pairmeta.Review,
) (uint64, error) {
	pool := s.operator.Pool()
	if pool == nil {
		return 0, NotConnectedError()
	}

	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM gene_pairs WHERE pair_key = $1)`,
		rev.PairKey,
	).Scan(&exists)
	if err != nil {
		return 0, ReviewError(rev.PairKey, err)
	}
	if !exists {
		return 0, UnknownPairError(rev.PairKey)
	}

	var id uint64
	err = pool.QueryRow(ctx, `
		INSERT INTO pair_reviews
			(pair_key, feature_run_id, reviewer, verdict, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`, rev.PairKey, rev.FeatureRunID, rev.Reviewer, rev.Verdict, rev.Note).
		Scan(&id)
	if err != nil {
		return 0, ReviewError(rev.PairKey, err)
	}
	return id, nil
}

// ListReviews returns a pair's reviews, newest first.
func (s *reviewStore) ListReviews(
	ctx context.Context,
	pairKey string,
) ([]pairmeta.Review, error) {
	pool := s.operator.Pool()
	if pool == nil {
		return nil, NotConnectedError()
	}

	rows, err := pool.Query(ctx, `
		SELECT pair_key, feature_run_id, reviewer, verdict, note, created_at
		FROM pair_reviews
		WHERE pair_key = $1
		ORDER BY created_at DESC, id DESC
	`, pairKey)
	if err != nil {
		return nil, ReviewError(pairKey, err)
	}
	defer rows.Close()

	var res []pairmeta.Review
	for rows.Next() {
		var r pairmeta.Review
		err = rows.Scan(&r.PairKey, &r.FeatureRunID, &r.Reviewer,
			&r.Verdict, &r.Note, &r.CreatedAt)
		if err != nil {
			return nil, ReviewError(pairKey, err)
		}
		res = append(res, r)
	}
	if err = rows.Err(); err != nil {
		return nil, ReviewError(pairKey, err)
	}
	return res, nil
}
