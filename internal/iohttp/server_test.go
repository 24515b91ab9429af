package iohttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genobase/pairmeta/internal/iorank"
	"github.com/genobase/pairmeta/pkg/config"
	"github.com/genobase/pairmeta/pkg/pairmeta"
)

const testPairKey = "5e2b2f4a-9a1d-5b6f-8c3e-2f1a0d9b8c7e"

type stubRanker struct {
	gotQuery pairmeta.RankQuery
	pairs    []pairmeta.TopPair
	err      error
}

func (s *stubRanker) TopPairs(
	ctx context.Context, q pairmeta.RankQuery,
) ([]pairmeta.TopPair, error) {
	s.gotQuery = q
	return s.pairs, s.err
}

type stubReviews struct {
	added   []pairmeta.Review
	id      uint64
	addErr  error
	list    []pairmeta.Review
	listErr error
}

func (s *stubReviews) AddReview(
	ctx context.Context, r pairmeta.Review,
) (uint64, error) {
	if s.addErr != nil {
		return 0, s.addErr
	}
	s.added = append(s.added, r)
	return s.id, nil
}

func (s *stubReviews) ListReviews(
	ctx context.Context, pairKey string,
) ([]pairmeta.Review, error) {
	return s.list, s.listErr
}

func newTestServer(rnk pairmeta.Ranker, rs pairmeta.ReviewStore) *Server {
	return New(config.New(), rnk, rs)
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubRanker{}, &stubReviews{})
	w := doRequest(t, srv, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
}

func TestTopPairsNormalizesTechnology(t *testing.T) {
	rnk := &stubRanker{pairs: []pairmeta.TopPair{{PairName: "A_B"}}}
	srv := newTestServer(rnk, &stubReviews{})
	w := doRequest(t, srv, http.MethodGet,
		"/pairs/top?disease=sepsis&technology=rna_seq&limit=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sepsis", rnk.gotQuery.DiseaseKey)
	assert.Equal(t, "RNA-SEQ", rnk.gotQuery.Technology)
	assert.Equal(t, 10, rnk.gotQuery.Params.Limit)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestTopPairsThresholdOverrides(t *testing.T) {
	rnk := &stubRanker{}
	srv := newTestServer(rnk, &stubReviews{})
	w := doRequest(t, srv, http.MethodGet,
		"/pairs/top?disease=sepsis&technology=MICROARRAY&q=0.01&k_min=5&i2_max=50", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0.01, rnk.gotQuery.Params.QThreshold, 1e-12)
	assert.Equal(t, 5, rnk.gotQuery.Params.KMin)
	assert.InDelta(t, 50.0, rnk.gotQuery.Params.I2Max, 1e-12)
}

func TestTopPairsValidation(t *testing.T) {
	srv := newTestServer(&stubRanker{}, &stubReviews{})

	tests := []struct {
		msg    string
		target string
	}{
		{"missing disease", "/pairs/top?technology=RNA-SEQ"},
		{"missing technology", "/pairs/top?disease=sepsis"},
		{"unknown technology", "/pairs/top?disease=sepsis&technology=nanopore"},
		{"limit not a number", "/pairs/top?disease=sepsis&technology=OTHER&limit=abc"},
		{"limit too large", "/pairs/top?disease=sepsis&technology=OTHER&limit=5000"},
		{"q out of range", "/pairs/top?disease=sepsis&technology=OTHER&q=1.5"},
		{"i2_max out of range", "/pairs/top?disease=sepsis&technology=OTHER&i2_max=250"},
	}
	for _, tt := range tests {
		w := doRequest(t, srv, http.MethodGet, tt.target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.msg)
	}
}

func TestAddReview(t *testing.T) {
	rs := &stubReviews{id: 7}
	srv := newTestServer(&stubRanker{}, rs)
	w := doRequest(t, srv, http.MethodPost,
		"/pairs/"+testPairKey+"/review",
		`{"reviewer":"jdoe","verdict":"accept",`+
			`"note":"replicates in 4 cohorts","feature_run_id":12}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, rs.added, 1)
	assert.Equal(t, testPairKey, rs.added[0].PairKey)
	assert.Equal(t, "accept", rs.added[0].Verdict)
	assert.Equal(t, uint64(12), rs.added[0].FeatureRunID)

	var body struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(7), body.ID)
}

func TestAddReviewBadVerdict(t *testing.T) {
	srv := newTestServer(&stubRanker{}, &stubReviews{})
	w := doRequest(t, srv, http.MethodPost,
		"/pairs/"+testPairKey+"/review",
		`{"reviewer":"jdoe","verdict":"maybe"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddReviewBadPairKey(t *testing.T) {
	srv := newTestServer(&stubRanker{}, &stubReviews{})
	w := doRequest(t, srv, http.MethodPost,
		"/pairs/not-a-uuid/review",
		`{"reviewer":"jdoe","verdict":"accept"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddReviewUnknownPair(t *testing.T) {
	rs := &stubReviews{addErr: iorank.UnknownPairError(testPairKey)}
	srv := newTestServer(&stubRanker{}, rs)
	w := doRequest(t, srv, http.MethodPost,
		"/pairs/"+testPairKey+"/review",
		`{"reviewer":"jdoe","verdict":"reject"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReviews(t *testing.T) {
	rs := &stubReviews{list: []pairmeta.Review{
		{PairKey: testPairKey, Reviewer: "jdoe", Verdict: "accept"},
		{PairKey: testPairKey, Reviewer: "asmith", Verdict: "flag"},
	}}
	srv := newTestServer(&stubRanker{}, rs)
	w := doRequest(t, srv, http.MethodGet,
		"/pairs/"+testPairKey+"/reviews", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count   int               `json:"count"`
		Reviews []pairmeta.Review `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "asmith", body.Reviews[1].Reviewer)
}

func TestRateLimit(t *testing.T) {
	cfg := config.New()
	cfg.HTTP.RateLimit = 1
	srv := New(cfg, &stubRanker{}, &stubReviews{})

	// Burst allows twice the sustained rate; the third immediate
	// request is rejected.
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := doRequest(t, srv, http.MethodGet, "/healthz", "")
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}
