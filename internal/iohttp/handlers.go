package iohttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gnames/gn"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/genobase/pairmeta/pkg/pairmeta"
	"github.com/genobase/pairmeta/pkg/ranking"
	"github.com/genobase/pairmeta/pkg/technology"
)

var validate = validator.New()

// topPairsParams are the query parameters of GET /pairs/top. Zero
// values for the optional thresholds fall back to configuration.
type topPairsParams struct {
	Disease    string  `validate:"required,max=64"`
	Technology string  `validate:"required"`
	Limit      int     `validate:"omitempty,min=1,max=1000"`
	Q          float64 `validate:"omitempty,gt=0,lte=1"`
	KMin       int     `validate:"omitempty,min=1"`
	I2Max      float64 `validate:"omitempty,gt=0,lte=100"`
}

func (s *Server) topPairs(w http.ResponseWriter, r *http.Request) {
	params, err := parseTopPairsParams(r)
	if err != nil {
		_ = render.Render(w, r, apiError(http.StatusBadRequest, err.Error()))
		return
	}
	if err = validate.Struct(params); err != nil {
		_ = render.Render(w, r, apiError(http.StatusBadRequest, err.Error()))
		return
	}
	tech, ok := technology.Parse(params.Technology)
	if !ok {
		_ = render.Render(w, r,
			apiError(http.StatusBadRequest, "unknown technology: "+params.Technology))
		return
	}

	pairs, err := s.ranker.TopPairs(r.Context(), pairmeta.RankQuery{
		DiseaseKey: params.Disease,
		Technology: string(tech),
		Params: ranking.Params{
			QThreshold: params.Q,
			KMin:       params.KMin,
			I2Max:      params.I2Max,
			Limit:      params.Limit,
		},
	})
	if err != nil {
		slog.Error("Ranked view query failed",
			"disease", params.Disease, "technology", tech, "error", err)
		_ = render.Render(w, r,
			apiError(http.StatusInternalServerError, "ranked view query failed"))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"disease":    params.Disease,
		"technology": tech,
		"count":      len(pairs),
		"pairs":      pairs,
	})
}

func parseTopPairsParams(r *http.Request) (topPairsParams, error) {
	q := r.URL.Query()
	res := topPairsParams{
		Disease:    q.Get("disease"),
		Technology: q.Get("technology"),
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if res.Limit, err = strconv.Atoi(v); err != nil {
			return res, errors.New("limit must be an integer")
		}
	}
	if v := q.Get("q"); v != "" {
		if res.Q, err = strconv.ParseFloat(v, 64); err != nil {
			return res, errors.New("q must be a number")
		}
	}
	if v := q.Get("k_min"); v != "" {
		if res.KMin, err = strconv.Atoi(v); err != nil {
			return res, errors.New("k_min must be an integer")
		}
	}
	if v := q.Get("i2_max"); v != "" {
		if res.I2Max, err = strconv.ParseFloat(v, 64); err != nil {
			return res, errors.New("i2_max must be a number")
		}
	}
	return res, nil
}

// reviewRequest is the body of POST /pairs/{pair_key}/review.
type reviewRequest struct {
	Reviewer     string `json:"reviewer" validate:"required,max=128"`
	Verdict      string `json:"verdict" validate:"required,oneof=accept reject flag"`
	Note         string `json:"note" validate:"max=2000"`
	FeatureRunID uint64 `json:"feature_run_id,omitempty"`
}

// Bind implements render.Binder.
func (req *reviewRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

func (s *Server) addReview(w http.ResponseWriter, r *http.Request) {
	pairKey, ok := pairKeyParam(w, r)
	if !ok {
		return
	}

	req := &reviewRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, apiError(http.StatusBadRequest, err.Error()))
		return
	}

	id, err := s.reviews.AddReview(r.Context(), pairmeta.Review{
		PairKey:      pairKey,
		FeatureRunID: req.FeatureRunID,
		Reviewer:     req.Reviewer,
		Verdict:      req.Verdict,
		Note:         req.Note,
	})
	if err != nil {
		if isUnknownPair(err) {
			_ = render.Render(w, r,
				apiError(http.StatusNotFound, "unknown pair: "+pairKey))
			return
		}
		slog.Error("Review insert failed", "pairKey", pairKey, "error", err)
		_ = render.Render(w, r,
			apiError(http.StatusInternalServerError, "review insert failed"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"id":       id,
		"pair_key": pairKey,
		"verdict":  req.Verdict,
	})
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	pairKey, ok := pairKeyParam(w, r)
	if !ok {
		return
	}

	reviews, err := s.reviews.ListReviews(r.Context(), pairKey)
	if err != nil {
		slog.Error("Review listing failed", "pairKey", pairKey, "error", err)
		_ = render.Render(w, r,
			apiError(http.StatusInternalServerError, "review listing failed"))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"pair_key": pairKey,
		"count":    len(reviews),
		"reviews":  reviews,
	})
}

// pairKeyParam extracts and validates the pair key path parameter.
// Pair keys are deterministic UUIDs, so anything that does not parse
// cannot name a pair.
func pairKeyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	pairKey := chi.URLParam(r, "pair_key")
	if _, err := uuid.Parse(pairKey); err != nil {
		_ = render.Render(w, r,
			apiError(http.StatusBadRequest, "pair_key must be a UUID"))
		return "", false
	}
	return pairKey, true
}

func isUnknownPair(err error) bool {
	var gnErr *gn.Error
	return errors.As(err, &gnErr) && gnErr.Code == errcode.PairNotFoundError
}
