package iorank

import (
	"fmt"

	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/gnames/gn"
)

// NotConnectedError creates an error for ranking attempted without a
// database connection.
func NotConnectedError() error {
	msg := "Ranking attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// QueryError creates an error for failures loading pooled rows.
func QueryError(disease, technology string, err error) error {
	msg := "Cannot load pooled results for <em>%s</em>/<em>%s</em>"
	vars := []any{disease, technology}

	return &gn.Error{
		Code: errcode.RankQueryError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("failed to query pooled results %s/%s: %w",
			disease, technology, err),
	}
}

// UnknownPairError creates an error for a review against a pair key
// that does not exist.
func UnknownPairError(pairKey string) error {
	msg := "Unknown pair <em>%s</em>"
	vars := []any{pairKey}

	return &gn.Error{
		Code: errcode.PairNotFoundError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("unknown pair key %s", pairKey),
	}
}

// ReviewError creates an error for failures storing or loading reviews.
func ReviewError(pairKey string, err error) error {
	msg := "Cannot process review for pair <em>%s</em>"
	vars := []any{pairKey}

	return &gn.Error{
		Code: errcode.ReviewInsertError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed review operation for %s: %w", pairKey, err),
	}
}
