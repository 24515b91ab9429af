// Package ioaggregate implements the Aggregator interface: it folds
// per-study effect components into the sufficient-statistics fact
// tables and recomputes the affected pooled rows. All writes for one
// study happen inside a single transaction, serialized per
// (disease, technology) slice by an advisory lock.
package ioaggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/genobase/pairmeta/internal/iometrics"
	"github.com/genobase/pairmeta/pkg/component"
	"github.com/genobase/pairmeta/pkg/config"
	"github.com/genobase/pairmeta/pkg/db"
	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/genobase/pairmeta/pkg/meta"
	"github.com/genobase/pairmeta/pkg/pairmeta"
	"github.com/genobase/pairmeta/pkg/schema"
	"github.com/genobase/pairmeta/pkg/technology"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// aggregator implements the pairmeta.Aggregator interface.
type aggregator struct {
	cfg      *config.Config
	operator db.Operator
}

// New creates a new Aggregator.
func New(cfg *config.Config, op db.Operator) pairmeta.Aggregator {
	return &aggregator{cfg: cfg, operator: op}
}

// Aggregate runs the full state machine for one study: read input,
// resolve disease and pairs, fold contributions into the ledger, and
// recompute pooled rows. Transient store failures retry the whole
// study up to the configured budget.
func (a *aggregator) Aggregate(
	ctx context.Context,
	in pairmeta.StudyInput,
) (pairmeta.RunReport, error) {
	rep := pairmeta.RunReport{
		StudyKey: in.StudyKey,
		Status:   schema.RunPending,
	}

	pool := a.operator.Pool()
	if pool == nil {
		return rep, NotConnectedError()
	}

	start := time.Now()
	slog.Info("Starting aggregation", "study", in.StudyKey)

	data, err := a.readStudy(in)
	if err != nil {
		return a.finish(ctx, &rep, 0, start, err)
	}
	rep.StudyKey = data.Meta.StudyKey
	rep.ComponentsRead = len(data.Components)

	tech := a.resolveTechnology(in, data)
	gn.Info("Study <em>%s</em>: %s components, technology <em>%s</em>",
		rep.StudyKey, humanize.Comma(int64(rep.ComponentsRead)), tech)

	updates, validComps, skipped := a.buildUpdates(data)
	rep.ContributionsSkipped = skipped
	if len(updates) == 0 {
		return a.finish(ctx, &rep, 0, start, ComponentEmptyError(rep.StudyKey))
	}

	rep.RunID, err = insertRun(ctx, pool, rep.StudyKey, string(tech), 1)
	if err != nil {
		return a.finish(ctx, &rep, 0, start, err)
	}

	diseaseKey := in.DiseaseKey
	if diseaseKey == "" {
		diseaseKey = data.Meta.DiseaseKey
	}

	attempts := a.cfg.Aggregate.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var diseaseID uint
	for attempt := 1; attempt <= attempts; attempt++ {
		rep.Attempt = attempt
		if attempt > 1 {
			iometrics.RetriesTotal.Inc()
			delay := backoff(attempt)
			slog.Warn("Retrying study after transient error",
				"study", rep.StudyKey,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return a.finish(ctx, &rep, diseaseID, start, ctx.Err())
			case <-time.After(delay):
			}
			_ = bumpRunAttempt(ctx, pool, rep.RunID, attempt)
		}

		diseaseID, err = a.runOnce(
			ctx, rep.RunID, data, diseaseKey, tech, updates, validComps,
		)
		if err == nil || !isTransient(err) {
			break
		}
	}

	if err != nil && isTransient(err) {
		err = RetryExhaustedError(rep.StudyKey, attempts, err)
	}
	if err == nil {
		rep.ContributionsUpserted = len(updates)
		rep.PairsTouched = countPairs(updates)
	}

	return a.finish(ctx, &rep, diseaseID, start, err)
}

// runOnce executes one attempt of the study transaction.
func (a *aggregator) runOnce(
	ctx context.Context,
	runID uint64,
	data *studyData,
	diseaseKey string,
	tech technology.Technology,
	updates []cellState,
	validComps []component.Component,
) (uint, error) {
	pool := a.operator.Pool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	_ = updateRunStatus(ctx, pool, runID, schema.RunResolvingDisease)
	diseaseID, err := resolveDisease(ctx, tx, data.Meta.StudyKey, diseaseKey)
	if err != nil {
		return 0, err
	}

	// Writers within one (disease, technology) slice run one at a time.
	if err = lockSlice(ctx, tx, diseaseID, string(tech)); err != nil {
		return diseaseID, err
	}

	_ = updateRunStatus(ctx, pool, runID, schema.RunUpdatingStats)
	if _, err = resolvePairs(ctx, tx, validComps); err != nil {
		return diseaseID, err
	}

	for i := range updates {
		updates[i].statsID, updates[i].rowVersion, updates[i].stats, err =
			loadCell(ctx, tx, updates[i].key, diseaseID, string(tech))
		if err != nil {
			return diseaseID, SuffStatsUpsertError(
				updates[i].key.PairKey, updates[i].key.MetricName, err)
		}
	}

	// Ledger replay and pooling are pure; only the reads above and the
	// writes below touch the transaction.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.JobsNumber)
	for i := range updates {
		u := &updates[i]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			u.replaced = u.stats.Apply(u.contrib)
			pooled, ok := meta.Pool(u.stats)
			if !ok {
				return fmt.Errorf(
					"pair %s metric %s: empty statistics after apply",
					u.key.PairKey, u.key.MetricName,
				)
			}
			u.pooled = pooled
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return diseaseID, err
	}

	_ = updateRunStatus(ctx, pool, runID, schema.RunRecomputingPooled)

	bar := pb.Full.Start(len(updates))
	bar.Set("prefix", "Storing pooled results: ")
	bar.Set(pb.CleanOnFinish, true)

	replaced := 0
	for i := range updates {
		if err = persistCell(ctx, tx, &updates[i], diseaseID, string(tech), runID); err != nil {
			bar.Finish()
			return diseaseID, err
		}
		if updates[i].replaced {
			replaced++
		}
		bar.Increment()
	}
	bar.Finish()

	if replaced > 0 {
		slog.Info("Replaced prior contributions from re-run study",
			"study", data.Meta.StudyKey,
			"replaced", replaced,
		)
	}

	return diseaseID, tx.Commit(ctx)
}

// readStudy loads the study's components from whichever input the
// caller supplied.
func (a *aggregator) readStudy(in pairmeta.StudyInput) (*studyData, error) {
	switch {
	case in.ComponentsPath != "":
		return readStaging(in.ComponentsPath, in.StudyKey)
	case in.CorrelationsPath != "":
		return readCorrelations(
			in.CorrelationsPath, in.StudyKey, "coexpression", in.NSamples,
		)
	default:
		return nil, ComponentReadError("",
			fmt.Errorf("study %s: no input path given", in.StudyKey))
	}
}

// resolveTechnology picks the slice label: explicit flag, then the
// study's own descriptors.
func (a *aggregator) resolveTechnology(
	in pairmeta.StudyInput,
	data *studyData,
) technology.Technology {
	if in.Technology != "" {
		if t, ok := technology.Parse(in.Technology); ok {
			return t
		}
		slog.Warn("Unrecognized technology label, inferring instead",
			"label", in.Technology)
	}
	return technology.Infer(data.Meta.Technology, data.Meta.Platform)
}

// buildUpdates validates components and converts them to per-cell
// contribution updates. Invalid rows are skipped with a warning, never
// failing the run; a study with zero valid rows fails later.
func (a *aggregator) buildUpdates(
	data *studyData,
) ([]cellState, []component.Component, int) {
	var (
		updates    []cellState
		validComps []component.Component
		skipped    int
	)

	seen := make(map[cellKey]bool)
	for _, c := range data.Components {
		if err := c.Validate(); err != nil {
			skipped++
			iometrics.ContributionsSkipped.
				WithLabelValues(iometrics.SkipBadPairID).Inc()
			slog.Warn("Skipping component",
				"study", data.Meta.StudyKey,
				"pair", c.PairID,
				"error", err,
			)
			continue
		}

		contrib, reason, err := a.contribution(c)
		if err != nil {
			skipped++
			iometrics.ContributionsSkipped.WithLabelValues(reason).Inc()
			slog.Warn("Skipping component",
				"study", data.Meta.StudyKey,
				"pair", c.PairID,
				"metric", c.MetricName,
				"error", err,
			)
			continue
		}

		geneA, geneB, _ := component.ParsePairID(c.PairID)
		pairKey, _ := pairIdentity(geneA, geneB)
		key := cellKey{PairKey: pairKey, MetricName: c.MetricName}
		if seen[key] {
			skipped++
			iometrics.ContributionsSkipped.
				WithLabelValues(iometrics.SkipInvalidValue).Inc()
			slog.Warn("Duplicate component within study input",
				"study", data.Meta.StudyKey,
				"pair", c.PairID,
				"metric", c.MetricName,
			)
			continue
		}
		seen[key] = true

		updates = append(updates, cellState{
			key:     key,
			kind:    c.Kind,
			contrib: contrib,
		})
		validComps = append(validComps, c)
	}

	return updates, validComps, skipped
}

// contribution converts one component to a pooling contribution,
// classifying rejections for the skip metrics.
func (a *aggregator) contribution(
	c component.Component,
) (meta.Contribution, string, error) {
	if c.Kind == component.Correlation {
		minN := a.cfg.Aggregate.MinCorrelationN
		contrib, err := meta.CorrelationContribution(
			c.StudyKey, c.Value, c.NSamples, minN,
		)
		if err != nil {
			reason := iometrics.SkipExtremeR
			if c.NSamples < int64(max(minN, meta.MinCorrelationN)) {
				reason = iometrics.SkipSmallSample
			}
			return contrib, reason, err
		}
		return contrib, "", nil
	}

	contrib, err := meta.NewContribution(
		c.StudyKey, c.Value, c.StandardError, c.NSamples,
	)
	if err != nil {
		return contrib, iometrics.SkipInvalidValue, err
	}
	return contrib, "", nil
}

// finish records the terminal state, metrics, and summary logging of a
// run and returns the completed report.
func (a *aggregator) finish(
	ctx context.Context,
	rep *pairmeta.RunReport,
	diseaseID uint,
	start time.Time,
	err error,
) (pairmeta.RunReport, error) {
	rep.Duration = time.Since(start)

	if err != nil {
		rep.Status = schema.RunFailed
		rep.Error = err.Error()
	} else {
		rep.Status = schema.RunCommitted
	}

	if rep.RunID > 0 {
		finishErr := finishRun(ctx, a.operator.Pool(), rep.RunID,
			rep.Status, diseaseID,
			rep.ComponentsRead, rep.ContributionsUpserted,
			rep.ContributionsSkipped, rep.Error)
		if finishErr != nil {
			slog.Error("Failed to record run outcome",
				"study", rep.StudyKey, "error", finishErr)
		}
	}

	iometrics.RunsTotal.WithLabelValues(rep.Status).Inc()
	iometrics.RunDuration.Observe(rep.Duration.Seconds())
	iometrics.ContributionsUpserted.Add(float64(rep.ContributionsUpserted))

	if err != nil {
		slog.Error("Aggregation failed",
			"study", rep.StudyKey,
			"attempt", rep.Attempt,
			"duration", gnfmt.TimeString(rep.Duration.Seconds()),
			"error", err,
		)
		return *rep, err
	}

	slog.Info("Aggregation committed",
		"study", rep.StudyKey,
		"pairs", rep.PairsTouched,
		"contributions", rep.ContributionsUpserted,
		"skipped", rep.ContributionsSkipped,
		"duration", gnfmt.TimeString(rep.Duration.Seconds()),
	)
	gn.Info(`Study <em>%s</em> committed
Pairs: %s, contributions: %s, skipped: %s.
Elapsed time: <em>%s</em>
`,
		rep.StudyKey,
		humanize.Comma(int64(rep.PairsTouched)),
		humanize.Comma(int64(rep.ContributionsUpserted)),
		humanize.Comma(int64(rep.ContributionsSkipped)),
		gnfmt.TimeString(rep.Duration.Seconds()),
	)

	return *rep, nil
}

// isTransient reports whether the whole study should be retried:
// row-version conflicts, serialization failures, deadlocks, and lock
// timeouts qualify.
func isTransient(err error) bool {
	var gerr *gn.Error
	if errors.As(err, &gerr) && gerr.Code == errcode.StoreConflictError {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
	}
	return false
}

// backoff returns the delay before the given attempt (attempt >= 2).
func backoff(attempt int) time.Duration {
	d := 200 * time.Millisecond
	for i := 2; i < attempt; i++ {
		d *= 2
	}
	return d
}

func countPairs(updates []cellState) int {
	pairs := make(map[string]bool, len(updates))
	for _, u := range updates {
		pairs[u.key.PairKey] = true
	}
	return len(pairs)
}

func bumpRunAttempt(
	ctx context.Context,
	pool *pgxpool.Pool,
	runID uint64,
	attempt int,
) error {
	_, err := pool.Exec(ctx, `
		UPDATE feature_runs SET attempt = $1, status = $2 WHERE id = $3
	`, attempt, schema.RunPending, runID)
	return err
}
