// Package schema provides database schema models for pairmeta.
// The fact tables (sufficient statistics, contribution ledger, pooled
// results) are the durable state; every ranked view is derived from
// them and never stored.
package schema

import (
	"time"
)

// Gene is a gene referenced by one side of a pair.
type Gene struct {
	// ID is the numeric gene key from the source nomenclature.
	ID int64 `gorm:"primaryKey;autoIncrement:false"`

	// Symbol is the display symbol, empty when unknown.
	Symbol string `gorm:"type:varchar(64)"`
}

// GenePair is an unordered pair of distinct genes. The pair is stored
// once with GeneAID < GeneBID.
type GenePair struct {
	// PairKey is UUID v5 generated from the canonical pair name.
	PairKey string `gorm:"type:uuid;primaryKey"`

	// GeneAID is the smaller gene key.
	GeneAID int64 `gorm:"not null;uniqueIndex:idx_gene_pair,priority:1"`

	// GeneBID is the larger gene key.
	GeneBID int64 `gorm:"not null;uniqueIndex:idx_gene_pair,priority:2"`

	// PairName is the canonical "a:b" form the key was derived from.
	PairName string `gorm:"type:varchar(64);not null"`
}

// Disease is a normalized illness.
type Disease struct {
	ID uint `gorm:"primaryKey"`

	// Key is the canonical illness key, e.g. "septic_shock".
	Key string `gorm:"type:varchar(64);uniqueIndex;not null"`

	// Name is the human-readable label.
	Name string `gorm:"type:varchar(255)"`
}

// StudyDiseaseMapping links a study to the single disease it measures.
// Remapping a study deactivates the old row instead of deleting it, so
// at most one row per study is active at a time and corrections stay
// audited. Aggregation refuses studies with zero or multiple active
// mappings.
type StudyDiseaseMapping struct {
	ID uint `gorm:"primaryKey"`

	// StudyKey identifies the source study, e.g. a GEO series accession.
	StudyKey string `gorm:"type:varchar(64);index;not null"`

	// DiseaseID refers to the mapped disease.
	DiseaseID uint `gorm:"not null"`

	// IsActive marks the mapping currently in force.
	IsActive bool `gorm:"not null;default:true;index"`

	// EffectiveFrom is when the mapping took effect.
	EffectiveFrom *time.Time

	// EffectiveTo closes a superseded mapping; nil while active.
	EffectiveTo *time.Time

	Disease Disease `gorm:"foreignKey:DiseaseID"`
}

// SufficientStatistics holds the running inverse-variance sums for one
// (pair, disease, technology, metric) cell. The sums are never trusted
// on their own: they are recomputed from the contribution ledger on
// every update, so replaying the ledger always reproduces them exactly.
type SufficientStatistics struct {
	ID uint64 `gorm:"primaryKey"`

	// PairKey refers to the gene pair.
	PairKey string `gorm:"type:uuid;not null;uniqueIndex:idx_suffstats_cell,priority:1"`

	// DiseaseID refers to the disease slice.
	DiseaseID uint `gorm:"not null;uniqueIndex:idx_suffstats_cell,priority:2"`

	// Technology is the measurement technology label.
	Technology string `gorm:"type:varchar(32);not null;uniqueIndex:idx_suffstats_cell,priority:3"`

	// MetricName is the effect metric, e.g. "log_fc" or "correlation".
	MetricName string `gorm:"type:varchar(64);not null;uniqueIndex:idx_suffstats_cell,priority:4"`

	// S1 is the sum of fixed-effect weights, sum(1/SE^2).
	S1 float64 `gorm:"not null"`

	// S2 is the sum of squared weights.
	S2 float64 `gorm:"not null"`

	// STheta is the weighted effect sum, sum(w*theta).
	STheta float64 `gorm:"not null"`

	// STheta2 is the weighted squared-effect sum, sum(w*theta^2).
	STheta2 float64 `gorm:"not null"`

	// K is the number of contributing studies.
	K int `gorm:"not null"`

	// RowVersion increments on every recompute and guards against
	// concurrent writers that slipped past the advisory lock.
	RowVersion int64 `gorm:"not null;default:0"`

	UpdatedAt time.Time
}

// StudyContribution is one ledger entry: a single study's contribution
// to one statistics cell. Re-running a study replaces its entry instead
// of double counting it.
type StudyContribution struct {
	ID uint64 `gorm:"primaryKey"`

	// StatsID refers to the owning SufficientStatistics row.
	StatsID uint64 `gorm:"not null;uniqueIndex:idx_contribution,priority:1"`

	// StudyKey identifies the contributing study.
	StudyKey string `gorm:"type:varchar(64);not null;uniqueIndex:idx_contribution,priority:2"`

	// Theta is the study effect on the analysis scale.
	Theta float64 `gorm:"not null"`

	// SE is the standard error of Theta.
	SE float64 `gorm:"not null"`

	// Weight is the fixed-effect weight 1/SE^2 at ingestion time.
	Weight float64 `gorm:"not null"`

	// NSamples is the study sample size, 0 when unknown.
	NSamples int64 `gorm:"not null;default:0"`

	UpdatedAt time.Time
}

// PooledMetricResult is the pooled DerSimonian-Laird estimate for one
// statistics cell, recomputed in the same transaction that updates the
// cell's ledger.
type PooledMetricResult struct {
	ID uint64 `gorm:"primaryKey"`

	// PairKey refers to the gene pair.
	PairKey string `gorm:"type:uuid;not null;uniqueIndex:idx_pooled_cell,priority:1;index:idx_pooled_pair"`

	// DiseaseID refers to the disease slice.
	DiseaseID uint `gorm:"not null;uniqueIndex:idx_pooled_cell,priority:2"`

	// Technology is the measurement technology label.
	Technology string `gorm:"type:varchar(32);not null;uniqueIndex:idx_pooled_cell,priority:3"`

	// MetricName is the effect metric.
	MetricName string `gorm:"type:varchar(64);not null;uniqueIndex:idx_pooled_cell,priority:4"`

	// ThetaPooled is the random-effects pooled estimate. For
	// correlation metrics it is back-transformed to the r scale,
	// together with its interval bounds.
	ThetaPooled float64 `gorm:"not null"`

	// SEPooled is the standard error of the pooled estimate on the
	// analysis scale (Fisher-z for correlations).
	SEPooled float64 `gorm:"not null"`

	// Tau2 is the between-study variance estimate, never negative.
	Tau2 float64 `gorm:"not null"`

	// Q is Cochran's heterogeneity statistic.
	Q float64 `gorm:"not null"`

	// HetP is the chi-squared tail probability of Q with K-1 degrees
	// of freedom; 1 for a single study.
	HetP float64 `gorm:"not null;default:1"`

	// I2 is the heterogeneity percentage, null when K is 1.
	I2 *float64

	// Z is the pooled z statistic.
	Z float64 `gorm:"not null"`

	// P is the two-sided p-value of Z.
	P float64 `gorm:"not null"`

	// CILower and CIUpper bound the 95% confidence interval on the
	// same scale as ThetaPooled.
	CILower float64 `gorm:"not null"`
	CIUpper float64 `gorm:"not null"`

	// K is the number of included studies.
	K int `gorm:"not null"`

	// TotalN is the summed sample size of contributing studies.
	TotalN int64 `gorm:"not null;default:0"`

	// RowVersion mirrors the statistics cell's version at recompute.
	RowVersion int64 `gorm:"not null;default:0"`

	// FeatureRunID is the run that last refreshed this row.
	FeatureRunID uint64 `gorm:"not null;default:0"`

	UpdatedAt time.Time
}

// FeatureRun records one attempt to aggregate one study into one
// (disease, technology) slice. It is the audit trail of the state
// machine: PENDING, RESOLVING_DISEASE, UPDATING_STATS,
// RECOMPUTING_POOLED, COMMITTED or FAILED.
type FeatureRun struct {
	ID uint64 `gorm:"primaryKey"`

	// StudyKey identifies the aggregated study.
	StudyKey string `gorm:"type:varchar(64);index;not null"`

	// DiseaseID is set once disease resolution succeeds.
	DiseaseID uint

	// Technology is the inferred or supplied technology label.
	Technology string `gorm:"type:varchar(32)"`

	// Status is the terminal or current state machine state.
	Status string `gorm:"type:varchar(32);not null"`

	// Attempt counts retries of this run, starting at 1.
	Attempt int `gorm:"not null;default:1"`

	// ComponentsRead is the number of component rows read from input.
	ComponentsRead int `gorm:"not null;default:0"`

	// ContributionsUpserted counts ledger rows written.
	ContributionsUpserted int `gorm:"not null;default:0"`

	// ContributionsSkipped counts rows rejected by validation.
	ContributionsSkipped int `gorm:"not null;default:0"`

	// Error holds the failure message for FAILED runs.
	Error string `gorm:"type:text"`

	StartedAt  time.Time
	FinishedAt *time.Time
}

// PairReview is an append-only analyst verdict on a ranked pair.
// Reviews are never updated in place; the latest row wins.
type PairReview struct {
	ID uint64 `gorm:"primaryKey"`

	// PairKey refers to the reviewed gene pair.
	PairKey string `gorm:"type:uuid;index;not null"`

	// FeatureRunID ties the verdict to the run whose pooled rows the
	// reviewer looked at; 0 when not supplied.
	FeatureRunID uint64 `gorm:"not null;default:0"`

	// Reviewer identifies who filed the verdict.
	Reviewer string `gorm:"type:varchar(128);not null"`

	// Verdict is one of "accept", "reject", "flag".
	Verdict string `gorm:"type:varchar(16);not null"`

	// Note is free-form reviewer commentary.
	Note string `gorm:"type:text"`

	CreatedAt time.Time
}
