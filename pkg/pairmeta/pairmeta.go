// Package pairmeta defines the public contracts of the aggregation
// engine. Implementations live under internal/io* and are constructed
// with their configuration; the interfaces here stay pure.
package pairmeta

import (
	"context"
	"time"

	"github.com/genobase/pairmeta/pkg/ranking"
)

// SchemaManager defines the interface for database schema management.
// It uses GORM AutoMigrate to handle both initial schema creation and
// migrations. Schema management is idempotent - safe to run multiple
// times. Config is provided during construction.
type SchemaManager interface {
	// Create creates the initial database schema using GORM AutoMigrate.
	// If tables already exist, behavior depends on user confirmation
	// via DropAllTables.
	Create(ctx context.Context) error

	// Migrate updates the database schema to the latest version.
	Migrate(ctx context.Context) error

	// SeedDiseases inserts the built-in disease vocabulary, skipping
	// keys that already exist.
	SeedDiseases(ctx context.Context) error
}

// StudyInput describes one study to aggregate.
type StudyInput struct {
	// StudyKey identifies the study, e.g. a GEO series accession.
	StudyKey string

	// ComponentsPath points to a SQLite staging file with precomputed
	// per-pair effect components. Empty when CorrelationsPath is used.
	ComponentsPath string

	// CorrelationsPath points to a delimited correlation matrix in
	// wide format. Empty when ComponentsPath is used.
	CorrelationsPath string

	// Technology overrides technology inference when non-empty.
	Technology string

	// NSamples is the study sample size for correlation inputs.
	NSamples int64

	// DiseaseKey overrides the study-disease mapping when non-empty.
	DiseaseKey string
}

// RunReport summarizes one committed or failed aggregation run.
type RunReport struct {
	RunID                 uint64
	StudyKey              string
	Status                string
	Attempt               int
	ComponentsRead        int
	ContributionsUpserted int
	ContributionsSkipped  int
	PairsTouched          int
	Duration              time.Duration
	Error                 string
}

// Aggregator folds a study's components into the sufficient-statistics
// fact tables and recomputes the affected pooled rows, all within one
// transaction per study.
type Aggregator interface {
	// Aggregate runs the full state machine for one study. The returned
	// report is valid even when err is non-nil: its Status and Error
	// fields describe the failure.
	Aggregate(ctx context.Context, in StudyInput) (RunReport, error)
}

// RankQuery selects and bounds the ranked view.
type RankQuery struct {
	DiseaseKey string
	Technology string
	Params     ranking.Params
}

// TopPair is one ranked pair enriched with gene annotations.
type TopPair struct {
	ranking.RankedPair
	PairName string
	GeneA    GeneRef
	GeneB    GeneRef
}

// GeneRef is a gene key with its display symbol.
type GeneRef struct {
	ID     int64
	Symbol string
}

// Ranker derives the filtered, ordered pair view from the pooled fact
// rows. The view is computed on demand and never persisted.
type Ranker interface {
	TopPairs(ctx context.Context, q RankQuery) ([]TopPair, error)
}

// Review is an analyst verdict on a pair. FeatureRunID records which
// run's pooled rows the reviewer looked at; 0 when not supplied.
type Review struct {
	PairKey      string
	FeatureRunID uint64
	Reviewer     string
	Verdict      string
	Note         string
	CreatedAt    time.Time
}

// ReviewStore appends and lists analyst reviews. Reviews are immutable
// once written.
type ReviewStore interface {
	AddReview(ctx context.Context, r Review) (uint64, error)
	ListReviews(ctx context.Context, pairKey string) ([]Review, error)
}
