package schema

import (
	"gorm.io/gorm"
)

// Run status values recorded on FeatureRun.
const (
	RunPending           = "PENDING"
	RunResolvingDisease  = "RESOLVING_DISEASE"
	RunUpdatingStats     = "UPDATING_STATS"
	RunRecomputingPooled = "RECOMPUTING_POOLED"
	RunCommitted         = "COMMITTED"
	RunFailed            = "FAILED"
)

// Review verdict values accepted on PairReview.
const (
	VerdictAccept = "accept"
	VerdictReject = "reject"
	VerdictFlag   = "flag"
)

// AllModels returns all schema models for GORM AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Gene{},
		&GenePair{},
		&Disease{},
		&StudyDiseaseMapping{},
		&SufficientStatistics{},
		&StudyContribution{},
		&PooledMetricResult{},
		&FeatureRun{},
		&PairReview{},
	}
}

// Migrate runs GORM AutoMigrate to create or update schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
