package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Database errors
	DBConnectionError
	DBNotConnectedError
	DBTableCheckError
	DBQueryTablesError
	DBDropTableError

	// Schema errors
	SchemaGORMConnectionError
	SchemaCreateError
	SchemaMigrateError
	SchemaSeedError

	// Aggregation precondition errors
	MissingDiseaseMappingError
	MultiDiseaseMappingError
	PairGeneKeyNotFoundError
	PairIdFormatInvalidError

	// Aggregation run errors
	ComponentReadError
	ComponentEmptyError
	FeatureRunError
	PairStoreError
	SuffStatsUpsertError
	PooledRecomputeError
	StoreConflictError
	RetryExhaustedError

	// Ranking errors
	RankQueryError
	PairNotFoundError

	// HTTP API errors
	ServerStartError
	ReviewInsertError
)
