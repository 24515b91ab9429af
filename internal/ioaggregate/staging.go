package ioaggregate

import (
	"database/sql"
	"strings"

	"github.com/genobase/pairmeta/pkg/component"

	// Pure Go SQLite driver (no CGo).
	_ "modernc.org/sqlite"
)

// stagingMeta is the study header row of a staging file.
type stagingMeta struct {
	StudyKey   string
	Technology string
	Platform   string
	NSamples   int64
	DiseaseKey string
}

// studyData is a study's parsed input, ready for validation and
// contribution building.
type studyData struct {
	Meta       stagingMeta
	Components []component.Component
}

// readStaging loads a study's components from a SQLite staging file
// written by the upstream ETL. The file carries one study_meta row and
// one study_components row per (pair, metric) estimate.
func readStaging(path, studyKey string) (*studyData, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ComponentReadError(path, err)
	}
	defer db.Close()

	meta, err := readStagingMeta(db, studyKey)
	if err != nil {
		return nil, ComponentReadError(path, err)
	}

	rows, err := db.Query(`
		SELECT pair_id, metric_name, kind, value,
			standard_error, n_samples
		FROM study_components
	`)
	if err != nil {
		return nil, ComponentReadError(path, err)
	}
	defer rows.Close()

	data := &studyData{Meta: meta}
	for rows.Next() {
		var (
			c    component.Component
			se   sql.NullFloat64
			n    sql.NullInt64
			kind string
		)
		err = rows.Scan(&c.PairID, &c.MetricName, &kind,
			&c.Value, &se, &n)
		if err != nil {
			return nil, ComponentReadError(path, err)
		}

		c.StudyKey = meta.StudyKey
		c.Kind = component.MetricKind(strings.TrimSpace(kind))
		if se.Valid {
			c.StandardError = se.Float64
		}
		if n.Valid {
			c.NSamples = n.Int64
		} else {
			c.NSamples = meta.NSamples
		}

		data.Components = append(data.Components, c)
	}
	if err = rows.Err(); err != nil {
		return nil, ComponentReadError(path, err)
	}

	return data, nil
}

// readStagingMeta reads the study header. A non-empty caller key
// overrides the header value.
func readStagingMeta(db *sql.DB, studyKey string) (stagingMeta, error) {
	var (
		m        stagingMeta
		platform sql.NullString
		disease  sql.NullString
		n        sql.NullInt64
		tech     sql.NullString
	)

	err := db.QueryRow(`
		SELECT study_key, technology, platform, n_samples, disease_key
		FROM study_meta
		LIMIT 1
	`).Scan(&m.StudyKey, &tech, &platform, &n, &disease)
	if err != nil {
		return m, err
	}

	if tech.Valid {
		m.Technology = tech.String
	}
	if platform.Valid {
		m.Platform = platform.String
	}
	if n.Valid {
		m.NSamples = n.Int64
	}
	if disease.Valid {
		m.DiseaseKey = disease.String
	}

	if studyKey != "" {
		m.StudyKey = studyKey
	}
	return m, nil
}
