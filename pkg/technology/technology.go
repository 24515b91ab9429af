// Package technology normalizes measurement-technology descriptors.
// Studies arrive annotated with free-form technology and platform strings
// ("RNA-seq", "rna_sequencing", "Affymetrix Human Genome U133 array");
// pooled results are keyed by the normalized technology so that microarray
// and RNA-seq estimates are never mixed in one slice.
package technology

import (
	"regexp"
	"slices"
	"strings"
)

// Technology is a normalized measurement-technology label.
type Technology string

const (
	Microarray Technology = "MICROARRAY"
	RNASeq     Technology = "RNA-SEQ"
	Other      Technology = "OTHER"
)

var (
	separators = regexp.MustCompile(`[-_]+`)
	spaces     = regexp.MustCompile(`\s+`)
)

// normalize lowercases a descriptor and collapses separators and
// whitespace for comparison.
func normalize(value string) string {
	if value == "" {
		return ""
	}
	cleaned := separators.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), " ")
	return spaces.ReplaceAllString(cleaned, " ")
}

// Infer determines the measurement technology for a study. The study's
// own technology descriptor wins over the platform name; the platform is
// only consulted when the study descriptor is inconclusive.
func Infer(studyTechnology, platformName string) Technology {
	if t, ok := classify(studyTechnology); ok {
		return t
	}
	if t, ok := classify(platformName); ok {
		return t
	}
	return Other
}

// Parse validates an explicitly supplied technology label, accepting the
// normalized forms case-insensitively.
func Parse(label string) (Technology, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case string(Microarray):
		return Microarray, true
	case string(RNASeq), "RNASEQ", "RNA_SEQ":
		return RNASeq, true
	case string(Other):
		return Other, true
	}
	return "", false
}

func classify(descriptor string) (Technology, bool) {
	normalized := normalize(descriptor)
	if normalized == "" {
		return "", false
	}

	compact := strings.ReplaceAll(normalized, " ", "")
	tokens := strings.Split(normalized, " ")

	if strings.Contains(compact, "microarray") || slices.Contains(tokens, "array") {
		return Microarray, true
	}

	if strings.Contains(compact, "rnaseq") ||
		(slices.Contains(tokens, "rna") &&
			(slices.Contains(tokens, "seq") || slices.Contains(tokens, "sequencing"))) {
		return RNASeq, true
	}

	return "", false
}
