package technology_test

import (
	"testing"

	"github.com/genobase/pairmeta/pkg/technology"
	"github.com/stretchr/testify/assert"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		study    string
		platform string
		want     technology.Technology
	}{
		{"rna-seq hyphen", "RNA-seq", "", technology.RNASeq},
		{"rna_seq underscore", "rna_seq", "", technology.RNASeq},
		{"rna sequencing words", "RNA Sequencing", "", technology.RNASeq},
		{"compact rnaseq", "RNASEQ", "", technology.RNASeq},
		{"microarray study", "Microarray", "", technology.Microarray},
		{
			"platform fallback array",
			"",
			"Affymetrix Human Genome U133 Array",
			technology.Microarray,
		},
		{
			"platform fallback rnaseq",
			"",
			"Illumina HiSeq RNA-seq",
			technology.RNASeq,
		},
		{
			"study descriptor wins over platform",
			"microarray",
			"Illumina RNA-seq",
			technology.Microarray,
		},
		{"unknown", "mass spec", "proteomics panel", technology.Other},
		{"empty", "", "", technology.Other},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			got := technology.Infer(v.study, v.platform)
			assert.Equal(t, v.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		label string
		want  technology.Technology
		ok    bool
	}{
		{"RNA-SEQ", technology.RNASeq, true},
		{"rna-seq", technology.RNASeq, true},
		{"rnaseq", technology.RNASeq, true},
		{"MICROARRAY", technology.Microarray, true},
		{" microarray ", technology.Microarray, true},
		{"OTHER", technology.Other, true},
		{"proteomics", "", false},
		{"", "", false},
	}

	for _, v := range tests {
		got, ok := technology.Parse(v.label)
		assert.Equal(t, v.ok, ok, v.label)
		assert.Equal(t, v.want, got, v.label)
	}
}
