package ioaggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/genobase/pairmeta/pkg/pairmeta"
)

// StudiesManifest is the studies.yaml file users provide to aggregate
// several studies in one invocation.
type StudiesManifest struct {
	Studies []StudyEntry `yaml:"studies"`
}

// StudyEntry describes one study in the manifest. Exactly one of
// Components and Correlations must be set; correlation input also
// needs NSamples.
type StudyEntry struct {
	// StudyKey identifies the study, e.g. a GEO series accession.
	StudyKey string `yaml:"study_key"`

	// Components is the path to a SQLite staging file.
	Components string `yaml:"components,omitempty"`

	// Correlations is the path to a wide-format correlation matrix.
	Correlations string `yaml:"correlations,omitempty"`

	// NSamples is the study sample size (correlation input only).
	NSamples int64 `yaml:"n_samples,omitempty"`

	// Technology overrides technology inference.
	Technology string `yaml:"technology,omitempty"`

	// Disease overrides the study-disease mapping.
	Disease string `yaml:"disease,omitempty"`
}

// LoadStudiesManifest reads and validates studies.yaml from disk.
// Paths relative to the manifest file are resolved against its
// directory.
func LoadStudiesManifest(path string) ([]pairmeta.StudyInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ComponentReadError(path, err)
	}

	var manifest StudiesManifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return nil, ComponentReadError(path, err)
	}
	if len(manifest.Studies) == 0 {
		return nil, ComponentReadError(path,
			fmt.Errorf("manifest lists no studies"))
	}

	base := filepath.Dir(path)
	res := make([]pairmeta.StudyInput, 0, len(manifest.Studies))
	for i, entry := range manifest.Studies {
		in, err := entry.toInput(base)
		if err != nil {
			return nil, ComponentReadError(path,
				fmt.Errorf("study %d: %w", i+1, err))
		}
		res = append(res, in)
	}
	return res, nil
}

func (e StudyEntry) toInput(base string) (pairmeta.StudyInput, error) {
	var in pairmeta.StudyInput

	switch {
	case e.Components == "" && e.Correlations == "":
		return in, fmt.Errorf("needs components or correlations")
	case e.Components != "" && e.Correlations != "":
		return in, fmt.Errorf("components and correlations are mutually exclusive")
	case e.Correlations != "" && e.NSamples < 4:
		return in, fmt.Errorf("correlation input needs n_samples >= 4")
	case e.StudyKey == "" && e.Components == "":
		return in, fmt.Errorf("needs a study_key")
	}

	in = pairmeta.StudyInput{
		StudyKey:         strings.TrimSpace(e.StudyKey),
		ComponentsPath:   resolvePath(base, e.Components),
		CorrelationsPath: resolvePath(base, e.Correlations),
		NSamples:         e.NSamples,
		Technology:       e.Technology,
		DiseaseKey:       e.Disease,
	}
	return in, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
