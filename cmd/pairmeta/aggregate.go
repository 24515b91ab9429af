package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"

	"github.com/genobase/pairmeta/internal/ioaggregate"
	"github.com/genobase/pairmeta/internal/iodb"
	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/genobase/pairmeta/pkg/pairmeta"
)

// getAggregateCmd returns the aggregate command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getAggregateCmd() *cobra.Command {
	var (
		in       pairmeta.StudyInput
		manifest string
	)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Fold studies into the pooled tables",
		Long: `Fold per-study effect components into the
sufficient-statistics ledger and recompute pooled estimates for the
affected pairs. Re-running the same study replaces its previous
contribution instead of double counting it.

Input is either a SQLite staging file with precomputed components
(--components), a wide-format correlation matrix (--correlations,
which also needs --n-samples), or a studies.yaml manifest listing
several studies (--manifest).

Examples:
  # Staging file; disease and technology come from its header
  pairmeta aggregate -s GSE65682 -c gse65682.sqlite

  # Correlation matrix for a sepsis RNA-seq cohort of 760 samples
  pairmeta aggregate -s GSE65682 -m corr.tsv -n 760 \
    -t rna-seq -d sepsis

  # All studies listed in a manifest
  pairmeta aggregate --manifest studies.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runAggregate(cmd, in, manifest)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	aggregateCmd.Flags().StringVarP(
		&in.StudyKey, "study", "s", "",
		"study key, e.g. a GEO series accession",
	)
	aggregateCmd.Flags().StringVarP(
		&in.ComponentsPath, "components", "c", "",
		"SQLite staging file with effect components",
	)
	aggregateCmd.Flags().StringVarP(
		&in.CorrelationsPath, "correlations", "m", "",
		"wide-format correlation matrix (TSV or CSV)",
	)
	aggregateCmd.Flags().Int64VarP(
		&in.NSamples, "n-samples", "n", 0,
		"study sample size (required with --correlations)",
	)
	aggregateCmd.Flags().StringVarP(
		&in.Technology, "technology", "t", "",
		"technology override: microarray, rna-seq, other",
	)
	aggregateCmd.Flags().StringVarP(
		&in.DiseaseKey, "disease", "d", "",
		"disease key override, e.g. sepsis",
	)
	aggregateCmd.Flags().StringVar(
		&manifest, "manifest", "",
		"studies.yaml manifest with several studies",
	)

	return aggregateCmd
}

func runAggregate(
	_ *cobra.Command,
	in pairmeta.StudyInput,
	manifest string,
) error {
	ctx := context.Background()

	inputs := []pairmeta.StudyInput{in}
	if manifest != "" {
		if in.ComponentsPath != "" || in.CorrelationsPath != "" {
			return &gn.Error{
				Code: errcode.ComponentReadError,
				Msg: "Flag <em>--manifest</em> cannot be combined " +
					"with direct input flags.",
				Err: errors.New("invalid aggregate flags"),
			}
		}
		var err error
		if inputs, err = ioaggregate.LoadStudiesManifest(manifest); err != nil {
			return err
		}
	} else if err := validateStudyInput(in); err != nil {
		return err
	}

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	gn.Info("Connected to database: <em>%s@%s:%d/%s</em>",
		cfg.Database.User, cfg.Database.Host,
		cfg.Database.Port, cfg.Database.Database)

	agg := ioaggregate.New(cfg, op)
	var failed int
	for _, input := range inputs {
		if _, err := agg.Aggregate(ctx, input); err != nil {
			if len(inputs) == 1 {
				return err
			}
			gn.PrintErrorMessage(err)
			failed++
		}
	}
	if failed > 0 {
		return &gn.Error{
			Code: errcode.FeatureRunError,
			Msg:  "<em>%d</em> of %d studies failed; see the log for details.",
			Vars: []any{failed, len(inputs)},
			Err:  fmt.Errorf("%d of %d studies failed", failed, len(inputs)),
		}
	}

	gn.Info(`Next steps:
	 - Run '<em>pairmeta aggregate</em>' for the remaining studies
	 - Run '<em>pairmeta rank</em>' to inspect the updated ranking
`)

	return nil
}

func validateStudyInput(in pairmeta.StudyInput) error {
	newErr := func(msg string) error {
		return &gn.Error{
			Code: errcode.ComponentReadError,
			Msg:  msg,
			Err:  errors.New("invalid aggregate flags"),
		}
	}

	switch {
	case in.StudyKey == "" && in.ComponentsPath == "":
		return newErr("A study key is required: " +
			"use <em>--study</em> or a staging file header.")
	case in.ComponentsPath == "" && in.CorrelationsPath == "":
		return newErr("No input given: use <em>--components</em> " +
			"or <em>--correlations</em>.")
	case in.ComponentsPath != "" && in.CorrelationsPath != "":
		return newErr("Flags <em>--components</em> and " +
			"<em>--correlations</em> are mutually exclusive.")
	case in.CorrelationsPath != "" && in.NSamples < 4:
		return newErr("Correlation input needs <em>--n-samples</em> " +
			"of at least 4 to Fisher-transform r values.")
	}
	return nil
}
