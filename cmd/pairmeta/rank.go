package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"

	"github.com/genobase/pairmeta/internal/iodb"
	"github.com/genobase/pairmeta/internal/iorank"
	"github.com/genobase/pairmeta/pkg/errcode"
	"github.com/genobase/pairmeta/pkg/pairmeta"
	"github.com/genobase/pairmeta/pkg/ranking"
	"github.com/genobase/pairmeta/pkg/technology"
)

// getRankCmd returns the rank command.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getRankCmd() *cobra.Command {
	var (
		disease string
		tech    string
		limit   int
		q       float64
		kMin    int
		i2Max   float64
		asJSON  bool
	)

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the filtered gene-pair ranking",
		Long: `Derive the filtered, FDR-controlled pair ranking for one
disease/technology slice and print it. The view is computed from the
pooled fact tables on demand; nothing is persisted.

Threshold flags default to the [aggregate] section of the config
file (q_threshold, k_min, i2_max).

Examples:
  pairmeta rank -d sepsis -t rna-seq
  pairmeta rank -d septic_shock -t microarray --limit 50 --q 0.01
  pairmeta rank -d sepsis -t rna-seq --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runRank(disease, tech, ranking.Params{
				QThreshold: q,
				KMin:       kMin,
				I2Max:      i2Max,
				Limit:      limit,
			}, asJSON)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	rankCmd.Flags().StringVarP(&disease, "disease", "d", "",
		"disease key, e.g. sepsis")
	rankCmd.Flags().StringVarP(&tech, "technology", "t", "",
		"technology slice: microarray, rna-seq, other")
	rankCmd.Flags().IntVarP(&limit, "limit", "l", 20,
		"maximum number of pairs to print")
	rankCmd.Flags().Float64Var(&q, "q", 0,
		"FDR cutoff override")
	rankCmd.Flags().IntVar(&kMin, "k-min", 0,
		"minimum contributing studies override")
	rankCmd.Flags().Float64Var(&i2Max, "i2-max", 0,
		"maximum heterogeneity (I2, percent) override")
	rankCmd.Flags().BoolVar(&asJSON, "json", false,
		"print the ranking as JSON")

	return rankCmd
}

func runRank(
	disease, tech string,
	params ranking.Params,
	asJSON bool,
) error {
	ctx := context.Background()

	if disease == "" || tech == "" {
		return &gn.Error{
			Code: errcode.RankQueryError,
			Msg: "Both <em>--disease</em> and <em>--technology</em> " +
				"are required.",
			Err: fmt.Errorf("missing rank flags"),
		}
	}
	t, ok := technology.Parse(tech)
	if !ok {
		return &gn.Error{
			Code: errcode.RankQueryError,
			Msg:  "Unknown technology <em>%s</em>.",
			Vars: []any{tech},
			Err:  fmt.Errorf("unknown technology %s", tech),
		}
	}

	op := iodb.NewPgxOperator()
	if err := op.Connect(ctx, &cfg.Database); err != nil {
		return err
	}
	defer op.Close()

	rnk := iorank.New(cfg, op)
	pairs, err := rnk.TopPairs(ctx, pairmeta.RankQuery{
		DiseaseKey: disease,
		Technology: string(t),
		Params:     params,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pairs)
	}

	printRanking(disease, string(t), pairs)
	return nil
}

func printRanking(disease, tech string, pairs []pairmeta.TopPair) {
	gn.Info("Ranked pairs for <em>%s</em>/<em>%s</em>: %d",
		disease, tech, len(pairs))
	if len(pairs) == 0 {
		return
	}

	fmt.Printf("%-4s %-24s %10s %8s %8s %6s %3s\n",
		"#", "PAIR", "Q*", "Z", "EFFECT", "I2*", "K")
	for i, p := range pairs {
		fmt.Printf("%-4d %-24s %10.3g %8.3f %8.3f %6.1f %3d\n",
			i+1, p.PairName, p.QStar, p.CombinedZ,
			p.CombinedEffectSize, p.I2Star, p.K)
	}
}
