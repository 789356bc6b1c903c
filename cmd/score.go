package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-qualifier/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score unscored leads against the latest offer",
	Long: `Score every unscored lead against the most recently updated offer, or a
single lead with --lead. Leads are scored concurrently (scoring.pool_size)
and the command returns once the whole batch has finished.

Examples:
  score
  score --lead 3f7c1e1a-5b0c-4a53-9a6e-1d2f0c9b8e77`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initScoring(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		leadID, _ := cmd.Flags().GetString("lead")

		var report *model.BatchReport
		if leadID != "" {
			report, err = env.Orchestrator.ScoreOne(ctx, leadID)
		} else {
			report, err = env.Orchestrator.ScoreAllUnscored(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "score")
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Clear and recompute scores",
	Long: `Clear every lead's score and score all leads again against the latest
offer. With --tier, only leads currently at that intent level are rescored.

Examples:
  rescore
  rescore --tier medium`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var tier model.IntentTier
		if s, _ := cmd.Flags().GetString("tier"); s != "" {
			t, err := model.ParseIntentTier(s)
			if err != nil {
				return err
			}
			tier = t
		}

		env, err := initScoring(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var report *model.BatchReport
		if tier != "" {
			report, err = env.Orchestrator.RescoreByTier(ctx, tier)
		} else {
			report, err = env.Orchestrator.RescoreAll(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "rescore")
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	scoreCmd.Flags().String("lead", "", "score only this lead id")
	rescoreCmd.Flags().String("tier", "", "rescore only leads at this intent level (high, medium, low)")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(rescoreCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
