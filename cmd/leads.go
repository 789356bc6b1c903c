package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/leadfile"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Manage ingested leads",
}

// -- leads import --

var leadsImportCmd = &cobra.Command{
	Use:   "import <file.csv|file.xlsx>",
	Short: "Import leads from a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := leadfile.FormatOf(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "leads import: open file")
		}
		defer f.Close() //nolint:errcheck

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := leadfile.Import(ctx, st, f, format)
		if err != nil {
			return eris.Wrap(err, "leads import")
		}
		zap.L().Info("import complete",
			zap.String("file", filepath.Base(args[0])),
			zap.Int("successful", res.SuccessfulUploads),
			zap.Int("failed", res.FailedUploads),
		)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := leadFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(leads) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No leads found.")
			return nil
		}
		formatLeadsList(cmd.OutOrStdout(), leads)
		return nil
	},
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export leads as CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		scored, _ := cmd.Flags().GetBool("scored")

		write := leadfile.WriteCSV
		switch format {
		case "csv":
		case "xlsx":
			write = leadfile.WriteXLSX
		default:
			return model.Validation("unsupported export format: "+format, "expected csv or xlsx")
		}

		filter := store.LeadFilter{}
		if scored {
			filter = store.Scored(true)
			filter.OrderByScore = true
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads export")
		}

		out := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrap(err, "leads export: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := write(out, leads); err != nil {
			return err
		}
		if output != "" {
			zap.L().Info("export complete", zap.String("output", output), zap.Int("leads", len(leads)))
		}
		return nil
	},
}

// -- leads stats --

var leadsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lead and scoring counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := summarize(ctx, st)
		if err != nil {
			return eris.Wrap(err, "leads stats")
		}
		formatSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

// -- leads clear --

var leadsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter := store.LeadFilter{}
		if unscored, _ := cmd.Flags().GetBool("unscored"); unscored {
			filter = store.Scored(false)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads clear")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d leads.\n", n)
		return nil
	},
}

func init() {
	addLeadFilterFlags(leadsListCmd)

	leadsExportCmd.Flags().String("format", "csv", "export format (csv, xlsx)")
	leadsExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	leadsExportCmd.Flags().Bool("scored", false, "only scored leads, highest score first")

	leadsClearCmd.Flags().Bool("unscored", false, "only delete unscored leads")

	leadsCmd.AddCommand(leadsImportCmd)
	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsExportCmd)
	leadsCmd.AddCommand(leadsStatsCmd)
	leadsCmd.AddCommand(leadsClearCmd)
	rootCmd.AddCommand(leadsCmd)
}

func addLeadFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("scored", false, "only scored leads")
	f.Bool("unscored", false, "only unscored leads")
	f.String("tier", "", "only leads at this intent level (high, medium, low)")
	f.Int("min-score", -1, "minimum combined score")
	f.Int("max-score", -1, "maximum combined score")
	f.Int("limit", 0, "max number of leads to display (0 = all)")
}

// leadFilterFromFlags builds a filter from the leads list flags. Any score
// bound or tier orders the result by score.
func leadFilterFromFlags(cmd *cobra.Command) (store.LeadFilter, error) {
	scored, _ := cmd.Flags().GetBool("scored")
	unscored, _ := cmd.Flags().GetBool("unscored")
	tierFlag, _ := cmd.Flags().GetString("tier")
	minScore, _ := cmd.Flags().GetInt("min-score")
	maxScore, _ := cmd.Flags().GetInt("max-score")
	limit, _ := cmd.Flags().GetInt("limit")

	var filter store.LeadFilter
	switch {
	case scored && unscored:
		return filter, model.Validation("--scored and --unscored are mutually exclusive")
	case scored:
		filter = store.Scored(true)
	case unscored:
		filter = store.Scored(false)
	}

	if tierFlag != "" {
		tier, err := model.ParseIntentTier(tierFlag)
		if err != nil {
			return filter, err
		}
		filter.Tier = tier
		filter.OrderByScore = true
	}
	if minScore >= 0 {
		filter.MinScore = &minScore
		filter.OrderByScore = true
	}
	if maxScore >= 0 {
		filter.MaxScore = &maxScore
		filter.OrderByScore = true
	}
	if minScore >= 0 && maxScore >= 0 && minScore > maxScore {
		return filter, model.Validation("min-score must not exceed max-score")
	}
	filter.Limit = limit
	return filter, nil
}

func summarize(ctx context.Context, st store.Store) (model.ResultsSummary, error) {
	var s model.ResultsSummary
	var err error
	if s.TotalLeads, err = st.CountLeads(ctx, store.LeadFilter{}); err != nil {
		return s, err
	}
	if s.ScoredLeads, err = st.CountLeads(ctx, store.Scored(true)); err != nil {
		return s, err
	}
	counts := map[model.IntentTier]*int{
		model.IntentHigh:   &s.HighIntentLeads,
		model.IntentMedium: &s.MediumIntentLeads,
		model.IntentLow:    &s.LowIntentLeads,
	}
	for tier, dst := range counts {
		if *dst, err = st.CountLeads(ctx, store.ByTier(tier)); err != nil {
			return s, err
		}
	}
	s.UnscoredLeads = s.TotalLeads - s.ScoredLeads
	s.ScoringProgress = model.Progress(s.ScoredLeads, s.TotalLeads)
	return s, nil
}

// formatLeadsList writes a tabular list of leads to out.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tROLE\tCOMPANY\tINTENT\tSCORE")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t------\t-----")

	for i := range leads {
		l := &leads[i]
		id := l.ID
		if len(id) > 8 {
			id = id[:8]
		}
		intent, score := "-", "-"
		if l.Scoring != nil {
			intent = l.Tier().Label()
			score = strconv.Itoa(l.TotalScore)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", id, l.Name, l.Role, l.Company, intent, score)
	}
	_ = w.Flush()
}

// formatSummary writes lead counts to out.
func formatSummary(out io.Writer, s model.ResultsSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total leads:\t%d\n", s.TotalLeads)
	_, _ = fmt.Fprintf(w, "Scored:\t%d\n", s.ScoredLeads)
	_, _ = fmt.Fprintf(w, "  High:\t%d\n", s.HighIntentLeads)
	_, _ = fmt.Fprintf(w, "  Medium:\t%d\n", s.MediumIntentLeads)
	_, _ = fmt.Fprintf(w, "  Low:\t%d\n", s.LowIntentLeads)
	_, _ = fmt.Fprintf(w, "Unscored:\t%d\n", s.UnscoredLeads)
	_, _ = fmt.Fprintf(w, "Progress:\t%.1f%%\n", s.ScoringProgress)
	_ = w.Flush()
}
