package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-qualifier/internal/crm"
	"github.com/sells-group/lead-qualifier/internal/model"
)

var pushTier string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Hand scored leads off to a CRM",
	Long: `Push scored leads, highest score first, to Notion or Salesforce.
Leads already present in the destination are updated in place.`,
}

var pushNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Upsert scored leads into the configured Notion database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := initNotion()
		if err != nil {
			return err
		}
		return runPush(cmd, crm.NewNotionSink(client, cfg.Notion.LeadDB))
	},
}

var pushSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Upsert scored leads as Salesforce Lead records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := initSalesforce()
		if err != nil {
			return err
		}
		return runPush(cmd, crm.NewSalesforceSink(client))
	},
}

func runPush(cmd *cobra.Command, sink crm.Sink) error {
	ctx := cmd.Context()

	var tier model.IntentTier
	if pushTier != "" {
		t, err := model.ParseIntentTier(pushTier)
		if err != nil {
			return err
		}
		tier = t
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	res, err := crm.Handoff(ctx, st, sink, tier)
	if res != nil {
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func init() {
	pushCmd.PersistentFlags().StringVar(&pushTier, "tier", "", "only push leads at this intent level (high, medium, low)")

	pushCmd.AddCommand(pushNotionCmd)
	pushCmd.AddCommand(pushSalesforceCmd)
	rootCmd.AddCommand(pushCmd)
}
