package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-qualifier/internal/model"
)

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Manage the offers leads are scored against",
	Long:  "Scoring always uses the most recently created or updated offer.",
}

// -- offer set --

var offerSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create an offer, or update one with --id, from a YAML file",
	Long: `Create or update an offer from a YAML definition:

  name: AI Outreach Automation
  value_props:
    - 24/7 outreach
    - 6x more meetings
  ideal_use_cases:
    - B2B SaaS mid-market`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		id, _ := cmd.Flags().GetString("id")

		in, err := loadOfferFile(path)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var offer *model.Offer
		if id != "" {
			offer, err = st.UpdateOffer(ctx, id, in)
		} else {
			offer, err = st.CreateOffer(ctx, in)
		}
		if err != nil {
			return eris.Wrap(err, "offer set")
		}
		zap.L().Info("offer saved", zap.String("offer_id", offer.ID), zap.String("name", offer.Name))
		return printJSON(cmd.OutOrStdout(), offer)
	},
}

// -- offer list --

var offerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List offers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		offers, err := st.ListOffers(ctx)
		if err != nil {
			return eris.Wrap(err, "offer list")
		}
		if len(offers) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No offers found.")
			return nil
		}
		formatOffersList(cmd.OutOrStdout(), offers)
		return nil
	},
}

// -- offer show --

var offerShowCmd = &cobra.Command{
	Use:   "show <offer-id>",
	Short: "Show an offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		offer, err := st.GetOffer(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "offer show")
		}
		return printJSON(cmd.OutOrStdout(), offer)
	},
}

// -- offer latest --

var offerLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the offer scoring will use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		offer, err := st.LatestOffer(ctx)
		if err != nil {
			return eris.Wrap(err, "offer latest")
		}
		if offer == nil {
			return model.NoActiveOffer()
		}
		return printJSON(cmd.OutOrStdout(), offer)
	},
}

// -- offer delete --

var offerDeleteCmd = &cobra.Command{
	Use:   "delete <offer-id>",
	Short: "Delete an offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteOffer(ctx, args[0]); err != nil {
			return eris.Wrap(err, "offer delete")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted offer %s.\n", args[0])
		return nil
	},
}

func init() {
	offerSetCmd.Flags().StringP("file", "f", "", "path to offer YAML file (required)")
	_ = offerSetCmd.MarkFlagRequired("file")
	offerSetCmd.Flags().String("id", "", "update this offer instead of creating one")

	offerCmd.AddCommand(offerSetCmd)
	offerCmd.AddCommand(offerListCmd)
	offerCmd.AddCommand(offerShowCmd)
	offerCmd.AddCommand(offerLatestCmd)
	offerCmd.AddCommand(offerDeleteCmd)
	rootCmd.AddCommand(offerCmd)
}

// loadOfferFile reads, normalizes and validates an offer definition.
func loadOfferFile(path string) (model.OfferInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.OfferInput{}, eris.Wrap(err, "read offer file")
	}

	var in model.OfferInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return model.OfferInput{}, model.Validation("invalid offer file", err.Error())
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return model.OfferInput{}, err
	}
	return in, nil
}

// formatOffersList writes a tabular list of offers to out.
func formatOffersList(out io.Writer, offers []model.Offer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tUSE CASES\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t-------")
	for _, o := range offers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			o.ID, o.Name, strings.Join(o.IdealUseCases, "; "), o.UpdatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
