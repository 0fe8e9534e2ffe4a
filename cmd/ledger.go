package cmd

import (
	"github.com/bnema/condenser/internal/application"
	"github.com/spf13/cobra"
)

func newLedgerCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or reset what has been marked as seen",
	}

	cmd.AddCommand(
		newLedgerShowCmd(app),
		newLedgerClearCmd(app),
	)

	return cmd
}

func newLedgerShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <craving>",
		Short: "Print the seen counts of a craving as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				entry, err := craving.LedgerEntry(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd, entry)
			})
		},
	}
}

func newLedgerClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <craving>",
		Short: "Forget the seen counts of a craving so everything shows as new",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				if err := app.ledger.Clear(cmd.Context(), craving.LedgerKey()); err != nil {
					return err
				}
				return printf(cmd, "Cleared ledger of %q\n", craving.Craving().Title)
			})
		},
	}
}
