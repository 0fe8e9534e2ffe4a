package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute() error {
	return ExecuteContext(context.Background())
}

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "condenser",
		Short:         "Word Condenser client: cravings, groups and what is new in them",
		Long:          "condenser connects to a Word Condenser conductor, indexes your cravings and groups, shows their associations, offers, reflections and anecdotes, and tracks what you have not seen yet.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newCravingsCmd(app),
		newCravingCmd(app),
		newLobbyCmd(app),
		newPostCmd(app),
		newCommentCmd(app),
		newCommentsCmd(app),
		newEditCmd(app),
		newDeleteCmd(app),
		newResonateCmd(app),
		newLedgerCmd(app),
		newSettingsCmd(app),
		newWatchCmd(app),
		newConductorCmd(app),
	)

	return rootCmd
}
