package cmd

import (
	"context"
	"fmt"

	overviewadapter "github.com/bnema/condenser/internal/adapters/render/overview"
	"github.com/bnema/condenser/internal/application"
	"github.com/spf13/cobra"
)

func newCravingsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "cravings",
		Aliases: []string{"home", "ls"},
		Short:   "Show installed cravings, groups and what is new in them",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var overview application.Overview
			load := func(ctx context.Context, step stepFunc) error {
				return app.withSession(ctx, func(s *session) error {
					step(fmt.Sprintf("Counting activity in %d cravings", len(s.store.InstalledCravings())))
					var err error
					overview, err = s.store.Overview(ctx)
					return err
				})
			}
			if err := runLoad(cmd, asJSON, "Connecting to conductor", load); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, overview)
			}
			rendered, err := app.overviewRenderer(overview, overviewadapter.RenderOptions{Now: app.now()})
			return writeRendered(cmd, rendered, err)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
