package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/condenser/internal/application"
	"github.com/bnema/condenser/internal/domain"
	"github.com/spf13/cobra"
)

func newSettingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change per-craving notification settings",
	}

	cmd.AddCommand(
		newSettingsShowCmd(app),
		newSettingsSetCmd(app),
		newSettingsPresetCmd(app, "enable", "Notify about offers, reflections and comments", app.settings.Enable),
		newSettingsPresetCmd(app, "disable", "Only show new activity inside condenser", app.settings.Disable),
	)

	return cmd
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func newSettingsShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <craving>",
		Short: "Show the notification settings of a craving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				settings, err := app.settings.Get(cmd.Context(), craving.LedgerKey())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, settings)
				}

				for _, kind := range []domain.CollectionKind{
					domain.CollectionAssociations,
					domain.CollectionOffers,
					domain.CollectionReflections,
					domain.CollectionComments,
				} {
					channels, err := settings.For(kind)
					if err != nil {
						return err
					}
					if err := printf(cmd, "%-13s os:%-3s systray:%-3s in-app:%s\n", kind, onOff(channels.OS), onOff(channels.Systray), onOff(channels.InApp)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSettingsSetCmd(app *app) *cobra.Command {
	var (
		kind     string
		channels domain.ChannelSettings
	)

	cmd := &cobra.Command{
		Use:   "set <craving>",
		Short: "Change the channels of one collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := domain.CollectionKind(kind)
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				ctx := cmd.Context()
				settings, err := app.settings.Get(ctx, craving.LedgerKey())
				if err != nil {
					return err
				}

				current, err := settings.For(collection)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("os") {
					current.OS = channels.OS
				}
				if cmd.Flags().Changed("systray") {
					current.Systray = channels.Systray
				}
				if cmd.Flags().Changed("in-app") {
					current.InApp = channels.InApp
				}

				switch collection {
				case domain.CollectionAssociations:
					settings.Associations = current
				case domain.CollectionOffers:
					settings.Offers = current
				case domain.CollectionReflections:
					settings.Reflections = current
				case domain.CollectionComments:
					settings.Comments = current
				default:
					return fmt.Errorf("unknown collection kind %q", kind)
				}

				if err := app.settings.Put(ctx, craving.LedgerKey(), settings); err != nil {
					return err
				}
				return printf(cmd, "Updated %s notifications of %q\n", collection, craving.Craving().Title)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Collection: associations, offers, reflections or comments")
	cmd.Flags().BoolVar(&channels.OS, "os", false, "Desktop notifications")
	cmd.Flags().BoolVar(&channels.Systray, "systray", false, "Tray notifications")
	cmd.Flags().BoolVar(&channels.InApp, "in-app", false, "In-app notifications")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func newSettingsPresetCmd(app *app, use string, short string, apply func(context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <craving>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				if err := apply(cmd.Context(), craving.LedgerKey()); err != nil {
					return err
				}
				return printf(cmd, "Notifications of %q set to %s defaults\n", craving.Craving().Title, use)
			})
		},
	}
}
