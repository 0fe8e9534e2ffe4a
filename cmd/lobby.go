package cmd

import (
	"context"
	"fmt"

	overviewadapter "github.com/bnema/condenser/internal/adapters/render/overview"
	"github.com/bnema/condenser/internal/application"
	"github.com/spf13/cobra"
)

func newLobbyCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "group",
		Aliases: []string{"lobby"},
		Short:   "Create, join and inspect groups",
	}

	cmd.AddCommand(
		newLobbyCreateCmd(app),
		newLobbyJoinCmd(app),
		newLobbyInviteCmd(app),
		newLobbyShowCmd(app),
		newLobbyDisableCmd(app),
		newLobbyEnableCmd(app),
	)

	return cmd
}

func optionalString(cmd *cobra.Command, flag string, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func newLobbyCreateCmd(app *app) *cobra.Command {
	var (
		name        string
		description string
		rules       string
		logo        string
		seed        string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := application.CreateLobbyInput{
				Name:            name,
				Description:     description,
				UnenforcedRules: optionalString(cmd, "rules", rules),
				LogoSrc:         optionalString(cmd, "logo", logo),
				NetworkSeed:     seed,
			}

			return app.withSession(cmd.Context(), func(s *session) error {
				cell, err := s.store.CreateLobby(cmd.Context(), in)
				if err != nil {
					return err
				}
				lobby, ok := s.store.LobbyStore(cell.DnaHash)
				if !ok {
					return printf(cmd, "Created group %q (%s)\n", name, cell.DnaHash)
				}
				return printf(cmd, "Created group %q (%s)\ninvite: %s\n", name, cell.DnaHash, lobby.InviteLink())
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Group name")
	cmd.Flags().StringVar(&description, "description", "", "What the group is about")
	cmd.Flags().StringVar(&rules, "rules", "", "Rules members are asked to follow")
	cmd.Flags().StringVar(&logo, "logo", "", "Logo image source")
	cmd.Flags().StringVar(&seed, "seed", "", "Network seed (default: random)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newLobbyJoinCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join <invite>",
		Short: "Join a group from an invite link or invite string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				cell, err := s.store.JoinLobbyInvite(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				name := cell.DnaHash.B64()
				if lobby, ok := s.store.LobbyStore(cell.DnaHash); ok {
					name = lobby.Name()
				}
				return printf(cmd, "Joined group %q (%s)\n", name, cell.DnaHash)
			})
		},
	}
}

func newLobbyInviteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invite <group>",
		Short: "Print the invite link of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				lobby, err := findLobby(s.store, args[0])
				if err != nil {
					return err
				}
				return printf(cmd, "%s\n", lobby.InviteLink())
			})
		},
	}
}

func newLobbyShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <group>",
		Short: "Show a group and the cravings shared in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var detail application.LobbyDetail
			load := func(ctx context.Context, step stepFunc) error {
				return app.withSession(ctx, func(s *session) error {
					lobby, err := findLobby(s.store, args[0])
					if err != nil {
						return err
					}
					step(fmt.Sprintf("Loading %s", lobby.Name()))
					detail, err = s.store.LobbyDetail(ctx, lobby.CellID().DnaHash)
					return err
				})
			}
			if err := runLoad(cmd, asJSON, "Connecting to conductor", load); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, detail)
			}
			rendered, err := app.lobbyRenderer(detail, overviewadapter.RenderOptions{Now: app.now()})
			return writeRendered(cmd, rendered, err)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newLobbyDisableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <group>",
		Short: "Disable a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				lobby, err := findLobby(s.store, args[0])
				if err != nil {
					return err
				}
				if err := s.store.DisableLobby(cmd.Context(), lobby.CellID()); err != nil {
					return err
				}
				return printf(cmd, "Disabled group %q\n", lobby.Name())
			})
		},
	}
}

func newLobbyEnableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <group>",
		Short: "Enable a disabled group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				cell, err := findDisabled("group", s.store.DisabledLobbies(), args[0])
				if err != nil {
					return err
				}
				if err := s.store.EnableLobby(cmd.Context(), cell.CellID); err != nil {
					return err
				}
				return printf(cmd, "Enabled group %q\n", cell.Name)
			})
		},
	}
}
