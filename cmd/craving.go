package cmd

import (
	"context"
	"fmt"
	"strings"

	overviewadapter "github.com/bnema/condenser/internal/adapters/render/overview"
	"github.com/bnema/condenser/internal/application"
	"github.com/bnema/condenser/internal/domain"
	"github.com/spf13/cobra"
)

func newCravingCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "craving",
		Short: "Create, join, share and read cravings",
	}

	cmd.AddCommand(
		newCravingCreateCmd(app),
		newCravingJoinCmd(app),
		newCravingShareCmd(app),
		newCravingShowCmd(app),
		newCravingRecipeCmd(app),
		newCravingDisableCmd(app),
		newCravingEnableCmd(app),
	)

	return cmd
}

type cravingLimits struct {
	association int
	reflection  int
	offer       int
	anecdote    int
}

func optionalLimit(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func newCravingCreateCmd(app *app) *cobra.Command {
	var (
		title       string
		description string
		seed        string
		limits      cravingLimits
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new craving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			props := domain.CravingDnaProperties{
				Title:               strings.TrimSpace(title),
				Description:         description,
				MaxAnecdoteChars:    optionalLimit(limits.anecdote),
				MaxAssociationChars: optionalLimit(limits.association),
				MaxOfferChars:       optionalLimit(limits.offer),
				MaxReflectionChars:  optionalLimit(limits.reflection),
			}

			return app.withSession(cmd.Context(), func(s *session) error {
				cell, err := s.store.CreateCraving(cmd.Context(), props, seed, 0)
				if err != nil {
					return err
				}
				return printf(cmd, "Created craving %q (%s)\n", props.Title, cell.CellID.DnaHash)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Craving title")
	cmd.Flags().StringVar(&description, "description", "", "What the craving is about")
	cmd.Flags().StringVar(&seed, "seed", "", "Network seed (default: random)")
	cmd.Flags().IntVar(&limits.association, "max-association-chars", 0, "Maximum association length (default: zome default)")
	cmd.Flags().IntVar(&limits.reflection, "max-reflection-chars", 0, "Maximum reflection length (default: zome default)")
	cmd.Flags().IntVar(&limits.offer, "max-offer-chars", 0, "Maximum offer length (default: zome default)")
	cmd.Flags().IntVar(&limits.anecdote, "max-anecdote-chars", 0, "Maximum anecdote length (default: zome default)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newCravingJoinCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join <craving>",
		Short: "Join a craving shared in one of your groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				available, err := findAvailableCraving(s.store, args[0])
				if err != nil {
					return err
				}
				cell, err := s.store.JoinCraving(cmd.Context(), available.Recipe)
				if err != nil {
					return err
				}
				return printf(cmd, "Joined craving %q (%s)\n", available.Recipe.Title, cell.CellID.DnaHash)
			})
		},
	}
}

func newCravingShareCmd(app *app) *cobra.Command {
	var groups []string

	cmd := &cobra.Command{
		Use:   "share <craving>",
		Short: "Share a craving in one or more groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				craving, err := findCraving(s.store, args[0])
				if err != nil {
					return err
				}

				dnas := make([]domain.DnaHash, 0, len(groups))
				names := make([]string, 0, len(groups))
				for _, ref := range groups {
					lobby, err := findLobby(s.store, ref)
					if err != nil {
						return err
					}
					dnas = append(dnas, lobby.CellID().DnaHash)
					names = append(names, lobby.Name())
				}

				if err := s.store.ShareCraving(cmd.Context(), craving.CellID(), dnas); err != nil {
					return err
				}
				return printf(cmd, "Shared %q in %s\n", craving.Craving().Title, strings.Join(names, ", "))
			})
		},
	}

	cmd.Flags().StringSliceVar(&groups, "group", nil, "Group name or dna hash (repeatable)")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func newCravingShowCmd(app *app) *cobra.Command {
	var (
		sortOrder string
		asJSON    bool
		keepNew   bool
	)

	cmd := &cobra.Command{
		Use:   "show <craving>",
		Short: "Show a craving's associations, offers, reflections and anecdotes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := application.ParseSortOrder(sortOrder)
			if err != nil {
				return err
			}

			var detail application.CravingDetail
			load := func(ctx context.Context, step stepFunc) error {
				return app.withSession(ctx, func(s *session) error {
					craving, err := findCraving(s.store, args[0])
					if err != nil {
						return err
					}
					step(fmt.Sprintf("Loading %s", craving.Craving().Title))
					detail, err = s.store.CravingDetail(ctx, craving.CellID(), order)
					if err != nil {
						return err
					}
					if keepNew {
						return nil
					}
					step("Marking as seen")
					return s.store.MarkSeen(ctx, detail)
				})
			}
			if err := runLoad(cmd, asJSON, "Connecting to conductor", load); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, detail)
			}
			rendered, err := app.cravingRenderer(detail, overviewadapter.RenderOptions{Now: app.now()})
			return writeRendered(cmd, rendered, err)
		},
	}

	cmd.Flags().StringVar(&sortOrder, "sort", string(application.SortResonance), "Order of associations and offers: resonance or latest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&keepNew, "keep-new", false, "Do not mark what is shown as seen")

	return cmd
}

func newCravingRecipeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recipe <craving>",
		Short: "Print the recipe others need to join a craving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				craving, err := findCraving(s.store, args[0])
				if err != nil {
					return err
				}
				recipe, err := s.store.RecipeForCraving(cmd.Context(), craving.CellID())
				if err != nil {
					return err
				}
				return writeJSON(cmd, recipe)
			})
		},
	}
}

func newCravingDisableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <craving>",
		Short: "Disable an installed craving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				craving, err := findCraving(s.store, args[0])
				if err != nil {
					return err
				}
				if err := s.store.DisableCraving(cmd.Context(), craving.CellID()); err != nil {
					return err
				}
				return printf(cmd, "Disabled craving %q\n", craving.Craving().Title)
			})
		},
	}
}

func newCravingEnableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <craving>",
		Short: "Enable a disabled craving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd.Context(), func(s *session) error {
				cell, err := findDisabled("craving", s.store.DisabledCravings(), args[0])
				if err != nil {
					return err
				}
				if err := s.store.EnableCraving(cmd.Context(), cell.CellID); err != nil {
					return err
				}
				return printf(cmd, "Enabled craving %q\n", cell.Name)
			})
		},
	}
}
