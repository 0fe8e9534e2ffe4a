package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/condenser/internal/application"
	"github.com/bnema/condenser/internal/domain"
	"github.com/spf13/cobra"
)

var errUnsupportedEntry = errors.New("entry type not supported here")

func newPostCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Add an association, offer, reflection or anecdote to a craving",
	}

	cmd.AddCommand(
		newPostAssociationCmd(app),
		newPostOfferCmd(app),
		newPostReflectionCmd(app),
		newPostAnecdoteCmd(app),
	)

	return cmd
}

// onCraving resolves the craving named by ref and runs fn with its service.
func onCraving(cmd *cobra.Command, app *app, ref string, fn func(*application.CravingStore) error) error {
	return app.withSession(cmd.Context(), func(s *session) error {
		craving, err := findCraving(s.store, ref)
		if err != nil {
			return err
		}
		return fn(craving)
	})
}

func joinText(args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("text must not be empty")
	}
	return text, nil
}

func newPostAssociationCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "association <craving> <text>...",
		Short: "Add an association",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args[1:])
			if err != nil {
				return err
			}
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				record, err := craving.Service().CreateAssociation(cmd.Context(), domain.Association{Association: text})
				if err != nil {
					return err
				}
				return printf(cmd, "Posted association %s\n", record.ActionHash)
			})
		},
	}
}

func newPostOfferCmd(app *app) *cobra.Command {
	var explanation string

	cmd := &cobra.Command{
		Use:   "offer <craving> <text>...",
		Short: "Add an offer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args[1:])
			if err != nil {
				return err
			}
			offer := domain.Offer{Offer: text, Explanation: optionalString(cmd, "explanation", explanation)}
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				record, err := craving.Service().CreateOffer(cmd.Context(), offer)
				if err != nil {
					return err
				}
				return printf(cmd, "Posted offer %s\n", record.ActionHash)
			})
		},
	}

	cmd.Flags().StringVar(&explanation, "explanation", "", "Why this offer fits the craving")

	return cmd
}

func newPostReflectionCmd(app *app) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "reflection <craving> <text>...",
		Short: "Add a reflection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args[1:])
			if err != nil {
				return err
			}
			reflection := domain.Reflection{Title: title, Reflection: text}
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				record, err := craving.Service().CreateReflection(cmd.Context(), reflection)
				if err != nil {
					return err
				}
				return printf(cmd, "Posted reflection %s\n", record.ActionHash)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Reflection title")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newPostAnecdoteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "anecdote <craving> <text>...",
		Short: "Add an anecdote",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := joinText(args[1:])
			if err != nil {
				return err
			}
			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				record, err := craving.Service().CreateAnecdote(cmd.Context(), domain.Anecdote{Anecdote: text})
				if err != nil {
					return err
				}
				return printf(cmd, "Posted anecdote %s\n", record.ActionHash)
			})
		},
	}
}

// entryType reads the entry type of the original record at hash.
func entryType(ctx context.Context, service *application.CravingService, hash domain.ActionHash) (string, error) {
	// Any getter resolves the original action; the type tells which zome functions apply.
	record, err := service.GetAnecdote(ctx, hash)
	if err != nil {
		return "", err
	}
	if record == nil || !record.HasEntry() {
		return "", fmt.Errorf("entry %s: %w", hash, domain.ErrNoEntry)
	}
	return record.Action.EntryType, nil
}

func newCommentCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <craving> <offer-or-reflection> <text>...",
		Short: "Comment on an offer or a reflection",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseActionHash(args[1])
			if err != nil {
				return err
			}
			text, err := joinText(args[2:])
			if err != nil {
				return err
			}

			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				ctx := cmd.Context()
				service := craving.Service()
				kind, err := entryType(ctx, service, target)
				if err != nil {
					return err
				}

				var record domain.Record
				switch kind {
				case domain.EntryTypeOffer:
					record, err = service.CreateCommentOnOffer(ctx, domain.CommentOnOffer{OfferHash: target, Comment: text})
				case domain.EntryTypeReflection:
					record, err = service.CreateCommentOnReflection(ctx, domain.CommentOnReflection{ReflectionHash: target, Comment: text})
				default:
					return fmt.Errorf("comment on %s: %w", kind, errUnsupportedEntry)
				}
				if err != nil {
					return err
				}
				return printf(cmd, "Posted comment %s\n", record.ActionHash)
			})
		},
	}
}

type commentView struct {
	ActionHash domain.ActionHash `json:"action_hash"`
	Author     string            `json:"author"`
	Comment    string            `json:"comment"`
	CreatedAt  time.Time         `json:"created_at"`
}

func newCommentsCmd(app *app) *cobra.Command {
	var (
		asJSON  bool
		keepNew bool
	)

	cmd := &cobra.Command{
		Use:   "comments <craving> <offer-or-reflection>",
		Short: "List the comments on an offer or a reflection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseActionHash(args[1])
			if err != nil {
				return err
			}

			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				ctx := cmd.Context()
				service := craving.Service()
				kind, err := entryType(ctx, service, target)
				if err != nil {
					return err
				}

				var records []domain.Record
				switch kind {
				case domain.EntryTypeOffer:
					records, err = service.GetCommentsOnOffer(ctx, target)
				case domain.EntryTypeReflection:
					records, err = craving.CommentsOnReflection(target).Load(ctx)
				default:
					return fmt.Errorf("comments on %s: %w", kind, errUnsupportedEntry)
				}
				if err != nil {
					return err
				}

				views, err := commentViews(records, craving.Craving().Title)
				if err != nil {
					return err
				}
				if kind == domain.EntryTypeReflection && !keepNew {
					if err := craving.UpdateCommentsCount(ctx, target, len(records)); err != nil {
						return err
					}
				}

				if asJSON {
					return writeJSON(cmd, views)
				}
				if len(views) == 0 {
					return printf(cmd, "no comments yet\n")
				}
				for _, view := range views {
					if err := printf(cmd, "%s · %s: %s\n", view.Author, view.CreatedAt.Format(time.DateTime), view.Comment); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&keepNew, "keep-new", false, "Do not mark reflection comments as seen")

	return cmd
}

func commentViews(records []domain.Record, cravingTitle string) ([]commentView, error) {
	views := make([]commentView, 0, len(records))
	for _, record := range application.SortRecordsNewestFirst(records) {
		view := commentView{
			ActionHash: record.ActionHash,
			Author:     domain.Nickname(record.Action.Author, cravingTitle),
			CreatedAt:  record.Action.Time().UTC(),
		}
		switch record.Action.EntryType {
		case domain.EntryTypeCommentOnOffer:
			entry, err := domain.DecodeEntry[domain.CommentOnOffer](record)
			if err != nil {
				return nil, err
			}
			view.Comment = entry.Comment
		default:
			entry, err := domain.DecodeEntry[domain.CommentOnReflection](record)
			if err != nil {
				return nil, err
			}
			view.Comment = entry.Comment
		}
		views = append(views, view)
	}
	return views, nil
}

func newEditCmd(app *app) *cobra.Command {
	var (
		title       string
		explanation string
	)

	cmd := &cobra.Command{
		Use:   "edit <craving> <entry> <text>...",
		Short: "Replace the text of an offer, reflection, anecdote or comment",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := parseActionHash(args[1])
			if err != nil {
				return err
			}
			text, err := joinText(args[2:])
			if err != nil {
				return err
			}

			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				record, err := editEntry(cmd, craving.Service(), original, text, title, explanation)
				if err != nil {
					return err
				}
				return printf(cmd, "Updated %s\n", record.ActionHash)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New reflection title (default: keep)")
	cmd.Flags().StringVar(&explanation, "explanation", "", "New offer explanation (default: keep)")

	return cmd
}

// editEntry updates the latest revision of original, keeping the fields text does not replace.
func editEntry(cmd *cobra.Command, service *application.CravingService, original domain.ActionHash, text string, title string, explanation string) (domain.Record, error) {
	ctx := cmd.Context()
	kind, err := entryType(ctx, service, original)
	if err != nil {
		return domain.Record{}, err
	}

	latest := func(get func(context.Context, domain.ActionHash) (*domain.Record, error)) (domain.Record, error) {
		record, err := get(ctx, original)
		if err != nil {
			return domain.Record{}, err
		}
		if record == nil {
			return domain.Record{}, fmt.Errorf("entry %s: %w", original, domain.ErrNoEntry)
		}
		return *record, nil
	}

	switch kind {
	case domain.EntryTypeOffer:
		previous, err := latest(service.GetOffer)
		if err != nil {
			return domain.Record{}, err
		}
		current, err := domain.DecodeEntry[domain.Offer](previous)
		if err != nil {
			return domain.Record{}, err
		}
		current.Offer = text
		if cmd.Flags().Changed("explanation") {
			current.Explanation = &explanation
		}
		return service.UpdateOffer(ctx, domain.UpdateOfferInput{
			OriginalOfferHash: original,
			PreviousOfferHash: previous.ActionHash,
			UpdatedOffer:      current,
		})

	case domain.EntryTypeReflection:
		previous, err := latest(service.GetReflection)
		if err != nil {
			return domain.Record{}, err
		}
		current, err := domain.DecodeEntry[domain.Reflection](previous)
		if err != nil {
			return domain.Record{}, err
		}
		current.Reflection = text
		if cmd.Flags().Changed("title") {
			current.Title = title
		}
		return service.UpdateReflection(ctx, domain.UpdateReflectionInput{
			OriginalReflectionHash: original,
			PreviousReflectionHash: previous.ActionHash,
			UpdatedReflection:      current,
		})

	case domain.EntryTypeAnecdote:
		previous, err := latest(service.GetAnecdote)
		if err != nil {
			return domain.Record{}, err
		}
		return service.UpdateAnecdote(ctx, domain.UpdateAnecdoteInput{
			OriginalAnecdoteHash: original,
			PreviousAnecdoteHash: previous.ActionHash,
			UpdatedAnecdote:      domain.Anecdote{Anecdote: text},
		})

	case domain.EntryTypeCommentOnOffer:
		previous, err := latest(service.GetCommentOnOffer)
		if err != nil {
			return domain.Record{}, err
		}
		current, err := domain.DecodeEntry[domain.CommentOnOffer](previous)
		if err != nil {
			return domain.Record{}, err
		}
		current.Comment = text
		return service.UpdateCommentOnOffer(ctx, domain.UpdateCommentOnOfferInput{
			OriginalCommentOnOfferHash: original,
			PreviousCommentOnOfferHash: previous.ActionHash,
			UpdatedCommentOnOffer:      current,
		})

	case domain.EntryTypeCommentOnReflection:
		previous, err := latest(service.GetCommentOnReflection)
		if err != nil {
			return domain.Record{}, err
		}
		current, err := domain.DecodeEntry[domain.CommentOnReflection](previous)
		if err != nil {
			return domain.Record{}, err
		}
		current.Comment = text
		return service.UpdateCommentOnReflection(ctx, domain.UpdateCommentOnReflectionInput{
			OriginalCommentOnReflectionHash: original,
			PreviousCommentOnReflectionHash: previous.ActionHash,
			UpdatedCommentOnReflection:      current,
		})
	}

	return domain.Record{}, fmt.Errorf("edit %s: %w", kind, errUnsupportedEntry)
}

func newDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <craving> <entry>",
		Short: "Delete an offer, reflection, anecdote or comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := parseActionHash(args[1])
			if err != nil {
				return err
			}

			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				ctx := cmd.Context()
				service := craving.Service()
				kind, err := entryType(ctx, service, original)
				if err != nil {
					return err
				}

				var deleted domain.ActionHash
				switch kind {
				case domain.EntryTypeOffer:
					deleted, err = service.DeleteOffer(ctx, original)
				case domain.EntryTypeReflection:
					deleted, err = service.DeleteReflection(ctx, original)
				case domain.EntryTypeAnecdote:
					deleted, err = service.DeleteAnecdote(ctx, original)
				case domain.EntryTypeCommentOnOffer:
					deleted, err = service.DeleteCommentOnOffer(ctx, original)
				case domain.EntryTypeCommentOnReflection:
					deleted, err = service.DeleteCommentOnReflection(ctx, original)
				default:
					return fmt.Errorf("delete %s: %w", kind, errUnsupportedEntry)
				}
				if err != nil {
					return err
				}
				return printf(cmd, "Deleted %s (%s)\n", original, deleted)
			})
		},
	}
}

func newResonateCmd(app *app) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "resonate <craving> <association-or-offer>",
		Short: "Resonate with an association or an offer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseActionHash(args[1])
			if err != nil {
				return err
			}

			return onCraving(cmd, app, args[0], func(craving *application.CravingStore) error {
				ctx := cmd.Context()
				service := craving.Service()

				record, err := service.GetAssociationByActionHash(ctx, target)
				if err != nil {
					return err
				}
				if record == nil || !record.HasEntry() {
					return fmt.Errorf("entry %s: %w", target, domain.ErrNoEntry)
				}
				switch record.Action.EntryType {
				case domain.EntryTypeAssociation, domain.EntryTypeOffer:
				default:
					return fmt.Errorf("resonate with %s: %w", record.Action.EntryType, errUnsupportedEntry)
				}

				if undo {
					if err := service.RemoveResonatorForEntry(ctx, record.Action.EntryHash); err != nil {
						return err
					}
					return printf(cmd, "No longer resonating with %s\n", target)
				}
				if err := service.AddResonatorForEntry(ctx, record.Action.EntryHash); err != nil {
					return err
				}
				return printf(cmd, "Resonating with %s\n", target)
			})
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Stop resonating")

	return cmd
}
