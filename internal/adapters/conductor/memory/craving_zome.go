package memory

import (
	"fmt"

	"github.com/bnema/condenser/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxReflectionTitleChars = 80
	maxCommentOnOfferChars  = 800
)

var cravingFns = map[string]zomeFn{
	"get_init_time": func(inv *invocation) (any, error) {
		return inv.cell.InitTime, nil
	},

	"create_association": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.Association](inv)
		if err != nil {
			return nil, err
		}
		props, err := inv.cravingProperties()
		if err != nil {
			return nil, err
		}
		if msg := domain.CheckLength("Association", in.Association, props.MaxAssociationChars, domain.DefaultMaxAssociationChars); msg != "" {
			return nil, invalid(msg)
		}
		return inv.createListed(domain.EntryTypeAssociation, in, "all_associations", "AllAssociations")
	},
	"get_association": func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.EntryHash](inv)
		if err != nil {
			return nil, err
		}
		return inv.getEntry(hash), nil
	},
	"get_association_by_action_hash": func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.ActionHash](inv)
		if err != nil {
			return nil, err
		}
		return inv.latest(hash, "AssociationUpdates"), nil
	},
	"get_all_associations": func(inv *invocation) (any, error) {
		return inv.dedupByEntry(inv.linkedRecords(pathBase("all_associations"), "AllAssociations")), nil
	},
	"get_all_association_actions": func(inv *invocation) (any, error) {
		return inv.linkedRecords(pathBase("all_associations"), "AllAssociations"), nil
	},

	"create_reflection": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.Reflection](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateReflection(in); err != nil {
			return nil, err
		}
		return inv.createListed(domain.EntryTypeReflection, in, "all_reflections", "AllReflections")
	},
	"get_reflection": getLatest("ReflectionUpdates"),
	"update_reflection": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.UpdateReflectionInput](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateReflection(in.UpdatedReflection); err != nil {
			return nil, err
		}
		return inv.updateLinked(domain.EntryTypeReflection, in.OriginalReflectionHash, in.PreviousReflectionHash, in.UpdatedReflection, "ReflectionUpdates")
	},
	"delete_reflection": deleteOriginal,
	"get_all_reflections": func(inv *invocation) (any, error) {
		return inv.linkedRecords(pathBase("all_reflections"), "AllReflections"), nil
	},

	"create_offer": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.Offer](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateOffer(in); err != nil {
			return nil, err
		}
		return inv.createListed(domain.EntryTypeOffer, in, "all_offers", "AllOffers")
	},
	"get_offer": getLatest("OfferUpdates"),
	"update_offer": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.UpdateOfferInput](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateOffer(in.UpdatedOffer); err != nil {
			return nil, err
		}
		return inv.updateLinked(domain.EntryTypeOffer, in.OriginalOfferHash, in.PreviousOfferHash, in.UpdatedOffer, "OfferUpdates")
	},
	"delete_offer": deleteOriginal,
	"get_all_offers": func(inv *invocation) (any, error) {
		return inv.dedupByEntry(inv.linkedRecords(pathBase("all_offers"), "AllOffers")), nil
	},
	"get_all_offer_actions": func(inv *invocation) (any, error) {
		return inv.linkedRecords(pathBase("all_offers"), "AllOffers"), nil
	},

	"create_anecdote": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.Anecdote](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateAnecdote(in); err != nil {
			return nil, err
		}
		return inv.createListed(domain.EntryTypeAnecdote, in, "all_anecdotes", "AllAnecdotes")
	},
	"get_anecdote": getLatest("AnecdoteUpdates"),
	"update_anecdote": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.UpdateAnecdoteInput](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateAnecdote(in.UpdatedAnecdote); err != nil {
			return nil, err
		}
		return inv.updateLinked(domain.EntryTypeAnecdote, in.OriginalAnecdoteHash, in.PreviousAnecdoteHash, in.UpdatedAnecdote, "AnecdoteUpdates")
	},
	"delete_anecdote": deleteOriginal,
	"get_all_anecdotes": func(inv *invocation) (any, error) {
		return inv.linkedRecords(pathBase("all_anecdotes"), "AllAnecdotes"), nil
	},

	"create_comment_on_offer": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.CommentOnOffer](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateCommentOnOffer(in); err != nil {
			return nil, err
		}
		record, err := inv.createEntry(domain.EntryTypeCommentOnOffer, in)
		if err != nil {
			return nil, err
		}
		inv.createLink(in.OfferHash.B64(), record.ActionHash, "OfferToCommentOnOffers")
		return record, nil
	},
	"get_comment_on_offer": getLatest("CommentOnOfferUpdates"),
	"update_comment_on_offer": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.UpdateCommentOnOfferInput](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateCommentOnOffer(in.UpdatedCommentOnOffer); err != nil {
			return nil, err
		}
		return inv.updateLinked(domain.EntryTypeCommentOnOffer, in.OriginalCommentOnOfferHash, in.PreviousCommentOnOfferHash, in.UpdatedCommentOnOffer, "CommentOnOfferUpdates")
	},
	"delete_comment_on_offer": deleteOriginal,
	"get_comment_on_offers_for_offer": func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.ActionHash](inv)
		if err != nil {
			return nil, err
		}
		return inv.linkedRecords(hash.B64(), "OfferToCommentOnOffers"), nil
	},

	"create_comment_on_reflection": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.CommentOnReflection](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateCommentOnReflection(in); err != nil {
			return nil, err
		}
		record, err := inv.createEntry(domain.EntryTypeCommentOnReflection, in)
		if err != nil {
			return nil, err
		}
		inv.createLink(in.ReflectionHash.B64(), record.ActionHash, "ReflectionToCommentOnReflections")
		return record, nil
	},
	"get_comment_on_reflection": getLatest("CommentOnReflectionUpdates"),
	"update_comment_on_reflection": func(inv *invocation) (any, error) {
		in, err := decodePayload[domain.UpdateCommentOnReflectionInput](inv)
		if err != nil {
			return nil, err
		}
		if err := inv.validateCommentOnReflection(in.UpdatedCommentOnReflection); err != nil {
			return nil, err
		}
		return inv.updateLinked(domain.EntryTypeCommentOnReflection, in.OriginalCommentOnReflectionHash, in.PreviousCommentOnReflectionHash, in.UpdatedCommentOnReflection, "CommentOnReflectionUpdates")
	},
	"delete_comment_on_reflection": deleteOriginal,
	"get_comment_on_reflections_for_reflection": func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.ActionHash](inv)
		if err != nil {
			return nil, err
		}
		return inv.linkedRecords(hash.B64(), "ReflectionToCommentOnReflections"), nil
	},

	"add_resonator_for_entry":     addResonator("EntryToResonator"),
	"remove_resonator_for_entry":  removeResonator("EntryToResonator"),
	"get_resonators_for_entry":    getResonators("EntryToResonator"),
	"add_resonator_for_action":    addResonator("ActionToResonator"),
	"remove_resonator_for_action": removeResonator("ActionToResonator"),
	"get_resonators_for_action":   getResonators("ActionToResonator"),
}

// invalid mirrors how the conductor reports a failed validation.
func invalid(msg string) error {
	return guest("Source chain error: InvalidCommit error: %s", msg)
}

func (inv *invocation) cravingProperties() (domain.CravingDnaProperties, error) {
	var props domain.CravingDnaProperties
	if err := msgpack.Unmarshal(inv.space.Modifiers.Properties, &props); err != nil {
		return props, guest("Failed to convert dna properties into CravingDnaProperties: %s", err)
	}
	return props, nil
}

func (inv *invocation) validateReflection(in domain.Reflection) error {
	props, err := inv.cravingProperties()
	if err != nil {
		return err
	}
	if msg := domain.CheckLength("Reflection", in.Reflection, props.MaxReflectionChars, domain.DefaultMaxReflectionChars); msg != "" {
		return invalid(msg)
	}
	if len(in.Title) > maxReflectionTitleChars {
		return invalid(fmt.Sprintf("Reflection title is longer than allowed. Max characters: %d", maxReflectionTitleChars))
	}
	return nil
}

func (inv *invocation) validateOffer(in domain.Offer) error {
	props, err := inv.cravingProperties()
	if err != nil {
		return err
	}
	if msg := domain.CheckLength("Offer", in.Offer, props.MaxOfferChars, domain.DefaultMaxOfferChars); msg != "" {
		return invalid(msg)
	}
	return nil
}

func (inv *invocation) validateAnecdote(in domain.Anecdote) error {
	props, err := inv.cravingProperties()
	if err != nil {
		return err
	}
	if msg := domain.CheckLength("Anecdote", in.Anecdote, props.MaxAnecdoteChars, domain.DefaultMaxAnecdoteChars); msg != "" {
		return invalid(msg)
	}
	return nil
}

func (inv *invocation) validateCommentOnOffer(in domain.CommentOnOffer) error {
	if inv.requireEntry(in.OfferHash, domain.EntryTypeOffer) != nil {
		return invalid("Dependant action must be accompanied by an entry")
	}
	if len(in.Comment) > maxCommentOnOfferChars {
		return invalid(fmt.Sprintf("Comment on Offer is longer than allowed. Max characters: %d (hard-coded)", maxCommentOnOfferChars))
	}
	return nil
}

func (inv *invocation) validateCommentOnReflection(in domain.CommentOnReflection) error {
	if inv.requireEntry(in.ReflectionHash, domain.EntryTypeReflection) != nil {
		return invalid("Dependant action must be accompanied by an entry")
	}
	props, err := inv.cravingProperties()
	if err != nil {
		return err
	}
	if props.MaxReflectionChars != nil {
		if max := *props.MaxReflectionChars; len(in.Comment) > max {
			return invalid(fmt.Sprintf("Comment on Reflection is longer than allowed. Max characters: %d (same as Reflection max charachters)", max))
		}
		return nil
	}
	if len(in.Comment) > domain.DefaultMaxReflectionChars {
		return invalid(fmt.Sprintf("Comment on Reflection is longer than allowed. Max characters: %d (default value)", domain.DefaultMaxReflectionChars))
	}
	return nil
}

func (inv *invocation) requireEntry(hash domain.ActionHash, entryType string) error {
	record := inv.get(hash)
	if record == nil || !record.HasEntry() || record.Action.EntryType != entryType {
		return guest("unresolved dependency %s", hash)
	}
	return nil
}

// createListed creates an entry and links it from the named path.
func (inv *invocation) createListed(entryType string, entry any, path string, linkType string) (domain.Record, error) {
	record, err := inv.createEntry(entryType, entry)
	if err != nil {
		return domain.Record{}, err
	}
	inv.createLink(pathBase(path), record.ActionHash, linkType)
	return record, nil
}

// updateLinked updates previous and links the new revision from the original action.
func (inv *invocation) updateLinked(entryType string, original, previous domain.ActionHash, entry any, updatesType string) (domain.Record, error) {
	record, err := inv.updateEntry(entryType, previous, entry)
	if err != nil {
		return domain.Record{}, err
	}
	inv.createLink(original.B64(), record.ActionHash, updatesType)
	return record, nil
}

func getLatest(updatesType string) zomeFn {
	return func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.ActionHash](inv)
		if err != nil {
			return nil, err
		}
		return inv.latest(hash, updatesType), nil
	}
}

func deleteOriginal(inv *invocation) (any, error) {
	hash, err := decodePayload[domain.ActionHash](inv)
	if err != nil {
		return nil, err
	}
	return inv.deleteEntry(hash)
}

func (inv *invocation) myLinks(base string, linkType string) []*link {
	var mine []*link
	for _, l := range inv.links(base, linkType) {
		if l.Target.Equal(inv.agent) {
			mine = append(mine, l)
		}
	}
	return mine
}

func addResonator(linkType string) zomeFn {
	return func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.Hash](inv)
		if err != nil {
			return nil, err
		}
		if len(inv.myLinks(hash.B64(), linkType)) > 0 {
			return nil, nil
		}
		inv.createLink(hash.B64(), inv.agent, linkType)
		return nil, nil
	}
}

func removeResonator(linkType string) zomeFn {
	return func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.Hash](inv)
		if err != nil {
			return nil, err
		}
		for _, l := range inv.myLinks(hash.B64(), linkType) {
			inv.deleteLink(l)
		}
		return nil, nil
	}
}

func getResonators(linkType string) zomeFn {
	return func(inv *invocation) (any, error) {
		hash, err := decodePayload[domain.Hash](inv)
		if err != nil {
			return nil, err
		}
		links := inv.links(hash.B64(), linkType)
		agents := make([]domain.AgentPubKey, 0, len(links))
		for _, l := range links {
			agents = append(agents, l.Target)
		}
		return agents, nil
	}
}
