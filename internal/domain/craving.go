package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxAssociationChars = 70
	DefaultMaxReflectionChars  = 4000
	DefaultMaxOfferChars       = 300
	DefaultMaxAnecdoteChars    = 750
)

// Entry type names as they appear in signals and actions.
const (
	EntryTypeAssociation         = "Association"
	EntryTypeReflection          = "Reflection"
	EntryTypeOffer               = "Offer"
	EntryTypeAnecdote            = "Anecdote"
	EntryTypeCommentOnOffer      = "CommentOnOffer"
	EntryTypeCommentOnReflection = "CommentOnReflection"
	EntryTypeDnaRecipe           = "DnaRecipe"
	EntryTypeLobbyInfo           = "LobbyInfo"
)

// CravingDnaProperties are hashed into the craving's dna, so field order is significant.
type CravingDnaProperties struct {
	Title               string `msgpack:"title" json:"title"`
	Description         string `msgpack:"description" json:"description"`
	MaxAnecdoteChars    *int   `msgpack:"max_anecdote_chars" json:"max_anecdote_chars,omitempty"`
	MaxAssociationChars *int   `msgpack:"max_association_chars" json:"max_association_chars,omitempty"`
	MaxOfferChars       *int   `msgpack:"max_offer_chars" json:"max_offer_chars,omitempty"`
	MaxReflectionChars  *int   `msgpack:"max_reflection_chars" json:"max_reflection_chars,omitempty"`
}

func (p CravingDnaProperties) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("craving title is required")
	}
	limits := []struct {
		name  string
		limit *int
	}{
		{name: "max_association_chars", limit: p.MaxAssociationChars},
		{name: "max_reflection_chars", limit: p.MaxReflectionChars},
		{name: "max_offer_chars", limit: p.MaxOfferChars},
		{name: "max_anecdote_chars", limit: p.MaxAnecdoteChars},
	}
	for _, l := range limits {
		if l.limit != nil && *l.limit <= 0 {
			return fmt.Errorf("%s must be positive, got %d", l.name, *l.limit)
		}
	}
	return nil
}

func limitOrDefault(limit *int, fallback int) (int, bool) {
	if limit == nil {
		return fallback, true
	}
	return *limit, false
}

// CheckLength reports the validation message the craving zome produces when text exceeds a limit.
func CheckLength(kind string, text string, limit *int, fallback int) string {
	max, isDefault := limitOrDefault(limit, fallback)
	// The zome counts bytes.
	if len(text) <= max {
		return ""
	}
	if isDefault {
		return fmt.Sprintf("%s is longer than allowed. Max characters: %d (default value)", kind, max)
	}
	return fmt.Sprintf("%s is longer than allowed. Max characters: %d", kind, max)
}

type Association struct {
	Association string `msgpack:"association" json:"association"`
}

type Reflection struct {
	Title      string `msgpack:"title" json:"title"`
	Reflection string `msgpack:"reflection" json:"reflection"`
}

type Offer struct {
	Offer       string  `msgpack:"offer" json:"offer"`
	Explanation *string `msgpack:"explanation" json:"explanation,omitempty"`
}

type Anecdote struct {
	Anecdote string `msgpack:"anecdote" json:"anecdote"`
}

type CommentOnOffer struct {
	OfferHash ActionHash `msgpack:"offer_hash" json:"offer_hash"`
	Comment   string     `msgpack:"comment" json:"comment"`
}

type CommentOnReflection struct {
	ReflectionHash ActionHash `msgpack:"reflection_hash" json:"reflection_hash"`
	Comment        string     `msgpack:"comment" json:"comment"`
}

type UpdateReflectionInput struct {
	OriginalReflectionHash ActionHash `msgpack:"original_reflection_hash"`
	PreviousReflectionHash ActionHash `msgpack:"previous_reflection_hash"`
	UpdatedReflection      Reflection `msgpack:"updated_reflection"`
}

type UpdateOfferInput struct {
	OriginalOfferHash ActionHash `msgpack:"original_offer_hash"`
	PreviousOfferHash ActionHash `msgpack:"previous_offer_hash"`
	UpdatedOffer      Offer      `msgpack:"updated_offer"`
}

type UpdateAnecdoteInput struct {
	OriginalAnecdoteHash ActionHash `msgpack:"original_anecdote_hash"`
	PreviousAnecdoteHash ActionHash `msgpack:"previous_anecdote_hash"`
	UpdatedAnecdote      Anecdote   `msgpack:"updated_anecdote"`
}

type UpdateCommentOnOfferInput struct {
	OriginalCommentOnOfferHash ActionHash     `msgpack:"original_comment_on_offer_hash"`
	PreviousCommentOnOfferHash ActionHash     `msgpack:"previous_comment_on_offer_hash"`
	UpdatedCommentOnOffer      CommentOnOffer `msgpack:"updated_comment_on_offer"`
}

type UpdateCommentOnReflectionInput struct {
	OriginalCommentOnReflectionHash ActionHash          `msgpack:"original_comment_on_reflection_hash"`
	PreviousCommentOnReflectionHash ActionHash          `msgpack:"previous_comment_on_reflection_hash"`
	UpdatedCommentOnReflection      CommentOnReflection `msgpack:"updated_comment_on_reflection"`
}

// TruncateRunes shortens s for one-line rendering.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
