package domain

import "fmt"

type CollectionKind string

const (
	CollectionAssociations       CollectionKind = "associations"
	CollectionOffers             CollectionKind = "offers"
	CollectionReflections        CollectionKind = "reflections"
	CollectionComments           CollectionKind = "comments"
	CollectionReflectionComments CollectionKind = "reflection_comments"
)

func (k CollectionKind) Validate() error {
	switch k {
	case CollectionAssociations, CollectionOffers, CollectionReflections, CollectionComments, CollectionReflectionComments:
		return nil
	default:
		return fmt.Errorf("unknown collection kind %q", k)
	}
}

// CollectionKey addresses one counted collection. Craving is the storage key of the craving,
// usually its dna hash in base64. Reflection is only set for reflection comments.
type CollectionKey struct {
	Craving    string
	Kind       CollectionKind
	Reflection string
}

func (k CollectionKey) Validate() error {
	if k.Craving == "" {
		return fmt.Errorf("collection key has no craving")
	}
	if err := k.Kind.Validate(); err != nil {
		return err
	}
	if k.Kind == CollectionReflectionComments && k.Reflection == "" {
		return fmt.Errorf("collection key for %s has no reflection", k.Kind)
	}
	return nil
}

func (k CollectionKey) String() string {
	if k.Reflection != "" {
		return fmt.Sprintf("%s/%s/%s", k.Craving, k.Kind, k.Reflection)
	}
	return fmt.Sprintf("%s/%s", k.Craving, k.Kind)
}

type ReflectionSeen struct {
	CommentsCount int   `json:"comments_count"`
	LatestUpdate  int64 `json:"latest_update"`
}

// LedgerEntry is the persisted per-craving record of what the user has already seen.
// Nil counts mean nothing was committed yet. Timestamps are unix milliseconds.
type LedgerEntry struct {
	AssociationCount        *int                      `json:"association_count,omitempty"`
	LatestAssociationUpdate *int64                    `json:"latest_association_update,omitempty"`
	OffersCount             *int                      `json:"offers_count,omitempty"`
	LatestOfferUpdate       *int64                    `json:"latest_offer_update,omitempty"`
	Reflections             map[string]ReflectionSeen `json:"reflections"`
}

func NewLedgerEntry() LedgerEntry {
	return LedgerEntry{Reflections: map[string]ReflectionSeen{}}
}

// CommentsTotal sums the seen comment counts over all known reflections.
func (e LedgerEntry) CommentsTotal() int {
	total := 0
	for _, r := range e.Reflections {
		total += r.CommentsCount
	}
	return total
}

// Baseline returns the committed total for a collection. Absent baselines count as zero.
func (e LedgerEntry) Baseline(key CollectionKey) int {
	switch key.Kind {
	case CollectionAssociations:
		return derefInt(e.AssociationCount)
	case CollectionOffers:
		return derefInt(e.OffersCount)
	case CollectionReflections:
		return len(e.Reflections)
	case CollectionComments:
		return e.CommentsTotal()
	case CollectionReflectionComments:
		return e.Reflections[key.Reflection].CommentsCount
	default:
		return 0
	}
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
