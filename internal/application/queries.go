package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"golang.org/x/sync/errgroup"
)

// CravingOverview is one card of the home view.
type CravingOverview struct {
	DnaHash     domain.DnaHash `json:"dna_hash"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Nickname    string         `json:"nickname"`
	Totals      CravingTotals  `json:"totals"`
	New         CravingTotals  `json:"new"`
	Lobbies     []string       `json:"lobbies"`
	// Err is set when the craving's collections could not be fetched.
	Err string `json:"error,omitempty"`
}

type LobbyOverview struct {
	DnaHash     domain.DnaHash `json:"dna_hash"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Cravings    int            `json:"cravings"`
	InviteLink  string         `json:"invite_link"`
}

type DisabledCell struct {
	Name    string         `json:"name"`
	DnaHash domain.DnaHash `json:"dna_hash"`
}

type Overview struct {
	Agent            domain.AgentPubKey `json:"agent"`
	Cravings         []CravingOverview  `json:"cravings"`
	Lobbies          []LobbyOverview    `json:"lobbies"`
	Available        []AvailableCraving `json:"available"`
	DisabledCravings []DisabledCell     `json:"disabled_cravings"`
	DisabledLobbies  []DisabledCell     `json:"disabled_lobbies"`
	BuiltAt          time.Time          `json:"built_at"`
}

// Overview assembles the home view from the current index snapshot. A craving whose
// collections cannot be fetched keeps its card with Err set.
func (s *CondenserStore) Overview(ctx context.Context) (Overview, error) {
	snap := s.Snapshot()
	out := Overview{
		Agent:     s.MyPubKey(),
		Available: s.AvailableCravings(),
		BuiltAt:   snap.BuiltAt,
	}

	cravings := s.InstalledCravings()
	out.Cravings = make([]CravingOverview, len(cravings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, craving := range cravings {
		g.Go(func() error {
			card, err := cravingOverview(gctx, craving, s.LobbiesForCraving(craving.CellID().DnaHash))
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				card.Err = err.Error()
				s.cfg.Logger.Warn("craving overview incomplete", "craving", card.Title, "error", err)
			}
			out.Cravings[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	listed := map[string]int{}
	for _, entry := range snap.CrossIndex {
		for _, ref := range entry.Lobbies {
			listed[ref.DnaHash.B64()]++
		}
	}
	for _, lobby := range s.Lobbies() {
		card := LobbyOverview{
			DnaHash:    lobby.CellID().DnaHash,
			Name:       lobby.Name(),
			Cravings:   listed[lobby.CellID().Key()],
			InviteLink: lobby.InviteLink(),
		}
		if info, err := lobby.Info(); err == nil && info != nil {
			card.Description = info.Description
		}
		out.Lobbies = append(out.Lobbies, card)
	}

	out.DisabledCravings = disabledCells(s.DisabledCravings())
	out.DisabledLobbies = disabledCells(s.DisabledLobbies())

	return out, nil
}

func cravingOverview(ctx context.Context, craving *CravingStore, lobbies []LobbyRef) (CravingOverview, error) {
	card := cravingCard(craving, lobbies)

	totals, err := Totals(ctx, craving)
	if err != nil {
		return card, fmt.Errorf("fetch totals: %w", err)
	}
	return card, withTotals(ctx, craving, &card, totals)
}

func cravingCard(craving *CravingStore, lobbies []LobbyRef) CravingOverview {
	props := craving.Craving()
	card := CravingOverview{
		DnaHash:     craving.CellID().DnaHash,
		Title:       props.Title,
		Description: props.Description,
		Nickname:    domain.Nickname(craving.Service().MyPubKey(), props.Title),
	}
	for _, lobby := range lobbies {
		card.Lobbies = append(card.Lobbies, lobby.Name)
	}
	sort.Strings(card.Lobbies)
	return card
}

// withTotals sets the card's totals and how many of them the ledger has not seen.
func withTotals(ctx context.Context, craving *CravingStore, card *CravingOverview, totals CravingTotals) error {
	card.Totals = totals
	for _, kind := range watchedKinds {
		n, _, err := craving.ledger.Delta(ctx, craving.key(kind), totals.of(kind))
		if err != nil {
			return fmt.Errorf("compute new %s: %w", kind, err)
		}
		card.New.set(kind, max(n, 0))
	}
	return nil
}

func disabledCells(cells []domain.ClonedCell) []DisabledCell {
	out := make([]DisabledCell, 0, len(cells))
	for _, cell := range cells {
		out = append(out, DisabledCell{Name: cell.Name, DnaHash: cell.CellID.DnaHash})
	}
	return out
}

// EntryView is one rendered item of a craving collection.
type EntryView struct {
	ActionHash domain.ActionHash `json:"action_hash"`
	Author     string            `json:"author"`
	Title      string            `json:"title,omitempty"`
	Text       string            `json:"text"`
	Detail     string            `json:"detail,omitempty"`
	Resonators int               `json:"resonators"`
	IResonated bool              `json:"i_resonated"`
	Comments   int               `json:"comments"`
	CreatedAt  time.Time         `json:"created_at"`
	Mine       bool              `json:"mine"`
}

// CravingDetail is the craving view: every collection of one craving, decoded.
type CravingDetail struct {
	CravingOverview
	Associations []EntryView `json:"associations"`
	Offers       []EntryView `json:"offers"`
	Reflections  []EntryView `json:"reflections"`
	Anecdotes    []EntryView `json:"anecdotes"`
}

// CravingDetail reads one craving through its pollers and decodes it. Associations and
// offers follow order; reflections and anecdotes are newest first. The card totals are
// counted from the same lists.
func (s *CondenserStore) CravingDetail(ctx context.Context, cell domain.CellID, order SortOrder) (CravingDetail, error) {
	craving, ok := s.CravingStore(cell)
	if !ok {
		return CravingDetail{}, fmt.Errorf("craving %s: %w", cell.DnaHash, domain.ErrCellNotFound)
	}
	card := cravingCard(craving, s.LobbiesForCraving(cell.DnaHash))

	service := craving.Service()
	me := service.MyPubKey()
	title := craving.Craving().Title
	view := func(record domain.Record) EntryView {
		return EntryView{
			ActionHash: record.ActionHash,
			Author:     domain.Nickname(record.Action.Author, title),
			CreatedAt:  time.UnixMicro(record.Action.Timestamp).UTC(),
			Mine:       record.Action.Author.Equal(me),
		}
	}
	resonated := func(item ResonatedRecord) EntryView {
		v := view(item.Record)
		v.Resonators = len(item.Resonators)
		v.IResonated = item.IResonated
		return v
	}

	var (
		associations, offers   []ResonatedRecord
		reflections, anecdotes []domain.Record
		offerComments          = map[string]int{}
		reflectionComments     = map[string]int{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		associations, err = craving.AllAssociations.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		offers, err = craving.AllOffers.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reflections, err = craving.AllReflections.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		anecdotes, err = service.GetAllAnecdotes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CravingDetail{}, fmt.Errorf("load craving %q: %w", title, err)
	}

	g, gctx = errgroup.WithContext(ctx)
	var countsMu sync.Mutex
	for _, offer := range offers {
		g.Go(func() error {
			comments, err := service.GetCommentsOnOffer(gctx, offer.Record.ActionHash)
			if err != nil {
				return err
			}
			countsMu.Lock()
			offerComments[offer.Record.ActionHash.B64()] = len(comments)
			countsMu.Unlock()
			return nil
		})
	}
	for _, reflection := range reflections {
		g.Go(func() error {
			comments, err := craving.CommentsOnReflection(reflection.ActionHash).Load(gctx)
			if err != nil {
				return err
			}
			countsMu.Lock()
			reflectionComments[reflection.ActionHash.B64()] = len(comments)
			countsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CravingDetail{}, fmt.Errorf("load comments of %q: %w", title, err)
	}

	totals := CravingTotals{
		Associations: len(associations),
		Offers:       len(offers),
		Reflections:  len(reflections),
	}
	for _, n := range reflectionComments {
		totals.Comments += n
	}
	if err := withTotals(ctx, craving, &card, totals); err != nil {
		return CravingDetail{}, err
	}
	detail := CravingDetail{CravingOverview: card}

	for _, item := range SortResonated(associations, order) {
		entry, err := domain.DecodeEntry[domain.Association](item.Record)
		if err != nil {
			return CravingDetail{}, err
		}
		v := resonated(item)
		v.Text = entry.Association
		detail.Associations = append(detail.Associations, v)
	}
	for _, item := range SortResonated(offers, order) {
		entry, err := domain.DecodeEntry[domain.Offer](item.Record)
		if err != nil {
			return CravingDetail{}, err
		}
		v := resonated(item)
		v.Text = entry.Offer
		if entry.Explanation != nil {
			v.Detail = *entry.Explanation
		}
		v.Comments = offerComments[item.Record.ActionHash.B64()]
		detail.Offers = append(detail.Offers, v)
	}
	for _, record := range SortRecordsNewestFirst(reflections) {
		entry, err := domain.DecodeEntry[domain.Reflection](record)
		if err != nil {
			return CravingDetail{}, err
		}
		v := view(record)
		v.Title = entry.Title
		v.Text = entry.Reflection
		v.Comments = reflectionComments[record.ActionHash.B64()]
		detail.Reflections = append(detail.Reflections, v)
	}
	for _, record := range SortRecordsNewestFirst(anecdotes) {
		entry, err := domain.DecodeEntry[domain.Anecdote](record)
		if err != nil {
			return CravingDetail{}, err
		}
		v := view(record)
		v.Text = entry.Anecdote
		detail.Anecdotes = append(detail.Anecdotes, v)
	}

	return detail, nil
}

// LobbyDetail is the lobby view: its info and the cravings it lists.
type LobbyDetail struct {
	LobbyOverview
	UnenforcedRules string            `json:"unenforced_rules,omitempty"`
	Recipes         []LobbyRecipeView `json:"recipes"`
}

type LobbyRecipeView struct {
	Title     string         `json:"title"`
	DnaHash   domain.DnaHash `json:"dna_hash"`
	Installed bool           `json:"installed"`
}

func (s *CondenserStore) LobbyDetail(ctx context.Context, dna domain.DnaHash) (LobbyDetail, error) {
	lobby, ok := s.LobbyStore(dna)
	if !ok {
		return LobbyDetail{}, fmt.Errorf("lobby %s: %w", dna, domain.ErrCellNotFound)
	}
	recipes, err := lobby.AllCravingRecipes().Load(ctx)
	if err != nil {
		return LobbyDetail{}, fmt.Errorf("load recipes of %q: %w", lobby.Name(), err)
	}

	detail := LobbyDetail{
		LobbyOverview: LobbyOverview{
			DnaHash:    dna,
			Name:       lobby.Name(),
			Cravings:   len(recipes),
			InviteLink: lobby.InviteLink(),
		},
	}
	if info, err := lobby.Info(); err == nil && info != nil {
		detail.Description = info.Description
		if info.UnenforcedRules != nil {
			detail.UnenforcedRules = *info.UnenforcedRules
		}
	}

	installed := s.Snapshot().InstalledCravings
	for _, recipe := range lobby.AllCravingRecipes().Recipes() {
		_, mine := installed[recipe.ResultingDnaHash.B64()]
		detail.Recipes = append(detail.Recipes, LobbyRecipeView{
			Title:     recipe.Title,
			DnaHash:   recipe.ResultingDnaHash,
			Installed: mine,
		})
	}
	sort.SliceStable(detail.Recipes, func(i, j int) bool {
		return detail.Recipes[i].Title < detail.Recipes[j].Title
	})

	return detail, nil
}

// MarkSeen commits what detail showed as the craving's new ledger baselines. Counts come
// from the view itself so anything that arrived after it was fetched stays new.
func (s *CondenserStore) MarkSeen(ctx context.Context, detail CravingDetail) error {
	craving, ok := s.cravingByDna(detail.DnaHash)
	if !ok {
		return fmt.Errorf("craving %s: %w", detail.DnaHash, domain.ErrCellNotFound)
	}

	if err := craving.UpdateAssociationsCount(ctx, len(detail.Associations)); err != nil {
		return err
	}
	if err := craving.UpdateOffersCount(ctx, len(detail.Offers)); err != nil {
		return err
	}

	reflections := make([]domain.ActionHash, 0, len(detail.Reflections))
	for _, reflection := range detail.Reflections {
		reflections = append(reflections, reflection.ActionHash)
	}
	if err := craving.UpdateReflectionsCount(ctx, reflections); err != nil {
		return err
	}
	for _, reflection := range detail.Reflections {
		if err := craving.UpdateCommentsCount(ctx, reflection.ActionHash, reflection.Comments); err != nil {
			return err
		}
	}
	return nil
}

func (s *CondenserStore) cravingByDna(dna domain.DnaHash) (*CravingStore, bool) {
	store, ok := s.Snapshot().InstalledCravings[dna.B64()]
	return store, ok
}
