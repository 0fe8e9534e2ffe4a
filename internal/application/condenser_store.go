package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/metrics"
	"github.com/bnema/condenser/internal/ports"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentConnects = 8

// IndexSnapshot is one full enumeration of the app's cloned cells. It is never mutated
// after it is published.
type IndexSnapshot struct {
	// All four maps are keyed by dna hash (base64). Clone names are not unique.
	InstalledCravings map[string]*CravingStore
	Lobbies           map[string]*LobbyStore
	DisabledCravings  map[string]domain.ClonedCell
	DisabledLobbies   map[string]domain.ClonedCell

	CrossIndex CrossIndex
	BuiltAt    time.Time
}

func emptySnapshot() *IndexSnapshot {
	return &IndexSnapshot{
		InstalledCravings: map[string]*CravingStore{},
		Lobbies:           map[string]*LobbyStore{},
		DisabledCravings:  map[string]domain.ClonedCell{},
		DisabledLobbies:   map[string]domain.ClonedCell{},
		CrossIndex:        CrossIndex{},
	}
}

type CondenserStoreConfig struct {
	Intervals PollIntervals
	// JoinGrace is how long JoinLobby waits before connecting, giving peers a chance to sync the lobby info.
	JoinGrace      time.Duration
	GatewayOptions []GatewayOption
	PollerOptions  []PollerOption
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	Clock          ports.Clock
}

// CondenserStore indexes the craving and lobby cells of the app.
type CondenserStore struct {
	client ports.AppClient
	ledger *NotificationLedger
	cfg    CondenserStoreConfig

	index     atomic.Pointer[IndexSnapshot]
	refreshMu sync.Mutex
	newSeed   func() string
}

func NewCondenserStore(client ports.AppClient, ledger *NotificationLedger, cfg CondenserStoreConfig) *CondenserStore {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}

	s := &CondenserStore{
		client:  client,
		ledger:  ledger,
		cfg:     cfg,
		newSeed: uuid.NewString,
	}
	s.index.Store(emptySnapshot())
	return s
}

// ConnectCondenserStore builds the store and its first index.
func ConnectCondenserStore(ctx context.Context, client ports.AppClient, ledger *NotificationLedger, cfg CondenserStoreConfig) (*CondenserStore, error) {
	s := NewCondenserStore(client, ledger, cfg)
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CondenserStore) Snapshot() *IndexSnapshot {
	return s.index.Load()
}

func (s *CondenserStore) Ledger() *NotificationLedger {
	return s.ledger
}

func (s *CondenserStore) MyPubKey() domain.AgentPubKey {
	return s.client.MyPubKey()
}

func (s *CondenserStore) cravingService(cell domain.CellID) *CravingService {
	return NewCravingService(s.client, cell, s.cfg.GatewayOptions...)
}

func (s *CondenserStore) lobbyService(cell domain.CellID) *LobbyService {
	return NewLobbyService(s.client, cell, s.cfg.GatewayOptions...)
}

type connected[T any] struct {
	key   string
	store T
}

// Refresh re-enumerates the cells and swaps in a fully rebuilt index. A cell that
// cannot be connected is logged and left out of this index.
func (s *CondenserStore) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	info, err := s.client.AppInfo(ctx)
	if err != nil {
		s.cfg.Metrics.IndexRefresh("error")
		return fmt.Errorf("get app info: %w", classifyCallError("app_info", err))
	}

	next := emptySnapshot()

	var cravingCells, lobbyCells []domain.ClonedCell
	for _, cell := range info.ClonedCells(domain.RoleCraving) {
		if cell.Enabled {
			cravingCells = append(cravingCells, cell)
		} else {
			next.DisabledCravings[cell.CellID.Key()] = cell
		}
	}
	for _, cell := range info.ClonedCells(domain.RoleLobby) {
		if cell.Enabled {
			lobbyCells = append(lobbyCells, cell)
		} else {
			next.DisabledLobbies[cell.CellID.Key()] = cell
		}
	}

	cravings := make([]*connected[*CravingStore], len(cravingCells))
	lobbies := make([]*connected[*LobbyStore], len(lobbyCells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentConnects)
	for i, cell := range cravingCells {
		g.Go(func() error {
			store, err := ConnectCravingStore(gctx, s.cravingService(cell.CellID), s.ledger, s.cfg.Intervals, s.cfg.PollerOptions...)
			if err != nil {
				s.excluded(domain.RoleCraving, cell, err)
				return nil
			}
			cravings[i] = &connected[*CravingStore]{key: cell.CellID.Key(), store: store}
			return nil
		})
	}
	for i, cell := range lobbyCells {
		g.Go(func() error {
			store, err := ConnectLobbyStore(gctx, s.lobbyService(cell.CellID), s.cfg.Logger)
			if err != nil {
				s.excluded(domain.RoleLobby, cell, err)
				return nil
			}
			lobbies[i] = &connected[*LobbyStore]{key: cell.CellID.Key(), store: store}
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range cravings {
		if c != nil {
			next.InstalledCravings[c.key] = c.store
		}
	}
	for _, c := range lobbies {
		if c != nil {
			next.Lobbies[c.key] = c.store
		}
	}

	next.CrossIndex = BuildCrossIndex(s.collectRecipes(ctx, next.Lobbies))
	next.BuiltAt = s.cfg.Clock.Now()

	previous := s.index.Swap(next)
	for key, lobby := range previous.Lobbies {
		if next.Lobbies[key] != lobby {
			lobby.Close()
		}
	}

	s.cfg.Metrics.IndexRefresh("ok")
	s.cfg.Logger.Debug("index rebuilt",
		"cravings", len(next.InstalledCravings),
		"disabled_cravings", len(next.DisabledCravings),
		"lobbies", len(next.Lobbies),
		"disabled_lobbies", len(next.DisabledLobbies),
		"indexed_cravings", len(next.CrossIndex),
	)
	return nil
}

func (s *CondenserStore) excluded(role string, cell domain.ClonedCell, err error) {
	s.cfg.Metrics.ExcludedUnit(role)
	s.cfg.Logger.Warn("failed to connect cell, leaving it out of the index",
		"role", role,
		"name", cell.Name,
		"dna_hash", cell.CellID.DnaHash.B64(),
		"error", err,
	)
}

// collectRecipes fetches every lobby's recipes. A lobby whose fetch fails contributes nothing.
func (s *CondenserStore) collectRecipes(ctx context.Context, lobbies map[string]*LobbyStore) []LobbyRecipes {
	keys := sortedKeys(lobbies)
	out := make([]LobbyRecipes, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentConnects)
	for i, key := range keys {
		lobby := lobbies[key]
		g.Go(func() error {
			ref := LobbyRef{Name: lobby.Name(), DnaHash: lobby.CellID().DnaHash}
			if info, err := lobby.Info(); err == nil {
				ref.Info = info
			}
			out[i].Lobby = ref

			records, err := lobby.Service().GetAllCravingRecipes(gctx)
			if err != nil {
				s.cfg.Logger.Warn("failed to fetch craving recipes", "lobby", lobby.Name(), "error", err)
				return nil
			}
			for _, record := range records {
				recipe, err := domain.DecodeEntry[domain.DnaRecipe](record)
				if err != nil {
					s.cfg.Logger.Warn("skip undecodable craving recipe", "lobby", lobby.Name(), "error", err)
					continue
				}
				out[i].Recipes = append(out[i].Recipes, recipe)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Queries

// InstalledCravings returns the connected craving stores ordered by title.
func (s *CondenserStore) InstalledCravings() []*CravingStore {
	snap := s.Snapshot()
	out := make([]*CravingStore, 0, len(snap.InstalledCravings))
	for _, key := range sortedKeys(snap.InstalledCravings) {
		out = append(out, snap.InstalledCravings[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Craving().Title < out[j].Craving().Title
	})
	return out
}

func (s *CondenserStore) DisabledCravings() []domain.ClonedCell {
	return sortedCells(s.Snapshot().DisabledCravings)
}

// Lobbies returns the connected lobby stores ordered by name.
func (s *CondenserStore) Lobbies() []*LobbyStore {
	snap := s.Snapshot()
	out := make([]*LobbyStore, 0, len(snap.Lobbies))
	for _, key := range sortedKeys(snap.Lobbies) {
		out = append(out, snap.Lobbies[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out
}

func (s *CondenserStore) DisabledLobbies() []domain.ClonedCell {
	return sortedCells(s.Snapshot().DisabledLobbies)
}

// sortedCells orders cells by name, then by dna hash.
func sortedCells(cells map[string]domain.ClonedCell) []domain.ClonedCell {
	out := make([]domain.ClonedCell, 0, len(cells))
	for _, key := range sortedKeys(cells) {
		out = append(out, cells[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *CondenserStore) CravingStore(cell domain.CellID) (*CravingStore, bool) {
	store, ok := s.Snapshot().InstalledCravings[cell.Key()]
	return store, ok
}

func (s *CondenserStore) LobbyStore(dna domain.DnaHash) (*LobbyStore, bool) {
	store, ok := s.Snapshot().Lobbies[dna.B64()]
	return store, ok
}

func (s *CondenserStore) LobbiesForCraving(dna domain.DnaHash) []LobbyRef {
	return s.Snapshot().CrossIndex[dna.B64()].Lobbies
}

// CravingRecipe returns the recipe a lobby published for the craving.
func (s *CondenserStore) CravingRecipe(cell domain.CellID) (domain.DnaRecipe, error) {
	entry, ok := s.Snapshot().CrossIndex[cell.Key()]
	if !ok {
		return domain.DnaRecipe{}, fmt.Errorf("craving %s: %w", cell.Key(), domain.ErrRecipeNotFound)
	}
	return entry.Recipe, nil
}

type AvailableCraving struct {
	DnaHash domain.DnaHash `json:"dna_hash"`
	CrossIndexEntry
}

// AvailableCravings lists cravings known from lobbies that are neither installed nor disabled.
func (s *CondenserStore) AvailableCravings() []AvailableCraving {
	snap := s.Snapshot()

	var out []AvailableCraving
	for _, key := range snap.CrossIndex.Keys() {
		if _, ok := snap.InstalledCravings[key]; ok {
			continue
		}
		if _, ok := snap.DisabledCravings[key]; ok {
			continue
		}
		entry := snap.CrossIndex[key]
		out = append(out, AvailableCraving{DnaHash: entry.Recipe.ResultingDnaHash, CrossIndexEntry: entry})
	}
	return out
}

// Lifecycle. None of these roll back: a clone that succeeded stays installed even when a
// later step fails, and shows up again on the next refresh.

// CreateCraving clones a new craving cell. An empty seed gets a random uuid and a zero
// origin time is replaced by now, in microseconds.
func (s *CondenserStore) CreateCraving(ctx context.Context, props domain.CravingDnaProperties, networkSeed string, originTime int64) (domain.ClonedCell, error) {
	if err := props.Validate(); err != nil {
		return domain.ClonedCell{}, err
	}
	if networkSeed == "" {
		networkSeed = s.newSeed()
	}
	if originTime == 0 {
		originTime = s.cfg.Clock.Now().UnixMicro()
	}

	cell, err := s.client.CreateCloneCell(ctx, domain.CreateCloneCellRequest{
		RoleName: domain.RoleCraving,
		Modifiers: domain.CloneModifiers{
			NetworkSeed: networkSeed,
			Properties:  props,
			OriginTime:  originTime,
		},
		Name: props.Title,
	})
	if err != nil {
		return domain.ClonedCell{}, fmt.Errorf("create craving cell: %w", classifyCallError("create_clone_cell", err))
	}

	if err := s.refreshAndRequireCraving(ctx, cell.CellID); err != nil {
		return cell, err
	}
	return cell, nil
}

// JoinCraving clones the craving a recipe describes.
func (s *CondenserStore) JoinCraving(ctx context.Context, recipe domain.DnaRecipe) (domain.ClonedCell, error) {
	cell, err := s.client.CreateCloneCell(ctx, recipe.CloneRequest())
	if err != nil {
		return domain.ClonedCell{}, fmt.Errorf("join craving %q: %w", recipe.Title, classifyCallError("create_clone_cell", err))
	}

	if err := s.refreshAndRequireCraving(ctx, cell.CellID); err != nil {
		return cell, err
	}
	return cell, nil
}

func (s *CondenserStore) refreshAndRequireCraving(ctx context.Context, cell domain.CellID) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	if _, ok := s.CravingStore(cell); !ok {
		return fmt.Errorf("connect craving %s: %w", cell.Key(), domain.ErrCellNotFound)
	}
	return nil
}

// RecipeForCraving returns the recipe of an installed craving, from the cross-index when a
// lobby lists it, otherwise rebuilt from the cell's clone modifiers.
func (s *CondenserStore) RecipeForCraving(ctx context.Context, cell domain.CellID) (domain.DnaRecipe, error) {
	if recipe, err := s.CravingRecipe(cell); err == nil {
		return recipe, nil
	}

	info, err := s.client.AppInfo(ctx)
	if err != nil {
		return domain.DnaRecipe{}, fmt.Errorf("get app info: %w", classifyCallError("app_info", err))
	}
	clone, ok := info.FindClonedCell(domain.RoleCraving, cell)
	if !ok {
		return domain.DnaRecipe{}, fmt.Errorf("craving %s: %w", cell.Key(), domain.ErrCellNotFound)
	}

	var props domain.CravingDnaProperties
	if err := msgpack.Unmarshal(clone.DnaModifiers.Properties, &props); err != nil {
		return domain.DnaRecipe{}, fmt.Errorf("decode craving properties: %w", err)
	}
	seed := clone.DnaModifiers.NetworkSeed
	origin := clone.DnaModifiers.OriginTime

	return domain.DnaRecipe{
		Title:            props.Title,
		NetworkSeed:      &seed,
		Properties:       props,
		OriginTime:       &origin,
		ResultingDnaHash: clone.CellID.DnaHash,
	}, nil
}

// ShareCraving registers the craving's recipe in every given lobby, then refreshes.
func (s *CondenserStore) ShareCraving(ctx context.Context, cell domain.CellID, lobbies []domain.DnaHash) error {
	recipe, err := s.RecipeForCraving(ctx, cell)
	if err != nil {
		return err
	}

	stores := make([]*LobbyStore, 0, len(lobbies))
	for _, dna := range lobbies {
		store, ok := s.LobbyStore(dna)
		if !ok {
			return fmt.Errorf("lobby %s: %w", dna.B64(), domain.ErrCellNotFound)
		}
		stores = append(stores, store)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, store := range stores {
		g.Go(func() error {
			if _, err := store.Service().RegisterCraving(gctx, recipe); err != nil {
				return fmt.Errorf("register craving in lobby %q: %w", store.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return s.Refresh(ctx)
}

func (s *CondenserStore) DisableCraving(ctx context.Context, cell domain.CellID) error {
	if err := s.client.DisableCloneCell(ctx, cell); err != nil {
		return fmt.Errorf("disable craving: %w", classifyCallError("disable_clone_cell", err))
	}
	return s.Refresh(ctx)
}

func (s *CondenserStore) EnableCraving(ctx context.Context, cell domain.CellID) error {
	if _, err := s.client.EnableCloneCell(ctx, cell); err != nil {
		return fmt.Errorf("enable craving: %w", classifyCallError("enable_clone_cell", err))
	}
	return s.Refresh(ctx)
}

type CreateLobbyInput struct {
	Name            string
	Description     string
	UnenforcedRules *string
	LogoSrc         *string
	// NetworkSeed defaults to a random uuid.
	NetworkSeed string
}

// CreateLobby clones a lobby cell and publishes its info.
func (s *CondenserStore) CreateLobby(ctx context.Context, in CreateLobbyInput) (domain.CellID, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.CellID{}, errors.New("lobby name is required")
	}
	seed := in.NetworkSeed
	if seed == "" {
		seed = s.newSeed()
	}

	cell, err := s.client.CreateCloneCell(ctx, domain.LobbyCloneRequest(in.Name, seed))
	if err != nil {
		return domain.CellID{}, fmt.Errorf("create lobby cell: %w", classifyCallError("create_clone_cell", err))
	}

	_, err = s.lobbyService(cell.CellID).CreateLobbyInfo(ctx, domain.LobbyInfo{
		Description:     in.Description,
		UnenforcedRules: in.UnenforcedRules,
		LogoSrc:         in.LogoSrc,
		NetworkSeed:     seed,
	})
	if err != nil {
		return cell.CellID, fmt.Errorf("create lobby info: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		return cell.CellID, err
	}
	return cell.CellID, nil
}

// JoinLobby clones the lobby with the given name and seed unless it is already installed.
func (s *CondenserStore) JoinLobby(ctx context.Context, name string, networkSeed string) (domain.CellID, error) {
	for _, lobby := range s.Lobbies() {
		if lobby.Modifiers().NetworkSeed == networkSeed && lobby.Properties().Name == name {
			return domain.CellID{}, fmt.Errorf("join lobby %q: %w", name, domain.ErrLobbyInstalled)
		}
	}

	cell, err := s.client.CreateCloneCell(ctx, domain.LobbyCloneRequest(name, networkSeed))
	if err != nil {
		return domain.CellID{}, fmt.Errorf("create lobby cell: %w", classifyCallError("create_clone_cell", err))
	}

	if s.cfg.JoinGrace > 0 {
		timer := time.NewTimer(s.cfg.JoinGrace)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return cell.CellID, ctx.Err()
		case <-timer.C:
		}
	}

	if err := s.Refresh(ctx); err != nil {
		return cell.CellID, err
	}
	return cell.CellID, nil
}

// JoinLobbyInvite accepts either a full invite link or a bare invite string.
func (s *CondenserStore) JoinLobbyInvite(ctx context.Context, invite string) (domain.CellID, error) {
	var (
		name, seed string
		err        error
	)
	if strings.Contains(invite, "?") {
		name, seed, err = domain.InviteLinkToGroupProps(invite)
	} else {
		name, seed, err = domain.InviteStringToGroupProps(strings.TrimSpace(invite))
	}
	if err != nil {
		return domain.CellID{}, err
	}
	return s.JoinLobby(ctx, name, seed)
}

func (s *CondenserStore) DisableLobby(ctx context.Context, cell domain.CellID) error {
	if err := s.client.DisableCloneCell(ctx, cell); err != nil {
		return fmt.Errorf("disable lobby: %w", classifyCallError("disable_clone_cell", err))
	}
	return s.Refresh(ctx)
}

func (s *CondenserStore) EnableLobby(ctx context.Context, cell domain.CellID) error {
	if _, err := s.client.EnableCloneCell(ctx, cell); err != nil {
		return fmt.Errorf("enable lobby: %w", classifyCallError("enable_clone_cell", err))
	}
	return s.Refresh(ctx)
}
