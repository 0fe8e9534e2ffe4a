package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/condenser/internal/domain"
)

// LobbyStore holds what is known about one lobby cell.
type LobbyStore struct {
	service   *LobbyService
	info      *domain.Record
	name      domain.LobbyName
	modifiers domain.DnaModifiers
	props     domain.LobbyDnaProperties
	recipes   *RecipeList
}

// ConnectLobbyStore tolerates a lobby whose info has not reached this peer yet.
func ConnectLobbyStore(ctx context.Context, service *LobbyService, logger *slog.Logger) (*LobbyStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := service.GetLobbyInfo(ctx)
	if err != nil {
		if !IsGuestMessage(err, msgNoLobbyInfoYet) {
			return nil, fmt.Errorf("get lobby info: %w", err)
		}
		logger.Debug("lobby info not available yet", "cell", service.CellID().String())
		info = nil
	}

	name, err := service.GetLobbyName(ctx)
	if err != nil {
		return nil, fmt.Errorf("get lobby name: %w", err)
	}

	props, modifiers, err := service.Properties(ctx)
	if err != nil {
		return nil, fmt.Errorf("get lobby properties: %w", err)
	}

	return &LobbyStore{
		service:   service,
		info:      info,
		name:      name,
		modifiers: modifiers,
		props:     props,
		recipes:   newRecipeList(service, logger),
	}, nil
}

func (s *LobbyStore) Service() *LobbyService {
	return s.service
}

func (s *LobbyStore) CellID() domain.CellID {
	return s.service.CellID()
}

func (s *LobbyStore) Name() domain.LobbyName {
	return s.name
}

func (s *LobbyStore) Properties() domain.LobbyDnaProperties {
	return s.props
}

func (s *LobbyStore) Modifiers() domain.DnaModifiers {
	return s.modifiers
}

func (s *LobbyStore) InfoRecord() *domain.Record {
	return s.info
}

// Info decodes the lobby info. It is nil while no peer has shared it.
func (s *LobbyStore) Info() (*domain.LobbyInfo, error) {
	if s.info == nil {
		return nil, nil
	}
	info, err := domain.DecodeEntry[domain.LobbyInfo](*s.info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// InviteLink builds the shareable link for this lobby.
func (s *LobbyStore) InviteLink() string {
	return domain.GroupPropsToInviteLink(s.props.Name, s.modifiers.NetworkSeed)
}

func (s *LobbyStore) AllCravingRecipes() *RecipeList {
	return s.recipes
}

func (s *LobbyStore) Close() {
	s.recipes.Close()
}

// RecipeList is the lobby's craving recipes: fetched once, then extended by
// EntryCreated signals for DnaRecipe entries.
type RecipeList struct {
	service *LobbyService
	logger  *slog.Logger

	mu          sync.Mutex
	records     []domain.Record
	loaded      bool
	unsubscribe func()
	listeners   map[uint64]chan []domain.Record
	nextID      uint64
}

func newRecipeList(service *LobbyService, logger *slog.Logger) *RecipeList {
	return &RecipeList{
		service:   service,
		logger:    logger,
		listeners: map[uint64]chan []domain.Record{},
	}
}

// Load fetches the recipes on first use and starts listening for new ones.
func (l *RecipeList) Load(ctx context.Context) ([]domain.Record, error) {
	l.mu.Lock()
	if l.loaded {
		out := append([]domain.Record(nil), l.records...)
		l.mu.Unlock()
		return out, nil
	}
	l.mu.Unlock()

	records, err := l.service.GetAllCravingRecipes(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		l.records = records
		l.loaded = true
		l.unsubscribe = l.service.Subscribe(l.onSignal)
	}
	return append([]domain.Record(nil), l.records...), nil
}

func (l *RecipeList) Records() []domain.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Record(nil), l.records...)
}

// Recipes decodes the loaded records. Undecodable records are skipped.
func (l *RecipeList) Recipes() []domain.DnaRecipe {
	records := l.Records()
	recipes := make([]domain.DnaRecipe, 0, len(records))
	for _, record := range records {
		recipe, err := domain.DecodeEntry[domain.DnaRecipe](record)
		if err != nil {
			l.logger.Warn("skip undecodable craving recipe", "action", record.ActionHash.B64(), "error", err)
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes
}

// Subscribe receives the full list after every change, latest wins.
func (l *RecipeList) Subscribe(ctx context.Context) <-chan []domain.Record {
	ch := make(chan []domain.Record, 1)

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = ch
	if l.loaded {
		ch <- append([]domain.Record(nil), l.records...)
	}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		if ch, ok := l.listeners[id]; ok {
			delete(l.listeners, id)
			close(ch)
		}
	}()

	return ch
}

func (l *RecipeList) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

func (l *RecipeList) onSignal(sig domain.EntrySignal) {
	if !sig.IsEntryCreated(domain.EntryTypeDnaRecipe) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, *sig.Record)
	for _, ch := range l.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- append([]domain.Record(nil), l.records...)
	}
}
