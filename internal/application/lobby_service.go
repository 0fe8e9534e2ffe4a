package application

import (
	"context"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
)

// Returned by get_lobby_info while no peer has shared the lobby info yet.
const msgNoLobbyInfoYet = "There is no link pointing to the lobby info yet."

// LobbyService wraps the cravings zome of one lobby cell.
type LobbyService struct {
	*Gateway
}

func NewLobbyService(client ports.AppClient, cell domain.CellID, opts ...GatewayOption) *LobbyService {
	return &LobbyService{Gateway: NewGateway(client, cell, domain.ZomeLobby, opts...)}
}

func (s *LobbyService) GetAllCravingRecipes(ctx context.Context) ([]domain.Record, error) {
	var records []domain.Record
	if err := s.Invoke(ctx, "get_all_craving_recipes", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *LobbyService) GetDnaRecipe(ctx context.Context, hash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_dna_recipe", hash, &record)
	return record, err
}

// RegisterCraving publishes a craving recipe in this lobby.
func (s *LobbyService) RegisterCraving(ctx context.Context, recipe domain.DnaRecipe) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_dna_recipe", recipe, &record)
	return record, err
}

func (s *LobbyService) CreateLobbyInfo(ctx context.Context, info domain.LobbyInfo) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_lobby_info", info, &record)
	return record, err
}

func (s *LobbyService) GetLobbyInfo(ctx context.Context) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_lobby_info", nil, &record)
	return record, err
}

func (s *LobbyService) UpdateLobbyInfo(ctx context.Context, input domain.UpdateLobbyInfoInput) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "update_lobby_info", input, &record)
	return record, err
}

func (s *LobbyService) GetLobbyName(ctx context.Context) (domain.LobbyName, error) {
	var name string
	err := s.Invoke(ctx, "get_lobby_name", nil, &name)
	return name, err
}

func (s *LobbyService) Properties(ctx context.Context) (domain.LobbyDnaProperties, domain.DnaModifiers, error) {
	var props domain.LobbyDnaProperties
	cell, err := s.cloneProperties(ctx, domain.RoleLobby, &props)
	if err != nil {
		return domain.LobbyDnaProperties{}, domain.DnaModifiers{}, err
	}
	return props, cell.DnaModifiers, nil
}
