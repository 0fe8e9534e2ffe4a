package application

import (
	"context"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
)

// CravingService wraps the craving zome of one craving cell.
type CravingService struct {
	*Gateway
}

func NewCravingService(client ports.AppClient, cell domain.CellID, opts ...GatewayOption) *CravingService {
	return &CravingService{Gateway: NewGateway(client, cell, domain.ZomeCraving, opts...)}
}

func (s *CravingService) Craving(ctx context.Context) (domain.CravingDnaProperties, error) {
	var props domain.CravingDnaProperties
	if _, err := s.cloneProperties(ctx, domain.RoleCraving, &props); err != nil {
		return domain.CravingDnaProperties{}, err
	}
	return props, nil
}

// InitTime is the time the craving cell was installed, in unix milliseconds.
func (s *CravingService) InitTime(ctx context.Context) (int64, error) {
	var micros int64
	if err := s.Invoke(ctx, "get_init_time", nil, &micros); err != nil {
		return 0, err
	}
	return domain.MicrosToMillis(micros), nil
}

// Associations

func (s *CravingService) CreateAssociation(ctx context.Context, association domain.Association) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_association", association, &record)
	return record, err
}

func (s *CravingService) GetAssociation(ctx context.Context, entryHash domain.EntryHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_association", entryHash, &record)
	return record, err
}

func (s *CravingService) GetAssociationByActionHash(ctx context.Context, actionHash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_association_by_action_hash", actionHash, &record)
	return record, err
}

// GetAllAssociations returns associations deduplicated by entry hash.
func (s *CravingService) GetAllAssociations(ctx context.Context) ([]domain.Record, error) {
	return s.records(ctx, "get_all_associations", nil)
}

// GetAllAssociationActions returns every create action, duplicates included.
func (s *CravingService) GetAllAssociationActions(ctx context.Context) ([]domain.Record, error) {
	return s.records(ctx, "get_all_association_actions", nil)
}

// Reflections

func (s *CravingService) CreateReflection(ctx context.Context, reflection domain.Reflection) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_reflection", reflection, &record)
	return record, err
}

func (s *CravingService) GetReflection(ctx context.Context, originalHash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_reflection", originalHash, &record)
	return record, err
}

func (s *CravingService) UpdateReflection(ctx context.Context, input domain.UpdateReflectionInput) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "update_reflection", input, &record)
	return record, err
}

func (s *CravingService) DeleteReflection(ctx context.Context, originalHash domain.ActionHash) (domain.ActionHash, error) {
	var hash domain.ActionHash
	err := s.Invoke(ctx, "delete_reflection", originalHash, &hash)
	return hash, err
}

func (s *CravingService) GetAllReflections(ctx context.Context) ([]domain.Record, error) {
	return s.records(ctx, "get_all_reflections", nil)
}

// Offers

func (s *CravingService) CreateOffer(ctx context.Context, offer domain.Offer) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_offer", offer, &record)
	return record, err
}

func (s *CravingService) GetOffer(ctx context.Context, originalHash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_offer", originalHash, &record)
	return record, err
}

func (s *CravingService) UpdateOffer(ctx context.Context, input domain.UpdateOfferInput) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "update_offer", input, &record)
	return record, err
}

func (s *CravingService) DeleteOffer(ctx context.Context, originalHash domain.ActionHash) (domain.ActionHash, error) {
	var hash domain.ActionHash
	err := s.Invoke(ctx, "delete_offer", originalHash, &hash)
	return hash, err
}

func (s *CravingService) GetAllOffers(ctx context.Context) ([]domain.Record, error) {
	return s.records(ctx, "get_all_offers", nil)
}

func (s *CravingService) GetAllOfferActions(ctx context.Context) ([]domain.Record, error) {
	return s.records(ctx, "get_all_offer_actions", nil)
}

// Anecdotes

func (s *CravingService) CreateAnecdote(ctx context.Context, anecdote domain.Anecdote) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_anecdote", anecdote, &record)
	return record, err
}

func (s *CravingService) GetAnecdote(ctx context.Context, originalHash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_anecdote", originalHash, &record)
	return record, err
}

func (s *CravingService) UpdateAnecdote(ctx context.Context, input domain.UpdateAnecdoteInput) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "update_anecdote", input, &record)
	return record, err
}

func (s *CravingService) DeleteAnecdote(ctx context.Context, originalHash domain.ActionHash) (domain.ActionHash, error) {
	var hash domain.ActionHash
	err := s.Invoke(ctx, "delete_anecdote", originalHash, &hash)
	return hash, err
}

func (s *CravingService) GetAllAnecdotes(ctx context.Context) ([]domain.Record, error) {
	return s.records(ctx, "get_all_anecdotes", nil)
}

// Comments on offers

func (s *CravingService) CreateCommentOnOffer(ctx context.Context, comment domain.CommentOnOffer) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_comment_on_offer", comment, &record)
	return record, err
}

func (s *CravingService) GetCommentOnOffer(ctx context.Context, originalHash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_comment_on_offer", originalHash, &record)
	return record, err
}

func (s *CravingService) UpdateCommentOnOffer(ctx context.Context, input domain.UpdateCommentOnOfferInput) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "update_comment_on_offer", input, &record)
	return record, err
}

func (s *CravingService) DeleteCommentOnOffer(ctx context.Context, originalHash domain.ActionHash) (domain.ActionHash, error) {
	var hash domain.ActionHash
	err := s.Invoke(ctx, "delete_comment_on_offer", originalHash, &hash)
	return hash, err
}

func (s *CravingService) GetCommentsOnOffer(ctx context.Context, offerHash domain.ActionHash) ([]domain.Record, error) {
	return s.records(ctx, "get_comment_on_offers_for_offer", offerHash)
}

// Comments on reflections

func (s *CravingService) CreateCommentOnReflection(ctx context.Context, comment domain.CommentOnReflection) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "create_comment_on_reflection", comment, &record)
	return record, err
}

func (s *CravingService) GetCommentOnReflection(ctx context.Context, originalHash domain.ActionHash) (*domain.Record, error) {
	var record *domain.Record
	err := s.Invoke(ctx, "get_comment_on_reflection", originalHash, &record)
	return record, err
}

func (s *CravingService) UpdateCommentOnReflection(ctx context.Context, input domain.UpdateCommentOnReflectionInput) (domain.Record, error) {
	var record domain.Record
	err := s.Invoke(ctx, "update_comment_on_reflection", input, &record)
	return record, err
}

func (s *CravingService) DeleteCommentOnReflection(ctx context.Context, originalHash domain.ActionHash) (domain.ActionHash, error) {
	var hash domain.ActionHash
	err := s.Invoke(ctx, "delete_comment_on_reflection", originalHash, &hash)
	return hash, err
}

func (s *CravingService) GetCommentsOnReflection(ctx context.Context, reflectionHash domain.ActionHash) ([]domain.Record, error) {
	return s.records(ctx, "get_comment_on_reflections_for_reflection", reflectionHash)
}

// Resonators

func (s *CravingService) AddResonatorForEntry(ctx context.Context, entryHash domain.EntryHash) error {
	return s.Invoke(ctx, "add_resonator_for_entry", entryHash, nil)
}

func (s *CravingService) RemoveResonatorForEntry(ctx context.Context, entryHash domain.EntryHash) error {
	return s.Invoke(ctx, "remove_resonator_for_entry", entryHash, nil)
}

func (s *CravingService) GetResonatorsForEntry(ctx context.Context, entryHash domain.EntryHash) ([]domain.AgentPubKey, error) {
	var agents []domain.AgentPubKey
	err := s.Invoke(ctx, "get_resonators_for_entry", entryHash, &agents)
	return agents, err
}

func (s *CravingService) AddResonatorForAction(ctx context.Context, actionHash domain.ActionHash) error {
	return s.Invoke(ctx, "add_resonator_for_action", actionHash, nil)
}

func (s *CravingService) RemoveResonatorForAction(ctx context.Context, actionHash domain.ActionHash) error {
	return s.Invoke(ctx, "remove_resonator_for_action", actionHash, nil)
}

func (s *CravingService) GetResonatorsForAction(ctx context.Context, actionHash domain.ActionHash) ([]domain.AgentPubKey, error) {
	var agents []domain.AgentPubKey
	err := s.Invoke(ctx, "get_resonators_for_action", actionHash, &agents)
	return agents, err
}

func (s *CravingService) records(ctx context.Context, fn string, payload any) ([]domain.Record, error) {
	var records []domain.Record
	if err := s.Invoke(ctx, fn, payload, &records); err != nil {
		return nil, err
	}
	return records, nil
}
