package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parrotlabs/voiceforge/internal/fishaudio"
	"github.com/parrotlabs/voiceforge/internal/models"
	"github.com/parrotlabs/voiceforge/internal/repository"
)

// VoiceProvider is the external voice model lifecycle. Satisfied by
// *fishaudio.Client.
type VoiceProvider interface {
	CreateModel(ctx context.Context, req fishaudio.CreateModelRequest) (*fishaudio.Model, error)
	GetModel(ctx context.Context, modelID string) (*fishaudio.Model, error)
	DeleteModel(ctx context.Context, modelID string) error
}

type VoiceModelService struct {
	log      *slog.Logger
	voice    *repository.VoiceModelRepository
	provider VoiceProvider
}

type CreateVoiceModelInput struct {
	Title    string
	Audio    []byte
	Filename string
}

func NewVoiceModelService(log *slog.Logger, voice *repository.VoiceModelRepository, provider VoiceProvider) *VoiceModelService {
	return &VoiceModelService{log: log, voice: voice, provider: provider}
}

// Create uploads a voice sample to the provider and records the new model.
func (s *VoiceModelService) Create(ctx context.Context, userID int64, input CreateVoiceModelInput) (*models.VoiceModel, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(input.Audio) == 0 {
		return nil, fmt.Errorf("%w: no audio file provided", ErrInvalidInput)
	}

	providerModel, err := s.provider.CreateModel(ctx, fishaudio.CreateModelRequest{
		Title:       input.Title,
		Description: "Voice model created by user",
		Audio:       input.Audio,
		Filename:    input.Filename,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create voice model: %v", ErrExternalService, err)
	}

	model := &models.VoiceModel{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProviderModelID: providerModel.ID,
		Title:           input.Title,
		State:           stateFromProvider(providerModel.State),
	}
	if err := s.voice.Create(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

// List returns the caller's models, refreshing training state from the
// provider. Refresh failures keep the stored state; listing still succeeds.
func (s *VoiceModelService) List(ctx context.Context, userID int64) ([]models.VoiceModel, error) {
	list, err := s.voice.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range list {
		providerModel, err := s.provider.GetModel(ctx, list[i].ProviderModelID)
		if err != nil {
			s.log.Warn("failed to refresh voice model state", "model_id", list[i].ID, "err", err)
			continue
		}
		state := stateFromProvider(providerModel.State)
		if state == list[i].State {
			continue
		}
		if err := s.voice.UpdateState(ctx, list[i].ID, state); err != nil {
			s.log.Error("failed to store voice model state", "model_id", list[i].ID, "err", err)
			continue
		}
		list[i].State = state
	}
	return list, nil
}

// Rename updates the model title after an ownership check.
func (s *VoiceModelService) Rename(ctx context.Context, userID int64, modelID, title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	model, err := s.ownedModel(ctx, userID, modelID)
	if err != nil {
		return err
	}
	return s.voice.UpdateTitle(ctx, model.ID, title)
}

// Delete removes the model locally and best-effort at the provider.
func (s *VoiceModelService) Delete(ctx context.Context, userID int64, modelID string) error {
	model, err := s.ownedModel(ctx, userID, modelID)
	if err != nil {
		return err
	}

	if err := s.provider.DeleteModel(ctx, model.ProviderModelID); err != nil {
		s.log.Warn("failed to delete provider model", "model_id", model.ID, "err", err)
	}
	return s.voice.Delete(ctx, model.ID)
}

func (s *VoiceModelService) ownedModel(ctx context.Context, userID int64, modelID string) (*models.VoiceModel, error) {
	model, err := s.voice.GetByID(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("%w: voice model %s", ErrNotFound, modelID)
	}
	if model.UserID != userID {
		return nil, fmt.Errorf("%w: voice model %s", ErrForbidden, modelID)
	}
	return model, nil
}

func stateFromProvider(state string) models.VoiceModelState {
	switch state {
	case "trained":
		return models.StateTrained
	case "training":
		return models.StateTraining
	case "failed":
		return models.StateFailed
	default:
		return models.StateCreated
	}
}
