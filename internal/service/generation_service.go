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

// Synthesizer is the external text-to-speech call. Satisfied by
// *fishaudio.Client.
type Synthesizer interface {
	TextToSpeech(ctx context.Context, req fishaudio.TTSRequest) ([]byte, error)
}

// AudioStore persists generated audio and returns a public URL. Satisfied by
// *storage.Uploader.
type AudioStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

type GenerationService struct {
	log   *slog.Logger
	users *repository.UserRepository
	voice *repository.VoiceModelRepository
	audio *repository.AudioRepository
	synth Synthesizer
	store AudioStore
}

type GenerationRequest struct {
	Text         string
	VoiceModelID string
}

type GenerationResult struct {
	Audio    models.GeneratedAudio
	AudioMP3 []byte
}

func NewGenerationService(log *slog.Logger, users *repository.UserRepository, voice *repository.VoiceModelRepository, audio *repository.AudioRepository, synth Synthesizer, store AudioStore) *GenerationService {
	return &GenerationService{
		log:   log,
		users: users,
		voice: voice,
		audio: audio,
		synth: synth,
		store: store,
	}
}

// Generate runs one paid speech generation. A credit is reserved with an
// atomic debit before the synthesis call and refunded if synthesis fails, so
// a user is never charged for a failed generation and two requests racing for
// the last credit cannot both reach the provider.
func (s *GenerationService) Generate(ctx context.Context, user *models.User, req GenerationRequest) (*GenerationResult, error) {
	if req.Text == "" || req.VoiceModelID == "" {
		return nil, fmt.Errorf("%w: text and voice model id are required", ErrInvalidInput)
	}

	model, err := s.voice.GetByID(ctx, req.VoiceModelID)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("%w: voice model %s", ErrNotFound, req.VoiceModelID)
	}
	if model.UserID != user.ID {
		return nil, fmt.Errorf("%w: voice model %s", ErrForbidden, req.VoiceModelID)
	}
	if model.State != models.StateTrained {
		return nil, fmt.Errorf("%w: state=%s", ErrModelNotReady, model.State)
	}

	// Advisory preflight: skip the reservation when clearly unaffordable.
	credits, err := s.users.Credits(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if credits < 1 {
		return nil, ErrInsufficientCredits
	}

	// Reserve. The conditional debit is the real gate; the preflight above
	// can always be outdated by a concurrent request.
	debited, err := s.users.DebitCredits(ctx, user.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("reserve credit: %w", err)
	}
	if !debited {
		return nil, ErrInsufficientCredits
	}

	audioBytes, err := s.synth.TextToSpeech(ctx, fishaudio.TTSRequest{
		Text:        req.Text,
		ReferenceID: model.ProviderModelID,
		Format:      "mp3",
	})
	if err != nil {
		if refundErr := s.users.AddCredits(ctx, user.ID, 1); refundErr != nil {
			s.log.Error("failed to refund reserved credit", "user_id", user.ID, "err", refundErr)
		}
		return nil, fmt.Errorf("%w: text to speech: %v", ErrExternalService, err)
	}

	audioURL, err := s.store.Upload(ctx, audioBytes, "audio/mpeg")
	if err != nil {
		// The credit was consumed by a successful synthesis; the bytes are
		// still returned inline even when the object store is unavailable.
		s.log.Error("failed to upload generated audio", "user_id", user.ID, "err", err)
		audioURL = ""
	}

	record := models.GeneratedAudio{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		VoiceModelID: model.ID,
		Text:         req.Text,
		AudioURL:     audioURL,
	}
	if err := s.audio.Create(ctx, &record); err != nil {
		s.log.Error("failed to persist generation record", "user_id", user.ID, "err", err)
	}

	return &GenerationResult{Audio: record, AudioMP3: audioBytes}, nil
}

// History lists the caller's previous generations.
func (s *GenerationService) History(ctx context.Context, userID int64) ([]models.GeneratedAudio, error) {
	list, err := s.audio.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return list, nil
}
