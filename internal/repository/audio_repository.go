package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parrotlabs/voiceforge/internal/models"
)

type AudioRepository struct {
	db *sql.DB
}

func NewAudioRepository(db *sql.DB) *AudioRepository {
	return &AudioRepository{db: db}
}

func (r *AudioRepository) Create(ctx context.Context, a *models.GeneratedAudio) error {
	const query = `
INSERT INTO generated_audio (id, user_id, voice_model_id, text, audio_url)
VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.UserID, a.VoiceModelID, a.Text, a.AudioURL); err != nil {
		return fmt.Errorf("insert generated audio: %w", err)
	}
	return nil
}

func (r *AudioRepository) ListByUser(ctx context.Context, userID int64) ([]models.GeneratedAudio, error) {
	const query = `
SELECT id, user_id, voice_model_id, text, audio_url, created_at
FROM generated_audio WHERE user_id = ?
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list generated audio: %w", err)
	}
	defer rows.Close()

	var list []models.GeneratedAudio
	for rows.Next() {
		var a models.GeneratedAudio
		if err := rows.Scan(&a.ID, &a.UserID, &a.VoiceModelID, &a.Text, &a.AudioURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generated audio: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
