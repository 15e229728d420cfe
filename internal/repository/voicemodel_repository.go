package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parrotlabs/voiceforge/internal/models"
)

type VoiceModelRepository struct {
	db *sql.DB
}

func NewVoiceModelRepository(db *sql.DB) *VoiceModelRepository {
	return &VoiceModelRepository{db: db}
}

func (r *VoiceModelRepository) Create(ctx context.Context, m *models.VoiceModel) error {
	const query = `
INSERT INTO voice_models (id, user_id, provider_model_id, title, state)
VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.UserID, m.ProviderModelID, m.Title, m.State); err != nil {
		return fmt.Errorf("insert voice model: %w", err)
	}
	return nil
}

func (r *VoiceModelRepository) GetByID(ctx context.Context, id string) (*models.VoiceModel, error) {
	const query = `
SELECT id, user_id, provider_model_id, title, state, created_at, updated_at
FROM voice_models WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var m models.VoiceModel
	if err := row.Scan(&m.ID, &m.UserID, &m.ProviderModelID, &m.Title, &m.State, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan voice model: %w", err)
	}
	return &m, nil
}

func (r *VoiceModelRepository) ListByUser(ctx context.Context, userID int64) ([]models.VoiceModel, error) {
	const query = `
SELECT id, user_id, provider_model_id, title, state, created_at, updated_at
FROM voice_models WHERE user_id = ?
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list voice models: %w", err)
	}
	defer rows.Close()

	var list []models.VoiceModel
	for rows.Next() {
		var m models.VoiceModel
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProviderModelID, &m.Title, &m.State, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan voice model list: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *VoiceModelRepository) UpdateState(ctx context.Context, id string, state models.VoiceModelState) error {
	const query = `UPDATE voice_models SET state = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, state, id); err != nil {
		return fmt.Errorf("update voice model state: %w", err)
	}
	return nil
}

func (r *VoiceModelRepository) UpdateTitle(ctx context.Context, id, title string) error {
	const query = `UPDATE voice_models SET title = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, title, id); err != nil {
		return fmt.Errorf("update voice model title: %w", err)
	}
	return nil
}

func (r *VoiceModelRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM voice_models WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete voice model: %w", err)
	}
	return nil
}
