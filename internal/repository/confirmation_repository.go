package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/parrotlabs/voiceforge/internal/models"
)

// ErrAlreadyProcessed reports that a confirmation with the same correlation id
// has already been applied. Callers treat it as a successful no-op.
var ErrAlreadyProcessed = errors.New("confirmation already processed")

const mysqlErrDuplicateEntry = 1062

type ConfirmationRepository struct {
	db *sql.DB
}

func NewConfirmationRepository(db *sql.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

func (r *ConfirmationRepository) DB() *sql.DB {
	return r.db
}

// InsertTx appends the confirmation row inside the caller's transaction.
// A uniqueness conflict on correlation_id means the purchase was already
// credited through this or the other channel and maps to ErrAlreadyProcessed.
func (r *ConfirmationRepository) InsertTx(ctx context.Context, tx *sql.Tx, c *models.ProcessedConfirmation) error {
	const query = `
INSERT INTO processed_confirmations (correlation_id, user_id, package_id, credits, source)
VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, c.CorrelationID, c.UserID, c.PackageID, c.Credits, c.Source); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("insert confirmation: %w", err)
	}
	return nil
}

func (r *ConfirmationRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*models.ProcessedConfirmation, error) {
	const query = `
SELECT id, correlation_id, user_id, package_id, credits, source, processed_at
FROM processed_confirmations WHERE correlation_id = ?`
	row := r.db.QueryRowContext(ctx, query, correlationID)
	var c models.ProcessedConfirmation
	if err := row.Scan(&c.ID, &c.CorrelationID, &c.UserID, &c.PackageID, &c.Credits, &c.Source, &c.ProcessedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan confirmation: %w", err)
	}
	return &c, nil
}
