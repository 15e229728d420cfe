package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/parrotlabs/voiceforge/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sql.DB {
	return r.db
}

func (r *UserRepository) FindByWhopID(ctx context.Context, whopUserID string) (*models.User, error) {
	const query = `
SELECT id, whop_user_id, whop_experience_id, credits, created_at, updated_at
FROM users WHERE whop_user_id = ?`
	row := r.db.QueryRowContext(ctx, query, whopUserID)
	var u models.User
	if err := row.Scan(&u.ID, &u.WhopUserID, &u.WhopExperienceID, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (whop_user_id, whop_experience_id, credits)
VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, user.WhopUserID, user.WhopExperienceID, user.Credits)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	return user, nil
}

// Ensure returns the user for the given Whop identity, creating the row on
// first authenticated access. The bool reports whether a row was created.
func (r *UserRepository) Ensure(ctx context.Context, whopUserID, whopExperienceID string, signupBonus int) (*models.User, bool, error) {
	user, err := r.FindByWhopID(ctx, whopUserID)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}
	created, err := r.Create(ctx, &models.User{
		WhopUserID:       whopUserID,
		WhopExperienceID: whopExperienceID,
		Credits:          signupBonus,
	})
	if err == nil {
		return created, true, nil
	}

	// A new user's first page load fires several requests at once; all can
	// pass the lookup before any insert lands. The losers hit the unique key
	// on whop_user_id and adopt the winner's row.
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		user, findErr := r.FindByWhopID(ctx, whopUserID)
		if findErr != nil {
			return nil, false, findErr
		}
		if user != nil {
			return user, false, nil
		}
	}
	return nil, false, err
}

// Credits returns the current balance. sql.ErrNoRows is surfaced to the caller
// so the service layer can map unknown users to its not-found error.
func (r *UserRepository) Credits(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT credits FROM users WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var credits int
	if err := row.Scan(&credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("scan credits: %w", err)
	}
	return credits, nil
}

// DebitCredits decrements the balance by amount iff the balance covers it.
// The check and the mutation are one conditional statement, so concurrent
// debits cannot interleave between a read and a write; a false return is the
// expected insufficient-balance outcome, not an error.
func (r *UserRepository) DebitCredits(ctx context.Context, userID int64, amount int) (bool, error) {
	const query = `
UPDATE users SET credits = credits - ?, updated_at = NOW()
WHERE id = ? AND credits >= ?`
	res, err := r.db.ExecContext(ctx, query, amount, userID, amount)
	if err != nil {
		return false, fmt.Errorf("debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("debit rows affected: %w", err)
	}
	return affected > 0, nil
}

const addCreditsQuery = `
UPDATE users SET credits = credits + ?, updated_at = NOW()
WHERE id = ?`

// AddCredits increments the balance. The same single-statement relative update
// is used as for debits so credits never race a concurrent mutation through a
// stale in-memory value.
func (r *UserRepository) AddCredits(ctx context.Context, userID int64, amount int) error {
	if _, err := r.db.ExecContext(ctx, addCreditsQuery, amount, userID); err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	return nil
}

// AddCreditsTx is AddCredits inside the caller's transaction, used by the
// purchase confirmation flow so the idempotency insert and the credit commit
// together.
func (r *UserRepository) AddCreditsTx(ctx context.Context, tx *sql.Tx, userID int64, amount int) error {
	if _, err := tx.ExecContext(ctx, addCreditsQuery, amount, userID); err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	return nil
}
