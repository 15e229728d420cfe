package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestDebitCreditsSufficientBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`
UPDATE users SET credits = credits - ?, updated_at = NOW()
WHERE id = ? AND credits >= ?`)).
		WithArgs(1, int64(7), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	ok, err := repo.DebitCredits(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected debit to succeed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDebitCreditsInsufficientBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	// The conditional update matches no rows when the balance cannot cover
	// the amount; that is the expected outcome, not an error.
	mock.ExpectExec("UPDATE users SET credits = credits -").
		WithArgs(3, int64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	ok, err := repo.DebitCredits(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected debit to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddCredits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET credits = credits \\+").
		WithArgs(25, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	if err := repo.AddCredits(context.Background(), 7, 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreditsUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT credits FROM users").
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	repo := NewUserRepository(db)
	_, err = repo.Credits(context.Background(), 404)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestEnsureCreatesMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, whop_user_id").
		WithArgs("user_abc").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user_abc", "exp_1", 3).
		WillReturnResult(sqlmock.NewResult(42, 1))

	repo := NewUserRepository(db)
	user, created, err := repo.Ensure(context.Background(), "user_abc", "exp_1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected user to be created")
	}
	if user.ID != 42 {
		t.Fatalf("expected id 42, got %d", user.ID)
	}
	if user.Credits != 3 {
		t.Fatalf("expected signup bonus of 3, got %d", user.Credits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureAdoptsRowOnProvisioningRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	// A first page load fires several authenticated requests at once; this
	// request loses the insert race and must adopt the winner's row instead
	// of surfacing the unique key violation.
	now := time.Now()
	mock.ExpectQuery("SELECT id, whop_user_id").
		WithArgs("user_abc").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user_abc", "exp_1", 3).
		WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectQuery("SELECT id, whop_user_id").
		WithArgs("user_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "whop_user_id", "whop_experience_id", "credits", "created_at", "updated_at"}).
			AddRow(int64(42), "user_abc", "exp_1", 3, now, now))

	repo := NewUserRepository(db)
	user, created, err := repo.Ensure(context.Background(), "user_abc", "exp_1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("losing the insert race must not report a creation")
	}
	if user.ID != 42 {
		t.Fatalf("expected the winner's row, got id %d", user.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureReturnsExistingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, whop_user_id").
		WithArgs("user_abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "whop_user_id", "whop_experience_id", "credits", "created_at", "updated_at"}).
			AddRow(int64(7), "user_abc", "exp_1", 12, now, now))

	repo := NewUserRepository(db)
	user, created, err := repo.Ensure(context.Background(), "user_abc", "exp_1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected existing user, got created")
	}
	if user.Credits != 12 {
		t.Fatalf("expected stored balance 12, got %d", user.Credits)
	}
}
