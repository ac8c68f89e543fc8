// AngelaMos | 2026
// repository_test.go

package otp

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepository_IssueInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext`).
		WithArgs(core.RoleHousehold, "a@b.com", PurposeRegistration).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE verification_codes`).
		WithArgs(core.RoleHousehold, "a@b.com", PurposeRegistration).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO verification_codes`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectCommit()

	code := &Code{
		ID:         "c1",
		Role:       core.RoleHousehold,
		Identifier: "a@b.com",
		CodeHash:   core.HashToken("123456"),
		Purpose:    PurposeRegistration,
		ExpiresAt:  created.Add(10 * time.Minute),
	}

	var invalidated int64
	err := repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		n, err := tx.InvalidateActive(ctx, code.Role, code.Identifier, code.Purpose)
		if err != nil {
			return err
		}
		invalidated = n
		return tx.Create(ctx, code)
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, invalidated)
	require.Equal(t, created, code.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SecondLiveCodeRejected(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO verification_codes`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_verification_codes_active"})

	err := repo.Create(context.Background(), &Code{
		ID: "c2", Role: core.RoleWorker, Identifier: "+250788000000", Purpose: PurposeRegistration,
	})
	require.ErrorIs(t, err, core.ErrDuplicateKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InvalidateLockFailureStops(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.InvalidateActive(context.Background(), core.RoleWorker, "+250788000000", PurposeRegistration)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindActiveNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM verification_codes`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindActive(
		context.Background(), core.RoleWorker, "+250788000000", "hash", PurposePasswordReset,
	)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindActiveScansRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	expires := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "role", "identifier", "code_hash", "purpose", "expires_at",
		"used", "used_at", "created_at",
	}).AddRow(
		"c1", "worker", "+250788000000", "hash", "password_reset", expires,
		false, nil, expires.Add(-15*time.Minute),
	)
	mock.ExpectQuery(`FROM verification_codes`).
		WithArgs(core.RoleWorker, "+250788000000", "hash", PurposePasswordReset).
		WillReturnRows(rows)

	code, err := repo.FindActive(
		context.Background(), core.RoleWorker, "+250788000000", "hash", PurposePasswordReset,
	)
	require.NoError(t, err)
	require.Equal(t, "c1", code.ID)
	require.Equal(t, PurposePasswordReset, code.Purpose)
	require.Nil(t, code.UsedAt)
}

func TestRepository_MarkUsedRace(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE verification_codes`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkUsed(context.Background(), "c1")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepository_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_codes`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx Repository) error {
		require.NotNil(t, core.TxFromContext(ctx))
		if err := tx.MarkUsed(ctx, "c1"); err != nil {
			return err
		}
		return core.ErrCodeExpired
	})
	require.ErrorIs(t, err, core.ErrCodeExpired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CountOutstanding(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT purpose, COUNT\(\*\) AS n`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"purpose", "n"}).
			AddRow("registration", 3).
			AddRow("password_reset", 1))

	counts, err := repo.CountOutstanding(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, map[Purpose]int{PurposeRegistration: 3, PurposePasswordReset: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
