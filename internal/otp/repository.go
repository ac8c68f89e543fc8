// AngelaMos | 2026
// repository.go

package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

type Repository interface {
	InvalidateActive(
		ctx context.Context,
		role core.Role,
		identifier string,
		purpose Purpose,
	) (int64, error)
	Create(ctx context.Context, code *Code) error
	FindActive(
		ctx context.Context,
		role core.Role,
		identifier, codeHash string,
		purpose Purpose,
	) (*Code, error)
	MarkUsed(ctx context.Context, id string) error
	// CountOutstanding counts unconsumed, unexpired codes per purpose.
	CountOutstanding(ctx context.Context, now time.Time) (map[Purpose]int, error)
	WithTx(
		ctx context.Context,
		fn func(ctx context.Context, repo Repository) error,
	) error
}

type repository struct {
	db core.DBTX
	tx core.TxBeginner
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, tx: db}
}

// WithTx runs fn in a transaction. The context passed to fn carries the
// transaction so other repositories can join it through core.Conn.
func (r *repository) WithTx(
	ctx context.Context,
	fn func(ctx context.Context, repo Repository) error,
) error {
	if r.tx == nil {
		return fn(ctx, r)
	}

	return core.InTx(ctx, r.tx, func(tx *sqlx.Tx) error {
		return fn(core.ContextWithTx(ctx, tx), &repository{db: tx})
	})
}

// InvalidateActive takes a transaction-scoped advisory lock on
// (role, identifier, purpose) before retiring live codes, so concurrent
// issuers for the same key run one after the other. Call it inside WithTx.
func (r *repository) InvalidateActive(
	ctx context.Context,
	role core.Role,
	identifier string,
	purpose Purpose,
) (int64, error) {
	lock := `SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text || ':' || $3::text))`
	if _, err := r.db.ExecContext(ctx, lock, role, identifier, purpose); err != nil {
		return 0, fmt.Errorf("lock codes: %w", err)
	}

	query := `
		UPDATE verification_codes
		SET used = true, used_at = NOW()
		WHERE role = $1 AND identifier = $2 AND purpose = $3 AND used = false`

	result, err := r.db.ExecContext(ctx, query, role, identifier, purpose)
	if err != nil {
		return 0, fmt.Errorf("invalidate codes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("invalidate codes: %w", err)
	}

	return rows, nil
}

func (r *repository) Create(ctx context.Context, code *Code) error {
	query := `
		INSERT INTO verification_codes (
			id, role, identifier, code_hash, purpose, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &code.CreatedAt, query,
		code.ID,
		code.Role,
		code.Identifier,
		code.CodeHash,
		code.Purpose,
		code.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create code: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create code: %w", err)
	}

	return nil
}

func (r *repository) FindActive(
	ctx context.Context,
	role core.Role,
	identifier, codeHash string,
	purpose Purpose,
) (*Code, error) {
	query := `
		SELECT
			id, role, identifier, code_hash, purpose, expires_at,
			used, used_at, created_at
		FROM verification_codes
		WHERE role = $1 AND identifier = $2 AND code_hash = $3
			AND purpose = $4 AND used = false
		ORDER BY created_at DESC
		LIMIT 1`

	var code Code
	err := r.db.GetContext(ctx, &code, query, role, identifier, codeHash, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find code: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find code: %w", err)
	}

	return &code, nil
}

func (r *repository) MarkUsed(ctx context.Context, id string) error {
	query := `
		UPDATE verification_codes
		SET used = true, used_at = NOW()
		WHERE id = $1 AND used = false`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("mark code used: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountOutstanding(
	ctx context.Context,
	now time.Time,
) (map[Purpose]int, error) {
	query := `
		SELECT purpose, COUNT(*) AS n
		FROM verification_codes
		WHERE used = false AND expires_at > $1
		GROUP BY purpose`

	var rows []struct {
		Purpose Purpose `db:"purpose"`
		N       int     `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("count outstanding codes: %w", err)
	}

	counts := make(map[Purpose]int, len(rows))
	for _, row := range rows {
		counts[row.Purpose] = row.N
	}
	return counts, nil
}
