// AngelaMos | 2026
// repository.go

package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, role core.Role, id string) (*Identity, error)
	GetByEmail(ctx context.Context, role core.Role, email string) (*Identity, error)
	GetByPhone(ctx context.Context, role core.Role, phone string) (*Identity, error)
	UpdateProfile(ctx context.Context, identity *Identity) error
	UpdatePassword(ctx context.Context, role core.Role, id, passwordHash string) error
	UpdateStatus(ctx context.Context, role core.Role, id string, status core.Status) error
	Activate(ctx context.Context, role core.Role, id string) error
	MarkEmailVerified(ctx context.Context, role core.Role, id string) error
	List(ctx context.Context, role core.Role, params ListParams) ([]Identity, int, error)
	Count(ctx context.Context, role core.Role) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectColumns = `id, COALESCE(email, '') AS email, COALESCE(phone, '') AS phone,
		       name, password_hash, status, verification_status,
		       created_at, updated_at`

func table(role core.Role) (string, error) {
	t := role.Table()
	if t == "" {
		return "", fmt.Errorf("identity table for %q: %w", role, core.ErrInvalidInput)
	}
	return t, nil
}

func (r *repository) Create(ctx context.Context, identity *Identity) error {
	t, err := table(identity.Role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, email, phone, name, password_hash, status, verification_status
		) VALUES (
			$1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7
		)
		RETURNING created_at, updated_at`, t)

	err = core.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		identity.ID,
		identity.Email,
		identity.Phone,
		identity.Name,
		identity.PasswordHash,
		identity.Status,
		identity.VerificationStatus,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if field := duplicateField(err); field != "" {
			return fmt.Errorf("create %s: %w", identity.Role, &core.FieldConflict{Field: field})
		}
		return fmt.Errorf("create %s: %w", identity.Role, err)
	}

	return nil
}

func (r *repository) getOne(
	ctx context.Context,
	role core.Role,
	column, value string,
) (*Identity, error) {
	t, err := table(role)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1`, selectColumns, t, column)

	var identity Identity
	err = core.Conn(ctx, r.db).GetContext(ctx, &identity, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s by %s: %w", role, column, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", role, column, err)
	}

	identity.Role = role
	return &identity, nil
}

func (r *repository) GetByID(
	ctx context.Context,
	role core.Role,
	id string,
) (*Identity, error) {
	return r.getOne(ctx, role, "id", id)
}

func (r *repository) GetByEmail(
	ctx context.Context,
	role core.Role,
	email string,
) (*Identity, error) {
	return r.getOne(ctx, role, "email", email)
}

func (r *repository) GetByPhone(
	ctx context.Context,
	role core.Role,
	phone string,
) (*Identity, error) {
	return r.getOne(ctx, role, "phone", phone)
}

func (r *repository) UpdateProfile(ctx context.Context, identity *Identity) error {
	t, err := table(identity.Role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, phone = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`, t)

	err = core.Conn(ctx, r.db).GetContext(ctx, &identity.UpdatedAt, query,
		identity.ID,
		identity.Name,
		identity.Phone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s: %w", identity.Role, core.ErrNotFound)
	}
	if err != nil {
		if field := duplicateField(err); field != "" {
			return fmt.Errorf("update %s: %w", identity.Role, &core.FieldConflict{Field: field})
		}
		return fmt.Errorf("update %s: %w", identity.Role, err)
	}

	return nil
}

func (r *repository) exec(
	ctx context.Context,
	op string,
	role core.Role,
	set, id string,
	args ...any,
) error {
	t, err := table(role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s, updated_at = NOW()
		WHERE id = $1`, t, set)

	result, err := core.Conn(ctx, r.db).ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	role core.Role,
	id, passwordHash string,
) error {
	return r.exec(ctx, "update password", role, "password_hash = $2", id, passwordHash)
}

func (r *repository) UpdateStatus(
	ctx context.Context,
	role core.Role,
	id string,
	status core.Status,
) error {
	return r.exec(ctx, "update status", role, "status = $2", id, status)
}

// Activate marks the identity verified and lifts it out of the verifying
// state. Suspended identities stay suspended.
func (r *repository) Activate(ctx context.Context, role core.Role, id string) error {
	return r.exec(ctx, "activate", role,
		`verification_status = $2,
		    status = CASE WHEN status = $3 THEN $4 ELSE status END`,
		id, core.VerificationVerified, core.StatusVerifying, core.StatusActive,
	)
}

func (r *repository) MarkEmailVerified(
	ctx context.Context,
	role core.Role,
	id string,
) error {
	return r.exec(ctx, "mark email verified", role, "verification_status = $2",
		id, core.VerificationVerified)
}

func (r *repository) List(
	ctx context.Context,
	role core.Role,
	params ListParams,
) ([]Identity, int, error) {
	t, err := table(role)
	if err != nil {
		return nil, 0, err
	}

	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d OR phone ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")
	db := core.Conn(ctx, r.db)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t, whereClause)
	var total int
	if err := db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", t, err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		selectColumns, t, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var identities []Identity
	if err := db.SelectContext(ctx, &identities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", t, err)
	}

	for i := range identities {
		identities[i].Role = role
		identities[i].PasswordHash = ""
	}

	return identities, total, nil
}

func (r *repository) Count(ctx context.Context, role core.Role) (int, error) {
	t, err := table(role)
	if err != nil {
		return 0, err
	}

	var total int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", t)
	if err := core.Conn(ctx, r.db).GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count %s: %w", t, err)
	}
	return total, nil
}

// duplicateField maps a unique violation to the column it hit, relying on
// the <table>_<column>_key constraint naming Postgres generates.
func duplicateField(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return ""
	}

	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email"
	case strings.Contains(pgErr.ConstraintName, "phone"):
		return "phone"
	}
	return "record"
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
