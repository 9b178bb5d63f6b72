package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ceebrain-identity/internal/domain"
)

// AdminRepository define el contrato de persistencia para administradores.
type AdminRepository interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, admin domain.Admin) error
	GetByID(ctx context.Context, id string) (domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (domain.Admin, error)
	SetResetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	// UpdatePassword guarda el nuevo hash y descarta cualquier OTP de reseteo.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PgAdminRepository implementa AdminRepository usando pgxpool.
type PgAdminRepository struct {
	pool *pgxpool.Pool
}

func NewPgAdminRepository(pool *pgxpool.Pool) *PgAdminRepository {
	return &PgAdminRepository{pool: pool}
}

func (r *PgAdminRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

func (r *PgAdminRepository) Create(ctx context.Context, admin domain.Admin) error {
	const query = `
		INSERT INTO admins (id, name, number, email, password_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		admin.ID,
		admin.Name,
		admin.Number,
		admin.Email,
		admin.PasswordHash,
		string(admin.Role),
		admin.Active,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	return wrapPgError(err)
}

func (r *PgAdminRepository) GetByID(ctx context.Context, id string) (domain.Admin, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PgAdminRepository) GetByEmail(ctx context.Context, email string) (domain.Admin, error) {
	return r.getOne(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *PgAdminRepository) SetResetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET reset_otp_hash = $2, reset_otp_expiry = $3, updated_at = $4 WHERE id = $1`,
		id, otpHash, expiresAt, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins SET password_hash = $2, reset_otp_hash = NULL, reset_otp_expiry = NULL, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAdminRepository) getOne(ctx context.Context, where string, arg any) (domain.Admin, error) {
	query := `
		SELECT id, name, number, email, password_hash, role, active,
		       reset_otp_hash, reset_otp_expiry, created_at, updated_at
		FROM admins ` + where
	var (
		a         domain.Admin
		resetHash *string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Name,
		&a.Number,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Active,
		&resetHash,
		&a.ResetOTPExpiry,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Admin{}, ErrNotFound
	}
	if err != nil {
		return domain.Admin{}, err
	}
	if resetHash != nil {
		a.ResetOTPHash = *resetHash
	}
	return a, nil
}
