package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ceebrain-identity/internal/domain"
)

// OTPRepository persiste un unico OTP por numero movil.
type OTPRepository interface {
	// Upsert sobrescribe codigo y vencimiento y reinicia los intentos fallidos.
	Upsert(ctx context.Context, record domain.OTPRecord) error
	GetByMobile(ctx context.Context, mobile string) (domain.OTPRecord, error)
	// IncrementWrongAttempts suma un intento fallido y devuelve el total resultante.
	IncrementWrongAttempts(ctx context.Context, mobile string) (int, error)
	Delete(ctx context.Context, mobile string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PgOTPRepository implementa OTPRepository usando pgxpool.
type PgOTPRepository struct {
	pool *pgxpool.Pool
}

func NewPgOTPRepository(pool *pgxpool.Pool) *PgOTPRepository {
	return &PgOTPRepository{pool: pool}
}

func (r *PgOTPRepository) Upsert(ctx context.Context, record domain.OTPRecord) error {
	const query = `
		INSERT INTO otps (mobile_number, code_hash, expiry_time, wrong_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (mobile_number) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expiry_time = EXCLUDED.expiry_time,
		    wrong_attempts = 0,
		    updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, record.MobileNumber, record.CodeHash, record.ExpiryTime, record.UpdatedAt)
	return err
}

func (r *PgOTPRepository) GetByMobile(ctx context.Context, mobile string) (domain.OTPRecord, error) {
	const query = `
		SELECT mobile_number, code_hash, expiry_time, wrong_attempts, created_at, updated_at
		FROM otps
		WHERE mobile_number = $1
	`
	var rec domain.OTPRecord
	err := r.pool.QueryRow(ctx, query, mobile).Scan(
		&rec.MobileNumber,
		&rec.CodeHash,
		&rec.ExpiryTime,
		&rec.WrongAttempts,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OTPRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *PgOTPRepository) IncrementWrongAttempts(ctx context.Context, mobile string) (int, error) {
	const query = `
		UPDATE otps SET wrong_attempts = wrong_attempts + 1, updated_at = $2
		WHERE mobile_number = $1
		RETURNING wrong_attempts
	`
	var attempts int
	err := r.pool.QueryRow(ctx, query, mobile, time.Now().UTC()).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return attempts, err
}

func (r *PgOTPRepository) Delete(ctx context.Context, mobile string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE mobile_number = $1`, mobile)
	return err
}

func (r *PgOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expiry_time < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
