package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ceebrain-identity/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByMobile(ctx context.Context, mobile string) (domain.User, error)
	ExistsByCeebrainID(ctx context.Context, ceebrainID string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)
	UpdateProfile(ctx context.Context, user domain.User) (domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
	UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, verifier *domain.Verifier) error
	IncrementLoginAttempts(ctx context.Context, id string, lockUntil *time.Time) error
	RestartLoginAttempts(ctx context.Context, id string) error
	ResetLoginAttempts(ctx context.Context, id string, lastLoginAt time.Time) error
}

// UserFilter agrupa busqueda, filtros, orden y paginacion del listado de usuarios.
type UserFilter struct {
	Search             string
	Status             domain.AccountStatus
	VerificationStatus domain.VerificationStatus
	SortBy             string
	SortDesc           bool
	Offset             int
	Limit              int
}

// Campos permitidos para ordenar, con su columna fisica.
var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"fullName":  "full_name",
	"email":     "email",
}

func sortColumn(sortBy string) string {
	if col, ok := userSortColumns[sortBy]; ok {
		return col
	}
	return "created_at"
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const pgUserColumns = `
	id, ceebrain_id, email, mobile_number, password_hash, auth_provider,
	full_name, date_of_birth, gender, identity_type, profile_image, address,
	below_poverty_line, underprivileged_category, verification_status, verified_by,
	consent_accepted, consent_accepted_at, status, role, last_login_at,
	login_attempts, lock_until, created_at, updated_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	address, err := json.Marshal(user.Address)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO users (` + pgUserColumns + `)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, NULLIF($10, ''), $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`
	_, err = r.pool.Exec(ctx, query,
		user.ID,
		user.CeebrainID,
		user.Email,
		user.MobileNumber,
		user.PasswordHash,
		string(user.AuthProvider),
		user.FullName,
		user.DateOfBirth,
		string(user.Gender),
		string(user.IdentityType),
		user.ProfileImage,
		address,
		user.BelowPovertyLine,
		user.Underprivileged,
		string(user.VerificationStatus),
		verifierJSON(user.VerifiedBy),
		user.ConsentAccepted,
		user.ConsentAcceptedAt,
		string(user.Status),
		user.Role,
		user.LastLoginAt,
		user.LoginAttempts,
		user.LockUntil,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return wrapPgError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *PgUserRepository) GetByMobile(ctx context.Context, mobile string) (domain.User, error) {
	return r.getOne(ctx, `WHERE mobile_number = $1`, mobile)
}

func (r *PgUserRepository) ExistsByCeebrainID(ctx context.Context, ceebrainID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE ceebrain_id = $1)`, ceebrainID).Scan(&exists)
	return exists, err
}

func (r *PgUserRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(full_name ILIKE $%[1]d OR email ILIKE $%[1]d OR mobile_number ILIKE $%[1]d
			OR ceebrain_id ILIKE $%[1]d OR address->>'city' ILIKE $%[1]d OR address->>'state' ILIKE $%[1]d)`, n))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.VerificationStatus != "" {
		args = append(args, string(filter.VerificationStatus))
		where = append(where, fmt.Sprintf("verification_status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "ASC"
	if filter.SortDesc {
		order = "DESC"
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		pgUserColumns, clause, sortColumn(filter.SortBy), order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, user domain.User) (domain.User, error) {
	address, err := json.Marshal(user.Address)
	if err != nil {
		return domain.User{}, err
	}
	const query = `
		UPDATE users
		SET full_name = $2, date_of_birth = $3, gender = $4, identity_type = NULLIF($5, ''),
		    profile_image = $6, address = $7, below_poverty_line = $8,
		    underprivileged_category = $9, updated_at = $10
		WHERE id = $1
		RETURNING ` + pgUserColumns
	row := r.pool.QueryRow(ctx, query,
		user.ID,
		user.FullName,
		user.DateOfBirth,
		string(user.Gender),
		string(user.IdentityType),
		user.ProfileImage,
		address,
		user.BelowPovertyLine,
		user.Underprivileged,
		time.Now().UTC(),
	)
	updated, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return updated, err
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC())
}

func (r *PgUserRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	return r.exec(ctx, `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now().UTC())
}

func (r *PgUserRepository) UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, verifier *domain.Verifier) error {
	return r.exec(ctx, `UPDATE users SET verification_status = $2, verified_by = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), verifierJSON(verifier), time.Now().UTC())
}

func (r *PgUserRepository) IncrementLoginAttempts(ctx context.Context, id string, lockUntil *time.Time) error {
	if lockUntil == nil {
		return r.exec(ctx, `UPDATE users SET login_attempts = login_attempts + 1 WHERE id = $1`, id)
	}
	return r.exec(ctx, `UPDATE users SET login_attempts = login_attempts + 1, lock_until = $2 WHERE id = $1`,
		id, *lockUntil)
}

func (r *PgUserRepository) RestartLoginAttempts(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET login_attempts = 1, lock_until = NULL WHERE id = $1`, id)
}

func (r *PgUserRepository) ResetLoginAttempts(ctx context.Context, id string, lastLoginAt time.Time) error {
	return r.exec(ctx, `UPDATE users SET login_attempts = 0, lock_until = NULL, last_login_at = $2 WHERE id = $1`,
		id, lastLoginAt)
}

func (r *PgUserRepository) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (r *PgUserRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return wrapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u            domain.User
		passwordHash *string
		identityType *string
		address      []byte
		verifiedBy   []byte
	)
	err := row.Scan(
		&u.ID,
		&u.CeebrainID,
		&u.Email,
		&u.MobileNumber,
		&passwordHash,
		&u.AuthProvider,
		&u.FullName,
		&u.DateOfBirth,
		&u.Gender,
		&identityType,
		&u.ProfileImage,
		&address,
		&u.BelowPovertyLine,
		&u.Underprivileged,
		&u.VerificationStatus,
		&verifiedBy,
		&u.ConsentAccepted,
		&u.ConsentAcceptedAt,
		&u.Status,
		&u.Role,
		&u.LastLoginAt,
		&u.LoginAttempts,
		&u.LockUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if identityType != nil {
		u.IdentityType = domain.IdentityType(*identityType)
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &u.Address); err != nil {
			return domain.User{}, err
		}
	}
	if len(verifiedBy) > 0 && string(verifiedBy) != "null" {
		var v domain.Verifier
		if err := json.Unmarshal(verifiedBy, &v); err != nil {
			return domain.User{}, err
		}
		u.VerifiedBy = &v
	}
	return u, nil
}

func verifierJSON(v *domain.Verifier) []byte {
	if v == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// wrapPgError traduce violaciones de unicidad a DuplicateError.
func wrapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &DuplicateError{Field: apiField(constraintColumn(pgErr.ConstraintName))}
	}
	return err
}

// constraintColumn extrae la columna de nombres como "users_email_key".
func constraintColumn(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	for _, table := range []string{"users_", "admins_"} {
		if strings.HasPrefix(name, table) {
			return strings.TrimPrefix(name, table)
		}
	}
	return name
}
