package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ceebrain-identity/internal/domain"
)

// MemoryUserRepository guarda usuarios en memoria. Pensado para desarrollo
// local y pruebas; aplica las mismas restricciones de unicidad que los stores reales.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.ID == user.ID {
			return &DuplicateError{Field: "_id"}
		}
		if user.Email != nil && existing.Email != nil && *existing.Email == *user.Email {
			return &DuplicateError{Field: apiField("email")}
		}
		if user.MobileNumber != nil && existing.MobileNumber != nil && *existing.MobileNumber == *user.MobileNumber {
			return &DuplicateError{Field: apiField("mobile_number")}
		}
		if existing.CeebrainID == user.CeebrainID {
			return &DuplicateError{Field: apiField("ceebrain_id")}
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u domain.User) bool { return u.Email != nil && *u.Email == email })
}

func (r *MemoryUserRepository) GetByMobile(_ context.Context, mobile string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.MobileNumber != nil && *u.MobileNumber == mobile })
}

func (r *MemoryUserRepository) ExistsByCeebrainID(_ context.Context, ceebrainID string) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return u.CeebrainID == ceebrainID })
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *MemoryUserRepository) List(_ context.Context, filter UserFilter) ([]domain.User, int64, error) {
	r.mu.RLock()
	matched := make([]domain.User, 0, len(r.users))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, u := range r.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if filter.VerificationStatus != "" && u.VerificationStatus != filter.VerificationStatus {
			continue
		}
		if search != "" && !userMatches(u, search) {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	r.mu.RUnlock()

	col := sortColumn(filter.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		less := userLess(matched[i], matched[j], col)
		if filter.SortDesc {
			return userLess(matched[j], matched[i], col)
		}
		return less
	})

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r *MemoryUserRepository) UpdateProfile(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[user.ID]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	current.FullName = user.FullName
	current.DateOfBirth = user.DateOfBirth
	current.Gender = user.Gender
	current.IdentityType = user.IdentityType
	current.ProfileImage = user.ProfileImage
	current.Address = user.Address
	current.BelowPovertyLine = user.BelowPovertyLine
	current.Underprivileged = user.Underprivileged
	current.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = current
	return cloneUser(current), nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryUserRepository) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	return r.mutate(id, func(u *domain.User) {
		u.Status = status
		u.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryUserRepository) UpdateVerification(_ context.Context, id string, status domain.VerificationStatus, verifier *domain.Verifier) error {
	return r.mutate(id, func(u *domain.User) {
		u.VerificationStatus = status
		u.VerifiedBy = verifier
		u.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemoryUserRepository) IncrementLoginAttempts(_ context.Context, id string, lockUntil *time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.LoginAttempts++
		if lockUntil != nil {
			t := *lockUntil
			u.LockUntil = &t
		}
	})
}

func (r *MemoryUserRepository) RestartLoginAttempts(_ context.Context, id string) error {
	return r.mutate(id, func(u *domain.User) {
		u.LoginAttempts = 1
		u.LockUntil = nil
	})
}

func (r *MemoryUserRepository) ResetLoginAttempts(_ context.Context, id string, lastLoginAt time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.LoginAttempts = 0
		u.LockUntil = nil
		u.LastLoginAt = &lastLoginAt
	})
}

func (r *MemoryUserRepository) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (r *MemoryUserRepository) mutate(id string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

func userMatches(u domain.User, search string) bool {
	for _, v := range []string{u.FullName, u.EmailValue(), u.MobileValue(), u.CeebrainID, u.Address.City, u.Address.State} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func userLess(a, b domain.User, col string) bool {
	switch col {
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "full_name":
		return a.FullName < b.FullName
	case "email":
		return a.EmailValue() < b.EmailValue()
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

// cloneUser copia los punteros para que los llamadores no muten el estado guardado.
func cloneUser(u domain.User) domain.User {
	if u.Email != nil {
		v := *u.Email
		u.Email = &v
	}
	if u.MobileNumber != nil {
		v := *u.MobileNumber
		u.MobileNumber = &v
	}
	if u.VerifiedBy != nil {
		v := *u.VerifiedBy
		u.VerifiedBy = &v
	}
	if u.LockUntil != nil {
		v := *u.LockUntil
		u.LockUntil = &v
	}
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		u.LastLoginAt = &v
	}
	return u
}

// MemoryOTPRepository guarda un OTP por numero movil en memoria.
type MemoryOTPRepository struct {
	mu      sync.Mutex
	records map[string]domain.OTPRecord
}

func NewMemoryOTPRepository() *MemoryOTPRepository {
	return &MemoryOTPRepository{records: make(map[string]domain.OTPRecord)}
}

func (r *MemoryOTPRepository) Upsert(_ context.Context, record domain.OTPRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[record.MobileNumber]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = record.UpdatedAt
	}
	record.WrongAttempts = 0
	r.records[record.MobileNumber] = record
	return nil
}

func (r *MemoryOTPRepository) GetByMobile(_ context.Context, mobile string) (domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[mobile]
	if !ok {
		return domain.OTPRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryOTPRepository) IncrementWrongAttempts(_ context.Context, mobile string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[mobile]
	if !ok {
		return 0, ErrNotFound
	}
	rec.WrongAttempts++
	rec.UpdatedAt = time.Now().UTC()
	r.records[mobile] = rec
	return rec.WrongAttempts, nil
}

func (r *MemoryOTPRepository) Delete(_ context.Context, mobile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, mobile)
	return nil
}

func (r *MemoryOTPRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for mobile, rec := range r.records {
		if rec.ExpiryTime.Before(now) {
			delete(r.records, mobile)
			n++
		}
	}
	return n, nil
}

// MemoryAdminRepository guarda administradores en memoria.
type MemoryAdminRepository struct {
	mu     sync.Mutex
	admins map[string]domain.Admin
}

func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{admins: make(map[string]domain.Admin)}
}

func (r *MemoryAdminRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.admins)), nil
}

func (r *MemoryAdminRepository) Create(_ context.Context, admin domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Email == admin.Email {
			return &DuplicateError{Field: apiField("email")}
		}
		if existing.Number == admin.Number {
			return &DuplicateError{Field: apiField("number")}
		}
	}
	r.admins[admin.ID] = admin
	return nil
}

func (r *MemoryAdminRepository) GetByID(_ context.Context, id string) (domain.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return domain.Admin{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryAdminRepository) GetByEmail(_ context.Context, email string) (domain.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return domain.Admin{}, ErrNotFound
}

func (r *MemoryAdminRepository) SetResetOTP(_ context.Context, id, otpHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.ResetOTPHash = otpHash
	a.ResetOTPExpiry = &expiresAt
	a.UpdatedAt = time.Now().UTC()
	r.admins[id] = a
	return nil
}

func (r *MemoryAdminRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.ResetOTPHash = ""
	a.ResetOTPExpiry = nil
	a.UpdatedAt = time.Now().UTC()
	r.admins[id] = a
	return nil
}
