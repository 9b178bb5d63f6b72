package service

import (
	"context"
	"time"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/repository"
)

// LockoutPolicy bloquea la cuenta tras MaxAttempts fallos consecutivos de password.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 5, Duration: 2 * time.Hour}
}

func (p LockoutPolicy) normalized() LockoutPolicy {
	def := DefaultLockoutPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Duration <= 0 {
		p.Duration = def.Duration
	}
	return p
}

// RecordFailure registra un fallo de password. Si el bloqueo anterior ya vencio
// el contador vuelve a 1; si no, se incrementa y al llegar al maximo se fija
// el bloqueo. Devuelve true cuando este fallo dejo la cuenta bloqueada.
func (p LockoutPolicy) RecordFailure(ctx context.Context, users repository.UserRepository, user domain.User, now time.Time) (bool, error) {
	if user.LockExpired(now) {
		return false, users.RestartLoginAttempts(ctx, user.ID)
	}
	var lockUntil *time.Time
	if user.LoginAttempts+1 >= p.MaxAttempts {
		t := now.Add(p.Duration)
		lockUntil = &t
	}
	if err := users.IncrementLoginAttempts(ctx, user.ID, lockUntil); err != nil {
		return false, err
	}
	return lockUntil != nil, nil
}

// Reset limpia contador y bloqueo y registra el acceso.
func (p LockoutPolicy) Reset(ctx context.Context, users repository.UserRepository, user *domain.User, now time.Time) error {
	if err := users.ResetLoginAttempts(ctx, user.ID, now); err != nil {
		return err
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now
	return nil
}
