package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ceebrain-identity/internal/repository"
)

var ceebrainIDFormat = regexp.MustCompile(`^CB-[0-9A-Z]{6}-[A-HJ-NP-Z2-9]{4}$`)

func TestNewCeebrainID_Format(t *testing.T) {
	now := time.UnixMilli(1735725600000)
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	for i := 0; i < 200; i++ {
		id, err := newCeebrainID(now)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ceebrainIDFormat.MatchString(id) {
			t.Fatalf("unexpected format %q", id)
		}
		if id[3:9] != stamp[len(stamp)-6:] {
			t.Fatalf("expected timestamp fragment %q in %q", stamp[len(stamp)-6:], id)
		}
	}
}

func TestNewCeebrainID_PadsShortTimestamp(t *testing.T) {
	id, err := newCeebrainID(time.UnixMilli(35))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(id, "CB-00000Z-") {
		t.Fatalf("expected zero padded stamp, got %q", id)
	}
}

type takenIDRepo struct {
	repository.UserRepository
	calls int
	taken int
}

func (r *takenIDRepo) ExistsByCeebrainID(context.Context, string) (bool, error) {
	r.calls++
	return r.calls <= r.taken, nil
}

func TestAllocateCeebrainID_Retries(t *testing.T) {
	repo := &takenIDRepo{taken: 3}
	svc := NewUserService(zap.NewNop(), repo, UserServiceOptions{})
	id, err := svc.allocateCeebrainID(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if repo.calls != 4 || !ceebrainIDFormat.MatchString(id) {
		t.Fatalf("expected 4 attempts and valid id, got %d / %q", repo.calls, id)
	}

	repo = &takenIDRepo{taken: ceebrainIDMaxAttempts}
	svc = NewUserService(zap.NewNop(), repo, UserServiceOptions{})
	if _, err := svc.allocateCeebrainID(context.Background()); !errors.Is(err, ErrIdentifierExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestNewNumericCode_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := newNumericCode(4)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 1000 || n > 9999 {
			t.Fatalf("code out of range: %q", code)
		}
	}
	code, _ := newNumericCode(6)
	if len(code) != 6 || code[0] == '0' {
		t.Fatalf("unexpected 6-digit code %q", code)
	}
}

func TestHashOTP_Verify(t *testing.T) {
	hash, err := hashOTP("4821")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !verifyOTP("4821", hash) || !verifyOTP(" 4821 ", hash) {
		t.Fatalf("expected match")
	}
	if verifyOTP("4822", hash) || verifyOTP("4821", "garbage") {
		t.Fatalf("expected mismatch")
	}
	other, _ := hashOTP("4821")
	if other == hash {
		t.Fatalf("expected salted hashes to differ")
	}
}
