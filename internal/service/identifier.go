package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	ceebrainIDPrefix = "CB-"
	// Sin 0/O ni 1/I para que el identificador se pueda dictar sin ambiguedad.
	ceebrainIDAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	ceebrainIDMaxAttempts = 20
)

var ErrIdentifierExhausted = errors.New("could not allocate a unique ceebrain id")

// newCeebrainID arma CB-<6 base36 del timestamp>-<4 aleatorios>.
func newCeebrainID(now time.Time) (string, error) {
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(stamp) > 6 {
		stamp = stamp[len(stamp)-6:]
	} else {
		stamp = strings.Repeat("0", 6-len(stamp)) + stamp
	}

	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	suffix := make([]byte, len(raw))
	for i, b := range raw {
		suffix[i] = ceebrainIDAlphabet[int(b)%len(ceebrainIDAlphabet)]
	}
	return ceebrainIDPrefix + stamp + "-" + string(suffix), nil
}

// allocateCeebrainID reintenta hasta encontrar un identificador libre.
func (s *UserService) allocateCeebrainID(ctx context.Context) (string, error) {
	for i := 0; i < ceebrainIDMaxAttempts; i++ {
		id, err := newCeebrainID(s.now())
		if err != nil {
			return "", err
		}
		taken, err := s.users.ExistsByCeebrainID(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIdentifierExhausted
}
