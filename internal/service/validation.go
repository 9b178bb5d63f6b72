package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	mobilePattern     = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	postalCodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

const (
	minPasswordLength = 8
	maxFullNameLength = 100
	maxAddressLength  = 200
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidMobile reporta si el numero es un movil indio de 10 digitos.
func ValidMobile(mobile string) bool {
	return mobilePattern.MatchString(mobile)
}

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// parseDate acepta fechas ISO (2006-01-02) o RFC3339 completas.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func validCoordinate(v *float64, limit float64) bool {
	return v == nil || (*v >= -limit && *v <= limit)
}

func stringPtr(s string) *string {
	return &s
}
