package domain

import (
	"testing"
	"time"
)

func TestAuthProvider(t *testing.T) {
	cases := []struct {
		p        AuthProvider
		valid    bool
		password bool
		otp      bool
	}{
		{AuthProviderMobileOTP, true, false, true},
		{AuthProviderEmailPassword, true, true, false},
		{AuthProviderBoth, true, true, true},
		{"GOOGLE", false, false, false},
	}
	for _, tc := range cases {
		if tc.p.Valid() != tc.valid || tc.p.UsesPassword() != tc.password || tc.p.UsesOTP() != tc.otp {
			t.Fatalf("%s: unexpected flags", tc.p)
		}
	}
}

func TestUser_LockState(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	if (User{}).IsLocked(now) || (User{}).LockExpired(now) {
		t.Fatalf("no lock set")
	}
	locked := User{LockUntil: &future}
	if !locked.IsLocked(now) || locked.LockExpired(now) {
		t.Fatalf("expected active lock")
	}
	expired := User{LockUntil: &past}
	if expired.IsLocked(now) || !expired.LockExpired(now) {
		t.Fatalf("expected expired lock")
	}
	exact := User{LockUntil: &now}
	if exact.IsLocked(now) {
		t.Fatalf("lock ending now must not block")
	}
}

func TestEnumValidation(t *testing.T) {
	if !Gender("PreferNotToSay").Valid() || Gender("male").Valid() {
		t.Fatalf("gender validation mismatch")
	}
	if !IdentityType("VoterID").Valid() || IdentityType("PAN").Valid() {
		t.Fatalf("identity type validation mismatch")
	}
	if !AccountStatus("Suspended").Valid() || AccountStatus("Deleted").Valid() {
		t.Fatalf("status validation mismatch")
	}
	if !VerificationStatus("Rejected").Valid() || VerificationStatus("Done").Valid() {
		t.Fatalf("verification validation mismatch")
	}
	if !AdminRoleSuperAdmin.Valid() || AdminRole("root").Valid() {
		t.Fatalf("admin role validation mismatch")
	}
}

func TestOTPRecord_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := OTPRecord{ExpiryTime: now}
	if rec.Expired(now) {
		t.Fatalf("record is valid up to its expiry instant")
	}
	if !rec.Expired(now.Add(time.Millisecond)) {
		t.Fatalf("expected expired after expiry instant")
	}
}

func TestUser_OptionalValues(t *testing.T) {
	email := "asha@example.com"
	u := User{Email: &email}
	if u.EmailValue() != email || u.MobileValue() != "" {
		t.Fatalf("unexpected optional values")
	}
}
