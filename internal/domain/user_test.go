package domain

import (
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("  Admin "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole admin=%q ok=%v", r, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatal("unknown role must not parse")
	}
}

func TestRoleIncludes(t *testing.T) {
	cases := []struct {
		have, need Role
		want       bool
	}{
		{RoleAdmin, RoleViewer, true},
		{RoleOperator, RoleOperator, true},
		{RoleViewer, RoleOperator, false},
		{Role("ghost"), RoleViewer, false},
		{RoleAdmin, Role("ghost"), false},
	}
	for _, tc := range cases {
		if got := tc.have.Includes(tc.need); got != tc.want {
			t.Fatalf("%q.Includes(%q)=%v want %v", tc.have, tc.need, got, tc.want)
		}
	}
}

func TestUserRecordCloneIsDeep(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &UserRecord{Username: "admin", LastLoginAt: &at}
	cp := u.Clone()
	*cp.LastLoginAt = at.Add(time.Hour)
	if !u.LastLoginAt.Equal(at) {
		t.Fatal("clone shares LastLoginAt")
	}
	if (*UserRecord)(nil).Clone() != nil {
		t.Fatal("nil clone must be nil")
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	if (Session{}).Expired(now) {
		t.Fatal("unknown expiry never expires")
	}
	if !(Session{ExpiresAt: now}).Expired(now) {
		t.Fatal("expiry at now is expired")
	}
}
