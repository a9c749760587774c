package domain

import (
	"testing"
	"time"
)

func TestUser_Validate(t *testing.T) {
	cases := []struct {
		name    string
		user    *User
		wantErr bool
	}{
		{"local", NewLocalUser("a@b.com", "A", "hash"), false},
		{"linked", NewLinkedUser("a@b.com", "A", ProviderLink{ProviderID: "google.com", ProviderUID: "u1"}), false},
		{"neither", &User{Email: "a@b.com"}, true},
		{"empty hash", &User{Identity: LocalCredential{}}, true},
		{"link without uid", &User{Identity: ProviderLink{ProviderID: "google.com"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.user.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestUser_LinkProviderDropsPassword(t *testing.T) {
	u := NewLocalUser("a@b.com", "A", "hash")
	u.Role = RoleAdmin

	u.LinkProvider(ProviderLink{ProviderUID: "u1"})

	if _, ok := u.Local(); ok {
		t.Fatal("expected local credential to be dropped")
	}
	p, ok := u.Provider()
	if !ok || p.ProviderUID != "u1" || p.ProviderID != DefaultProviderID {
		t.Fatalf("unexpected provider link: %+v", p)
	}
	if u.Role != RoleAdmin {
		t.Errorf("role changed to %q", u.Role)
	}
}

func TestUser_UnlinkFallsBackToLocal(t *testing.T) {
	u := NewLinkedUser("a@b.com", "A", ProviderLink{ProviderID: "google.com", ProviderUID: "u1"})
	u.Unlink("random")

	if _, ok := u.Provider(); ok {
		t.Fatal("expected provider link to be removed")
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("unexpected invalid identity: %v", err)
	}
}

func TestUser_OrphanFlag(t *testing.T) {
	u := NewLinkedUser("a@b.com", "A", ProviderLink{ProviderID: "google.com", ProviderUID: "u1"})
	u.MarkOrphaned(time.Now())
	if !u.IsOrphaned() {
		t.Fatal("expected orphaned")
	}
	u.ClearOrphaned()
	if u.IsOrphaned() {
		t.Fatal("expected orphan flag cleared")
	}

	local := NewLocalUser("b@b.com", "B", "hash")
	local.MarkOrphaned(time.Now())
	if local.IsOrphaned() {
		t.Fatal("local accounts cannot be orphaned")
	}
}

func TestUser_ResetToken(t *testing.T) {
	u := NewLocalUser("a@b.com", "A", "hash")
	now := time.Now()
	u.SetResetToken("tok", now.Add(time.Hour))

	if !u.ResetTokenValid("tok", now) {
		t.Error("expected token valid")
	}
	if u.ResetTokenValid("other", now) {
		t.Error("expected mismatched token invalid")
	}
	if u.ResetTokenValid("tok", now.Add(2*time.Hour)) {
		t.Error("expected expired token invalid")
	}
	u.ClearResetToken()
	if u.ResetTokenValid("tok", now) {
		t.Error("expected cleared token invalid")
	}
}

func TestUser_SetPasswordRejectsLinked(t *testing.T) {
	u := NewLinkedUser("a@b.com", "A", ProviderLink{ProviderID: "google.com", ProviderUID: "u1"})
	if err := u.SetPassword("new"); err != ErrProviderManaged {
		t.Fatalf("expected ErrProviderManaged, got %v", err)
	}
}
