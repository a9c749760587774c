package domain

import (
	"errors"
	"time"
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleCafeOwner = "cafe_owner"
)

// DefaultProviderID is assumed when a provider event does not name its sign-in method.
const DefaultProviderID = "google.com"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProviderManaged    = errors.New("account uses Google sign-in")
	ErrInvalidIdentity    = errors.New("user must have exactly one of a password credential or a provider link")
	ErrResetTokenInvalid  = errors.New("reset token is invalid or expired")
	ErrInvalidRole        = errors.New("invalid role")
	ErrProviderDisabled   = errors.New("external sign-in is not configured")
	ErrEmailUnverified    = errors.New("an account with this email exists; verify the email with the provider before signing in")
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleCafeOwner:
		return true
	}
	return false
}

// Identity is how a user proves who they are: either a LocalCredential or a
// ProviderLink, never both.
type Identity interface {
	identity()
}

// LocalCredential is an email/password login.
type LocalCredential struct {
	PasswordHash string
}

// ProviderLink ties the account to an external identity provider (Firebase).
type ProviderLink struct {
	ProviderID  string
	ProviderUID string
	PhotoURL    string
	// OrphanedAt is set when the provider no longer knows ProviderUID.
	OrphanedAt *time.Time
}

func (LocalCredential) identity() {}
func (ProviderLink) identity()    {}

// User models an authenticated actor in the system.
type User struct {
	ID                  string
	Email               string
	DisplayName         string
	Role                string
	Identity            Identity
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewLocalUser builds a user that signs in with a password.
func NewLocalUser(email, displayName, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Email:       email,
		DisplayName: displayName,
		Role:        RoleUser,
		Identity:    LocalCredential{PasswordHash: passwordHash},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewLinkedUser builds a user that signs in through the identity provider.
func NewLinkedUser(email, displayName string, link ProviderLink) *User {
	now := time.Now().UTC()
	return &User{
		Email:       email,
		DisplayName: displayName,
		Role:        RoleUser,
		Identity:    link,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the identity invariant.
func (u *User) Validate() error {
	switch id := u.Identity.(type) {
	case LocalCredential:
		if id.PasswordHash == "" {
			return ErrInvalidIdentity
		}
	case ProviderLink:
		if id.ProviderUID == "" || id.ProviderID == "" {
			return ErrInvalidIdentity
		}
	default:
		return ErrInvalidIdentity
	}
	return nil
}

// Local returns the password credential, if the account has one.
func (u *User) Local() (LocalCredential, bool) {
	c, ok := u.Identity.(LocalCredential)
	return c, ok
}

// Provider returns the provider link, if the account has one.
func (u *User) Provider() (ProviderLink, bool) {
	p, ok := u.Identity.(ProviderLink)
	return p, ok
}

// IsOrphaned reports whether the account is linked to a provider identity
// that no longer exists upstream.
func (u *User) IsOrphaned() bool {
	p, ok := u.Provider()
	return ok && p.OrphanedAt != nil
}

// LinkProvider replaces the current identity with link. A local password is
// dropped. Role and display name are left alone.
func (u *User) LinkProvider(link ProviderLink) {
	if link.ProviderID == "" {
		link.ProviderID = DefaultProviderID
	}
	u.Identity = link
	u.touch()
}

// Unlink drops the provider link and falls back to a local credential. The
// caller supplies an unusable hash; the owner regains access via password reset.
func (u *User) Unlink(unusableHash string) {
	u.Identity = LocalCredential{PasswordHash: unusableHash}
	u.touch()
}

// SetPassword rotates the local credential. Linked accounts are rejected.
func (u *User) SetPassword(hash string) error {
	if _, ok := u.Local(); !ok {
		return ErrProviderManaged
	}
	u.Identity = LocalCredential{PasswordHash: hash}
	u.touch()
	return nil
}

// MarkOrphaned flags a linked account. It is a no-op for local accounts.
func (u *User) MarkOrphaned(at time.Time) {
	p, ok := u.Provider()
	if !ok || p.OrphanedAt != nil {
		return
	}
	p.OrphanedAt = &at
	u.Identity = p
	u.touch()
}

// ClearOrphaned removes the orphan flag.
func (u *User) ClearOrphaned() {
	p, ok := u.Provider()
	if !ok || p.OrphanedAt == nil {
		return
	}
	p.OrphanedAt = nil
	u.Identity = p
	u.touch()
}

// SetResetToken stores the hash of a password reset token.
func (u *User) SetResetToken(hash string, expiresAt time.Time) {
	u.ResetTokenHash = hash
	u.ResetTokenExpiresAt = &expiresAt
	u.touch()
}

// ClearResetToken invalidates any outstanding password reset token.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	u.touch()
}

// ResetTokenValid reports whether hash matches an unexpired reset token.
func (u *User) ResetTokenValid(hash string, now time.Time) bool {
	if u.ResetTokenHash == "" || u.ResetTokenExpiresAt == nil {
		return false
	}
	return u.ResetTokenHash == hash && now.Before(*u.ResetTokenExpiresAt)
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}
