package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

func newAuthSvc(repo *stubUserRepo, provider ports.IdentityProvider, mailer *stubMailer) *AuthService {
	return NewAuthService(repo, provider, mailer, AuthConfig{
		JWTSecret:     "secret",
		TokenTTL:      time.Hour,
		ResetTokenTTL: time.Hour,
		ResetURL:      "https://peaberry.test/reset",
	}, zerolog.Nop())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, nil, &stubMailer{})

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Email: " Alice@Example.com ", Password: "correct-horse", DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	if user.Email != "alice@example.com" || user.Role != domain.RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}
	cred, ok := user.Local()
	if !ok || cred.PasswordHash == "correct-horse" {
		t.Fatalf("expected hashed local credential")
	}

	token, logged, err := svc.Login(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("logged in as %s, want %s", logged.ID, user.ID)
	}

	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("invalid token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID || claims["role"] != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, nil, &stubMailer{})

	in := ports.RegisterInput{Email: "a@b.com", Password: "password1"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Register_ShortPassword(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), nil, &stubMailer{})

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "a@b.com", Password: "short"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_PasswordLongerThan72Bytes(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, nil, &stubMailer{})

	// 72 characters, 144 bytes.
	long := strings.Repeat("é", 72)
	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "a@b.com", Password: long})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("register: expected ErrInvalidInput, got %v", err)
	}

	u := localUser(t, "c@b.com", "password1")
	u.SetResetToken(hashToken("tok"), time.Now().Add(time.Hour))
	repo.seed(u)
	if err := svc.ResetPassword(context.Background(), "tok", long); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("reset: expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.Register(context.Background(), ports.RegisterInput{
		Email: "d@b.com", Password: strings.Repeat("a", maxPasswordBytes),
	}); err != nil {
		t.Fatalf("72-byte password should be accepted: %v", err)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	repo := newStubUserRepo()
	repo.seed(localUser(t, "a@b.com", "password1"))
	repo.seed(linkedUser("g@b.com", "u1"))
	svc := newAuthSvc(repo, nil, &stubMailer{})

	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"wrong password", "a@b.com", "nope-nope", domain.ErrInvalidCredentials},
		{"unknown email", "ghost@b.com", "password1", domain.ErrInvalidCredentials},
		{"empty", "", "", domain.ErrInvalidCredentials},
		{"provider managed", "g@b.com", "password1", domain.ErrProviderManaged},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthService_LoginWithProvider(t *testing.T) {
	repo := newStubUserRepo()
	linked := repo.seed(linkedUser("l@b.com", "uid-linked"))
	local := repo.seed(localUser(t, "a@b.com", "password1"))

	provider := &stubProvider{identities: map[string]*ports.ProviderIdentity{
		"tok-linked": {UID: "uid-linked", Email: "l@b.com"},
		"tok-local":  {UID: "uid-a", Email: "a@b.com", PhotoURL: "https://img/a.png", EmailVerified: true},
		"tok-new":    {UID: "uid-new", Email: "new@b.com", DisplayName: "Newbie"},
	}}
	svc := newAuthSvc(repo, provider, &stubMailer{})

	t.Run("existing link", func(t *testing.T) {
		_, u, err := svc.LoginWithProvider(context.Background(), "tok-linked")
		if err != nil || u.ID != linked {
			t.Fatalf("expected %s, got %+v %v", linked, u, err)
		}
	})

	t.Run("links local account by email", func(t *testing.T) {
		_, u, err := svc.LoginWithProvider(context.Background(), "tok-local")
		if err != nil || u.ID != local {
			t.Fatalf("expected %s, got %+v %v", local, u, err)
		}
		p, ok := repo.byID[local].Provider()
		if !ok || p.ProviderUID != "uid-a" || p.PhotoURL != "https://img/a.png" {
			t.Fatalf("expected local account linked, got %+v", repo.byID[local].Identity)
		}
	})

	t.Run("creates linked account", func(t *testing.T) {
		_, u, err := svc.LoginWithProvider(context.Background(), "tok-new")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.DisplayName != "Newbie" || u.Email != "new@b.com" {
			t.Fatalf("unexpected user: %+v", u)
		}
		if p, ok := u.Provider(); !ok || p.ProviderID != domain.DefaultProviderID {
			t.Fatalf("expected default provider id, got %+v", u.Identity)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		_, _, err := svc.LoginWithProvider(context.Background(), "forged")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_LoginWithProvider_UnverifiedEmailDoesNotLink(t *testing.T) {
	repo := newStubUserRepo()
	id := repo.seed(localUser(t, "victim@b.com", "password1"))
	repo.byID[id].Role = domain.RoleAdmin
	provider := &stubProvider{identities: map[string]*ports.ProviderIdentity{
		"tok": {UID: "uid-x", Email: "victim@b.com", ProviderID: "password"},
	}}
	svc := newAuthSvc(repo, provider, &stubMailer{})

	token, u, err := svc.LoginWithProvider(context.Background(), "tok")
	if !errors.Is(err, domain.ErrEmailUnverified) {
		t.Fatalf("expected ErrEmailUnverified, got %v", err)
	}
	if token != "" || u != nil {
		t.Fatalf("expected no session, got token=%q user=%+v", token, u)
	}
	if _, ok := repo.byID[id].Local(); !ok {
		t.Fatalf("local credential must survive, got %+v", repo.byID[id].Identity)
	}
	if _, _, err := svc.Login(context.Background(), "victim@b.com", "password1"); err != nil {
		t.Fatalf("owner can no longer log in: %v", err)
	}
}

func TestAuthService_LoginWithProvider_ClearsOrphanFlag(t *testing.T) {
	repo := newStubUserRepo()
	u := linkedUser("l@b.com", "uid-1")
	u.MarkOrphaned(time.Now())
	id := repo.seed(u)
	provider := &stubProvider{identities: map[string]*ports.ProviderIdentity{"tok": {UID: "uid-1", Email: "l@b.com"}}}
	svc := newAuthSvc(repo, provider, &stubMailer{})

	if _, _, err := svc.LoginWithProvider(context.Background(), "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.byID[id].IsOrphaned() {
		t.Error("expected orphan flag cleared")
	}
}

func TestAuthService_LoginWithProvider_Disabled(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), nil, &stubMailer{})
	if _, _, err := svc.LoginWithProvider(context.Background(), "tok"); !errors.Is(err, domain.ErrProviderDisabled) {
		t.Fatalf("expected ErrProviderDisabled, got %v", err)
	}
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	repo := newStubUserRepo()
	id := repo.seed(localUser(t, "a@b.com", "password1"))
	mailer := &stubMailer{}
	svc := newAuthSvc(repo, nil, mailer)

	if err := svc.ForgotPassword(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "a@b.com" {
		t.Fatalf("expected one reset email, got %+v", mailer.sent)
	}
	if repo.byID[id].ResetTokenHash == "" {
		t.Fatal("expected reset token stored")
	}

	token := tokenFromBody(t, mailer.sent[0].HTMLBody)
	if repo.byID[id].ResetTokenHash == token {
		t.Fatal("raw token must not be stored")
	}

	if err := svc.ResetPassword(context.Background(), token, "brand-new-pass"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "a@b.com", "brand-new-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), token, "another-pass"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected token to be single use, got %v", err)
	}
}

func TestAuthService_ForgotPassword_SilentForUnknownAndLinked(t *testing.T) {
	repo := newStubUserRepo()
	repo.seed(linkedUser("g@b.com", "u1"))
	mailer := &stubMailer{}
	svc := newAuthSvc(repo, nil, mailer)

	for _, email := range []string{"ghost@b.com", "g@b.com"} {
		if err := svc.ForgotPassword(context.Background(), email); err != nil {
			t.Fatalf("%s: unexpected error %v", email, err)
		}
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(mailer.sent))
	}
}

func TestAuthService_ResetPassword_Expired(t *testing.T) {
	repo := newStubUserRepo()
	u := localUser(t, "a@b.com", "password1")
	u.SetResetToken(hashToken("tok"), time.Now().Add(-time.Minute))
	repo.seed(u)
	svc := newAuthSvc(repo, nil, &stubMailer{})

	if err := svc.ResetPassword(context.Background(), "tok", "brand-new-pass"); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	const marker = "?token="
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no token in body: %s", body)
	}
	rest := body[i+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		t.Fatalf("unterminated link in body: %s", body)
	}
	return rest[:end]
}
