package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Email != "alice@example.com" || in.Password != "correct-horse" || in.DisplayName != "Alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			u := domain.NewLocalUser(in.Email, in.DisplayName, "$2a$hash")
			u.ID = "u-1"
			return u, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/register",
		`{"email":"alice@example.com","password":"correct-horse","displayName":"Alice"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	body := rec.Body.String()
	if strings.Contains(body, "$2a$") || strings.Contains(body, "Hash") {
		t.Fatalf("credential leaked in response: %s", body)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "u-1" || resp["authMethod"] != "password" || resp["role"] != domain.RoleUser {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	cases := map[string]string{
		"missing email":  `{"password":"correct-horse"}`,
		"bad email":      `{"email":"nope","password":"correct-horse"}`,
		"short password": `{"email":"a@b.com","password":"short"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/api/auth/register", body)
			if code := httpCode(h.Register(c)); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
		})
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newContext(http.MethodPost, "/api/auth/register", `{"email":`)
	if code := httpCode(h.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Login(t *testing.T) {
	user := domain.NewLocalUser("a@b.com", "A", "hash")
	user.ID = "u-1"
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			if password != "password1" {
				return "", nil, domain.ErrInvalidCredentials
			}
			return "jwt-token", user, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"password1"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "jwt-token" || resp.User == nil || resp.User.ID != "u-1" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}

	c, _ = newContext(http.MethodPost, "/api/auth/login", `{"email":"a@b.com","password":"wrong"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_ProviderManaged(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			return "", nil, domain.ErrProviderManaged
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newContext(http.MethodPost, "/api/auth/login", `{"email":"g@b.com","password":"whatever"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrProviderManaged) {
		t.Fatalf("expected ErrProviderManaged, got %v", err)
	}
}

func TestAuthHandler_LoginWithFirebase(t *testing.T) {
	user := domain.NewLinkedUser("g@b.com", "G", domain.ProviderLink{
		ProviderID: "google.com", ProviderUID: "uid-1", PhotoURL: "https://img/g.png",
	})
	stub := &stubAuthService{
		providerFn: func(ctx context.Context, idToken string) (string, *domain.User, error) {
			if idToken != "id-token" {
				t.Fatalf("unexpected token %q", idToken)
			}
			return "jwt-token", user, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/firebase", `{"idToken":"id-token"}`)
	if err := h.LoginWithFirebase(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User.AuthMethod != "provider" || resp.User.ProviderID != "google.com" || resp.User.PhotoURL != "https://img/g.png" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
}

func TestAuthHandler_ForgotPassword_AlwaysAccepted(t *testing.T) {
	var got string
	stub := &stubAuthService{
		forgotFn: func(ctx context.Context, email string) error {
			got = email
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/forgot-password", `{"email":"ghost@b.com"}`)
	if err := h.ForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted || got != "ghost@b.com" {
		t.Fatalf("expected 202 for ghost@b.com, got %d for %q", rec.Code, got)
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	stub := &stubAuthService{
		resetFn: func(ctx context.Context, token, password string) error {
			if token != "tok" {
				return domain.ErrResetTokenInvalid
			}
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/auth/reset-password", `{"token":"tok","password":"brand-new-pass"}`)
	if err := h.ResetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c, _ = newContext(http.MethodPost, "/api/auth/reset-password", `{"token":"stale","password":"brand-new-pass"}`)
	if err := h.ResetPassword(c); !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}
