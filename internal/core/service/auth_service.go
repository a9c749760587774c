package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// AuthConfig holds the token and password-reset settings.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	// ResetURL is the client page that accepts ?token=.
	ResetURL string
}

// AuthService implements local and provider sign-in plus password recovery.
type AuthService struct {
	users    ports.UserRepository
	provider ports.IdentityProvider
	mailer   ports.Mailer
	cfg      AuthConfig
	log      zerolog.Logger
}

// NewAuthService wires the auth use cases. provider may be nil when external
// sign-in is disabled.
func NewAuthService(
	users ports.UserRepository,
	provider ports.IdentityProvider,
	mailer ports.Mailer,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &AuthService{users: users, provider: provider, mailer: mailer, cfg: cfg, log: log}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	user := domain.NewLocalUser(email, displayName, hash)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	cred, ok := user.Local()
	if !ok {
		return "", nil, domain.ErrProviderManaged
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// LoginWithProvider resolves the verified identity by provider uid first,
// then by email (linking the existing account), and creates a linked
// account when neither matches.
func (s *AuthService) LoginWithProvider(ctx context.Context, idToken string) (string, *domain.User, error) {
	if s.provider == nil {
		return "", nil, domain.ErrProviderDisabled
	}

	ident, err := s.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("provider token rejected")
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.resolveProviderUser(ctx, ident)
	if err != nil {
		return "", nil, fmt.Errorf("provider login: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) resolveProviderUser(ctx context.Context, ident *ports.ProviderIdentity) (*domain.User, error) {
	link := domain.ProviderLink{
		ProviderID:  ident.ProviderID,
		ProviderUID: ident.UID,
		PhotoURL:    ident.PhotoURL,
	}

	user, err := s.users.FindByProviderUID(ctx, ident.UID)
	switch {
	case err == nil:
		// The provider just vouched for this uid, so it is not orphaned.
		if user.IsOrphaned() {
			user.ClearOrphaned()
			if err := s.users.Update(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	email := normalizeEmail(ident.Email)
	if email != "" {
		user, err = s.users.FindByEmail(ctx, email)
		switch {
		case err == nil && !ident.EmailVerified:
			s.log.Warn().Str("user_id", user.ID).Str("uid", ident.UID).Msg("refusing to link account to unverified provider email")
			return nil, domain.ErrEmailUnverified
		case err == nil:
			user.LinkProvider(link)
			if err := s.users.Update(ctx, user); err != nil {
				return nil, err
			}
			s.log.Info().Str("user_id", user.ID).Str("uid", ident.UID).Msg("local account linked to provider")
			return user, nil
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, err
		}
	}

	if email == "" {
		return nil, fmt.Errorf("%w: provider identity has no email", domain.ErrInvalidInput)
	}

	displayName := ident.DisplayName
	if displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}
	link.ProviderID = firstNonEmpty(link.ProviderID, domain.DefaultProviderID)
	user = domain.NewLinkedUser(email, displayName, link)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword emails a reset link to local accounts. Unknown emails and
// provider-managed accounts get no email and no error.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if _, ok := user.Local(); !ok {
		s.log.Info().Str("user_id", user.ID).Msg("password reset skipped for provider-managed account")
		return nil
	}

	token, err := randomToken(32)
	if err != nil {
		return err
	}
	user.SetResetToken(hashToken(token), time.Now().UTC().Add(s.cfg.ResetTokenTTL))
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	msg := ports.MailMessage{
		To:       user.Email,
		Subject:  "Reset your Peaberry password",
		HTMLBody: resetEmailBody(user.DisplayName, s.resetLink(token), s.cfg.ResetTokenTTL),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to send password reset email")
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ErrResetTokenInvalid
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	digest := hashToken(token)
	user, err := s.users.FindByResetToken(ctx, digest)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if !user.ResetTokenValid(digest, time.Now().UTC()) {
		return domain.ErrResetTokenInvalid
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := user.SetPassword(hash); err != nil {
		return err
	}
	user.ClearResetToken()

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"exp":   time.Now().Add(s.cfg.TokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) resetLink(token string) string {
	return s.cfg.ResetURL + "?token=" + url.QueryEscape(token)
}

func resetEmailBody(name, link string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Someone asked to reset the password for your Peaberry account.</p>`+
			`<p><a href="%s">Choose a new password</a></p>`+
			`<p>The link expires in %s. If you did not ask for this, ignore this email.</p>`,
		html.EscapeString(name), html.EscapeString(link), ttl,
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
