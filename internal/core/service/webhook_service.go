package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// DedupChecker abstracts the delivery idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, kind, uid string, ts time.Time) (bool, error)
	Mark(ctx context.Context, kind, uid string, ts time.Time) error
}

type webhookService struct {
	users  ports.UserRepository
	audit  ports.AuditRepository
	dedup  DedupChecker
	policy domain.DeletePolicy
	log    zerolog.Logger
}

// NewWebhookService returns a WebhookService implementation. An invalid
// policy falls back to unlinking.
func NewWebhookService(
	users ports.UserRepository,
	audit ports.AuditRepository,
	dedup DedupChecker,
	policy domain.DeletePolicy,
	log zerolog.Logger,
) ports.WebhookService {
	if !policy.Valid() {
		policy = domain.DeleteUnlink
	}
	return &webhookService{
		users:  users,
		audit:  audit,
		dedup:  dedup,
		policy: policy,
		log:    log,
	}
}

// Apply dispatches a verified event. Every branch is idempotent and treats a
// missing account as a no-op, so redelivery and reordering are harmless.
func (s *webhookService) Apply(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, error) {
	if !evt.Kind.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEvent, evt.Kind)
	}

	// 1. Skip deliveries already applied. Events without a timestamp cannot be
	// told apart, so they are always applied.
	dedupable := !evt.Timestamp.IsZero() && evt.UID != ""
	if dedupable {
		isDup, err := s.dedup.IsDuplicate(ctx, string(evt.Kind), evt.UID, evt.Timestamp)
		if err != nil {
			s.log.Warn().Err(err).Str("uid", evt.UID).Msg("dedup check failed, applying anyway")
		} else if isDup {
			s.log.Debug().Str("event", string(evt.Kind)).Str("uid", evt.UID).Msg("duplicate delivery skipped")
			return domain.OutcomeDuplicate, nil
		}
	}

	// 2. Apply to the user table.
	var (
		outcome domain.WebhookOutcome
		userID  string
		err     error
	)
	switch evt.Kind {
	case domain.EventUserCreate:
		outcome, userID, err = s.applyCreate(ctx, evt)
	case domain.EventPasswordUpdate:
		outcome, userID, err = s.applyPasswordUpdate(ctx, evt)
	case domain.EventUserDelete:
		outcome, userID, err = s.applyDelete(ctx, evt)
	}
	if err != nil {
		return "", fmt.Errorf("apply %s: %w", evt.Kind, err)
	}

	// 3. Mark only after the write succeeded so a failed delivery is retried in full.
	if dedupable {
		if markErr := s.dedup.Mark(ctx, string(evt.Kind), evt.UID, evt.Timestamp); markErr != nil {
			s.log.Warn().Err(markErr).Str("uid", evt.UID).Msg("failed to set dedup key")
		}
	}

	// 4. Audit trail (non-fatal on failure).
	delivery := &domain.WebhookDelivery{
		Kind:        evt.Kind,
		UID:         evt.UID,
		Email:       evt.Email,
		Outcome:     outcome,
		UserID:      userID,
		EventTime:   evt.Timestamp,
		ProcessedAt: time.Now().UTC(),
	}
	if err := s.audit.InsertDelivery(ctx, delivery); err != nil {
		s.log.Warn().Err(err).Str("uid", evt.UID).Msg("failed to insert webhook audit record")
	}

	s.log.Info().
		Str("event", string(evt.Kind)).
		Str("uid", evt.UID).
		Str("email", evt.Email).
		Str("outcome", string(outcome)).
		Msg("webhook event processed")

	return outcome, nil
}

// applyCreate links an existing local account to the provider identity.
// Accounts are never created here.
func (s *webhookService) applyCreate(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, string, error) {
	if evt.UID == "" {
		return "", "", fmt.Errorf("%w: uid is required", domain.ErrInvalidInput)
	}
	email := normalizeEmail(evt.Email)
	if email == "" {
		return domain.OutcomeNoop, "", nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.OutcomeNoop, "", nil
	}
	if err != nil {
		return "", "", err
	}

	providerID := firstNonEmpty(evt.ProviderID, domain.DefaultProviderID)
	if current, ok := user.Provider(); ok &&
		current.ProviderUID == evt.UID &&
		current.ProviderID == providerID &&
		current.PhotoURL == evt.PhotoURL &&
		current.OrphanedAt == nil {
		return domain.OutcomeNoop, user.ID, nil
	}

	// A uid belongs to at most one account.
	holder, err := s.users.FindByProviderUID(ctx, evt.UID)
	switch {
	case err == nil && holder.ID != user.ID:
		s.log.Warn().
			Str("uid", evt.UID).
			Str("holder_id", holder.ID).
			Str("user_id", user.ID).
			Msg("uid already linked to another account, skipping")
		return domain.OutcomeNoop, user.ID, nil
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return "", "", err
	}

	user.LinkProvider(domain.ProviderLink{
		ProviderID:  providerID,
		ProviderUID: evt.UID,
		PhotoURL:    evt.PhotoURL,
	})
	return s.save(ctx, user)
}

// applyPasswordUpdate invalidates the local password and any outstanding
// reset token for the account with this email.
func (s *webhookService) applyPasswordUpdate(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, string, error) {
	email := normalizeEmail(evt.Email)
	if email == "" {
		return domain.OutcomeNoop, "", nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.OutcomeNoop, "", nil
	}
	if err != nil {
		return "", "", err
	}

	changed := false
	if _, ok := user.Local(); ok {
		hash, err := unusableHash()
		if err != nil {
			return "", "", err
		}
		if err := user.SetPassword(hash); err != nil {
			return "", "", err
		}
		changed = true
	}
	if user.ResetTokenHash != "" {
		user.ClearResetToken()
		changed = true
	}
	if !changed {
		return domain.OutcomeNoop, user.ID, nil
	}
	return s.save(ctx, user)
}

// applyDelete handles a provider-side deletion according to the configured policy.
// Local-only accounts carry no uid and are never matched.
func (s *webhookService) applyDelete(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, string, error) {
	if evt.UID == "" {
		return "", "", fmt.Errorf("%w: uid is required", domain.ErrInvalidInput)
	}

	user, err := s.users.FindByProviderUID(ctx, evt.UID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.OutcomeNoop, "", nil
	}
	if err != nil {
		return "", "", err
	}

	switch s.policy {
	case domain.DeleteRemove:
		if err := s.users.Delete(ctx, user.ID); err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return domain.OutcomeNoop, user.ID, nil
			}
			return "", "", err
		}
	case domain.DeleteFlag:
		if user.IsOrphaned() {
			return domain.OutcomeNoop, user.ID, nil
		}
		user.MarkOrphaned(time.Now().UTC())
		return s.save(ctx, user)
	default:
		hash, err := unusableHash()
		if err != nil {
			return "", "", err
		}
		user.Unlink(hash)
		return s.save(ctx, user)
	}
	return domain.OutcomeApplied, user.ID, nil
}

// save writes user back. A row deleted since it was read makes the event a
// no-op, the same as a row that was never there.
func (s *webhookService) save(ctx context.Context, user *domain.User) (domain.WebhookOutcome, string, error) {
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Info().Str("user_id", user.ID).Msg("account removed before the event was applied")
			return domain.OutcomeNoop, user.ID, nil
		}
		return "", "", err
	}
	return domain.OutcomeApplied, user.ID, nil
}
