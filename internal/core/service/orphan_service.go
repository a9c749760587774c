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

// OrphanService compares provider identities with local links and
// reconciles the accounts an operator approves.
type OrphanService struct {
	users    ports.UserRepository
	provider ports.IdentityProvider
	audit    ports.AuditRepository
	log      zerolog.Logger
}

// NewOrphanService wires orphan detection. provider may be nil, in which
// case Scan reports ErrProviderDisabled and Cleanup still works.
func NewOrphanService(
	users ports.UserRepository,
	provider ports.IdentityProvider,
	audit ports.AuditRepository,
	log zerolog.Logger,
) *OrphanService {
	return &OrphanService{users: users, provider: provider, audit: audit, log: log}
}

// Scan flags linked accounts whose uid the provider no longer knows and
// clears the flag on accounts whose uid reappeared.
func (s *OrphanService) Scan(ctx context.Context) (*domain.OrphanScanReport, error) {
	if s.provider == nil {
		return nil, domain.ErrProviderDisabled
	}

	report := &domain.OrphanScanReport{StartedAt: time.Now().UTC()}

	live, err := s.provider.ListUIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("orphan scan: list provider users: %w", err)
	}
	linked, err := s.users.ListLinked(ctx)
	if err != nil {
		return nil, fmt.Errorf("orphan scan: list linked users: %w", err)
	}
	report.ProviderUsers = len(live)
	report.LinkedUsers = len(linked)

	// An empty provider list next to linked accounts is far more likely an
	// outage or a wrong project than a mass deletion.
	if len(live) == 0 && len(linked) > 0 {
		return nil, fmt.Errorf("orphan scan: provider returned no users for %d linked accounts", len(linked))
	}

	now := time.Now().UTC()
	for _, u := range linked {
		link, _ := u.Provider()
		_, exists := live[link.ProviderUID]

		switch {
		case !exists && !u.IsOrphaned():
			u.MarkOrphaned(now)
			if err := s.users.Update(ctx, u); err != nil {
				s.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to flag orphaned user")
				continue
			}
			report.Flagged++
		case exists && u.IsOrphaned():
			u.ClearOrphaned()
			if err := s.users.Update(ctx, u); err != nil {
				s.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to clear orphan flag")
				continue
			}
			report.Cleared++
		}
	}
	report.FinishedAt = time.Now().UTC()

	if err := s.audit.InsertScanReport(ctx, report); err != nil {
		s.log.Warn().Err(err).Msg("failed to insert orphan scan report")
	}

	s.log.Info().
		Int("provider_users", report.ProviderUsers).
		Int("linked_users", report.LinkedUsers).
		Int("flagged", report.Flagged).
		Int("cleared", report.Cleared).
		Msg("orphan scan finished")

	return report, nil
}

func (s *OrphanService) ListOrphaned(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.ListOrphaned(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orphaned: %w", err)
	}
	return users, nil
}

// Cleanup deletes or unlinks each confirmed id independently. A failure on
// one id is reported in its result and never aborts the rest.
func (s *OrphanService) Cleanup(ctx context.Context, in ports.CleanupInput) ([]domain.CleanupResult, error) {
	if !in.Confirm {
		return nil, domain.ErrConfirmationRequired
	}
	if !in.Action.Valid() {
		return nil, fmt.Errorf("%w: action must be delete or unlink", domain.ErrInvalidInput)
	}
	if len(in.UserIDs) == 0 {
		return nil, fmt.Errorf("%w: userIds is empty", domain.ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(in.UserIDs))
	results := make([]domain.CleanupResult, 0, len(in.UserIDs))
	for _, id := range in.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		res := s.cleanupOne(ctx, id, in.Action)
		if res.Status == domain.CleanupFailed {
			s.log.Error().Str("user_id", id).Str("error", res.Error).Msg("orphan cleanup failed")
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *OrphanService) cleanupOne(ctx context.Context, id string, action domain.CleanupAction) domain.CleanupResult {
	res := domain.CleanupResult{UserID: id}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		res.Status = domain.CleanupNotFound
		return res
	}
	if err != nil {
		res.Status, res.Error = domain.CleanupFailed, err.Error()
		return res
	}
	if !user.IsOrphaned() {
		res.Status, res.Error = domain.CleanupSkipped, domain.ErrNotOrphaned.Error()
		return res
	}

	switch action {
	case domain.CleanupDelete:
		err = s.users.Delete(ctx, id)
		if errors.Is(err, domain.ErrUserNotFound) {
			res.Status = domain.CleanupNotFound
			return res
		}
		res.Status = domain.CleanupDeleted
	case domain.CleanupUnlink:
		var hash string
		hash, err = unusableHash()
		if err == nil {
			user.Unlink(hash)
			err = s.users.Update(ctx, user)
		}
		res.Status = domain.CleanupUnlinked
	}
	if err != nil {
		res.Status, res.Error = domain.CleanupFailed, err.Error()
	}
	return res
}
