package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// WebhookService applies verified provider lifecycle events to local accounts.
type WebhookService interface {
	// Apply is idempotent. A missing account yields OutcomeNoop, not an error.
	Apply(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, error)
}
