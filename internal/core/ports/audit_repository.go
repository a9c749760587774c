package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// AuditRepository keeps an append-only trail of webhook deliveries and orphan scans.
type AuditRepository interface {
	InsertDelivery(ctx context.Context, d *domain.WebhookDelivery) error
	InsertScanReport(ctx context.Context, r *domain.OrphanScanReport) error
}
