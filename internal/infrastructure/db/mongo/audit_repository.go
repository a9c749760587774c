package mongo

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

const (
	deliveriesCollection = "webhook_deliveries"
	scansCollection      = "orphan_scans"

	defaultRetention = 90 * 24 * time.Hour
)

var _ ports.AuditRepository = (*AuditRepository)(nil)

// AuditRepository keeps the webhook delivery trail and orphan scan reports.
type AuditRepository struct {
	db *mongo.Database
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{db: db}
}

// EnsureIndexes creates lookup indexes and the retention TTL indexes.
// A non-positive retention uses defaultRetention; very long ones are clamped.
func (r *AuditRepository) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	ttl := ttlSeconds(retention)

	_, err := r.db.Collection(deliveriesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}, {Key: "processed_at", Value: -1}}},
		{Keys: bson.D{{Key: "processed_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(ttl)},
	})
	if err != nil {
		return fmt.Errorf("delivery indexes: %w", err)
	}

	_, err = r.db.Collection(scansCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "finished_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(ttl),
	})
	if err != nil {
		return fmt.Errorf("scan indexes: %w", err)
	}
	return nil
}

// ttlSeconds converts retention to the expireAfterSeconds value, which the
// server stores as an int32.
func ttlSeconds(retention time.Duration) int32 {
	if retention <= 0 {
		retention = defaultRetention
	}
	secs := int64(retention / time.Second)
	if secs > math.MaxInt32 {
		return math.MaxInt32
	}
	if secs < 1 {
		return 1
	}
	return int32(secs)
}

func (r *AuditRepository) InsertDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	doc := bson.M{
		"event":        string(d.Kind),
		"uid":          d.UID,
		"email":        d.Email,
		"outcome":      string(d.Outcome),
		"processed_at": d.ProcessedAt.UTC(),
	}
	if d.UserID != "" {
		doc["user_id"] = d.UserID
	}
	if !d.EventTime.IsZero() {
		doc["event_time"] = d.EventTime.UTC()
	}

	if _, err := r.db.Collection(deliveriesCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func (r *AuditRepository) InsertScanReport(ctx context.Context, rep *domain.OrphanScanReport) error {
	doc := bson.M{
		"provider_users": rep.ProviderUsers,
		"linked_users":   rep.LinkedUsers,
		"flagged":        rep.Flagged,
		"cleared":        rep.Cleared,
		"started_at":     rep.StartedAt.UTC(),
		"finished_at":    rep.FinishedAt.UTC(),
	}

	if _, err := r.db.Collection(scansCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert scan report: %w", err)
	}
	return nil
}
