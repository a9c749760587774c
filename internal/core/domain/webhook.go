package domain

import (
	"errors"
	"time"
)

// WebhookEventKind names a lifecycle notification forwarded by the identity provider.
type WebhookEventKind string

const (
	EventUserCreate     WebhookEventKind = "user.create"
	EventPasswordUpdate WebhookEventKind = "password.update"
	EventUserDelete     WebhookEventKind = "user.delete"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownEvent     = errors.New("unknown webhook event")
)

// Valid reports whether k is a supported event kind.
func (k WebhookEventKind) Valid() bool {
	switch k {
	case EventUserCreate, EventPasswordUpdate, EventUserDelete:
		return true
	}
	return false
}

// WebhookEvent is a verified, decoded delivery.
type WebhookEvent struct {
	Kind        WebhookEventKind
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	ProviderID  string
	Timestamp   time.Time
}

// WebhookOutcome records what applying an event did.
type WebhookOutcome string

const (
	OutcomeApplied   WebhookOutcome = "applied"
	OutcomeNoop      WebhookOutcome = "noop"
	OutcomeDuplicate WebhookOutcome = "duplicate"
)

// DeletePolicy decides what a user.delete event does to a linked account.
type DeletePolicy string

const (
	// DeleteUnlink drops the provider link and keeps the account.
	DeleteUnlink DeletePolicy = "unlink"
	// DeleteRemove deletes the account and its favorites and ratings.
	DeleteRemove DeletePolicy = "delete"
	// DeleteFlag marks the account orphaned and leaves the decision to an operator.
	DeleteFlag DeletePolicy = "flag"
)

// Valid reports whether p is a supported policy.
func (p DeletePolicy) Valid() bool {
	switch p {
	case DeleteUnlink, DeleteRemove, DeleteFlag:
		return true
	}
	return false
}

// WebhookDelivery is the audit record of one processed delivery.
type WebhookDelivery struct {
	Kind        WebhookEventKind
	UID         string
	Email       string
	Outcome     WebhookOutcome
	UserID      string
	EventTime   time.Time
	ProcessedAt time.Time
}
