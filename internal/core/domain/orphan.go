package domain

import (
	"errors"
	"time"
)

var (
	ErrNotOrphaned          = errors.New("user is not flagged as orphaned")
	ErrConfirmationRequired = errors.New("operator confirmation required")
)

// CleanupAction is what reconciliation does to an orphaned account.
type CleanupAction string

const (
	CleanupDelete CleanupAction = "delete"
	CleanupUnlink CleanupAction = "unlink"
)

// Valid reports whether a is a supported action.
func (a CleanupAction) Valid() bool {
	return a == CleanupDelete || a == CleanupUnlink
}

// CleanupStatus is the per-user outcome of a reconciliation batch.
type CleanupStatus string

const (
	CleanupDeleted  CleanupStatus = "deleted"
	CleanupUnlinked CleanupStatus = "unlinked"
	CleanupNotFound CleanupStatus = "not_found"
	CleanupSkipped  CleanupStatus = "skipped"
	CleanupFailed   CleanupStatus = "failed"
)

// CleanupResult reports what happened to one user id.
type CleanupResult struct {
	UserID string        `json:"userId"`
	Status CleanupStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// OrphanScanReport summarises one comparison of provider and local identities.
type OrphanScanReport struct {
	ProviderUsers int       `json:"providerUsers"`
	LinkedUsers   int       `json:"linkedUsers"`
	Flagged       int       `json:"flagged"`
	Cleared       int       `json:"cleared"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}
