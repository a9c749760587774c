package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

func TestOrphanHandler_ListOrphaned(t *testing.T) {
	at := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	stub := &stubOrphanService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			u := domain.NewLinkedUser("g@b.com", "G", domain.ProviderLink{ProviderID: "google.com", ProviderUID: "uid-1"})
			u.ID = "u-1"
			u.MarkOrphaned(at)
			return []*domain.User{u}, nil
		},
	}
	h := NewOrphanHandler(stub)

	c, rec := newContext(http.MethodGet, "/api/admin/users/orphaned", "")
	if err := h.ListOrphaned(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var users []userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(users) != 1 || users[0].OrphanedAt == nil || !users[0].OrphanedAt.Equal(at) {
		t.Fatalf("unexpected users %s", rec.Body.String())
	}
}

func TestOrphanHandler_Scan(t *testing.T) {
	stub := &stubOrphanService{
		scanFn: func(ctx context.Context) (*domain.OrphanScanReport, error) {
			return &domain.OrphanScanReport{ProviderUsers: 10, LinkedUsers: 4, Flagged: 1}, nil
		},
		listFn: func(ctx context.Context) ([]*domain.User, error) { return nil, nil },
	}
	h := NewOrphanHandler(stub)

	c, rec := newContext(http.MethodPost, "/api/admin/users/orphans/scan", "")
	if err := h.Scan(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var report domain.OrphanScanReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if report.Flagged != 1 || report.LinkedUsers != 4 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestOrphanHandler_Scan_ProviderDisabled(t *testing.T) {
	stub := &stubOrphanService{
		scanFn: func(ctx context.Context) (*domain.OrphanScanReport, error) {
			return nil, domain.ErrProviderDisabled
		},
	}
	h := NewOrphanHandler(stub)

	c, _ := newContext(http.MethodPost, "/api/admin/users/orphans/scan", "")
	if err := h.Scan(c); !errors.Is(err, domain.ErrProviderDisabled) {
		t.Fatalf("expected ErrProviderDisabled, got %v", err)
	}
}

func TestOrphanHandler_Cleanup(t *testing.T) {
	var got ports.CleanupInput
	stub := &stubOrphanService{
		cleanupFn: func(ctx context.Context, in ports.CleanupInput) ([]domain.CleanupResult, error) {
			got = in
			return []domain.CleanupResult{
				{UserID: "u-1", Status: domain.CleanupDeleted},
				{UserID: "u-2", Status: domain.CleanupNotFound},
				{UserID: "u-3", Status: domain.CleanupSkipped},
				{UserID: "u-4", Status: domain.CleanupFailed, Error: "boom"},
			}, nil
		},
	}
	h := NewOrphanHandler(stub)

	body := `{"userIds":["u-1","u-2","u-3","u-4"],"action":"delete","confirm":true}`
	c, rec := newContext(http.MethodPost, "/api/admin/users/cleanup", body)
	if err := h.Cleanup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	want := ports.CleanupInput{UserIDs: []string{"u-1", "u-2", "u-3", "u-4"}, Action: domain.CleanupDelete, Confirm: true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected input %+v", got)
	}

	var resp cleanupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	wantSummary := cleanupSummary{Deleted: 1, NotFound: 1, Skipped: 1, Failed: 1}
	if resp.Summary != wantSummary || len(resp.Results) != 4 || resp.Results[3].Error != "boom" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestOrphanHandler_Cleanup_Validation(t *testing.T) {
	h := NewOrphanHandler(&stubOrphanService{})

	cases := map[string]string{
		"no ids":     `{"userIds":[],"action":"delete","confirm":true}`,
		"bad action": `{"userIds":["u-1"],"action":"purge","confirm":true}`,
		"blank id":   `{"userIds":[""],"action":"unlink","confirm":true}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/api/admin/users/cleanup", body)
			if code := httpCode(h.Cleanup(c)); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
		})
	}
}

func TestOrphanHandler_Cleanup_RequiresConfirmation(t *testing.T) {
	stub := &stubOrphanService{
		cleanupFn: func(ctx context.Context, in ports.CleanupInput) ([]domain.CleanupResult, error) {
			if !in.Confirm {
				return nil, domain.ErrConfirmationRequired
			}
			return nil, nil
		},
	}
	h := NewOrphanHandler(stub)

	c, _ := newContext(http.MethodPost, "/api/admin/users/cleanup", `{"userIds":["u-1"],"action":"unlink"}`)
	if err := h.Cleanup(c); !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
}
