package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

func orphanedUser(email, uid string) *domain.User {
	u := linkedUser(email, uid)
	u.MarkOrphaned(time.Now().Add(-time.Hour))
	return u
}

func TestOrphanService_Scan_FlagsAndClears(t *testing.T) {
	repo := newStubUserRepo()
	gone := repo.seed(linkedUser("gone@b.com", "uid-gone"))
	alive := repo.seed(linkedUser("alive@b.com", "uid-alive"))
	back := repo.seed(orphanedUser("back@b.com", "uid-back"))
	local := repo.seed(localUser(t, "local@b.com", "password1"))

	provider := &stubProvider{uids: map[string]struct{}{"uid-alive": {}, "uid-back": {}}}
	audit := &stubAudit{}
	svc := NewOrphanService(repo, provider, audit, zerolog.Nop())

	report, err := svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if report.Flagged != 1 || report.Cleared != 1 || report.LinkedUsers != 3 || report.ProviderUsers != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
	if !repo.byID[gone].IsOrphaned() {
		t.Error("expected missing uid flagged")
	}
	if repo.byID[alive].IsOrphaned() || repo.byID[back].IsOrphaned() {
		t.Error("live uids must not be flagged")
	}
	if _, ok := repo.byID[local].Local(); !ok {
		t.Error("local account touched")
	}
	if len(audit.reports) != 1 {
		t.Errorf("expected scan report recorded")
	}

	// A second scan changes nothing.
	report, err = svc.Scan(context.Background())
	if err != nil || report.Flagged != 0 || report.Cleared != 0 {
		t.Errorf("expected stable second scan, got %+v %v", report, err)
	}
}

func TestOrphanService_Scan_RefusesEmptyProvider(t *testing.T) {
	repo := newStubUserRepo()
	id := repo.seed(linkedUser("a@b.com", "u1"))
	svc := NewOrphanService(repo, &stubProvider{uids: map[string]struct{}{}}, &stubAudit{}, zerolog.Nop())

	if _, err := svc.Scan(context.Background()); err == nil {
		t.Fatal("expected error for empty provider list")
	}
	if repo.byID[id].IsOrphaned() {
		t.Error("nothing should be flagged")
	}
}

func TestOrphanService_Scan_ProviderError(t *testing.T) {
	svc := NewOrphanService(newStubUserRepo(), &stubProvider{listErr: errors.New("quota")}, &stubAudit{}, zerolog.Nop())
	if _, err := svc.Scan(context.Background()); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestOrphanService_Scan_Disabled(t *testing.T) {
	svc := NewOrphanService(newStubUserRepo(), nil, &stubAudit{}, zerolog.Nop())
	if _, err := svc.Scan(context.Background()); !errors.Is(err, domain.ErrProviderDisabled) {
		t.Fatalf("expected ErrProviderDisabled, got %v", err)
	}
}

func TestOrphanService_Cleanup_PartialBatch(t *testing.T) {
	repo := newStubUserRepo()
	first := repo.seed(orphanedUser("a@b.com", "u1"))
	second := repo.seed(orphanedUser("b@b.com", "u2"))
	svc := NewOrphanService(repo, nil, &stubAudit{}, zerolog.Nop())

	// The first user is removed by someone else before the batch runs.
	delete(repo.byID, first)

	results, err := svc.Cleanup(context.Background(), ports.CleanupInput{
		UserIDs: []string{first, second},
		Action:  domain.CleanupDelete,
		Confirm: true,
	})
	if err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != domain.CleanupNotFound {
		t.Errorf("expected not_found for %s, got %s", first, results[0].Status)
	}
	if results[1].Status != domain.CleanupDeleted {
		t.Errorf("expected deleted for %s, got %s", second, results[1].Status)
	}
	if _, ok := repo.byID[second]; ok {
		t.Error("expected second user removed")
	}
}

func TestOrphanService_Cleanup_FailureDoesNotAbortBatch(t *testing.T) {
	repo := newStubUserRepo()
	broken := repo.seed(orphanedUser("a@b.com", "u1"))
	ok := repo.seed(orphanedUser("b@b.com", "u2"))
	repo.deleteErr[broken] = errors.New("deadlock detected")
	svc := NewOrphanService(repo, nil, &stubAudit{}, zerolog.Nop())

	results, err := svc.Cleanup(context.Background(), ports.CleanupInput{
		UserIDs: []string{broken, ok},
		Action:  domain.CleanupDelete,
		Confirm: true,
	})
	if err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
	if results[0].Status != domain.CleanupFailed || results[0].Error == "" {
		t.Errorf("expected failure reported, got %+v", results[0])
	}
	if results[1].Status != domain.CleanupDeleted {
		t.Errorf("expected second deleted, got %+v", results[1])
	}
}

func TestOrphanService_Cleanup_Unlink(t *testing.T) {
	repo := newStubUserRepo()
	id := repo.seed(orphanedUser("a@b.com", "u1"))
	svc := NewOrphanService(repo, nil, &stubAudit{}, zerolog.Nop())

	results, err := svc.Cleanup(context.Background(), ports.CleanupInput{
		UserIDs: []string{id}, Action: domain.CleanupUnlink, Confirm: true,
	})
	if err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
	if results[0].Status != domain.CleanupUnlinked {
		t.Fatalf("expected unlinked, got %+v", results[0])
	}
	if _, ok := repo.byID[id].Local(); !ok {
		t.Error("expected local-only account after unlink")
	}
}

func TestOrphanService_Cleanup_SkipsHealthyAccounts(t *testing.T) {
	repo := newStubUserRepo()
	id := repo.seed(linkedUser("a@b.com", "u1"))
	svc := NewOrphanService(repo, nil, &stubAudit{}, zerolog.Nop())

	results, err := svc.Cleanup(context.Background(), ports.CleanupInput{
		UserIDs: []string{id, id}, Action: domain.CleanupDelete, Confirm: true,
	})
	if err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
	if len(results) != 1 || results[0].Status != domain.CleanupSkipped {
		t.Fatalf("expected a single skipped result, got %+v", results)
	}
	if _, ok := repo.byID[id]; !ok {
		t.Error("healthy account deleted")
	}
}

func TestOrphanService_Cleanup_Validation(t *testing.T) {
	svc := NewOrphanService(newStubUserRepo(), nil, &stubAudit{}, zerolog.Nop())

	_, err := svc.Cleanup(context.Background(), ports.CleanupInput{UserIDs: []string{"x"}, Action: domain.CleanupDelete})
	if !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Errorf("expected ErrConfirmationRequired, got %v", err)
	}
	_, err = svc.Cleanup(context.Background(), ports.CleanupInput{UserIDs: []string{"x"}, Action: "purge", Confirm: true})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for action, got %v", err)
	}
	_, err = svc.Cleanup(context.Background(), ports.CleanupInput{Action: domain.CleanupDelete, Confirm: true})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty batch, got %v", err)
	}
}
