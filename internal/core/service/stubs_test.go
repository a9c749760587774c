package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	updates   int
	updateErr error
	deleteErr map[string]error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User), deleteErr: make(map[string]error)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// seed stores u as-is and returns its id.
func (r *stubUserRepo) seed(u *domain.User) string {
	r.nextID++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", r.nextID)
	}
	r.byID[u.ID] = cloneUser(u)
	return u.ID
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	r.seed(u)
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, u *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if err := u.Validate(); err != nil {
		return err
	}
	r.updates++
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	if err := r.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByProviderUID(_ context.Context, uid string) (*domain.User, error) {
	for _, u := range r.byID {
		if p, ok := u.Provider(); ok && p.ProviderUID == uid {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.ResetTokenHash != "" && u.ResetTokenHash == tokenHash {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	var out []*domain.User
	for _, u := range r.byID {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(u.Email, f.Search) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) ListLinked(_ context.Context) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.byID {
		if _, ok := u.Provider(); ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) ListOrphaned(_ context.Context) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.byID {
		if u.IsOrphaned() {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Audit, dedup, provider, mailer
// ---------------------------------------------------------------------------

type stubAudit struct {
	deliveries []*domain.WebhookDelivery
	reports    []*domain.OrphanScanReport
	err        error
}

func (a *stubAudit) InsertDelivery(_ context.Context, d *domain.WebhookDelivery) error {
	if a.err != nil {
		return a.err
	}
	a.deliveries = append(a.deliveries, d)
	return nil
}

func (a *stubAudit) InsertScanReport(_ context.Context, r *domain.OrphanScanReport) error {
	if a.err != nil {
		return a.err
	}
	a.reports = append(a.reports, r)
	return nil
}

type stubDedup struct {
	dupResult bool
	dupErr    error
	markErr   error
	marked    []string
}

func (d *stubDedup) IsDuplicate(_ context.Context, kind, uid string, _ time.Time) (bool, error) {
	return d.dupResult, d.dupErr
}

func (d *stubDedup) Mark(_ context.Context, kind, uid string, _ time.Time) error {
	if d.markErr != nil {
		return d.markErr
	}
	d.marked = append(d.marked, kind+":"+uid)
	return nil
}

type stubProvider struct {
	identities map[string]*ports.ProviderIdentity // keyed by id token
	uids       map[string]struct{}
	listErr    error
}

func (p *stubProvider) VerifyIDToken(_ context.Context, idToken string) (*ports.ProviderIdentity, error) {
	ident, ok := p.identities[idToken]
	if !ok {
		return nil, fmt.Errorf("token %q rejected", idToken)
	}
	clone := *ident
	return &clone, nil
}

func (p *stubProvider) ListUIDs(_ context.Context) (map[string]struct{}, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.uids, nil
}

type stubMailer struct {
	sent []ports.MailMessage
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg ports.MailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// ---------------------------------------------------------------------------
// Cafes, favorites, ratings
// ---------------------------------------------------------------------------

type stubCafeRepo struct {
	byID       map[string]*domain.Cafe
	lastFilter ports.ListCafesFilter
	nextID     int
}

func newStubCafeRepo() *stubCafeRepo {
	return &stubCafeRepo{byID: make(map[string]*domain.Cafe)}
}

func (r *stubCafeRepo) seed(name string, status domain.CafeStatus) string {
	r.nextID++
	id := fmt.Sprintf("cafe-%d", r.nextID)
	r.byID[id] = &domain.Cafe{ID: id, Name: name, City: "Portland", PriceTier: 2, Status: status, AverageRating: decimal.Zero}
	return id
}

func (r *stubCafeRepo) Create(_ context.Context, c *domain.Cafe) error {
	r.nextID++
	c.ID = fmt.Sprintf("cafe-%d", r.nextID)
	clone := *c
	r.byID[c.ID] = &clone
	return nil
}

func (r *stubCafeRepo) Update(_ context.Context, c *domain.Cafe) error {
	if _, ok := r.byID[c.ID]; !ok {
		return domain.ErrCafeNotFound
	}
	clone := *c
	r.byID[c.ID] = &clone
	return nil
}

func (r *stubCafeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrCafeNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubCafeRepo) FindByID(_ context.Context, id string) (*domain.Cafe, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCafeNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *stubCafeRepo) List(_ context.Context, f ports.ListCafesFilter) ([]*domain.Cafe, int64, error) {
	r.lastFilter = f
	var out []*domain.Cafe
	for _, c := range r.byID {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func containsStatus(list []domain.CafeStatus, s domain.CafeStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *stubCafeRepo) Markers(_ context.Context, _ *domain.BoundingBox) ([]domain.MapMarker, error) {
	return nil, nil
}

func (r *stubCafeRepo) RoastLevels(_ context.Context) ([]domain.RoastLevel, error) {
	return []domain.RoastLevel{{ID: 1, Slug: "light", Name: "Light"}}, nil
}

func (r *stubCafeRepo) BrewingMethods(_ context.Context) ([]domain.BrewingMethod, error) {
	return []domain.BrewingMethod{{ID: 1, Slug: "pour-over", Name: "Pour over"}}, nil
}

type stubFavorites struct {
	set map[string]struct{}
}

func newStubFavorites() *stubFavorites {
	return &stubFavorites{set: make(map[string]struct{})}
}

func (f *stubFavorites) Add(_ context.Context, userID, cafeID string) error {
	f.set[userID+"/"+cafeID] = struct{}{}
	return nil
}

func (f *stubFavorites) Remove(_ context.Context, userID, cafeID string) error {
	delete(f.set, userID+"/"+cafeID)
	return nil
}

func (f *stubFavorites) ListCafes(_ context.Context, userID string) ([]*domain.Cafe, error) {
	return nil, nil
}

type stubRatings struct {
	byKey map[string]*domain.Rating
}

func newStubRatings() *stubRatings {
	return &stubRatings{byKey: make(map[string]*domain.Rating)}
}

func (r *stubRatings) Upsert(_ context.Context, rt *domain.Rating) error {
	key := rt.UserID + "/" + rt.CafeID
	if existing, ok := r.byKey[key]; ok {
		rt.ID = existing.ID
	} else {
		rt.ID = fmt.Sprintf("rating-%d", len(r.byKey)+1)
	}
	clone := *rt
	r.byKey[key] = &clone
	return nil
}

func (r *stubRatings) Delete(_ context.Context, userID, cafeID string) error {
	key := userID + "/" + cafeID
	if _, ok := r.byKey[key]; !ok {
		return domain.ErrRatingNotFound
	}
	delete(r.byKey, key)
	return nil
}

func (r *stubRatings) ListByCafe(_ context.Context, cafeID string, _, _ int) ([]*domain.Rating, int64, error) {
	var out []*domain.Rating
	for _, rt := range r.byKey {
		if rt.CafeID == cafeID {
			out = append(out, rt)
		}
	}
	return out, int64(len(out)), nil
}
