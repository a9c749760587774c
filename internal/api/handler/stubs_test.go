package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// newContext builds an echo.Context with the real validator installed.
func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// httpCode extracts the status of an *echo.HTTPError, or 0.
func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}

// ---- auth ----

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.User, error)
	providerFn func(ctx context.Context, idToken string) (string, *domain.User, error)
	forgotFn   func(ctx context.Context, email string) error
	resetFn    func(ctx context.Context, token, password string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) LoginWithProvider(ctx context.Context, idToken string) (string, *domain.User, error) {
	return s.providerFn(ctx, idToken)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, password string) error {
	return s.resetFn(ctx, token, password)
}

// ---- cafes ----

type stubCafeService struct {
	listFn      func(ctx context.Context, in ports.ListCafesInput) (*ports.ListCafesResult, error)
	getFn       func(ctx context.Context, id, role string) (*domain.Cafe, error)
	markersFn   func(ctx context.Context, box *domain.BoundingBox) ([]domain.MapMarker, error)
	filtersFn   func(ctx context.Context) (*ports.Filters, error)
	createFn    func(ctx context.Context, in ports.CafeInput) (*domain.Cafe, error)
	updateFn    func(ctx context.Context, id string, in ports.CafeInput) (*domain.Cafe, error)
	setStatusFn func(ctx context.Context, id, status string) (*domain.Cafe, error)
	deleteFn    func(ctx context.Context, id string) error
}

func (s *stubCafeService) List(ctx context.Context, in ports.ListCafesInput) (*ports.ListCafesResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubCafeService) Get(ctx context.Context, id, role string) (*domain.Cafe, error) {
	return s.getFn(ctx, id, role)
}

func (s *stubCafeService) Markers(ctx context.Context, box *domain.BoundingBox) ([]domain.MapMarker, error) {
	return s.markersFn(ctx, box)
}

func (s *stubCafeService) Filters(ctx context.Context) (*ports.Filters, error) {
	return s.filtersFn(ctx)
}

func (s *stubCafeService) Create(ctx context.Context, in ports.CafeInput) (*domain.Cafe, error) {
	return s.createFn(ctx, in)
}

func (s *stubCafeService) Update(ctx context.Context, id string, in ports.CafeInput) (*domain.Cafe, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubCafeService) SetStatus(ctx context.Context, id, status string) (*domain.Cafe, error) {
	return s.setStatusFn(ctx, id, status)
}

func (s *stubCafeService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// ---- engagement ----

type stubEngagementService struct {
	addFavoriteFn    func(ctx context.Context, userID, cafeID string) error
	removeFavoriteFn func(ctx context.Context, userID, cafeID string) error
	listFavoritesFn  func(ctx context.Context, userID string) ([]*domain.Cafe, error)
	rateFn           func(ctx context.Context, in ports.RateInput) (*domain.Rating, error)
	removeRatingFn   func(ctx context.Context, userID, cafeID string) error
	listRatingsFn    func(ctx context.Context, cafeID string, page, limit int) (*ports.ListRatingsResult, error)
}

func (s *stubEngagementService) AddFavorite(ctx context.Context, userID, cafeID string) error {
	return s.addFavoriteFn(ctx, userID, cafeID)
}

func (s *stubEngagementService) RemoveFavorite(ctx context.Context, userID, cafeID string) error {
	return s.removeFavoriteFn(ctx, userID, cafeID)
}

func (s *stubEngagementService) ListFavorites(ctx context.Context, userID string) ([]*domain.Cafe, error) {
	return s.listFavoritesFn(ctx, userID)
}

func (s *stubEngagementService) Rate(ctx context.Context, in ports.RateInput) (*domain.Rating, error) {
	return s.rateFn(ctx, in)
}

func (s *stubEngagementService) RemoveRating(ctx context.Context, userID, cafeID string) error {
	return s.removeRatingFn(ctx, userID, cafeID)
}

func (s *stubEngagementService) ListRatings(ctx context.Context, cafeID string, page, limit int) (*ports.ListRatingsResult, error) {
	return s.listRatingsFn(ctx, cafeID, page, limit)
}

// ---- users & orphans ----

type stubUserService struct {
	getFn        func(ctx context.Context, id string) (*domain.User, error)
	listFn       func(ctx context.Context, filter ports.ListUsersFilter) (*ports.ListUsersResult, error)
	changeRoleFn func(ctx context.Context, id, role string) (*domain.User, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) List(ctx context.Context, filter ports.ListUsersFilter) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, filter)
}

func (s *stubUserService) ChangeRole(ctx context.Context, id, role string) (*domain.User, error) {
	return s.changeRoleFn(ctx, id, role)
}

func (s *stubUserService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

type stubOrphanService struct {
	scanFn    func(ctx context.Context) (*domain.OrphanScanReport, error)
	listFn    func(ctx context.Context) ([]*domain.User, error)
	cleanupFn func(ctx context.Context, in ports.CleanupInput) ([]domain.CleanupResult, error)
}

func (s *stubOrphanService) Scan(ctx context.Context) (*domain.OrphanScanReport, error) {
	return s.scanFn(ctx)
}

func (s *stubOrphanService) ListOrphaned(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

func (s *stubOrphanService) Cleanup(ctx context.Context, in ports.CleanupInput) ([]domain.CleanupResult, error) {
	return s.cleanupFn(ctx, in)
}

// ---- webhooks ----

type stubWebhookService struct {
	applyFn func(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, error)
}

func (s *stubWebhookService) Apply(ctx context.Context, evt domain.WebhookEvent) (domain.WebhookOutcome, error) {
	return s.applyFn(ctx, evt)
}
