package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/api/metrics"
	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// OrphanHandler exposes orphan detection and operator reconciliation.
type OrphanHandler struct {
	service ports.OrphanService
}

func NewOrphanHandler(service ports.OrphanService) *OrphanHandler {
	return &OrphanHandler{service: service}
}

type cleanupRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,max=500,dive,required"`
	Action  string   `json:"action"  validate:"required,oneof=delete unlink"`
	Confirm bool     `json:"confirm"`
}

type cleanupSummary struct {
	Deleted  int `json:"deleted"`
	Unlinked int `json:"unlinked"`
	NotFound int `json:"notFound"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

type cleanupResponse struct {
	Results []domain.CleanupResult `json:"results"`
	Summary cleanupSummary         `json:"summary"`
}

// RunScan compares provider and local identities and records the result.
// The scheduled job and the admin endpoint share it.
func (h *OrphanHandler) RunScan(ctx context.Context) (*domain.OrphanScanReport, error) {
	report, err := h.service.Scan(ctx)
	metrics.OrphanScansTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	if orphaned, err := h.service.ListOrphaned(ctx); err == nil {
		metrics.OrphanedAccounts.Set(float64(len(orphaned)))
	}
	return report, nil
}

// ListOrphaned returns accounts whose provider identity no longer exists.
//
// @Summary      List orphaned accounts
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users/orphaned [get]
func (h *OrphanHandler) ListOrphaned(c echo.Context) error {
	users, err := h.service.ListOrphaned(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Scan runs an orphan scan now.
//
// @Summary      Run orphan scan
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.OrphanScanReport
// @Failure      501  {object}  errorResponse
// @Router       /api/admin/users/orphans/scan [post]
func (h *OrphanHandler) Scan(c echo.Context) error {
	report, err := h.RunScan(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Cleanup deletes or unlinks orphaned accounts. Each id is processed on its
// own; ids that are not orphaned are skipped.
//
// @Summary      Reconcile orphaned accounts
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      cleanupRequest  true  "Ids, action and confirmation"
// @Success      200   {object}  cleanupResponse
// @Failure      400   {object}  errorResponse  "confirmation missing"
// @Failure      422   {object}  errorResponse
// @Router       /api/admin/users/cleanup [post]
func (h *OrphanHandler) Cleanup(c echo.Context) error {
	var req cleanupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	results, err := h.service.Cleanup(c.Request().Context(), ports.CleanupInput{
		UserIDs: req.UserIDs,
		Action:  domain.CleanupAction(req.Action),
		Confirm: req.Confirm,
	})
	if err != nil {
		return err
	}

	var summary cleanupSummary
	for _, r := range results {
		metrics.OrphanCleanupTotal.WithLabelValues(req.Action, string(r.Status)).Inc()
		switch r.Status {
		case domain.CleanupDeleted:
			summary.Deleted++
		case domain.CleanupUnlinked:
			summary.Unlinked++
		case domain.CleanupNotFound:
			summary.NotFound++
		case domain.CleanupSkipped:
			summary.Skipped++
		case domain.CleanupFailed:
			summary.Failed++
		}
	}
	return c.JSON(http.StatusOK, cleanupResponse{Results: results, Summary: summary})
}
