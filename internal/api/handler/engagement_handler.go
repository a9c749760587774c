package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// EngagementHandler serves favorites and ratings.
type EngagementHandler struct {
	service ports.EngagementService
}

func NewEngagementHandler(service ports.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: service}
}

// AddFavorite bookmarks a published cafe. Repeating the call is a no-op.
//
// @Summary      Favorite a cafe
// @Tags         favorites
// @Security     BearerAuth
// @Param        id   path  string  true  "Cafe ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/cafes/{id}/favorite [put]
func (h *EngagementHandler) AddFavorite(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := h.service.AddFavorite(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveFavorite drops a bookmark. Removing a missing bookmark succeeds.
//
// @Summary      Unfavorite a cafe
// @Tags         favorites
// @Security     BearerAuth
// @Param        id  path  string  true  "Cafe ID"
// @Success      204
// @Router       /api/cafes/{id}/favorite [delete]
func (h *EngagementHandler) RemoveFavorite(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveFavorite(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFavorites returns the caller's favorite cafes, newest first.
//
// @Summary      My favorites
// @Tags         favorites
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  cafeResponse
// @Router       /api/me/favorites [get]
func (h *EngagementHandler) ListFavorites(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	cafes, err := h.service.ListFavorites(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCafeResponses(cafes))
}

// Rate creates or replaces the caller's rating of a cafe.
//
// @Summary      Rate a cafe
// @Tags         ratings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "Cafe ID"
// @Param        body  body      rateRequest  true  "Rating and review"
// @Success      200   {object}  ratingResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/cafes/{id}/rating [put]
func (h *EngagementHandler) Rate(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	var req rateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	rating, err := h.service.Rate(c.Request().Context(), ports.RateInput{
		UserID: userID,
		CafeID: c.Param("id"),
		Score:  req.Rating,
		Review: req.Review,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRatingResponse(rating))
}

// RemoveRating deletes the caller's rating of a cafe.
//
// @Summary      Remove my rating
// @Tags         ratings
// @Security     BearerAuth
// @Param        id   path  string  true  "Cafe ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/cafes/{id}/rating [delete]
func (h *EngagementHandler) RemoveRating(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveRating(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRatings pages the ratings of a published cafe.
//
// @Summary      Cafe ratings
// @Tags         ratings
// @Produce      json
// @Param        id     path      string  true   "Cafe ID"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  ratingListResponse
// @Failure      404    {object}  errorResponse
// @Router       /api/cafes/{id}/ratings [get]
func (h *EngagementHandler) ListRatings(c echo.Context) error {
	var page, limit int
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.ListRatings(c.Request().Context(), c.Param("id"), page, limit)
	if err != nil {
		return err
	}
	data := make([]*ratingResponse, 0, len(result.Items))
	for _, r := range result.Items {
		data = append(data, toRatingResponse(r))
	}
	return c.JSON(http.StatusOK, ratingListResponse{
		Data: data,
		Meta: pageMeta{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}
