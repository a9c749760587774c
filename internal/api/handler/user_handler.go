package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin cafe_owner"`
}

type userListResponse struct {
	Data []*userResponse `json:"data"`
	Meta pageMeta        `json:"meta"`
}

// Me returns the authenticated user.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteMe removes the caller's account with its favorites and ratings.
//
// @Summary      Delete my account
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Router       /api/me [delete]
func (h *UserHandler) DeleteMe(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := h.userService.Delete(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List pages every account.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        q      query     string  false  "Search email and display name"
// @Param        role   query     string  false  "Role"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Page size"
// @Success      200    {object}  userListResponse
// @Failure      403    {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	var filter ports.ListUsersFilter
	err := echo.QueryParamsBinder(c).
		String("q", &filter.Search).
		String("role", &filter.Role).
		Int("page", &filter.Page).
		Int("limit", &filter.Limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.userService.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userListResponse{
		Data: toUserResponses(result.Items),
		Meta: pageMeta{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

// ChangeRole sets a user's role.
//
// @Summary      Change role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "User ID"
// @Param        body  body      roleRequest  true  "New role"
// @Success      200   {object}  userResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/admin/users/{id}/role [patch]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	user, err := h.userService.ChangeRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes any account.
//
// @Summary      Delete user
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.userService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
