package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

type CafeHandler struct {
	cafeService ports.CafeService
}

func NewCafeHandler(cafeService ports.CafeService) *CafeHandler {
	return &CafeHandler{cafeService: cafeService}
}

// List returns published cafes. Admin callers may also pass status.
//
// @Summary      List cafes
// @Tags         cafes
// @Produce      json
// @Param        q          query     string    false  "Search name and description"
// @Param        city       query     string    false  "City"
// @Param        priceTier  query     int       false  "Price tier (1-4)"
// @Param        roast      query     []string  false  "Roast level slug (repeatable)"
// @Param        method     query     []string  false  "Brewing method slug (repeatable)"
// @Param        minRating  query     number    false  "Minimum average rating"
// @Param        sort       query     string    false  "name, rating or newest"
// @Param        page       query     int       false  "Page number (default 1)"
// @Param        limit      query     int       false  "Page size (default 20, max 100)"
// @Success      200        {object}  cafeListResponse
// @Failure      400        {object}  errorResponse
// @Router       /api/cafes [get]
func (h *CafeHandler) List(c echo.Context) error {
	in, err := bindListCafes(c)
	if err != nil {
		return err
	}
	in.Role = ctxRole(c)
	return h.list(c, in)
}

// AdminList returns cafes of any status.
//
// @Summary      List cafes (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     []string  false  "draft, published or archived (repeatable)"
// @Param        q       query     string    false  "Search name and description"
// @Param        sort    query     string    false  "name, rating or newest"
// @Param        page    query     int       false  "Page number"
// @Param        limit   query     int       false  "Page size"
// @Success      200     {object}  cafeListResponse
// @Failure      403     {object}  errorResponse
// @Router       /api/admin/cafes [get]
func (h *CafeHandler) AdminList(c echo.Context) error {
	in, err := bindListCafes(c)
	if err != nil {
		return err
	}
	in.Role = domain.RoleAdmin
	return h.list(c, in)
}

func (h *CafeHandler) list(c echo.Context, in ports.ListCafesInput) error {
	result, err := h.cafeService.List(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cafeListResponse{
		Data: toCafeResponses(result.Items),
		Meta: pageMeta{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	})
}

func bindListCafes(c echo.Context) (ports.ListCafesInput, error) {
	var (
		in       ports.ListCafesInput
		statuses []string
	)
	err := echo.QueryParamsBinder(c).
		String("q", &in.Search).
		String("city", &in.City).
		Int("priceTier", &in.PriceTier).
		Strings("roast", &in.RoastSlugs).
		Strings("method", &in.MethodSlugs).
		Float64("minRating", &in.MinRating).
		Strings("status", &statuses).
		String("sort", &in.Sort).
		Int("page", &in.Page).
		Int("limit", &in.Limit).
		BindError()
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	for _, s := range statuses {
		in.Statuses = append(in.Statuses, domain.CafeStatus(s))
	}
	return in, nil
}

// Map returns lightweight markers for published cafes.
//
// @Summary      Cafe map markers
// @Description  Pass all four of minLat, minLng, maxLat and maxLng to limit results to a bounding box.
// @Tags         cafes
// @Produce      json
// @Param        minLat  query     number  false  "South edge"
// @Param        minLng  query     number  false  "West edge"
// @Param        maxLat  query     number  false  "North edge"
// @Param        maxLng  query     number  false  "East edge"
// @Success      200     {array}   markerResponse
// @Failure      400     {object}  errorResponse
// @Router       /api/cafes/map [get]
func (h *CafeHandler) Map(c echo.Context) error {
	box, err := bindBoundingBox(c)
	if err != nil {
		return err
	}
	markers, err := h.cafeService.Markers(c.Request().Context(), box)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMarkerResponses(markers))
}

func bindBoundingBox(c echo.Context) (*domain.BoundingBox, error) {
	keys := []string{"minLat", "minLng", "maxLat", "maxLng"}
	present := 0
	for _, k := range keys {
		if c.QueryParam(k) != "" {
			present++
		}
	}
	if present == 0 {
		return nil, nil
	}
	if present != len(keys) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "bounding box needs minLat, minLng, maxLat and maxLng")
	}

	var box domain.BoundingBox
	err := echo.QueryParamsBinder(c).
		Float64("minLat", &box.MinLat).
		Float64("minLng", &box.MinLng).
		Float64("maxLat", &box.MaxLat).
		Float64("maxLng", &box.MaxLng).
		BindError()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "bounding box coordinates must be numbers")
	}
	return &box, nil
}

// Get returns one cafe. Unpublished cafes are only visible to admins.
//
// @Summary      Get cafe
// @Tags         cafes
// @Produce      json
// @Param        id   path      string  true  "Cafe ID"
// @Success      200  {object}  cafeResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/cafes/{id} [get]
func (h *CafeHandler) Get(c echo.Context) error {
	cafe, err := h.cafeService.Get(c.Request().Context(), c.Param("id"), ctxRole(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCafeResponse(cafe))
}

// Filters lists roast levels and brewing methods.
//
// @Summary      Filter values
// @Tags         cafes
// @Produce      json
// @Success      200  {object}  filtersResponse
// @Router       /api/filters [get]
func (h *CafeHandler) Filters(c echo.Context) error {
	f, err := h.cafeService.Filters(c.Request().Context())
	if err != nil {
		return err
	}
	resp := filtersResponse{RoastLevels: f.RoastLevels, BrewingMethods: f.BrewingMethods}
	if resp.RoastLevels == nil {
		resp.RoastLevels = []domain.RoastLevel{}
	}
	if resp.BrewingMethods == nil {
		resp.BrewingMethods = []domain.BrewingMethod{}
	}
	return c.JSON(http.StatusOK, resp)
}

// Create adds a cafe. Status defaults to draft.
//
// @Summary      Create cafe
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      cafeRequest  true  "Cafe"
// @Success      201   {object}  cafeResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/admin/cafes [post]
func (h *CafeHandler) Create(c echo.Context) error {
	req, err := bindCafeRequest(c)
	if err != nil {
		return err
	}
	cafe, err := h.cafeService.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCafeResponse(cafe))
}

// Update replaces every editable field of a cafe.
//
// @Summary      Update cafe
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string       true  "Cafe ID"
// @Param        body  body      cafeRequest  true  "Cafe"
// @Success      200   {object}  cafeResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/admin/cafes/{id} [put]
func (h *CafeHandler) Update(c echo.Context) error {
	req, err := bindCafeRequest(c)
	if err != nil {
		return err
	}
	cafe, err := h.cafeService.Update(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCafeResponse(cafe))
}

func bindCafeRequest(c echo.Context) (*cafeRequest, error) {
	var req cafeRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return &req, nil
}

// SetStatus publishes, archives or unpublishes a cafe.
//
// @Summary      Change cafe status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Cafe ID"
// @Param        body  body      statusRequest  true  "New status"
// @Success      200   {object}  cafeResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/admin/cafes/{id}/status [patch]
func (h *CafeHandler) SetStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	cafe, err := h.cafeService.SetStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCafeResponse(cafe))
}

// Delete removes a cafe with its ratings and favorites.
//
// @Summary      Delete cafe
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "Cafe ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/cafes/{id} [delete]
func (h *CafeHandler) Delete(c echo.Context) error {
	if err := h.cafeService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
