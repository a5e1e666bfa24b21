package professional

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/auth"
	"github.com/eadvocate/eadvocate/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/professionals")
	g.PUT("/me", h.UpsertMe, auth.RequireRole(auth.RoleProfessional))
	g.GET("", h.Search, auth.RequireRole(auth.RoleClient, auth.RoleProfessional))
	g.GET("/:id", h.Get, auth.RequireRole(auth.RoleClient, auth.RoleProfessional))
}

func (h *Handler) UpsertMe(c echo.Context) error {
	var p Professional
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.UpsertProfile(ctx, auth.UserIDFromContext(ctx), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// Search backs the suggested-professionals list: ?q=&skill=&language=
func (h *Handler) Search(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := SearchFilter{
		Query:    c.QueryParam("q"),
		Skill:    c.QueryParam("skill"),
		Language: c.QueryParam("language"),
	}
	items, total, err := h.svc.Search(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
