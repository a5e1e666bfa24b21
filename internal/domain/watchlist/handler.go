package watchlist

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/watch-list", auth.RequireRole(auth.RoleClient))
	g.GET("", h.List)
	g.POST("", h.Add)
	g.DELETE("/:professional_id", h.Remove)
}

type addRequest struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
}

func (h *Handler) Add(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	entry, err := h.svc.Add(ctx, auth.UserIDFromContext(ctx), req.ProfessionalID)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	entries, err := h.svc.List(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return apperr.HTTPError(err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": entries})
}

func (h *Handler) Remove(c echo.Context) error {
	id, err := uuid.Parse(c.Param("professional_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid professional_id")
	}
	ctx := c.Request().Context()
	if err := h.svc.Remove(ctx, auth.UserIDFromContext(ctx), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
