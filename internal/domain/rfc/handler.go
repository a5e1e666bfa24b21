package rfc

import (
	"net/http"
	"strconv"

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
	client := auth.RequireRole(auth.RoleClient)
	professional := auth.RequireRole(auth.RoleProfessional)
	either := auth.RequireRole(auth.RoleClient, auth.RoleProfessional)

	g := api.Group("/requests-for-care")
	g.POST("", h.CreateDraft, client)
	g.GET("", h.List, either)
	g.GET("/:id", h.Get, either)
	g.PUT("/:id", h.UpdateDraft, client)
	g.POST("/:id/publish", h.Publish, client)
	g.POST("/:id/cancel", h.Cancel, client)
	g.GET("/:id/statuses", h.StatusHistory, client)

	g.GET("/:id/proposal", h.OpenProposal, professional)
	g.PUT("/:id/proposal", h.SaveProposal, professional)

	g.GET("/:id/proposals", h.Review, client)
	g.GET("/:id/proposals/:pid", h.ProposalDetail, client)
	g.GET("/:id/proposals/:pid/statuses", h.ProposalHistory, either)
	g.POST("/:id/proposals/:pid/accept", h.Accept, client)
	g.POST("/:id/proposals/:pid/reject", h.Reject, client)
	g.POST("/:id/proposals/:pid/contract", h.Contract, client)

	api.GET("/proposals", h.ListMine, professional)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// actsAsClient picks the client view for callers holding the client role.
func actsAsClient(c echo.Context) bool {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return p.HasRole(auth.RoleClient) || !p.HasRole(auth.RoleProfessional)
}

func (h *Handler) CreateDraft(c echo.Context) error {
	var attrs Attributes
	if err := c.Bind(&attrs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	r, err := h.svc.CreateDraft(ctx, auth.UserIDFromContext(ctx), &attrs)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) UpdateDraft(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var attrs Attributes
	if err := c.Bind(&attrs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	r, err := h.svc.UpdateDraft(ctx, auth.UserIDFromContext(ctx), id, &attrs)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Publish(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in PublishInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	r, err := h.svc.Publish(ctx, auth.UserIDFromContext(ctx), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	r, err := h.svc.Cancel(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// List returns the caller's own requests for clients (?draft=true limits to
// drafts) and the visible requests for professionals.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	actor := auth.UserIDFromContext(ctx)

	var (
		items []*RequestForCare
		total int
		err   error
	)
	if actsAsClient(c) {
		draftOnly, _ := strconv.ParseBool(c.QueryParam("draft"))
		items, total, err = h.svc.ListForClient(ctx, actor, draftOnly, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.ListForProfessional(ctx, actor, pg.Limit, pg.Offset)
	}
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	actor := auth.UserIDFromContext(ctx)

	var r *RequestForCare
	if actsAsClient(c) {
		r, err = h.svc.GetForClient(ctx, actor, id)
		p, _ := auth.PrincipalFromContext(ctx)
		if apperr.Is(err, apperr.CodeNotFound) && p.HasRole(auth.RoleProfessional) {
			r, err = h.svc.GetForProfessional(ctx, actor, id)
		}
	} else {
		r, err = h.svc.GetForProfessional(ctx, actor, id)
	}
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) StatusHistory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	entries, err := h.svc.StatusHistory(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) OpenProposal(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.OpenOrCreateProposal(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SaveProposal(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var in SaveInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.SaveProposal(ctx, auth.UserIDFromContext(ctx), id, in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// Review lists proposals: ?short_list=true&order_by=-submitted
func (h *Handler) Review(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	shortList, _ := strconv.ParseBool(c.QueryParam("short_list"))
	ctx := c.Request().Context()
	items, err := h.svc.Review(ctx, auth.UserIDFromContext(ctx), id, shortList, c.QueryParam("order_by"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	// Ordering happens in memory, so the page is cut after sorting.
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Window(items, pg), len(items), pg.Limit, pg.Offset))
}

func (h *Handler) ProposalDetail(c echo.Context) error {
	return h.withProposal(c, func(actor, rfcID, pid uuid.UUID) (any, error) {
		return h.svc.ProposalDetail(c.Request().Context(), actor, rfcID, pid)
	})
}

func (h *Handler) ProposalHistory(c echo.Context) error {
	return h.withProposal(c, func(actor, rfcID, pid uuid.UUID) (any, error) {
		return h.svc.ProposalHistory(c.Request().Context(), actor, rfcID, pid)
	})
}

func (h *Handler) Accept(c echo.Context) error {
	return h.withProposal(c, func(actor, rfcID, pid uuid.UUID) (any, error) {
		return h.svc.AcceptProposal(c.Request().Context(), actor, rfcID, pid)
	})
}

func (h *Handler) Reject(c echo.Context) error {
	return h.withProposal(c, func(actor, rfcID, pid uuid.UUID) (any, error) {
		return h.svc.RejectProposal(c.Request().Context(), actor, rfcID, pid)
	})
}

type contractResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

func (h *Handler) Contract(c echo.Context) error {
	return h.withProposal(c, func(actor, rfcID, pid uuid.UUID) (any, error) {
		jobID, err := h.svc.ContractProposal(c.Request().Context(), actor, rfcID, pid)
		if err != nil {
			return nil, err
		}
		return contractResponse{JobID: jobID}, nil
	})
}

func (h *Handler) withProposal(c echo.Context, fn func(actor, rfcID, pid uuid.UUID) (any, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	pid, err := parseID(c, "pid")
	if err != nil {
		return err
	}
	out, err := fn(auth.UserIDFromContext(c.Request().Context()), id, pid)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListMine(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()
	items, total, err := h.svc.ListMine(ctx, auth.UserIDFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
