package contract

import (
	"net/http"
	"strconv"

	"contract-lifecycle/pkg/accesscontrol"
	"contract-lifecycle/pkg/errutil"
	"contract-lifecycle/pkg/middleware"
	"contract-lifecycle/pkg/tenant"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

type Handler struct {
	svc *Service
	az  accesscontrol.Authorizer
}

type HandlerParams struct {
	fx.In
	Service    *Service
	Authorizer accesscontrol.Authorizer
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{svc: p.Service, az: p.Authorizer}
}

// RegisterRoutes mounts the contract API under /v1/contracts.
func RegisterRoutes(r *gin.Engine, v *middleware.TokenVerifier, h *Handler) {
	can := func(action string) gin.HandlerFunc {
		return middleware.Authorize(h.az, accesscontrol.ObjectContract, action)
	}

	g := r.Group("/v1/contracts", middleware.Tenant(v))
	g.GET("", can(accesscontrol.ActionRead), h.List)
	g.POST("", can(accesscontrol.ActionWrite), h.Create)
	g.GET("/expiring", can(accesscontrol.ActionRead), h.ListExpiring)
	g.GET("/active", can(accesscontrol.ActionRead), h.ListActive)
	g.GET("/dashboard", can(accesscontrol.ActionRead), h.Dashboard)
	g.GET("/by-type/:typeId", can(accesscontrol.ActionRead), h.ListByType)
	g.GET("/:id", can(accesscontrol.ActionRead), h.Get)
	g.PUT("/:id", can(accesscontrol.ActionWrite), h.Update)
	g.DELETE("/:id", can(accesscontrol.ActionDelete), h.Delete)
	g.GET("/:id/children", can(accesscontrol.ActionRead), h.Children)
	g.GET("/:id/status-options", can(accesscontrol.ActionRead), h.StatusOptions)
	g.POST("/:id/status", can(accesscontrol.ActionWrite), h.ChangeStatus)
	g.POST("/:id/renew", can(accesscontrol.ActionWrite), h.Renew)
	g.POST("/:id/parties/:partyId/sign", can(accesscontrol.ActionWrite), h.SignParty)
	g.PUT("/:id/document", can(accesscontrol.ActionWrite), h.AttachDocument)
}

// require checks a permission that depends on the request body rather than
// the route.
func (h *Handler) require(c *gin.Context, action string) error {
	tc, err := tenant.Require(c.Request.Context())
	if err != nil {
		return err
	}
	allowed, err := h.az.Allowed(tc.Roles, accesscontrol.ObjectContract, action)
	if err != nil {
		return errutil.Internal("authorization failed", err)
	}
	if !allowed {
		return errutil.Forbidden("not allowed to "+action+" "+accesscontrol.ObjectContract, nil)
	}
	return nil
}

func bindError(err error) error {
	return errutil.InvalidArgument("malformed request body", err,
		errutil.WithDetails(detail("body", err.Error())))
}

// GET /v1/contracts
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.InvalidArgument("malformed query", err))
		return
	}

	page, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// POST /v1/contracts
func (h *Handler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	ct, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ct)
}

// GET /v1/contracts/expiring?days=30
func (h *Handler) ListExpiring(c *gin.Context) {
	days := DefaultReminderDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			_ = c.Error(errutil.InvalidArgument("days must be a number", err,
				errutil.WithDetails(detail("days", "must be a number"))))
			return
		}
		days = n
	}

	items, err := h.svc.ListExpiring(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /v1/contracts/active
func (h *Handler) ListActive(c *gin.Context) {
	items, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /v1/contracts/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.svc.DashboardStats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /v1/contracts/by-type/:typeId
func (h *Handler) ListByType(c *gin.Context) {
	items, err := h.svc.ListByType(c.Request.Context(), c.Param("typeId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /v1/contracts/:id
func (h *Handler) Get(c *gin.Context) {
	ct, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// PUT /v1/contracts/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	ct, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// DELETE /v1/contracts/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /v1/contracts/:id/children
func (h *Handler) Children(c *gin.Context) {
	items, err := h.svc.Children(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /v1/contracts/:id/status-options
func (h *Handler) StatusOptions(c *gin.Context) {
	opts, err := h.svc.StatusOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// POST /v1/contracts/:id/status
//
// Moving a contract to Approved additionally needs the approve permission.
func (h *Handler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if to, err := ParseStatus(req.Status); err == nil && to == StatusApproved {
		if err := h.require(c, accesscontrol.ActionApprove); err != nil {
			_ = c.Error(err)
			return
		}
	}

	ct, err := h.svc.ChangeStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

// POST /v1/contracts/:id/renew
func (h *Handler) Renew(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	ct, err := h.svc.Renew(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ct)
}

// POST /v1/contracts/:id/parties/:partyId/sign
func (h *Handler) SignParty(c *gin.Context) {
	var req SignPartyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(bindError(err))
			return
		}
	}

	party, err := h.svc.SignParty(c.Request.Context(), c.Param("id"), c.Param("partyId"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, party)
}

// PUT /v1/contracts/:id/document (multipart, field "file")
func (h *Handler) AttachDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxDocumentSize+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(errutil.InvalidArgument("document file is required", err,
			errutil.WithDetails(detail("file", "document file is required"))))
		return
	}

	f, err := fh.Open()
	if err != nil {
		_ = c.Error(errutil.InvalidArgument("unreadable document upload", err))
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ct, err := h.svc.AttachDocument(c.Request.Context(), c.Param("id"), AttachDocumentRequest{
		FileName:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ct)
}
