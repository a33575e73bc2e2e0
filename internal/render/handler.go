package render

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/shared/server/middleware"
	"policy-backend/internal/shared/server/respond"
)

// RequestIDHeader carries the render request id on every render response.
const RequestIDHeader = "X-Render-Request-Id"

// Handler wires HTTP handlers to the render service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches render routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/render", h.render)
}

func (h *Handler) render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, string(KindValidation), "invalid request body", nil)
		return
	}
	policyID := strings.TrimSpace(req.PolicyID)
	if policyID == "" {
		respond.Error(c, http.StatusBadRequest, string(KindValidation), "policyId is required", nil)
		return
	}
	c.Set(middleware.PolicyIDKey, policyID)

	artifact, err := h.Svc.Render(c.Request.Context(), policyID, middleware.OrganizationIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set(middleware.RenderRequestIDKey, artifact.RequestID)
	c.Header(RequestIDHeader, artifact.RequestID)
	c.Header("X-Render-Pages", strconv.Itoa(artifact.Pages))
	c.Header("Cache-Control", "no-store")
	respond.Binary(c, http.StatusOK, artifact.ContentType, artifact.FileName(), artifact.Bytes)
}

func writeError(c *gin.Context, err error) {
	var rerr *Error
	if !errors.As(err, &rerr) {
		rerr = &Error{Kind: KindInternal, Message: "render failed", Err: err}
	}
	c.Set(middleware.ErrorKindKey, string(rerr.Kind))
	details := map[string]any{}
	if rerr.RequestID != "" {
		c.Set(middleware.RenderRequestIDKey, rerr.RequestID)
		c.Header(RequestIDHeader, rerr.RequestID)
		details["requestId"] = rerr.RequestID
	}
	if rerr.Reason != "" {
		details["reason"] = rerr.Reason
	}
	respond.Error(c, StatusFor(rerr), string(rerr.Kind), rerr.Message, details)
}
