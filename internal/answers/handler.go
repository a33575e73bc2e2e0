package answers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/shared/server/middleware"
	"policy-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches answer routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/answers", h.upsert)
	rg.GET("/answers", h.resolved)
	rg.GET("/answers/:blankId", h.get)
}

func (h *Handler) upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	answer, err := h.Svc.Upsert(c.Request.Context(), UpsertInput{
		BlankID:        req.BlankID,
		OrganizationID: middleware.OrganizationIDFromContext(c),
		Value:          req.Value,
		IsDefault:      req.IsDefault,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(answer))
}

func (h *Handler) get(c *gin.Context) {
	answer, err := h.Svc.Get(c.Request.Context(), c.Param("blankId"), middleware.OrganizationIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(answer))
}

func (h *Handler) resolved(c *gin.Context) {
	policyID := strings.TrimSpace(c.Query("policyId"))
	if policyID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "policyId is required", nil)
		return
	}
	c.Set(middleware.PolicyIDKey, policyID)

	resolved, err := h.Svc.ResolveAll(c.Request.Context(), policyID, middleware.OrganizationIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, resolvedResponse{PolicyID: policyID, Answers: resolved})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrUnknownBlank):
		respond.Error(c, http.StatusNotFound, "not_found", "blank not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "answer not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process answer", nil)
	}
}
