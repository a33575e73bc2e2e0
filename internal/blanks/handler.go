package blanks

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/shared/server/respond"
)

// Handler exposes the read-only registry over HTTP.
type Handler struct {
	Registry Registry
}

// NewHandler constructs a Handler.
func NewHandler(registry Registry) *Handler {
	return &Handler{Registry: registry}
}

// RegisterRoutes attaches registry routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/blanks", h.listBlanks)
	rg.GET("/policies", h.listPolicies)
}

func (h *Handler) listBlanks(c *gin.Context) {
	filter := Filter{
		Scope:    Scope(strings.ToLower(strings.TrimSpace(c.Query("scope")))),
		PolicyID: strings.TrimSpace(c.Query("policyId")),
	}
	if filter.Scope != "" && !filter.Scope.Valid() {
		respond.Error(c, http.StatusBadRequest, "validation_error", "scope must be common or policy", nil)
		return
	}

	items, err := h.Registry.ListBlanks(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list blanks", nil)
		return
	}

	resp := listBlanksResponse{Items: make([]blankResponse, 0, len(items))}
	for _, b := range items {
		resp.Items = append(resp.Items, toBlankResponse(b))
	}
	respond.OK(c, resp)
}

func (h *Handler) listPolicies(c *gin.Context) {
	items, err := h.Registry.ListPolicies(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list policies", nil)
		return
	}

	resp := listPoliciesResponse{Items: make([]policyResponse, 0, len(items))}
	for _, p := range items {
		resp.Items = append(resp.Items, policyResponse{ID: p.ID, Title: p.Title})
	}
	respond.OK(c, resp)
}
