package workflow

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/answers"
	"policy-backend/internal/shared/server/middleware"
	"policy-backend/internal/shared/server/respond"
)

// Handler exposes the workflow over HTTP. The client holds the State between calls.
type Handler struct {
	Workflow *Workflow
}

// NewHandler constructs a Handler.
func NewHandler(w *Workflow) *Handler {
	return &Handler{Workflow: w}
}

// RegisterRoutes attaches questionnaire routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/questionnaires/:policyId/start", h.start)
	rg.POST("/questionnaires/:policyId/step", h.step)
}

type stepRequest struct {
	State          State  `json:"state"`
	Action         string `json:"action"`
	Value          string `json:"value"`
	PromoteDefault bool   `json:"promoteDefault"`
}

func (h *Handler) start(c *gin.Context) {
	policyID := strings.TrimSpace(c.Param("policyId"))
	c.Set(middleware.PolicyIDKey, policyID)

	state, err := h.Workflow.Start(c.Request.Context(), policyID, middleware.OrganizationIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := h.Workflow.View(c.Request.Context(), state)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) step(c *gin.Context) {
	policyID := strings.TrimSpace(c.Param("policyId"))
	c.Set(middleware.PolicyIDKey, policyID)

	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.State.PolicyID != policyID {
		respond.Error(c, http.StatusBadRequest, "validation_error", "state does not belong to this policy", nil)
		return
	}
	// The session may only write answers for the caller's organization.
	req.State.OrganizationID = middleware.OrganizationIDFromContext(c)

	ctx := c.Request.Context()
	var (
		next    State
		outcome Outcome
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "edit":
		next, outcome, err = h.Workflow.Edit(req.State, req.Value, req.PromoteDefault)
	case "prev":
		next, outcome, err = h.Workflow.Prev(req.State)
	case "next":
		next, outcome, err = h.Workflow.Next(ctx, req.State)
	case "save":
		next, outcome, err = h.Workflow.Save(ctx, req.State)
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "action must be edit, prev, next or save", nil)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	view, err := h.Workflow.View(ctx, next)
	if err != nil {
		writeError(c, err)
		return
	}
	view.Outcome = &outcome
	respond.OK(c, view)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidState):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, answers.ErrUnknownBlank):
		respond.Error(c, http.StatusBadRequest, "validation_error", "state references an unknown blank", nil)
	case errors.Is(err, answers.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "questionnaire step failed", nil)
	}
}
