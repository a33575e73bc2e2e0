package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policy-backend/internal/shared/server/middleware"
	"policy-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	orgID := middleware.OrganizationIDFromContext(c)
	if orgID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	respond.OK(c, gin.H{
		"userId":         middleware.UserIDFromContext(c),
		"organizationId": orgID,
		"isGuest":        middleware.IsGuestFromContext(c),
	})
}
