package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Binary writes a raw payload with content type and optional attachment name.
func Binary(c *gin.Context, status int, contentType, fileName string, data []byte) {
	if fileName != "" {
		c.Header("Content-Disposition", "inline; filename=\""+fileName+"\"")
	}
	c.Data(status, contentType, data)
}
