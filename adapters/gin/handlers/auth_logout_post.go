package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleAuthLogoutPOST acknowledges a logout. Access tokens are stateless,
// so the client discards its token and nothing is revoked server-side.
func HandleAuthLogoutPOST() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
