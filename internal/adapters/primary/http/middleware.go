package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMiddleware pose les headers CORS à la main. Le gateway amont gère
// l'authn, ce service ne voit que le header user-id déjà vérifié.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, user-id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requesterID lit l'identité posée par le gateway. Vide = non authentifié.
func requesterID(c *gin.Context) string {
	return c.GetHeader("user-id")
}
