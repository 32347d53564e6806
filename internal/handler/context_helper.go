package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/middleware"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// claimsFromContext returns the verified token claims attached by the JWT
// middleware, or nil on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
