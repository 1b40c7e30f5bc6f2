package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkovs/cookiegate/internal/server/models"
)

const identityKey = "httpapi.identity"

// currentSession decodes the session cookie, if present, and stores the
// resulting identity in the request context. Invalid and expired tokens are
// treated as "no session", never as a server error.
func (s *Server) currentSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := s.sessions.Verify(token)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "session token rejected", "reason", err.Error())
			c.Next()
			return
		}

		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

func identityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identityFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}

func (s *Server) requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		if identity.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
