package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionCookieName carries the token on the legacy bridging route.
const SessionCookieName = "session_id"

const contextKeySession = "session"

// SessionFromContext returns the session set by RequireBearer or
// RequireSession.
func SessionFromContext(c *gin.Context) (Session, bool) {
	v, ok := c.Get(contextKeySession)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// UserIDFromContext returns the current user id. Empty if not set.
func UserIDFromContext(c *gin.Context) string {
	s, _ := SessionFromContext(c)
	return s.UserID
}

// RequireBearer checks the "Authorization: Bearer <token>" header.
func RequireBearer(sessions Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		authenticate(c, sessions, strings.TrimSpace(token))
	}
}

// RequireSession checks the session cookie. Used by the legacy route only.
func RequireSession(sessions Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		authenticate(c, sessions, token)
	}
}

func authenticate(c *gin.Context, sessions Registry, token string) {
	s, ok, err := sessions.Lookup(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	c.Set(contextKeySession, s)
	c.Next()
}
