package app

import (
	"net/http"
	"strings"

	"Gin_postgres_redis_tool_ledger/db"
	"Gin_postgres_redis_tool_ledger/models"
	"Gin_postgres_redis_tool_ledger/session"

	"github.com/gin-gonic/gin"
)

const (
	AppSessionCookie = "app_session"
	actorKey         = "actor"
	sessionIDKey     = "session_id"
)

// SessionToken reads the session id from "Authorization: Bearer" or the session cookie.
func SessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// AuthRequired resolves the session into a models.Actor stored on the context.
func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := SessionToken(c)
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := appSess.Get(c.Request.Context(), sid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// the user must still exist; the role comes from the database
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), sid)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Set(sessionIDKey, sid)
		c.Set(actorKey, models.Actor{
			UserID:   u.ID,
			Username: u.Username,
			FullName: u.FullName,
			Role:     u.Role,
		})
		c.Next()
	}
}

// RequireRoles must run after AuthRequired.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !a.Can(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	a, ok := v.(models.Actor)
	return a, ok
}

func SessionIDFrom(c *gin.Context) string { return c.GetString(sessionIDKey) }
