package controllers

import (
	"context"
	"net/http"
	"time"

	"Gin_postgres_redis_tool_ledger/app"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (s *Srv) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := s.Repo.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, s.Log, err)
		return
	}
	token, err := s.issueSession(c.Request.Context(), c.Writer, u)
	if err != nil {
		respondError(c, s.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"token":    token,
		"userId":   u.ID,
		"username": u.Username,
		"role":     u.Role,
		"fullName": u.FullName,
	})
}

// POST /api/auth/logout
func (s *Srv) Logout(c *gin.Context) {
	if sid := app.SessionIDFrom(c); sid != "" {
		_ = s.AppSess.Delete(c.Request.Context(), sid)
	}
	s.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/me
func (s *Srv) Me(c *gin.Context) {
	a, ok := app.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	u, err := s.Repo.GetUser(c.Request.Context(), a.UserID)
	if err != nil {
		respondError(c, s.Log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Health pings Postgres and Redis.
func Health(conn *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := app.H{"database": "ok", "redis": "ok"}
		healthy := true
		if sqlDB, err := conn.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "down"
			healthy = false
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			healthy = false
		}
		status["ok"] = healthy
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
