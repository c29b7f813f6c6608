package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps repository errors to HTTP. Anything unclassified is logged and answered
// with an opaque message plus the request id.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var inUse *db.LocationInUseError
	switch {
	case errors.As(err, &inUse):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "toolsCount": inUse.ToolsCount})
	case errors.Is(err, db.ErrValidation):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrConflict):
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
	default:
		rid := c.GetString(app.RequestIDKey)
		log.Error("request failed",
			zap.String("request_id", rid),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal server error", "requestId": rid})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, app.H{"error": msg})
}

// paramID parses a positive numeric path parameter; on failure it answers 400.
func paramID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// actorOr returns id when set, otherwise the authenticated caller's id.
func actorOr(c *gin.Context, id *uint) uint {
	if id != nil && *id != 0 {
		return *id
	}
	a, _ := app.ActorFrom(c)
	return a.UserID
}
