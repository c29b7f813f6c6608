// app/seenmw.go
package app

import (
	"fmt"
	"time"

	"Gin_postgres_redis_tool_ledger/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen records the caller's activity at most once per throttle window.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := ActorFrom(c)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("user:lastseen:%d", a.UserID)
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			_ = repo.TouchUserSeen(c.Request.Context(), a.UserID) // best effort
		}
		c.Next()
	}
}
