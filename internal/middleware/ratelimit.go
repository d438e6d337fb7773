package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ImportCooldown enforces one bulk import per user within the cooldown
// window, tracked through a redis key. When redis is unavailable the
// middleware lets the request through.
func ImportCooldown(redisClient *redis.Client, cooldown time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:import:%s", userID)
		ok, err := redisClient.SetNX(c.Request.Context(), key, "1", cooldown).Result()
		if err != nil {
			logger.WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}

		if !ok {
			ttl, _ := redisClient.TTL(c.Request.Context(), key).Result()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "IMPORT_COOLDOWN",
					"message": "A bulk import was started recently, please wait before retrying",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
