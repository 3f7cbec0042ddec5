package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	huddomain "github.com/smallbiznis/memberhud/internal/hud/domain"
	"github.com/smallbiznis/memberhud/internal/observability/logger"
	"go.uber.org/zap"
)

const rateLimitReasonSyncTrigger = "sync-trigger"

// SyncTriggerRateLimit bounds manual sync triggers per community.
func (s *Server) SyncTriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.syncLimiter.Enabled() {
			c.Next()
			return
		}

		community, err := huddomain.NormalizeCommunity(c.Param("slug"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		result, err := s.syncLimiter.Allow(ctx, community)
		if err != nil {
			logger.FromContext(ctx).Warn("sync trigger rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			logger.FromContext(ctx).Warn("sync trigger rate limit exceeded",
				zap.String("reason", rateLimitReasonSyncTrigger),
				zap.String("community", community),
			)
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonSyncTrigger)
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}
