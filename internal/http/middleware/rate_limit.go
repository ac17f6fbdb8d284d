package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает частоту изменяющих запросов.
// Ключ - пользователь из токена, для анонимных запросов IP.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if p, ok := Principal(c); ok {
			key = "user:" + p.UserID.String()
		}

		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// при сбое лимитера запрос пропускается
			logger.FromContext(c.Request.Context()).WithError(err).Error("rate limiter failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			response.Abort(c, apperror.New(apperror.ErrCodeRateLimited, "слишком много запросов, попробуйте позже").
				WithDetail("retry_at", lctx.Reset))
			return
		}
		c.Next()
	}
}
