package middleware

import (
	"time"

	"sns-crosspost/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.GetLogger().
			WithField("method", ctx.Request.Method).
			WithField("path", ctx.Request.URL.Path).
			WithField("status", ctx.Writer.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request completed")
	}
}
