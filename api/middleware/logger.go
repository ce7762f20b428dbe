package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger 日志中间件
func Logger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Infow("http request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"uri", c.Request.RequestURI,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
		)
	}
}
