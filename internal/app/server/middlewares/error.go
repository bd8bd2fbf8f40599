package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gorbenco03/curatire-backend/internal/app/pkg/ginx"
	"github.com/gorbenco03/curatire-backend/internal/app/pkg/logger"
)

// ErrorHandler 统一错误处理中间件
// 捕获 panic，并记录 handler 通过 c.Error 上报的内部错误
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(c.Request.Context(), "[HTTP] panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				ginx.Error(c, http.StatusInternalServerError, "internal server error")
			}
		}()

		c.Next()

		for _, err := range c.Errors {
			log.Errorf(c.Request.Context(), "[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err.Err)
		}
	}
}
