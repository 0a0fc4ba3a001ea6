// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/interfaces/http/dto"
	"novel-journey-api/pkg/logger"
)

// Recovery Panic 恢复中间件，崩溃栈入日志后按统一错误结构返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", r),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
				TraceID: c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
