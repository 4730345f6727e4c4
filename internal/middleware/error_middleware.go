package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkly/internal/apperrors"
	"linkly/internal/i18n"
	"linkly/response"
)

// GlobalErrorMiddleware 全局错误中间件，把 c.Errors 中最后一个错误转换为 JSON 响应
func GlobalErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		appErr := apperrors.FromError(last.Err)
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", appErr.Code),
				zap.Error(last.Err),
			)
		}

		if c.Writer.Written() {
			return
		}
		msg := i18n.T(c.Request.Context(), appErr.Message, nil)
		c.AbortWithStatusJSON(appErr.Code, response.ErrorFromAppError(appErr, msg))
	}
}
