package middleware

import (
	"github.com/gin-gonic/gin"

	"linkly/internal/i18n"
)

// I18nMiddleware 按 Accept-Language 选择语言，写入请求 context
func I18nMiddleware(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		localizer := tr.Localizer(c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(i18n.WithLocalizer(c.Request.Context(), localizer))
		c.Next()
	}
}
