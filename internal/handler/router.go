package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkly/internal/i18n"
	"linkly/internal/middleware"
)

// HealthCheck 依赖的健康检查，Optional 的依赖失败时只报告不影响状态码
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Optional bool
}

// RouterOptions 组装路由所需的依赖
type RouterOptions struct {
	Logger       *zap.Logger
	Translator   *i18n.Translator
	JWTSecret    []byte
	AllowOrigins []string
	HealthChecks []HealthCheck
}

// NewRouter 注册中间件和路由
func NewRouter(h *ShortLinkHandler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 日志在错误中间件外层，记录最终状态码
	r.Use(middleware.ZapGinLogger(opts.Logger))
	r.Use(middleware.GlobalErrorMiddleware(opts.Logger))
	r.Use(middleware.CorsMiddleware(opts.AllowOrigins))
	r.Use(middleware.I18nMiddleware(opts.Translator))
	r.Use(middleware.Authenticate(opts.JWTSecret))

	r.GET("/healthz", HealthHandler(opts.HealthChecks...))

	api := r.Group("/api")
	{
		api.POST("/links", h.CreateLinkHandler)
		api.GET("/links", middleware.RequireUser(), h.ListLinksHandler)
		api.GET("/links/:key/stats", h.GetStatsHandler)
		api.DELETE("/links/:key", middleware.RequireUser(), h.DeleteLinkHandler)
	}

	// 其余 GET 请求按短码重定向
	r.NoRoute(h.RedirectHandler)
	return r
}

// HealthHandler 必需的检查全部通过返回 200，否则 503
func HealthHandler(checks ...HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				if !hc.Optional {
					status = http.StatusServiceUnavailable
				}
				result[hc.Name] = err.Error()
				continue
			}
			result[hc.Name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": result})
	}
}
