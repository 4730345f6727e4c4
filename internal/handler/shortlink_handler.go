package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"linkly/internal/apperrors"
	"linkly/internal/dto"
	"linkly/internal/i18n"
	"linkly/internal/middleware"
	"linkly/internal/model"
	"linkly/internal/service"
	"linkly/response"
)

// ShortLinkHandler 短链相关的 HTTP 接口
type ShortLinkHandler struct {
	svc            *service.ShortLinkService
	allowAnonymous bool
	baseURL        string
	logger         *zap.Logger
}

// NewShortLinkHandler baseURL 为空时使用请求的 scheme 和 Host
func NewShortLinkHandler(svc *service.ShortLinkService, allowAnonymous bool, baseURL string, logger *zap.Logger) *ShortLinkHandler {
	return &ShortLinkHandler{
		svc:            svc,
		allowAnonymous: allowAnonymous,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		logger:         logger.Named("handler"),
	}
}

// CreateLinkHandler POST /api/links
func (h *ShortLinkHandler) CreateLinkHandler(c *gin.Context) {
	var owner *uint64
	if uid, ok := middleware.CurrentUserID(c); ok {
		owner = &uid
	} else if !h.allowAnonymous {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	var req dto.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Request body binding failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(bindError(err, &req))
		return
	}

	link, err := h.svc.CreateLink(c.Request.Context(), strings.TrimSpace(req.TargetURL), owner)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, response.OK(
		dto.NewLinkResponse(link, h.base(c)),
		i18n.T(c.Request.Context(), "success.created", nil),
	))
}

// ListLinksHandler GET /api/links 当前用户的短链
func (h *ShortLinkHandler) ListLinksHandler(c *gin.Context) {
	uid, _ := middleware.CurrentUserID(c)

	var q dto.ListLinksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(err, &q))
		return
	}

	page, err := h.svc.ListLinks(c.Request.Context(), uid, q.Page, q.Size)
	if err != nil {
		_ = c.Error(err)
		return
	}

	base := h.base(c)
	list := make([]dto.LinkResponse, 0, len(page.List))
	for i := range page.List {
		list = append(list, dto.NewLinkResponse(&page.List[i], base))
	}
	c.JSON(http.StatusOK, response.OK(&response.PageResponse[dto.LinkResponse]{
		Page:      page.Page,
		Size:      page.Size,
		TotalPage: page.TotalPage,
		Total:     page.Total,
		List:      list,
	}, i18n.T(c.Request.Context(), "success.ok", nil)))
}

// GetStatsHandler GET /api/links/:key/stats
func (h *ShortLinkHandler) GetStatsHandler(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context(), c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(stats, i18n.T(c.Request.Context(), "success.ok", nil)))
}

// DeleteLinkHandler DELETE /api/links/:key，仅创建者可删除
func (h *ShortLinkHandler) DeleteLinkHandler(c *gin.Context) {
	uid, _ := middleware.CurrentUserID(c)
	key := c.Param("key")

	if err := h.svc.DeleteLink(c.Request.Context(), key, uid); err != nil {
		h.logger.Warn("Short link deletion failed",
			zap.String("short_key", key),
			zap.Uint64("user_id", uid),
			zap.Error(err),
		)
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response.OK(struct{}{}, i18n.T(c.Request.Context(), "success.deleted", nil)))
}

// RedirectHandler 处理 GET /<short_key>，挂在 NoRoute 上避免与 /api 冲突
func (h *ShortLinkHandler) RedirectHandler(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		_ = c.Error(apperrors.ErrNotFound)
		return
	}

	key := strings.TrimPrefix(c.Request.URL.Path, "/")
	var (
		target string
		err    error
	)
	if c.Request.Method == http.MethodHead {
		// 链接检查器和爬虫常用 HEAD，不计入点击
		target, err = h.svc.Lookup(c.Request.Context(), key)
	} else {
		target, err = h.svc.Resolve(c.Request.Context(), key, model.ClickMeta{
			Referrer:  c.Request.Referer(),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	// 302 不能被缓存，否则后续点击不会到达服务端
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Redirect(http.StatusFound, target)
}

func (h *ShortLinkHandler) base(c *gin.Context) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// bindError 取第一个校验失败字段的 msg 标签作为消息 ID
func bindError(err error, obj interface{}) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.InvalidRequestErrorDefault()
	}

	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(verrs[0].StructField()); ok {
		if msg := f.Tag.Get("msg"); msg != "" {
			return apperrors.InvalidRequestError(msg)
		}
	}
	return apperrors.InvalidRequestErrorDefault()
}
