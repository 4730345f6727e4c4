package dto

import (
	"time"

	"linkly/internal/model"
)

// CreateLinkRequest 创建短链的请求参数，URL 的细节校验在服务层完成
type CreateLinkRequest struct {
	TargetURL string `json:"targetUrl" binding:"required,max=4096" msg:"error.target_url_required"`
}

// ListLinksQuery 分页参数
type ListLinksQuery struct {
	Page int `form:"page,default=1" binding:"min=1" msg:"error.page_invalid"`
	Size int `form:"size,default=10" binding:"min=1,max=100" msg:"error.size_invalid"`
}

// LinkResponse 创建和列表接口返回的短链信息
type LinkResponse struct {
	ShortKey   string    `json:"shortKey"`
	ShortURL   string    `json:"shortUrl"`
	TargetURL  string    `json:"targetUrl"`
	ClickCount int64     `json:"clickCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewLinkResponse baseURL 不带末尾的 /
func NewLinkResponse(link *model.Link, baseURL string) LinkResponse {
	return LinkResponse{
		ShortKey:   link.ShortKey,
		ShortURL:   baseURL + "/" + link.ShortKey,
		TargetURL:  link.TargetURL,
		ClickCount: link.ClickCount,
		CreatedAt:  link.CreatedAt,
	}
}
