package apperrors

import (
	"errors"
	"net/http"
)

// 领域错误，调用方通过 errors.Is 判断
var (
	ErrDuplicateKey         = errors.New("duplicate short key")
	ErrKeySpaceExhausted    = errors.New("short key space exhausted")
	ErrNotFound             = errors.New("link not found")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrCacheUnavailable     = errors.New("cache unavailable")
	ErrClickRecordingFailed = errors.New("click recording failed")
	ErrInvalidURL           = errors.New("invalid target url")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthorized         = errors.New("unauthorized")
)

// i18n 消息 ID
const (
	MsgInvalidRequest     = "error.invalid_request"
	MsgSystem             = "error.system"
	MsgLinkNotFound       = "error.link_not_found"
	MsgKeySpaceExhausted  = "error.key_space_exhausted"
	MsgStorageUnavailable = "error.storage_unavailable"
	MsgForbidden          = "error.forbidden"
	MsgUnauthorized       = "error.unauthorized"
)

// AppError 自定义错误类型，Message 为 i18n 消息 ID
type AppError struct {
	Code    int
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode 创建通用业务错误
func WithCode(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// InvalidRequestError 封装参数校验错误
func InvalidRequestError(message string) *AppError {
	return WithCode(http.StatusBadRequest, message)
}

// InvalidRequestErrorDefault 默认参数校验错误
func InvalidRequestErrorDefault() *AppError {
	return WithCode(http.StatusBadRequest, MsgInvalidRequest)
}

// InvalidURLError 目标 URL 校验失败，message 为具体原因的消息 ID
func InvalidURLError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Cause:   ErrInvalidURL,
	}
}

// SystemErrorDefault 默认系统内部错误
func SystemErrorDefault() *AppError {
	return WithCode(http.StatusInternalServerError, MsgSystem)
}

// FromError 将领域错误映射为带 HTTP 状态码的 AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return &AppError{Code: http.StatusNotFound, Message: MsgLinkNotFound, Cause: err}
	case errors.Is(err, ErrKeySpaceExhausted):
		return &AppError{Code: http.StatusInternalServerError, Message: MsgKeySpaceExhausted, Cause: err}
	case errors.Is(err, ErrStorageUnavailable):
		return &AppError{Code: http.StatusServiceUnavailable, Message: MsgStorageUnavailable, Cause: err}
	case errors.Is(err, ErrForbidden):
		return &AppError{Code: http.StatusForbidden, Message: MsgForbidden, Cause: err}
	case errors.Is(err, ErrUnauthorized):
		return &AppError{Code: http.StatusUnauthorized, Message: MsgUnauthorized, Cause: err}
	case errors.Is(err, ErrInvalidURL):
		return &AppError{Code: http.StatusBadRequest, Message: MsgInvalidRequest, Cause: err}
	}

	appErr = SystemErrorDefault()
	appErr.Cause = err
	return appErr
}
