package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"linkly/internal/apperrors"
)

const userIDContextKey = "linkly.user_id"

// Authenticate 解析 Authorization: Bearer <token>，sub 为用户 ID
//
// 没有携带令牌的请求按匿名处理；令牌无效时返回 401。
func Authenticate(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" || len(secret) == 0 {
			_ = c.Error(apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		uid, err := parseUserID(parser, raw, secret)
		if err != nil {
			_ = c.Error(fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err))
			c.Abort()
			return
		}

		c.Set(userIDContextKey, uid)
		c.Next()
	}
}

func parseUserID(parser *jwt.Parser, raw string, secret []byte) (uint64, error) {
	var claims jwt.RegisteredClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		return 0, err
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return uid, nil
}

// RequireUser 要求已登录
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			_ = c.Error(apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 当前登录用户
func CurrentUserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	uid, ok := v.(uint64)
	return uid, ok
}
