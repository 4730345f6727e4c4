package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"
)

// MaxShortKeyLength 短码最大长度，与 links.short_key 列宽一致
const MaxShortKeyLength = 32

// ValidateShortKey 校验路径中的短码，只允许 URL 非保留字符
func ValidateShortKey(shortKey string) error {
	if shortKey == "" {
		return fmt.Errorf("error.short_key_required")
	}
	if len(shortKey) > MaxShortKeyLength {
		return fmt.Errorf("error.short_key_invalid")
	}
	for i := 0; i < len(shortKey); i++ {
		if !isUnreserved(shortKey[i]) {
			return fmt.Errorf("error.short_key_invalid")
		}
	}
	return nil
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// ValidateTargetURL 校验目标 URL：http/https 绝对地址，长度不超过 maxLen，域名不在黑名单
func ValidateTargetURL(targetURL string, maxLen int, blockedDomains []string) error {
	if targetURL == "" {
		return fmt.Errorf("error.target_url_required")
	}
	if ContainsWhitespace(targetURL) {
		return fmt.Errorf("error.target_url_invalid")
	}
	if maxLen > 0 && len(targetURL) > maxLen {
		return fmt.Errorf("error.target_url_max_length")
	}

	u, err := url.ParseRequestURI(targetURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("error.target_url_invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("error.target_url_scheme")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("error.target_url_invalid")
	}
	if IsBlockedDomain(host, blockedDomains) {
		return fmt.Errorf("error.target_url_blocked")
	}
	return nil
}

// IsBlockedDomain host 等于黑名单域名或为其子域名时返回 true
func IsBlockedDomain(host string, blockedDomains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		for _, d := range blockedDomains {
			if strings.EqualFold(host, strings.TrimSpace(d)) {
				return true
			}
		}
		return false
	}

	for _, d := range blockedDomains {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func ContainsWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
