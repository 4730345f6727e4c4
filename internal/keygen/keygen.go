// Package keygen 生成随机短链 key，不保证唯一性，唯一性由存储层的唯一索引保证
package keygen

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

// unreserved URL 字符集（RFC 3986）
const unreserved = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._~"

// Generator 按给定长度和字符表生成 key
type Generator struct {
	length   int
	alphabet []byte
	src      io.Reader
	// 大于等于 limit 的随机字节会被丢弃，避免取模偏差
	limit int
}

// New 校验参数并创建 Generator
func New(length int, alphabet string) (*Generator, error) {
	return NewWithSource(length, alphabet, rand.Reader)
}

// NewWithSource 使用指定随机源创建 Generator，测试时可注入确定性的 Reader
func NewWithSource(length int, alphabet string, src io.Reader) (*Generator, error) {
	if length < 1 {
		return nil, fmt.Errorf("key length must be positive, got %d", length)
	}
	if err := ValidateAlphabet(alphabet); err != nil {
		return nil, err
	}
	n := len(alphabet)
	return &Generator{
		length:   length,
		alphabet: []byte(alphabet),
		src:      src,
		limit:    256 - 256%n,
	}, nil
}

// ValidateAlphabet 字符表必须是 2~256 个不重复的 unreserved 字符
func ValidateAlphabet(alphabet string) error {
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return fmt.Errorf("alphabet size must be in [2, 256], got %d", len(alphabet))
	}
	seen := make(map[byte]struct{}, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if !strings.ContainsRune(unreserved, rune(c)) {
			return fmt.Errorf("alphabet contains non URL-safe character %q", c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("alphabet contains duplicate character %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Length key 长度
func (g *Generator) Length() int {
	return g.length
}

// Generate 生成一个随机 key
func (g *Generator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)

	for len(out) < g.length {
		if _, err := io.ReadFull(g.src, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= g.limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%len(g.alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
