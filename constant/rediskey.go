package constant

import "fmt"

// 常量定义
const (
	BasePrefix = "linkly:"
	Separator  = ":"
)

// Redis 键模板
const (
	LinkTarget = BasePrefix + "link" + Separator + "%s" // linkly:link:shortkey
)

// GetLinkTargetKey 生成短链目标地址缓存键（格式：linkly:link:shortkey）
func GetLinkTargetKey(shortKey string) string {
	return fmt.Sprintf(LinkTarget, shortKey)
}
