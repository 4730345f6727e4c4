package i18n

import (
	"context"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

type localizerKey struct{}

// Translator 持有消息包和支持的语言列表
type Translator struct {
	bundle    *i18n.Bundle
	supported []language.Tag
	matcher   language.Matcher
}

// New 加载内置的语言文件，defaultLang 为无法匹配时使用的语言
func New(defaultLang string) (*Translator, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}

	// 默认语言排第一，matcher 匹配失败时回退到它
	supported := []language.Tag{def}
	for _, e := range entries {
		name := path.Join("locales", e.Name())
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		mf, err := bundle.ParseMessageFileBytes(data, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if mf.Tag != def {
			supported = append(supported, mf.Tag)
		}
	}

	return &Translator{
		bundle:    bundle,
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// Languages 支持的语言
func (t *Translator) Languages() []string {
	out := make([]string, len(t.supported))
	for i, tag := range t.supported {
		out[i] = tag.String()
	}
	return out
}

// Localizer 根据 Accept-Language 选择语言
func (t *Translator) Localizer(acceptLanguage string) *i18n.Localizer {
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, idx, _ := t.matcher.Match(tags...)
	return i18n.NewLocalizer(t.bundle, t.supported[idx].String())
}

// WithLocalizer 将 Localizer 放入 context
func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, l)
}

// T 翻译消息；context 中没有 Localizer 或消息不存在时原样返回 messageID
func T(ctx context.Context, messageID string, data map[string]interface{}) string {
	l, ok := ctx.Value(localizerKey{}).(*i18n.Localizer)
	if !ok || l == nil {
		return messageID
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil || strings.TrimSpace(msg) == "" {
		return messageID
	}
	return msg
}
