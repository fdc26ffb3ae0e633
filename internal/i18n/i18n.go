package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleEN = "en-US"
	LocaleAR = "ar"
)

// DefaultLocale 默认语言
const DefaultLocale = LocaleEN

// ResolveLocale 依次从 lang 参数、X-Locale 与 Accept-Language 解析语言
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return Normalize(lang)
	}
	if header := strings.TrimSpace(c.GetHeader("X-Locale")); header != "" {
		return Normalize(header)
	}
	accept := strings.TrimSpace(c.GetHeader("Accept-Language"))
	if accept == "" {
		return DefaultLocale
	}
	first := strings.Split(accept, ",")[0]
	first = strings.Split(first, ";")[0]
	return Normalize(first)
}

// Normalize 归一化语言标识
func Normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if strings.HasPrefix(l, "ar") {
		return LocaleAR
	}
	return LocaleEN
}

// T 翻译 key，缺失时回退英文，再缺失返回 key 本身
func T(locale, key string) string {
	if table, ok := messages[Normalize(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
