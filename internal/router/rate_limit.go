package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

// NewRateLimitRule 由配置构建限流规则
func NewRateLimitRule(prefix string, cfg config.RateLimitConfig, messageKey string) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		MessageKey:    messageKey,
	}
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware Redis 频率限制中间件；未启用 Redis 时退化为进程内令牌桶
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if client == nil {
		return localRateLimitMiddleware(newLocalLimiter(rule), rule, keyFunc)
	}
	return func(c *gin.Context) {
		key := rateLimitKey(c, rule, keyFunc)

		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
		if err != nil {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeUnavailable, msg)
			c.Abort()
			return
		}

		values, ok := result.([]interface{})
		if !ok || len(values) < 2 {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeUnavailable, msg)
			c.Abort()
			return
		}
		count, ok := toInt64(values[0])
		if !ok {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeUnavailable, msg)
			c.Abort()
			return
		}
		ttlSeconds, _ := toInt64(values[1])
		if count > int64(rule.MaxRequests) {
			waitSeconds := int(ttlSeconds)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			if waitSeconds < 1 {
				waitSeconds = 1
			}
			msgKey := strings.TrimSpace(rule.MessageKey)
			if msgKey == "" {
				msgKey = "error.rate_limited"
			}
			msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
			response.Error(c, response.CodeTooManyRequests, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context, rule RateLimitRule, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if rule.Prefix != "" {
		key = fmt.Sprintf("%s:%s", rule.Prefix, key)
	}
	return key
}

const localLimiterIdleTTL = 10 * time.Minute

type localLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter 单实例部署使用的按 key 令牌桶，窗口内最多 MaxRequests 次
type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*localLimiterEntry
	every     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter(rule RateLimitRule) *localLimiter {
	window := time.Duration(rule.WindowSeconds) * time.Second
	return &localLimiter{
		entries: make(map[string]*localLimiterEntry),
		every:   rate.Every(window / time.Duration(rule.MaxRequests)),
		burst:   rule.MaxRequests,
		now:     time.Now,
	}
}

// allow 返回是否放行以及需要等待的秒数
func (l *localLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > localLimiterIdleTTL {
		for k, entry := range l.entries {
			if now.Sub(entry.lastSeen) > localLimiterIdleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}
	entry, ok := l.entries[key]
	if !ok {
		entry = &localLimiterEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	if entry.limiter.AllowN(now, 1) {
		return true, 0
	}
	reservation := entry.limiter.ReserveN(now, 1)
	wait := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return false, int(math.Ceil(wait.Seconds()))
}

func localRateLimitMiddleware(limiter *localLimiter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, waitSeconds := limiter.allow(rateLimitKey(c, rule, keyFunc))
		if allowed {
			c.Next()
			return
		}
		if waitSeconds < 1 {
			waitSeconds = 1
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.rate_limited"
		}
		msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
		response.Error(c, response.CodeTooManyRequests, msg)
		c.Abort()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndQuery 使用 IP + 查询参数作为限流 key
func KeyByIPAndQuery(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.TrimSpace(c.Query(field))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	default:
		return 0, false
	}
}
