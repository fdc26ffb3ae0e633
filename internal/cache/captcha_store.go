package cache

import (
	"context"
	"strings"
	"time"

	"github.com/bazaar-next/internal/logger"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

// CaptchaStore 验证码答案存储：Redis 优先，未启用时使用内存存储
type CaptchaStore struct {
	namespace string
	ttl       time.Duration
	fallback  base64Captcha.Store
}

var _ base64Captcha.Store = (*CaptchaStore)(nil)

// NewCaptchaStore 创建验证码存储
func NewCaptchaStore(namespace string, ttl time.Duration, maxStore int) *CaptchaStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxStore <= 0 {
		maxStore = base64Captcha.GCLimitNumber
	}
	return &CaptchaStore{
		namespace: namespace,
		ttl:       ttl,
		fallback:  base64Captcha.NewMemoryStore(maxStore, ttl),
	}
}

func (s *CaptchaStore) key(id string) string {
	return s.namespace + ":" + id
}

// Set 保存答案
func (s *CaptchaStore) Set(id string, value string) error {
	if !Enabled() {
		return s.fallback.Set(id, value)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return redisClient.Set(ctx, buildKey(s.key(id)), value, s.ttl).Err()
}

// Get 读取答案，clear 为 true 时读后删除
func (s *CaptchaStore) Get(id string, clear bool) string {
	if !Enabled() {
		return s.fallback.Get(id, clear)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := buildKey(s.key(id))
	var (
		val string
		err error
	)
	if clear {
		val, err = redisClient.GetDel(ctx, key).Result()
	} else {
		val, err = redisClient.Get(ctx, key).Result()
	}
	if err != nil {
		if err != redis.Nil {
			logger.Warnw("captcha_store_get_failed", "captcha_id", id, "error", err)
		}
		return ""
	}
	return val
}

// Verify 校验答案
func (s *CaptchaStore) Verify(id, answer string, clear bool) bool {
	expected := s.Get(id, clear)
	if expected == "" {
		return false
	}
	return strings.TrimSpace(expected) == strings.TrimSpace(answer)
}
