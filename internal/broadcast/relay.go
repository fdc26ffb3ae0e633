package broadcast

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/logger"
)

// RedisRelay 通过 Redis 频道在多实例间转发事件
type RedisRelay struct {
	hub     *Hub
	channel string
}

// NewRedisRelay 创建转发器，并把自身设为 hub 的发布器
func NewRedisRelay(hub *Hub, channel string) *RedisRelay {
	relay := &RedisRelay{hub: hub, channel: strings.TrimSpace(channel)}
	hub.SetPublisher(relay)
	return relay
}

// Name 服务名称
func (r *RedisRelay) Name() string {
	return "product_stream_relay"
}

// Publish 发布到 Redis 频道
func (r *RedisRelay) Publish(ctx context.Context, evt Event) error {
	return cache.Publish(ctx, r.channel, evt)
}

// Start 订阅频道，直到 ctx 结束
func (r *RedisRelay) Start(ctx context.Context) error {
	sub := cache.Subscribe(ctx, r.channel)
	if sub == nil {
		logger.Infow("product_stream_relay_disabled", "reason", "redis_disabled")
		<-ctx.Done()
		return nil
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

// Stop 停止服务
func (r *RedisRelay) Stop(ctx context.Context) error {
	r.hub.CloseAll()
	return nil
}

func (r *RedisRelay) handle(payload string) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		logger.Warnw("product_stream_relay_decode_failed", "error", err)
		return
	}
	// 本实例发布的事件已在本地投递
	if evt.Origin == r.hub.InstanceID() {
		return
	}
	r.hub.Broadcast(evt)
}
