// Package broadcast 商品变更推送：进程内扇出，可选 Redis 频道跨实例转发
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/metrics"

	"github.com/google/uuid"
)

const defaultBufferSize = 16

// Event 推送事件
type Event struct {
	Type      string      `json:"type"`
	ProductID uint        `json:"product_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Origin    string      `json:"origin,omitempty"`
	At        time.Time   `json:"at"`
}

// Publisher 跨实例发布
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Client 单个推送连接
type Client struct {
	ID     string
	events chan Event
	once   sync.Once
}

// Events 事件通道，连接注销后关闭
func (c *Client) Events() <-chan Event {
	return c.events
}

// Hub 推送中心
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	bufferSize int
	instanceID string
	metrics    *metrics.Metrics
	publisher  Publisher
}

// NewHub 创建推送中心
func NewHub(bufferSize int, m *metrics.Metrics) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		bufferSize: bufferSize,
		instanceID: uuid.NewString(),
		metrics:    m,
	}
}

// InstanceID 当前实例标识
func (h *Hub) InstanceID() string {
	return h.instanceID
}

// SetPublisher 设置跨实例发布器
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.publisher = p
	h.mu.Unlock()
}

// Register 注册连接
func (h *Hub) Register() *Client {
	client := &Client{
		ID:     uuid.NewString(),
		events: make(chan Event, h.bufferSize),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.metrics.SSEClientConnected()
	return client
}

// Unregister 注销连接并关闭通道，可重复调用
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()
	if !ok {
		return
	}
	client.once.Do(func() { close(client.events) })
	h.metrics.SSEClientDisconnected()
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 向本实例所有连接投递，缓冲区满的连接丢弃本条事件；返回投递成功数
func (h *Hub) Broadcast(evt Event) int {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for client := range h.clients {
		select {
		case client.events <- evt:
			delivered++
		default:
			h.metrics.SSEDropped()
			logger.Debugw("product_stream_event_dropped", "client_id", client.ID, "type", evt.Type)
		}
	}
	return delivered
}

// Publish 本地投递并发布到其他实例
func (h *Hub) Publish(ctx context.Context, evt Event) int {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	evt.Origin = h.instanceID
	delivered := h.Broadcast(evt)

	h.mu.RLock()
	publisher := h.publisher
	h.mu.RUnlock()
	if publisher != nil {
		if err := publisher.Publish(ctx, evt); err != nil {
			logger.Warnw("product_stream_relay_publish_failed", "type", evt.Type, "error", err)
		}
	}
	return delivered
}

// CloseAll 关闭所有连接
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
	for client := range clients {
		client.once.Do(func() { close(client.events) })
		h.metrics.SSEClientDisconnected()
	}
}
