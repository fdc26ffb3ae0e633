package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSubmissionStep 推送步骤重试任务；同一订单步骤在 unique 窗口内只保留一个
func (c *Client) EnqueueSubmissionStep(payload SubmissionStepPayload, delay time.Duration, maxRetry int) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewSubmissionStepTask(payload)
	if err != nil {
		return err
	}
	if delay < 0 {
		delay = 0
	}
	options := []asynq.Option{
		asynq.Queue(constants.QueueCritical),
		asynq.ProcessIn(delay),
		asynq.TaskID(fmt.Sprintf("%s:%d:%s", TaskSubmissionStep, payload.OrderID, payload.Step)),
		asynq.Retention(time.Minute),
	}
	if maxRetry >= 0 {
		options = append(options, asynq.MaxRetry(maxRetry))
	}
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueSubmissionReconcile 推送订单补偿任务
func (c *Client) EnqueueSubmissionReconcile(payload SubmissionReconcilePayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewSubmissionReconcileTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(constants.QueueCritical))
	return err
}

// EnqueueOrderStatusMessage 推送订单状态通知任务
func (c *Client) EnqueueOrderStatusMessage(payload OrderStatusMessagePayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderStatusMessageTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{constants.QueueCritical: 6, DefaultQueue: 3}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
