package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultReconcileInterval = time.Minute

// Service 异步队列服务
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	consumer  *Consumer
	reconcile *ReconcileLoop
}

// NewService 创建异步队列服务；reconcile 为空时不启动补偿扫描
func NewService(cfg *config.QueueConfig, consumer *Consumer, reconcile *ReconcileLoop) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:      "worker",
		server:    server,
		mux:       mux,
		consumer:  consumer,
		reconcile: reconcile,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.reconcile != nil {
		go s.reconcile.run(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// ReconcileLoop 定时扫描未完成的下单步骤
// 队列关闭时作为独立服务运行，步骤在进程内直接重试。
type ReconcileLoop struct {
	runner   SubmissionRunner
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconcileLoop 创建补偿扫描
func NewReconcileLoop(runner SubmissionRunner, cfg config.SubmissionConfig) *ReconcileLoop {
	interval := time.Duration(cfg.ReconcileIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	return &ReconcileLoop{runner: runner, interval: interval}
}

// Name 服务名称
func (l *ReconcileLoop) Name() string {
	return "submission-reconcile"
}

// Start 阻塞运行直到 ctx 取消或 Stop
func (l *ReconcileLoop) Start(ctx context.Context) error {
	if l == nil || l.runner == nil {
		return errors.New("reconcile loop not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()
	defer close(done)
	l.run(ctx)
	return nil
}

// Stop 停止扫描并等待当前轮次结束
func (l *ReconcileLoop) Stop(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (l *ReconcileLoop) runOnce(ctx context.Context) {
	handled, err := l.runner.Reconcile(ctx)
	if err != nil {
		logger.Warnw("worker_submission_reconcile_scan_failed", "handled", handled, "error", err)
		return
	}
	if handled > 0 {
		logger.Debugw("worker_submission_reconcile_scan", "handled", handled)
	}
}

func (l *ReconcileLoop) run(ctx context.Context) {
	if l == nil || l.runner == nil {
		return
	}
	l.runOnce(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}
