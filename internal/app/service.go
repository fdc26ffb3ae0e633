package app

import (
	"context"
	"errors"
	"os/signal"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Service 服务接口
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器
type Runner struct {
	services []Service
	closers  []func() error
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// WithCloser 登记所有服务停止后需要释放的资源
func (r *Runner) WithCloser(fn func() error) *Runner {
	if r != nil && fn != nil {
		r.closers = append(r.closers, fn)
	}
	return r
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}

	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务，任一服务退出或 ctx 取消时按注册逆序停止
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, logger *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(r.services))
	for _, svc := range r.services {
		go func(service Service) {
			if service == nil {
				errCh <- errors.New("service is nil")
				return
			}
			name := service.Name()
			logger.Infow("service_start", "service", name)
			err := service.Start(ctx)
			logger.Infow("service_exit", "service", name, "error", err)
			errCh <- err
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	cancel()
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if svc == nil {
			continue
		}
		if err := svc.Stop(stopCtx); err != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}
	var closeErr error
	for _, fn := range r.closers {
		closeErr = multierr.Append(closeErr, fn())
	}
	if closeErr != nil {
		logger.Warnw("runner_close_failed", "error", closeErr)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
