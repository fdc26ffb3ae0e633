package app

import (
	"errors"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/provider"
	"github.com/bazaar-next/internal/router"
	"github.com/bazaar-next/internal/worker"
)

// BuildRunner 构建服务运行器
// 队列开启时由 worker 消费重试任务并定时补偿；关闭时补偿扫描在进程内直接执行步骤。
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service
	withAPI := mode == ModeAll || mode == ModeAPI
	withWorker := mode == ModeAll || mode == ModeWorker

	// 初始化 HTTP 服务，关闭前先断开 SSE 连接
	if withAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		if container.Hub != nil {
			httpService.OnShutdown(container.Hub.CloseAll)
		}
		services = append(services, httpService)
		if container.Relay != nil {
			services = append(services, container.Relay)
		}
	}

	// 初始化 Worker 服务
	if withWorker {
		reconcile := worker.NewReconcileLoop(container.SubmissionService, cfg.Submission)
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer, reconcile)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else {
			services = append(services, reconcile)
		}
	}

	// 如果没有服务被启动（例如模式错误），应该报错
	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...).WithCloser(container.Close), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	if err := validateMode(opts.Mode); err != nil {
		return err
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "queue_enabled", opts.Config.Queue.Enabled)
	return RunWithOptions(runner, opts)
}
