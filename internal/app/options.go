package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"

	"go.uber.org/zap"
)

// 运行模式：all 同时运行 API 与后台任务，api/worker 用于拆分部署
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	opts.Mode = strings.ToLower(strings.TrimSpace(opts.Mode))
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

func validateMode(mode string) error {
	switch mode {
	case ModeAll, ModeAPI, ModeWorker:
		return nil
	default:
		return fmt.Errorf("unknown run mode %q (want %s, %s or %s)", mode, ModeAll, ModeAPI, ModeWorker)
	}
}
