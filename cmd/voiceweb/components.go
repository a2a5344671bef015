package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/api/handlers"
	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/config"
	"github.com/BaSui01/voiceweb/internal/cache"
	"github.com/BaSui01/voiceweb/internal/database"
	"github.com/BaSui01/voiceweb/page"
)

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// =============================================================================
// 🗄️ 问答存储
// =============================================================================

// openAnswerStore 按 storage.driver 打开问答存储，并返回就绪检查与关闭函数
func openAnswerStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (answers.Store, handlers.HealthCheck, func(), error) {
	switch cfg.Storage.Driver {
	case "", "memory":
		return answers.NewMemoryStore(), nil, func() {}, nil

	case "gorm":
		pool, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), cfg.Database.PoolConfig(), logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open answers database: %w", err)
		}
		store := answers.NewGormStore(pool, cfg.Storage.Namespace, logger)
		if err := store.Migrate(ctx); err != nil {
			_ = pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate answers table: %w", err)
		}
		closeFn := func() {
			if err := pool.Close(); err != nil {
				logger.Warn("close database pool", zap.Error(err))
			}
		}
		return store, handlers.NewPingCheck("database", pool.Ping), closeFn, nil

	case "redis":
		mgr, err := cache.NewManager(cfg.Redis, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open answers redis: %w", err)
		}
		closeFn := func() {
			if err := mgr.Close(); err != nil {
				logger.Warn("close redis", zap.Error(err))
			}
		}
		return answers.NewRedisStore(mgr, cfg.Storage.Namespace, logger), handlers.NewPingCheck("redis", mgr.Ping), closeFn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

// =============================================================================
// 📷 捕获源
// =============================================================================

// newSourceProvider 按 capture.provider 构建捕获源。browser 仅 tab 源需要，可为 nil
func newSourceProvider(cfg config.CaptureConfig, browser page.Screenshotter, logger *zap.Logger) (capture.SourceProvider, error) {
	switch cfg.Provider {
	case "display":
		return capture.NewDisplayProvider(cfg.Display, cfg.PollInterval, logger), nil
	case "tab", "":
		if browser == nil {
			return nil, fmt.Errorf("capture provider %q needs a browser", "tab")
		}
		return page.NewTabProvider(browser, logger), nil
	case "synthetic":
		return capture.NewSyntheticProvider(cfg.SyntheticWidth, cfg.SyntheticHeight, true), nil
	default:
		return nil, fmt.Errorf("unsupported capture provider: %s", cfg.Provider)
	}
}

// newOrchestrator 组装捕获源管理器与编排器
func newOrchestrator(cfg config.CaptureConfig, provider capture.SourceProvider, opts []capture.Option, logger *zap.Logger) *capture.Orchestrator {
	sources := capture.NewManager(provider, capture.ManagerConfig{
		Constraints:    cfg.Constraints(),
		ConsentTimeout: cfg.ConsentTimeout,
	}, logger)
	return capture.NewOrchestrator(sources, cfg.Budget, append([]capture.Option{capture.WithLogger(logger)}, opts...)...)
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
