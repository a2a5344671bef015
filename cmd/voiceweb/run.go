package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/config"
	"github.com/BaSui01/voiceweb/internal/metrics"
	"github.com/BaSui01/voiceweb/internal/telemetry"
	"github.com/BaSui01/voiceweb/internal/tlsutil"
	"github.com/BaSui01/voiceweb/page"
	"github.com/BaSui01/voiceweb/prompt"
	"github.com/BaSui01/voiceweb/realtime"
	"github.com/BaSui01/voiceweb/toolkit"
)

// errBrowserClosed 浏览器退出后会话随之结束
var errBrowserClosed = errors.New("browser closed")

// =============================================================================
// 🎙️ run 命令
// =============================================================================

func runAgentCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	startURL := fs.String("url", "", "Page to open")
	promptName := fs.String("prompt", "", "Built-in prompt name")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *startURL != "" {
		cfg.Browser.StartURL = *startURL
	}
	if *promptName != "" {
		cfg.Session.Prompt = *promptName
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signalContext()
	defer stop()

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	err = runAgent(ctx, cfg, otelProviders, logger)
	if errors.Is(err, context.Canceled) || errors.Is(err, errBrowserClosed) {
		logger.Info("session ended", zap.Error(err))
		return nil
	}
	return err
}

// runAgent 打开浏览器、连接实时通道并处理工具调用，直到 ctx 取消、
// 浏览器关闭或通道断开
func runAgent(ctx context.Context, cfg *config.Config, otelProviders *telemetry.Providers, logger *zap.Logger) error {
	collector := metrics.NewCollector("voiceweb", logger)

	browser, err := page.NewChromeDriver(cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	provider, err := newSourceProvider(cfg.Capture, browser, logger)
	if err != nil {
		return err
	}
	orch := newOrchestrator(cfg.Capture, provider, []capture.Option{
		capture.WithRecorder(collector),
		capture.WithTracer(otelProviders.Tracer(telemetry.CaptureTracer)),
	}, logger)
	defer orch.Sources().Release(orch.Sources().Current())

	store, _, closeStore, err := openAnswerStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	library, err := prompt.NewLibrary(cfg.Session.Prompt, cfg.Session.PromptOverridePath, logger)
	if err != nil {
		return err
	}

	credClient := realtime.NewCredentialClient(cfg.Realtime.SessionEndpoint,
		tlsutil.HTTPClient(cfg.Realtime.RequestTimeout), logger)
	cred, err := credClient.Fetch(ctx)
	if err != nil {
		return err
	}
	dialURL, err := cfg.Realtime.DialURL()
	if err != nil {
		return err
	}
	conn, err := realtime.Dial(ctx, dialURL, realtime.DialOptions{
		Token:      cred.Value,
		HTTPClient: tlsutil.WebSocketClient(),
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	registry := toolkit.NewRegistry(logger, toolkit.WithRecorder(collector))
	if err := toolkit.RegisterBuiltins(registry, toolkit.Deps{
		Page:           browser,
		Capturer:       orch,
		Channel:        func() realtime.Channel { return conn },
		Answers:        store,
		CaptureTimeout: cfg.Session.CaptureTimeout,
	}); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	session := realtime.NewSession(conn, registry, realtime.SessionOptions{
		Instructions: library.Current(),
		Voice:        cfg.Realtime.Voice,
		ToolTimeout:  cfg.Session.ToolTimeout,
	}, logger)
	session.On(realtime.EventSessionUpdated, func(realtime.ServerEvent) {
		logger.Debug("realtime session configured")
	})

	g, gctx := errgroup.WithContext(ctx)

	library.OnChange(func(text string) {
		if err := session.UpdateInstructions(gctx, text); err != nil {
			logger.Warn("push updated prompt", zap.Error(err))
		}
	})
	watcher, err := library.Watch(gctx)
	if err != nil {
		return fmt.Errorf("watch prompt override: %w", err)
	}
	if watcher != nil {
		defer func() { _ = watcher.Stop() }()
	}

	g.Go(func() error { return session.Run(gctx) })
	g.Go(func() error {
		select {
		case <-browser.Done():
			return errBrowserClosed
		case <-gctx.Done():
			return nil
		}
	})
	if cfg.Server.MetricsPort > 0 {
		g.Go(func() error { return runMetricsServer(gctx, cfg.Server, logger) })
	}

	logger.Info("voice session running",
		zap.String("url", cfg.Browser.StartURL),
		zap.String("prompt", library.Name()),
		zap.Bool("prompt_overridden", library.Overridden()),
		zap.Int("tools", len(registry.Schemas())),
		zap.Time("credential_expires_at", cred.ExpiresAt),
	)
	return g.Wait()
}
