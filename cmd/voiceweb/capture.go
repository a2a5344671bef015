package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/config"
	"github.com/BaSui01/voiceweb/internal/metrics"
	"github.com/BaSui01/voiceweb/internal/telemetry"
	"github.com/BaSui01/voiceweb/page"
)

// =============================================================================
// 📷 capture 命令
// =============================================================================

func runCapture(args []string) error {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	providerName := fs.String("provider", "", "Capture provider: display, tab, synthetic")
	startURL := fs.String("url", "", "Page to open when provider is tab")
	out := fs.String("out", "screenshot.jpg", "Output JPEG path")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *providerName != "" {
		cfg.Capture.Provider = *providerName
	}
	if *startURL != "" {
		cfg.Browser.StartURL = *startURL
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

	result, err := captureOnce(ctx, cfg, []capture.Option{
		capture.WithRecorder(metrics.NewCollector("voiceweb", logger)),
		capture.WithTracer(otelProviders.Tracer(telemetry.CaptureTracer)),
	}, logger)
	if err != nil {
		return err
	}
	if result.Success && result.Image != nil {
		if err := os.WriteFile(*out, result.Image.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *out, err)
		}
		logger.Info("screenshot written", zap.String("path", *out), zap.Int("bytes", len(result.Image.Data)))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("capture failed: %s", result.Error)
	}
	return nil
}

// captureOnce 构建捕获源并执行一次捕获（快速路径失败时退回一次性路径）
func captureOnce(ctx context.Context, cfg *config.Config, opts []capture.Option, logger *zap.Logger) (*capture.Result, error) {
	var browser page.Screenshotter
	if cfg.Capture.Provider == "tab" || cfg.Capture.Provider == "" {
		driver, err := page.NewChromeDriver(cfg.Browser, logger)
		if err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		defer func() { _ = driver.Close() }()
		browser = driver
	}

	provider, err := newSourceProvider(cfg.Capture, browser, logger)
	if err != nil {
		return nil, err
	}
	orch := newOrchestrator(cfg.Capture, provider, opts, logger)
	defer orch.Sources().Release(orch.Sources().Current())

	return orch.Capture(ctx), nil
}
