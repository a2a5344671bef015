// =============================================================================
// VoiceWeb 主入口
// =============================================================================
// 语音驱动的网页助手：会话代理、浏览器工具会话与一次性屏幕捕获
//
// 使用方法:
//
//	voiceweb serve                        # 启动会话代理
//	voiceweb serve --config config.yaml   # 指定配置文件
//	voiceweb run --url https://example.com
//	voiceweb capture --out shot.jpg       # 一次性捕获
//	voiceweb version                      # 显示版本信息
//	voiceweb health                       # 健康检查
// =============================================================================

// @title VoiceWeb API
// @version 1.0.0
// @description Session proxy and answer store for the VoiceWeb realtime voice agent.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3000
// @BasePath /
// @schemes http https

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/internal/metrics"
	"github.com/BaSui01/voiceweb/internal/telemetry"
	"github.com/BaSui01/voiceweb/internal/tlsutil"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "run":
		err = runAgentCommand(os.Args[2:])
	case "capture":
		err = runCapture(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		err = runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext 在 SIGINT/SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting VoiceWeb session proxy",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signalContext()
	defer stop()

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer shutdownTelemetry(otelProviders, logger)

	store, check, closeStore, err := openAnswerStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	srv := NewServer(cfg, metrics.NewCollector("voiceweb", logger), store, logger)
	srv.RegisterCheck(check)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("VoiceWeb stopped")
	return nil
}

func shutdownTelemetry(p *telemetry.Providers, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:3000", "Server address")
	_ = fs.Parse(args)

	client := tlsutil.HTTPClient(5 * time.Second)
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	fmt.Println("OK")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("VoiceWeb %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`VoiceWeb - realtime voice agent for web pages

Usage:
  voiceweb <command> [options]

Commands:
  serve     Start the session proxy (GET /session, /answers, health)
  run       Open a browser and run a voice session with page tools
  capture   Capture one screenshot under the size budget
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve':
  --config <path>     Path to configuration file (YAML)

Options for 'run':
  --config <path>     Path to configuration file (YAML)
  --url <url>         Page to open (overrides browser.start_url)
  --prompt <name>     Built-in prompt: ullim, builder, editor

Options for 'capture':
  --config <path>     Path to configuration file (YAML)
  --provider <name>   display, tab or synthetic (overrides capture.provider)
  --url <url>         Page to open when provider is tab
  --out <file>        Output JPEG path (default screenshot.jpg)

Examples:
  voiceweb serve --config /etc/voiceweb/config.yaml
  voiceweb run --url https://example.com --prompt builder
  voiceweb capture --provider synthetic --out frame.jpg
  voiceweb health --addr http://localhost:3000
  voiceweb version`)
}
