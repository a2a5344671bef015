package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/voiceweb/answers"
	"github.com/BaSui01/voiceweb/api/handlers"
	"github.com/BaSui01/voiceweb/config"
	"github.com/BaSui01/voiceweb/internal/metrics"
	"github.com/BaSui01/voiceweb/internal/server"
)

// =============================================================================
// 🖥️ 会话代理服务
// =============================================================================

// Server 组合会话代理、问答 API、健康检查与指标端口
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	collector      *metrics.Collector
	healthHandler  *handlers.HealthHandler
	sessionHandler *handlers.SessionHandler
	answersHandler *handlers.AnswersHandler
}

// NewServer 创建服务。store 为 nil 时不注册 /answers
func NewServer(cfg *config.Config, collector *metrics.Collector, store answers.Store, logger *zap.Logger) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		collector:     collector,
		healthHandler: handlers.NewHealthHandler(logger),
		sessionHandler: handlers.NewSessionHandler(handlers.SessionConfig{
			UpstreamURL: cfg.Realtime.UpstreamURL,
			APIKey:      cfg.Realtime.APIKey,
			Model:       cfg.Realtime.Model,
			Voice:       cfg.Realtime.Voice,
			Timeout:     cfg.Realtime.RequestTimeout,
		}, nil, logger),
		answersHandler: newAnswersHandler(store, logger),
	}
}

func newAnswersHandler(store answers.Store, logger *zap.Logger) *handlers.AnswersHandler {
	if store == nil {
		return nil
	}
	return handlers.NewAnswersHandler(store, logger)
}

// RegisterCheck 为 /ready 添加依赖检查
func (s *Server) RegisterCheck(check handlers.HealthCheck) {
	if check != nil {
		s.healthHandler.RegisterCheck(check)
	}
}

// Handler 构建业务路由与中间件链
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("GET /session", s.sessionHandler.HandleSession)

	if s.answersHandler != nil {
		mux.HandleFunc("GET /answers", s.answersHandler.HandleList)
		mux.HandleFunc("POST /answers", s.answersHandler.HandleAppend)
		mux.HandleFunc("DELETE /answers", s.answersHandler.HandleReset)
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		SecurityHeaders(),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)
}

// Run 启动业务端口与指标端口，阻塞到 ctx 取消或任一端口异常
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	httpManager := server.NewManager("http", s.Handler(gctx), server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)
	g.Go(func() error { return httpManager.Run(gctx) })

	if s.cfg.Server.MetricsPort > 0 {
		g.Go(func() error { return runMetricsServer(gctx, s.cfg.Server, s.logger) })
	}

	s.logger.Info("session proxy started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("api_key_configured", s.cfg.Realtime.APIKey != ""),
	)
	return g.Wait()
}

// runMetricsServer 在独立端口暴露 /metrics
func runMetricsServer(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	m := server.NewManager("metrics", mux, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.MetricsPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	return m.Run(ctx)
}
