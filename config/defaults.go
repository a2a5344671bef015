// =============================================================================
// 📦 VoiceWeb 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/internal/cache"
	"github.com/BaSui01/voiceweb/page"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Capture:   DefaultCaptureConfig(),
		Realtime:  DefaultRealtimeConfig(),
		Session:   DefaultSessionConfig(),
		Browser:   page.DefaultConfig(),
		Storage:   DefaultStorageConfig(),
		Redis:     cache.DefaultConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           3000,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		RateLimitRPS:       10,
		RateLimitBurst:     20,
		CORSAllowedOrigins: []string{"*"},
	}
}

// DefaultCaptureConfig 返回默认捕获配置
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Budget:          capture.DefaultBudget(),
		Provider:        "tab",
		Display:         0,
		PollInterval:    2 * time.Second,
		ConsentTimeout:  time.Minute,
		ShowCursor:      true,
		SyntheticWidth:  2560,
		SyntheticHeight: 1440,
	}
}

// DefaultRealtimeConfig 返回默认实时语音配置
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		URL:             "wss://api.openai.com/v1/realtime",
		Model:           "gpt-realtime",
		Voice:           "marin",
		UpstreamURL:     "https://api.openai.com/v1/realtime/sessions",
		SessionEndpoint: "http://localhost:3000/session",
		RequestTimeout:  15 * time.Second,
	}
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Prompt:         "ullim",
		ToolTimeout:    30 * time.Second,
		CaptureTimeout: 2 * time.Minute,
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:    "memory",
		Namespace: "default",
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:              "sqlite",
		Host:                "localhost",
		Port:                5432,
		User:                "voiceweb",
		Password:            "",
		Name:                "voiceweb.db",
		SSLMode:             "disable",
		MaxOpenConns:        1,
		MaxIdleConns:        1,
		ConnMaxLifetime:     time.Hour,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "voiceweb",
		SampleRate:   0.1,
	}
}
