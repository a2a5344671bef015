// =============================================================================
// 📦 VoiceWeb 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("voiceweb.yaml").
//	    WithEnvPrefix("VOICEWEB").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/voiceweb/capture"
	"github.com/BaSui01/voiceweb/internal/cache"
	"github.com/BaSui01/voiceweb/internal/database"
	"github.com/BaSui01/voiceweb/page"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 VoiceWeb 的完整配置结构
type Config struct {
	// Server HTTP 服务（会话代理）配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Capture 屏幕捕获配置
	Capture CaptureConfig `yaml:"capture" env:"CAPTURE"`

	// Realtime 实时语音通道配置
	Realtime RealtimeConfig `yaml:"realtime" env:"REALTIME"`

	// Session 会话行为配置
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Browser 受控浏览器配置
	Browser page.Config `yaml:"browser" env:"BROWSER"`

	// Storage 问答存储配置
	Storage StorageConfig `yaml:"storage" env:"STORAGE"`

	// Redis 配置（storage.driver=redis 时使用）
	Redis cache.Config `yaml:"redis" env:"REDIS"`

	// Database 数据库配置（storage.driver=gorm 时使用）
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示不单独监听
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每秒请求数限制，0 表示不限
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求数
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 允许的跨域来源，"*" 表示任意
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// CaptureConfig 屏幕捕获配置
type CaptureConfig struct {
	// 编码预算
	Budget capture.Budget `yaml:"budget" env:"BUDGET"`
	// 捕获源: display, tab, synthetic
	Provider string `yaml:"provider" env:"PROVIDER"`
	// 显示器序号（provider=display）
	Display int `yaml:"display" env:"DISPLAY"`
	// 显示器断开检测间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 授权等待上限，0 表示随调用方上下文
	ConsentTimeout time.Duration `yaml:"consent_timeout" env:"CONSENT_TIMEOUT"`
	// 是否在画面中包含鼠标指针
	ShowCursor bool `yaml:"show_cursor" env:"SHOW_CURSOR"`
	// 合成画面尺寸（provider=synthetic）
	SyntheticWidth  int `yaml:"synthetic_width" env:"SYNTHETIC_WIDTH"`
	SyntheticHeight int `yaml:"synthetic_height" env:"SYNTHETIC_HEIGHT"`
}

// Constraints 返回快速路径使用的采集约束
func (c CaptureConfig) Constraints() capture.Constraints {
	return capture.Constraints{
		MaxWidth:   c.Budget.MaxWidth,
		MaxHeight:  c.Budget.MaxHeight,
		ShowCursor: c.ShowCursor,
	}
}

// RealtimeConfig 实时语音配置
type RealtimeConfig struct {
	// WebSocket 端点（不含 model 参数）
	URL string `yaml:"url" env:"URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 语音
	Voice string `yaml:"voice" env:"VOICE"`
	// 上游 API Key（仅服务端持有）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 上游会话创建端点
	UpstreamURL string `yaml:"upstream_url" env:"UPSTREAM_URL"`
	// 客户端获取临时凭证的端点（通常指向本服务的 /session）
	SessionEndpoint string `yaml:"session_endpoint" env:"SESSION_ENDPOINT"`
	// HTTP 请求超时
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// DialURL 返回带 model 参数的 WebSocket 地址
func (r RealtimeConfig) DialURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	if r.Model != "" {
		q := u.Query()
		q.Set("model", r.Model)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// SessionConfig 会话行为配置
type SessionConfig struct {
	// 内置提示词名称: ullim, builder, editor
	Prompt string `yaml:"prompt" env:"PROMPT"`
	// 提示词覆盖文件，存在且非空时替换内置提示词
	PromptOverridePath string `yaml:"prompt_override_path" env:"PROMPT_OVERRIDE_PATH"`
	// 单次工具调用超时
	ToolTimeout time.Duration `yaml:"tool_timeout" env:"TOOL_TIMEOUT"`
	// captureScreenshot 工具超时（含等待授权）
	CaptureTimeout time.Duration `yaml:"capture_timeout" env:"CAPTURE_TIMEOUT"`
}

// StorageConfig 问答存储配置
type StorageConfig struct {
	// 驱动: memory, gorm, redis
	Driver string `yaml:"driver" env:"DRIVER"`
	// 命名空间，隔离不同会话或展厅
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "VOICEWEB",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 校验与辅助函数
// =============================================================================

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	if err := c.Capture.Budget.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Capture.Provider {
	case "display", "tab", "synthetic":
	default:
		errs = append(errs, fmt.Sprintf("unknown capture provider %q (display, tab, synthetic)", c.Capture.Provider))
	}
	if c.Capture.Display < 0 {
		errs = append(errs, "capture display index must not be negative")
	}

	if c.Realtime.Model == "" {
		errs = append(errs, "realtime model is required")
	}
	if c.Realtime.Voice == "" {
		errs = append(errs, "realtime voice is required")
	}

	switch c.Storage.Driver {
	case "memory", "redis":
	case "gorm":
		switch c.Database.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage driver %q (memory, gorm, redis)", c.Storage.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}

// PoolConfig 返回连接池配置
func (d *DatabaseConfig) PoolConfig() database.PoolConfig {
	pc := database.DefaultPoolConfig()
	if d.MaxOpenConns > 0 {
		pc.MaxOpenConns = d.MaxOpenConns
	}
	if d.MaxIdleConns > 0 {
		pc.MaxIdleConns = d.MaxIdleConns
	}
	if d.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = d.ConnMaxLifetime
	}
	pc.HealthCheckInterval = d.HealthCheckInterval
	return pc
}
