// =============================================================================
// 📦 VisionBoard 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("VISIONBOARD").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "VISIONBOARD"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 VisionBoard 的完整配置结构
type Config struct {
	Server          ServerConfig    `yaml:"server" env:"SERVER"`
	Board           BoardConfig     `yaml:"board" env:"BOARD"`
	TextGeneration  ModelConfig     `yaml:"text_generation" env:"TEXT_GENERATION"`
	ImageGeneration ImageConfig     `yaml:"image_generation" env:"IMAGE_GENERATION"`
	Evaluation      ModelConfig     `yaml:"evaluation" env:"EVALUATION"`
	Storage         StorageConfig   `yaml:"storage" env:"STORAGE"`
	Database        DatabaseConfig  `yaml:"database" env:"DATABASE"`
	Redis           RedisConfig     `yaml:"redis" env:"REDIS"`
	JWT             JWTConfig       `yaml:"jwt" env:"JWT"`
	Log             LogConfig       `yaml:"log" env:"LOG"`
	Telemetry       TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示不单独暴露
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时，需覆盖一次完整的流式生成
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 请求体最大字节数
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	// API Key 列表，为空表示不启用 API Key 认证
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
	// 是否允许 ?api_key= 查询参数（websocket 客户端无法设置头）
	AllowQueryAPIKey bool `yaml:"allow_query_api_key" env:"ALLOW_QUERY_API_KEY"`
	// 允许的跨域来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 每 IP 限流
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// BoardConfig 生成循环策略与各阶段超时
type BoardConfig struct {
	MaxAttempts       int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	AcceptThreshold   int           `yaml:"accept_threshold" env:"ACCEPT_THRESHOLD"`
	ComposeTimeout    time.Duration `yaml:"compose_timeout" env:"COMPOSE_TIMEOUT"`
	SynthesizeTimeout time.Duration `yaml:"synthesize_timeout" env:"SYNTHESIZE_TIMEOUT"`
	EvaluateTimeout   time.Duration `yaml:"evaluate_timeout" env:"EVALUATE_TIMEOUT"`
	SaveTimeout       time.Duration `yaml:"save_timeout" env:"SAVE_TIMEOUT"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
}

// ModelConfig OpenAI 兼容的对话模型（提示词编排、视觉评估）
type ModelConfig struct {
	// 服务商名称，仅用于日志与能力报告
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key，为空表示未配置
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 最大输出 Token
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 温度
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// HTTP 超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Configured 是否配置了可用的 API Key
func (m ModelConfig) Configured() bool {
	return strings.TrimSpace(m.APIKey) != ""
}

// ImageConfig 图像生成服务
type ImageConfig struct {
	// openai | flux | gemini
	Provider string        `yaml:"provider" env:"PROVIDER"`
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	Model    string        `yaml:"model" env:"MODEL"`
	Quality  string        `yaml:"quality" env:"QUALITY"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 下载结果图像的大小上限
	MaxImageBytes int64 `yaml:"max_image_bytes" env:"MAX_IMAGE_BYTES"`
}

// Configured 是否配置了可用的 API Key
func (c ImageConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// StorageConfig 产物图像存储
type StorageConfig struct {
	// filesystem | minio
	Driver string      `yaml:"driver" env:"DRIVER"`
	Dir    string      `yaml:"dir" env:"DIR"`
	MinIO  MinIOConfig `yaml:"minio" env:"MINIO"`
}

// MinIOConfig S3 兼容对象存储
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	Region    string `yaml:"region" env:"REGION"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

// DatabaseConfig 产物记录库
type DatabaseConfig struct {
	// 驱动类型: sqlite, postgres, mysql；为空表示不启用记录库
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 时为文件路径
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// RedisConfig 运行日志 Redis
type RedisConfig struct {
	// 地址，为空表示不启用运行日志
	Addr          string        `yaml:"addr" env:"ADDR"`
	Password      string        `yaml:"password" env:"PASSWORD"`
	DB            int           `yaml:"db" env:"DB"`
	PoolSize      int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns  int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	JournalTTL    time.Duration `yaml:"journal_ttl" env:"JOURNAL_TTL"`
	JournalMaxLen int64         `yaml:"journal_max_len" env:"JOURNAL_MAX_LEN"`
}

// JWTConfig JWT 认证；Secret 与 PublicKey 都为空时不启用
type JWTConfig struct {
	Secret    string `yaml:"secret" env:"SECRET"`
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
	Issuer    string `yaml:"issuer" env:"ISSUER"`
	Audience  string `yaml:"audience" env:"AUDIENCE"`
}

// Enabled 是否启用 JWT 认证
func (j JWTConfig) Enabled() bool {
	return j.Secret != "" || j.PublicKey != ""
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
		envPrefix:  DefaultEnvPrefix,
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
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

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
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 校验与派生值
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
	if c.Server.MetricsPort != 0 && c.Server.MetricsPort == c.Server.HTTPPort {
		errs = append(errs, "metrics port must differ from HTTP port")
	}

	if c.Board.MaxAttempts < 1 {
		errs = append(errs, "board.max_attempts must be at least 1")
	}
	if c.Board.AcceptThreshold < 0 || c.Board.AcceptThreshold > 10 {
		errs = append(errs, "board.accept_threshold must be between 0 and 10")
	}

	switch strings.ToLower(c.ImageGeneration.Provider) {
	case "openai", "flux", "gemini":
	default:
		errs = append(errs, fmt.Sprintf("unsupported image_generation.provider %q", c.ImageGeneration.Provider))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "filesystem":
		if strings.TrimSpace(c.Storage.Dir) == "" {
			errs = append(errs, "storage.dir is required for the filesystem driver")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			errs = append(errs, "storage.minio.endpoint is required for the minio driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported storage.driver %q", c.Storage.Driver))
	}

	switch strings.ToLower(c.Database.Driver) {
	case "", "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database.driver %q", c.Database.Driver))
	}

	if c.TextGeneration.Temperature < 0 || c.TextGeneration.Temperature > 2 {
		errs = append(errs, "text_generation.temperature must be between 0 and 2")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
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
