package config

import "time"

// =============================================================================
// 📋 默认配置
// =============================================================================

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:          DefaultServerConfig(),
		Board:           DefaultBoardConfig(),
		TextGeneration:  DefaultTextGenerationConfig(),
		ImageGeneration: DefaultImageGenerationConfig(),
		Evaluation:      DefaultEvaluationConfig(),
		Storage:         DefaultStorageConfig(),
		Database:        DefaultDatabaseConfig(),
		Redis:           DefaultRedisConfig(),
		Log:             DefaultLogConfig(),
		Telemetry:       DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    15 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		MaxBodyBytes:    1 << 20,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
	}
}

// DefaultBoardConfig 返回默认生成策略
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		MaxAttempts:       3,
		AcceptThreshold:   7,
		ComposeTimeout:    30 * time.Second,
		SynthesizeTimeout: 180 * time.Second,
		EvaluateTimeout:   60 * time.Second,
		SaveTimeout:       30 * time.Second,
		ProbeTimeout:      5 * time.Second,
	}
}

// DefaultTextGenerationConfig 返回默认提示词编排模型配置
func DefaultTextGenerationConfig() ModelConfig {
	return ModelConfig{
		Provider:    "openai",
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o-mini",
		MaxTokens:   800,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
	}
}

// DefaultEvaluationConfig 返回默认视觉评估模型配置
func DefaultEvaluationConfig() ModelConfig {
	return ModelConfig{
		Provider:    "openai",
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o",
		MaxTokens:   600,
		Temperature: 0,
		Timeout:     60 * time.Second,
	}
}

// DefaultImageGenerationConfig 返回默认图像生成配置
func DefaultImageGenerationConfig() ImageConfig {
	return ImageConfig{
		Provider:      "openai",
		BaseURL:       "https://api.openai.com",
		Model:         "dall-e-3",
		Quality:       "standard",
		Timeout:       120 * time.Second,
		MaxImageBytes: 20 << 20,
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver: "filesystem",
		Dir:    "./data/boards",
		MinIO: MinIOConfig{
			Bucket: "visionboard",
			Prefix: "boards",
		},
	}
}

// DefaultDatabaseConfig 返回默认记录库配置，记录库默认关闭
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "",
		Host:            "localhost",
		Port:            5432,
		User:            "visionboard",
		Name:            "visionboard",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置，运行日志默认关闭
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		PoolSize:      10,
		MinIdleConns:  2,
		JournalTTL:    24 * time.Hour,
		JournalMaxLen: 1000,
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
		ServiceName:  "visionboard",
		SampleRate:   0.1,
	}
}
