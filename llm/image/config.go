package image

import "time"

// OpenAIConfig 配置 OpenAI 图像服务
type OpenAIConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // dall-e-3, gpt-image-1
	Quality string        `json:"quality,omitempty" yaml:"quality,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// FluxConfig 配置 Black Forest Labs Flux
type FluxConfig struct {
	APIKey       string        `json:"api_key" yaml:"api_key"`
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	Model        string        `json:"model,omitempty" yaml:"model,omitempty"` // flux-2-pro
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	MaxPolls     int           `json:"max_polls,omitempty" yaml:"max_polls,omitempty"`
}

// GeminiConfig 配置 Gemini 原生图像生成
type GeminiConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"` // gemini-2.5-flash-image
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultOpenAIConfig 返回默认 OpenAI 图像配置
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL: "https://api.openai.com",
		Model:   "dall-e-3",
		Timeout: 120 * time.Second,
	}
}

// DefaultFluxConfig 返回默认 Flux 配置
func DefaultFluxConfig() FluxConfig {
	return FluxConfig{
		BaseURL:      "https://api.bfl.ai",
		Model:        "flux-2-pro",
		Timeout:      120 * time.Second,
		PollInterval: 2 * time.Second,
		MaxPolls:     90,
	}
}

// DefaultGeminiConfig 返回默认 Gemini 图像配置
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-2.5-flash-image",
		Timeout: 120 * time.Second,
	}
}
