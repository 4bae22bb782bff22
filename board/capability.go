package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/visionboard/llm"
	"github.com/BaSui01/visionboard/llm/image"
	"go.uber.org/zap"
)

// =============================================================================
// 🔌 外部能力接口
// =============================================================================

// TextGenerator 文本生成能力
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GeneratedImage 图像生成结果
type GeneratedImage struct {
	Data     []byte
	MimeType string
}

// ImageGenerator 图像生成能力
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatioHint string) (GeneratedImage, error)
}

// ImageEvaluator 视觉评估能力，返回包含 SCORE/FEEDBACK/IMPROVEMENTS 的文本
type ImageEvaluator interface {
	EvaluateImage(ctx context.Context, image []byte, rubricPrompt string) (string, error)
}

// HealthChecker 可选接口：支持探活的能力适配器
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Named 可选接口：返回底层服务商名称
type Named interface {
	ProviderName() string
}

// ErrEmptyImage 图像生成未返回任何图像
var ErrEmptyImage = errors.New("image generation returned no image")

// =============================================================================
// 🧩 生产适配器
// =============================================================================

// LLMTextGenerator 基于 llm.Provider 的文本生成
type LLMTextGenerator struct {
	provider    llm.Provider
	model       string
	maxTokens   int
	temperature float32
}

// NewLLMTextGenerator 创建文本生成适配器
func NewLLMTextGenerator(provider llm.Provider, model string, maxTokens int, temperature float32) *LLMTextGenerator {
	return &LLMTextGenerator{provider: provider, model: model, maxTokens: maxTokens, temperature: temperature}
}

// GenerateText 发送 system + user 两条消息并返回首个 choice 的文本
func (g *LLMTextGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := g.provider.Completion(ctx, &llm.ChatRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.FirstContent(), nil
}

// HealthCheck 探测底层 Provider
func (g *LLMTextGenerator) HealthCheck(ctx context.Context) error {
	return providerHealth(ctx, g.provider)
}

// ProviderName 返回服务商名称
func (g *LLMTextGenerator) ProviderName() string { return g.provider.Name() }

// LLMImageEvaluator 基于多模态 llm.Provider 的视觉评估
type LLMImageEvaluator struct {
	provider  llm.Provider
	model     string
	maxTokens int
}

// NewLLMImageEvaluator 创建视觉评估适配器
func NewLLMImageEvaluator(provider llm.Provider, model string, maxTokens int) *LLMImageEvaluator {
	return &LLMImageEvaluator{provider: provider, model: model, maxTokens: maxTokens}
}

// EvaluateImage 把图像作为 user 消息附件与评分细则一同发送
func (e *LLMImageEvaluator) EvaluateImage(ctx context.Context, img []byte, rubricPrompt string) (string, error) {
	resp, err := e.provider.Completion(ctx, &llm.ChatRequest{
		Model: e.model,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: rubricPrompt,
			Images:  []llm.ImageContent{{Data: img}},
		}},
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.FirstContent(), nil
}

// HealthCheck 探测底层 Provider
func (e *LLMImageEvaluator) HealthCheck(ctx context.Context) error {
	return providerHealth(ctx, e.provider)
}

// ProviderName 返回服务商名称
func (e *LLMImageEvaluator) ProviderName() string { return e.provider.Name() }

func providerHealth(ctx context.Context, p llm.Provider) error {
	status, err := p.HealthCheck(ctx)
	if err != nil {
		return err
	}
	if status == nil || !status.Healthy {
		return fmt.Errorf("%s reported unhealthy", p.Name())
	}
	return nil
}

// ProviderImageGenerator 基于 image.Provider 的图像生成
type ProviderImageGenerator struct {
	provider image.Provider
	fetcher  *image.Fetcher
	logger   *zap.Logger
}

// NewProviderImageGenerator 创建图像生成适配器。fetcher 为 nil 时使用默认 Fetcher。
func NewProviderImageGenerator(provider image.Provider, fetcher *image.Fetcher, logger *zap.Logger) *ProviderImageGenerator {
	if fetcher == nil {
		fetcher = image.NewFetcher(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderImageGenerator{provider: provider, fetcher: fetcher, logger: logger}
}

// GenerateImage 单次生成调用，取第一张图像并解码为字节
func (g *ProviderImageGenerator) GenerateImage(ctx context.Context, prompt, aspectRatioHint string) (GeneratedImage, error) {
	resp, err := g.provider.Generate(ctx, &image.GenerateRequest{
		Prompt:      prompt,
		AspectRatio: aspectRatioHint,
	})
	if err != nil {
		return GeneratedImage{}, err
	}
	if resp == nil || len(resp.Images) == 0 {
		return GeneratedImage{}, ErrEmptyImage
	}

	first := resp.Images[0]
	if first.RevisedPrompt != "" && !strings.EqualFold(first.RevisedPrompt, prompt) {
		g.logger.Debug("provider revised prompt", zap.String("provider", g.provider.Name()))
	}

	data, mime, err := g.fetcher.Bytes(ctx, first)
	if err != nil {
		return GeneratedImage{}, err
	}
	if len(data) == 0 {
		return GeneratedImage{}, ErrEmptyImage
	}
	return GeneratedImage{Data: data, MimeType: mime}, nil
}

// ProviderName 返回服务商名称
func (g *ProviderImageGenerator) ProviderName() string { return g.provider.Name() }
