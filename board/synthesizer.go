package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/visionboard/llm/image"
	"github.com/BaSui01/visionboard/types"
	"go.uber.org/zap"
)

// AspectRatioHint 布局 → 宽高比提示
func AspectRatioHint(layout types.LayoutStyle) string {
	switch layout {
	case types.LayoutVertical:
		return image.AspectPortrait
	case types.LayoutSquare:
		return image.AspectSquare
	default:
		return image.AspectLandscape
	}
}

// SynthesisResult 单次合成结果。OK 为 false 时 Error 给出原因。
type SynthesisResult struct {
	OK       bool
	Image    []byte
	MimeType string
	Error    string
}

// SynthesizerConfig ImageSynthesizer 配置
type SynthesizerConfig struct {
	Generator ImageGenerator
	Timeout   time.Duration
	Observer  Observer
}

// ImageSynthesizer 包装单次图像生成调用，不做内部重试
type ImageSynthesizer struct {
	generator ImageGenerator
	timeout   time.Duration
	observer  Observer
	logger    *zap.Logger
}

// NewImageSynthesizer 创建 ImageSynthesizer
func NewImageSynthesizer(cfg SynthesizerConfig, logger *zap.Logger) *ImageSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeouts().Synthesize
	}
	return &ImageSynthesizer{
		generator: cfg.Generator,
		timeout:   cfg.Timeout,
		observer:  observerOrNop(cfg.Observer),
		logger:    logger.With(zap.String("component", "image_synthesizer")),
	}
}

// Synthesize 生成一张图像。传输失败、超时、空结果均以 OK=false 返回。
func (s *ImageSynthesizer) Synthesize(ctx context.Context, prompt string, layout types.LayoutStyle) SynthesisResult {
	if s.generator == nil {
		s.observer.ObserveCapabilityCall("image_generation", CallUnconfigured, 0)
		return SynthesisResult{Error: "image generation is not configured"}
	}

	start := time.Now()
	img, outcome, err := s.generate(ctx, prompt, AspectRatioHint(layout))
	s.observer.ObserveCapabilityCall("image_generation", outcome, time.Since(start))

	switch outcome {
	case CallOK:
		return SynthesisResult{OK: true, Image: img.Data, MimeType: img.MimeType}
	case CallTimeout:
		s.logger.Warn("image generation timed out", zap.Duration("timeout", s.timeout))
		return SynthesisResult{Error: fmt.Sprintf("image generation timed out after %s", s.timeout)}
	case CallEmpty:
		return SynthesisResult{Error: ErrEmptyImage.Error()}
	default:
		s.logger.Warn("image generation failed", zap.Error(err))
		return SynthesisResult{Error: fmt.Sprintf("image generation failed: %v", err)}
	}
}

func (s *ImageSynthesizer) generate(ctx context.Context, prompt, aspect string) (img GeneratedImage, outcome string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			img, outcome, err = GeneratedImage{}, CallError, fmt.Errorf("image generator panicked: %v", r)
		}
	}()

	img, err = s.generator.GenerateImage(callCtx, prompt, aspect)
	if errors.Is(err, ErrEmptyImage) {
		err = nil
	}
	return img, callOutcome(callCtx, err, len(img.Data) == 0), err
}
