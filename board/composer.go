package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/visionboard/types"
	"go.uber.org/zap"
)

// 风格描述（确定性模板使用，亦嵌入主路径指令）
var aestheticStyles = map[types.Aesthetic]string{
	types.AestheticSketch:         "hand-drawn pencil sketch style with expressive linework, cross-hatching and soft graphite shading",
	types.AestheticPhotorealistic: "photorealistic style with natural lighting, sharp detail and true-to-life textures",
	types.AestheticCollage:        "mixed-media collage style layering cut paper, magazine clippings and photographs",
	types.AestheticModern:         "clean modern design style with bold typography, flat colors and generous negative space",
	types.AestheticVintage:        "vintage style with muted warm tones, subtle film grain and retro poster typography",
}

// 布局描述
var layoutDescriptions = map[types.LayoutStyle]string{
	types.LayoutHorizontal: "wide horizontal landscape composition in a 16:9 aspect ratio",
	types.LayoutVertical:   "tall vertical portrait composition in a 9:16 aspect ratio",
	types.LayoutSquare:     "balanced square composition in a 1:1 aspect ratio",
}

// 必备视觉元素
var requiredElements = []string{
	"A central focal point that captures the main aspiration",
	"Supporting imagery for each goal",
	"Motivational text overlays",
	"Symbols of success and achievement",
	"Progress indicators",
	"A cohesive color palette",
	"A clear visual hierarchy",
}

const maxTemplateTasks = 3

const composerSystemPrompt = `You are an expert visual designer who writes prompts for text-to-image models.
Given a person's goals, write ONE detailed image generation prompt for a motivational vision board.
Describe the composition, imagery for each goal, text overlays, color palette and style.
Respond with the prompt text only, without preamble or markdown.`

// StyleDescription 返回风格描述，未知值退回默认风格
func StyleDescription(a types.Aesthetic) string {
	if s, ok := aestheticStyles[a]; ok {
		return s
	}
	return aestheticStyles[types.DefaultAesthetic]
}

// LayoutDescription 返回布局描述，未知值退回默认布局
func LayoutDescription(l types.LayoutStyle) string {
	if s, ok := layoutDescriptions[l]; ok {
		return s
	}
	return layoutDescriptions[types.DefaultLayoutStyle]
}

// ComposerConfig PromptComposer 配置
type ComposerConfig struct {
	Generator TextGenerator // nil 表示未配置，始终走模板
	Timeout   time.Duration
	Observer  Observer
}

// PromptComposer 生成图像提示词
type PromptComposer struct {
	generator TextGenerator
	timeout   time.Duration
	observer  Observer
	logger    *zap.Logger
}

// NewPromptComposer 创建 PromptComposer
func NewPromptComposer(cfg ComposerConfig, logger *zap.Logger) *PromptComposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeouts().Compose
	}
	return &PromptComposer{
		generator: cfg.Generator,
		timeout:   cfg.Timeout,
		observer:  observerOrNop(cfg.Observer),
		logger:    logger.With(zap.String("component", "prompt_composer")),
	}
}

// Compose 返回本次尝试的提示词。主路径的任何失败都会透明地退回模板。
func (c *PromptComposer) Compose(ctx context.Context, req types.GenerationRequest, priorFeedback *string) string {
	if c.generator == nil {
		c.observer.ObserveCapabilityCall("text_generation", CallUnconfigured, 0)
		return FallbackPrompt(req, priorFeedback)
	}

	start := time.Now()
	text, outcome, err := c.generate(ctx, req, priorFeedback)
	c.observer.ObserveCapabilityCall("text_generation", outcome, time.Since(start))

	if outcome != CallOK {
		c.logger.Warn("text generation unavailable, using template prompt",
			zap.String("outcome", outcome), zap.Error(err))
		return FallbackPrompt(req, priorFeedback)
	}
	return text
}

func (c *PromptComposer) generate(ctx context.Context, req types.GenerationRequest, priorFeedback *string) (text, outcome string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			text, outcome, err = "", CallError, fmt.Errorf("text generator panicked: %v", r)
		}
	}()

	text, err = c.generator.GenerateText(callCtx, composerSystemPrompt, composerInstruction(req, priorFeedback))
	text = strings.TrimSpace(text)
	return text, callOutcome(callCtx, err, text == ""), err
}

// composerInstruction 主路径的 user 指令
func composerInstruction(req types.GenerationRequest, priorFeedback *string) string {
	var b strings.Builder
	b.WriteString("Create an image generation prompt for a vision board.\n\n")
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	fmt.Fprintf(&b, "Board type: %s\n", req.BoardType)
	if req.Challenge != nil && req.Challenge.Name != "" {
		fmt.Fprintf(&b, "Challenge: %s\n", req.Challenge.Name)
	}
	b.WriteString("Goals:\n")
	for i, g := range req.Goals {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}
	if len(req.Tasks) > 0 {
		b.WriteString("Tasks:\n")
		for _, t := range req.Tasks {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	fmt.Fprintf(&b, "Layout: %s\n", LayoutDescription(req.LayoutStyle))
	fmt.Fprintf(&b, "Aesthetic: %s\n", StyleDescription(req.Aesthetic))
	if priorFeedback != nil {
		b.WriteString("\nThe previous attempt was reviewed. Improve on it based on this feedback:\n")
		b.WriteString(*priorFeedback)
		b.WriteString("\n")
	}
	return b.String()
}

// FallbackPrompt 确定性模板，不依赖任何外部调用
func FallbackPrompt(req types.GenerationRequest, priorFeedback *string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a motivational vision board in a %s.\n", StyleDescription(req.Aesthetic))
	fmt.Fprintf(&b, "Layout: %s.\n", LayoutDescription(req.LayoutStyle))
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: \"%s\"\n", req.Title)
	}
	if req.Challenge != nil && req.Challenge.Name != "" {
		fmt.Fprintf(&b, "Challenge: %s\n", req.Challenge.Name)
	}

	b.WriteString("\nGoals to visualize:\n")
	for i, g := range req.Goals {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}

	if len(req.Tasks) > 0 {
		b.WriteString("\nKey tasks:\n")
		for i, t := range req.Tasks {
			if i == maxTemplateTasks {
				break
			}
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	b.WriteString("\nRequired visual elements:\n")
	for _, e := range requiredElements {
		fmt.Fprintf(&b, "- %s\n", e)
	}

	if priorFeedback != nil {
		b.WriteString("\nImprovement notes:\n")
		b.WriteString(*priorFeedback)
		b.WriteString("\n")
	}
	return b.String()
}
