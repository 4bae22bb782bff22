package board

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/visionboard/types"
	"go.uber.org/zap"
)

// 解析默认值与评估不可用时的中性结果
const (
	DefaultParsedScore    = 5
	DefaultParsedFeedback = "unable to parse evaluation"

	FallbackScore    = 6
	FallbackFeedback = "Automatic evaluation unavailable. Image generated successfully."
)

// 标签只在行首识别（允许 markdown 加粗），正文里的 "score:" 不会截断反馈
var (
	scorePattern  = regexp.MustCompile(`(?im)^[ \t*]*SCORE[ \t]*:[\s*]*(-?\d+)`)
	labelPattern  = regexp.MustCompile(`(?im)^[ \t*]*(SCORE|FEEDBACK|IMPROVEMENTS)[ \t]*:`)
	feedbackLabel = regexp.MustCompile(`(?im)^[ \t*]*FEEDBACK[ \t]*:`)
	improveLabel  = regexp.MustCompile(`(?im)^[ \t*]*IMPROVEMENTS[ \t]*:`)
)

// FallbackEvaluation 评估调用失败时使用的固定结果
func FallbackEvaluation() types.EvaluationResult {
	return types.EvaluationResult{Score: FallbackScore, Feedback: FallbackFeedback}
}

// ParseEvaluation 从评估文本中提取 SCORE / FEEDBACK / IMPROVEMENTS，永不失败。
//
//   - score：行首 SCORE: 之后的第一个整数，缺失或格式错误时为 5，并截断到 0..10
//   - feedback：FEEDBACK: 到下一个行首标签或文本结尾，缺失时为 "unable to parse evaluation"
//   - improvements：IMPROVEMENTS: 到文本结尾，缺失时为空串
func ParseEvaluation(text string) types.EvaluationResult {
	result := types.EvaluationResult{
		Score:    DefaultParsedScore,
		Feedback: DefaultParsedFeedback,
	}

	if m := scorePattern.FindStringSubmatch(text); m != nil {
		result.Score = clampScore(m[1])
	}

	if loc := feedbackLabel.FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if next := labelPattern.FindStringIndex(rest); next != nil {
			rest = rest[:next[0]]
		}
		if fb := cleanSection(rest); fb != "" {
			result.Feedback = fb
		}
	}

	if loc := improveLabel.FindStringIndex(text); loc != nil {
		result.Improvements = cleanSection(text[loc[1]:])
	}

	return result
}

func clampScore(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(digits, "-") {
			return types.MaxScore
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0
		}
		return DefaultParsedScore
	}
	if n < 0 {
		return 0
	}
	if n > types.MaxScore {
		return types.MaxScore
	}
	return n
}

// cleanSection 去掉首尾空白与 markdown 加粗残留
func cleanSection(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
}

// RubricPrompt 评分细则：目标呈现、美感、激励性、清晰度、构图
func RubricPrompt(prompt string, goals []string) string {
	var b strings.Builder
	b.WriteString("You are reviewing a generated motivational vision board image.\n\n")
	b.WriteString("The image was generated from this prompt:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nGoals the board must represent:\n")
	for i, g := range goals {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}
	b.WriteString(`
Score the image from 0 to 10 considering:
1. Goal representation: is every goal clearly visualized?
2. Aesthetic quality: is it visually appealing and polished?
3. Motivation factor: does it inspire action?
4. Clarity: are text and symbols legible and unambiguous?
5. Composition: is the layout balanced with a clear hierarchy?

Respond in exactly this format:
SCORE: <integer from 0 to 10>
FEEDBACK: <two or three sentences on strengths and weaknesses>
IMPROVEMENTS: <specific changes for the next attempt>
`)
	return b.String()
}

// EvaluatorConfig QualityEvaluator 配置
type EvaluatorConfig struct {
	Evaluator ImageEvaluator // nil 表示未配置，等同于调用失败
	Timeout   time.Duration
	Observer  Observer
}

// QualityEvaluator 包装单次视觉评估调用
type QualityEvaluator struct {
	evaluator ImageEvaluator
	timeout   time.Duration
	observer  Observer
	logger    *zap.Logger
}

// NewQualityEvaluator 创建 QualityEvaluator
func NewQualityEvaluator(cfg EvaluatorConfig, logger *zap.Logger) *QualityEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeouts().Evaluate
	}
	return &QualityEvaluator{
		evaluator: cfg.Evaluator,
		timeout:   cfg.Timeout,
		observer:  observerOrNop(cfg.Observer),
		logger:    logger.With(zap.String("component", "quality_evaluator")),
	}
}

// Evaluate 评估图像。调用失败或超时返回 FallbackEvaluation，文本格式问题由 ParseEvaluation 兜底。
func (e *QualityEvaluator) Evaluate(ctx context.Context, img []byte, prompt string, goals []string) types.EvaluationResult {
	if e.evaluator == nil {
		e.observer.ObserveCapabilityCall("evaluation", CallUnconfigured, 0)
		return FallbackEvaluation()
	}

	start := time.Now()
	text, outcome, err := e.call(ctx, img, RubricPrompt(prompt, goals))
	e.observer.ObserveCapabilityCall("evaluation", outcome, time.Since(start))

	switch outcome {
	case CallError, CallTimeout:
		e.logger.Warn("evaluation unavailable, using neutral fallback",
			zap.String("outcome", outcome), zap.Error(err))
		return FallbackEvaluation()
	}

	result := ParseEvaluation(text)
	e.logger.Debug("evaluation parsed", zap.Int("score", result.Score))
	return result
}

func (e *QualityEvaluator) call(ctx context.Context, img []byte, rubric string) (text, outcome string, err error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			text, outcome, err = "", CallError, fmt.Errorf("image evaluator panicked: %v", r)
		}
	}()

	text, err = e.evaluator.EvaluateImage(callCtx, img, rubric)
	return text, callOutcome(callCtx, err, strings.TrimSpace(text) == ""), err
}
