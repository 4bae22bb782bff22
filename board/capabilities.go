package board

import (
	"context"
	"time"

	"github.com/BaSui01/visionboard/types"
	"golang.org/x/sync/errgroup"
)

// CapabilityStatus 单项外部能力的可用性
type CapabilityStatus struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider,omitempty"`
	Healthy    *bool  `json:"healthy,omitempty"`
	LatencyMS  int64  `json:"latencyMs,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CapabilityReport 只读能力查询的响应
type CapabilityReport struct {
	TextGeneration  CapabilityStatus    `json:"textGeneration"`
	ImageGeneration CapabilityStatus    `json:"imageGeneration"`
	Evaluation      CapabilityStatus    `json:"evaluation"`
	MaxAttempts     int                 `json:"maxAttempts"`
	AcceptThreshold int                 `json:"acceptThreshold"`
	BoardTypes      []types.BoardType   `json:"boardTypes"`
	LayoutStyles    []types.LayoutStyle `json:"layoutStyles"`
	Aesthetics      []types.Aesthetic   `json:"aesthetics"`
	Storage         string              `json:"storage,omitempty"`
}

// Capabilities 汇总已配置的能力与策略
type Capabilities struct {
	Text         TextGenerator
	Image        ImageGenerator
	Evaluator    ImageEvaluator
	Policy       Policy
	Storage      string
	ProbeTimeout time.Duration
}

// Report 生成能力报告。probe 为 true 时并发探活支持 HealthChecker 的能力。
func (c Capabilities) Report(ctx context.Context, probe bool) CapabilityReport {
	report := CapabilityReport{
		TextGeneration:  describe(c.Text),
		ImageGeneration: describe(c.Image),
		Evaluation:      describe(c.Evaluator),
		MaxAttempts:     c.Policy.MaxAttempts,
		AcceptThreshold: c.Policy.AcceptThreshold,
		BoardTypes:      types.BoardTypes(),
		LayoutStyles:    types.LayoutStyles(),
		Aesthetics:      types.Aesthetics(),
		Storage:         c.Storage,
	}
	if !probe {
		return report
	}

	timeout := c.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// errgroup 只做并发扇出：探活失败写入各自状态，goroutine 不返回错误，也不取消其他探测
	var g errgroup.Group
	probeInto(&g, ctx, c.Text, &report.TextGeneration)
	probeInto(&g, ctx, c.Image, &report.ImageGeneration)
	probeInto(&g, ctx, c.Evaluator, &report.Evaluation)
	_ = g.Wait()

	return report
}

func describe(capability any) CapabilityStatus {
	if isNil(capability) {
		return CapabilityStatus{}
	}
	status := CapabilityStatus{Configured: true}
	if n, ok := capability.(Named); ok {
		status.Provider = n.ProviderName()
	}
	return status
}

func probeInto(g *errgroup.Group, ctx context.Context, capability any, status *CapabilityStatus) {
	if isNil(capability) {
		return
	}
	hc, ok := capability.(HealthChecker)
	if !ok {
		return
	}
	g.Go(func() error {
		start := time.Now()
		err := hc.HealthCheck(ctx)
		healthy := err == nil
		status.Healthy = &healthy
		status.LatencyMS = time.Since(start).Milliseconds()
		if err != nil {
			status.Error = err.Error()
		}
		return nil
	})
}

// isNil 识别接口中装箱的 nil 指针
func isNil(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case *LLMTextGenerator:
		return c == nil
	case *LLMImageEvaluator:
		return c == nil
	case *ProviderImageGenerator:
		return c == nil
	}
	return false
}
