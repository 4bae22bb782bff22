package board

import (
	"fmt"
	"time"
)

// 默认接受策略
const (
	DefaultMaxAttempts     = 3
	DefaultAcceptThreshold = 7
)

// Policy 接受策略。阈值只控制提前停止，不决定最终是否接受。
type Policy struct {
	MaxAttempts     int `json:"max_attempts" yaml:"max_attempts"`
	AcceptThreshold int `json:"accept_threshold" yaml:"accept_threshold"` // 含，0..10
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, AcceptThreshold: DefaultAcceptThreshold}
}

// Validate 校验策略
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.AcceptThreshold < 0 || p.AcceptThreshold > 10 {
		return fmt.Errorf("accept_threshold must be within 0..10, got %d", p.AcceptThreshold)
	}
	return nil
}

// Passed 判断分数是否达到阈值
func (p Policy) Passed(score int) bool {
	return score >= p.AcceptThreshold
}

// TotalSteps 进度事件的总步数：每次尝试三个阶段，加上最终保存
func (p Policy) TotalSteps() int {
	return 3*p.MaxAttempts + 1
}

// Timeouts 各外部调用的单次超时
type Timeouts struct {
	Compose    time.Duration `json:"compose" yaml:"compose"`
	Synthesize time.Duration `json:"synthesize" yaml:"synthesize"`
	Evaluate   time.Duration `json:"evaluate" yaml:"evaluate"`
	Save       time.Duration `json:"save" yaml:"save"`
}

// DefaultTimeouts 返回默认超时
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Compose:    30 * time.Second,
		Synthesize: 180 * time.Second,
		Evaluate:   60 * time.Second,
		Save:       30 * time.Second,
	}
}

// =============================================================================
// 🔄 状态机
// =============================================================================

// State 编排器状态
type State string

const (
	StateStarting     State = "STARTING"
	StateComposing    State = "COMPOSING"
	StateSynthesizing State = "SYNTHESIZING"
	StateEvaluating   State = "EVALUATING"
	StateSkipEval     State = "SKIP_EVAL"
	StateDeciding     State = "DECIDING"
	StateAccept       State = "ACCEPT"
	StateContinue     State = "CONTINUE"
	StateExhausted    State = "EXHAUSTED"
	StateFinalizing   State = "FINALIZING"
	StateSucceeded    State = "SUCCEEDED"
	StateFailed       State = "FAILED"
)

// IsTerminal 是否为终止状态
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}
