package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/visionboard/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RunCancelledMessage 运行被取消时 error 事件的消息
const RunCancelledMessage = "run cancelled"

// RunResult 一次运行的结果
type RunResult struct {
	Accepted    bool
	BestAttempt *types.Attempt
	Image       []byte
	MimeType    string
	Attempts    []types.Attempt
	Locator     string
	Err         *types.Error
}

// OrchestratorConfig 编排器依赖与策略
type OrchestratorConfig struct {
	Composer    *PromptComposer
	Synthesizer *ImageSynthesizer
	Evaluator   *QualityEvaluator
	Sink        ArtifactSink
	Policy      Policy
	SaveTimeout time.Duration
	Observer    Observer
	Tracer      trace.Tracer
	Clock       func() time.Time
}

// Orchestrator 驱动 compose → synthesize → evaluate 的有界重试循环。
// 实例无运行间共享的可变状态，可被并发运行复用。
type Orchestrator struct {
	composer    *PromptComposer
	synthesizer *ImageSynthesizer
	evaluator   *QualityEvaluator
	sink        ArtifactSink
	policy      Policy
	saveTimeout time.Duration
	observer    Observer
	tracer      trace.Tracer
	clock       func() time.Time
	logger      *zap.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(cfg OrchestratorConfig, logger *zap.Logger) (*Orchestrator, error) {
	if cfg.Composer == nil || cfg.Synthesizer == nil || cfg.Evaluator == nil {
		return nil, errors.New("composer, synthesizer and evaluator are required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("artifact sink is required")
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultTimeouts().Save
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("visionboard/board")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		composer:    cfg.Composer,
		synthesizer: cfg.Synthesizer,
		evaluator:   cfg.Evaluator,
		sink:        cfg.Sink,
		policy:      cfg.Policy,
		saveTimeout: cfg.SaveTimeout,
		observer:    observerOrNop(cfg.Observer),
		tracer:      cfg.Tracer,
		clock:       cfg.Clock,
		logger:      logger.With(zap.String("component", "orchestrator")),
	}, nil
}

// Policy 返回当前策略
func (o *Orchestrator) Policy() Policy { return o.policy }

// best 运行中得分最高的尝试及其图像
type best struct {
	attempt  types.Attempt
	image    []byte
	mimeType string
}

// run 单次运行的私有状态
type run struct {
	o        *Orchestrator
	req      types.GenerationRequest
	emit     Emitter
	logger   *zap.Logger
	started  time.Time
	attempts []types.Attempt
	best     *best
}

// Run 执行一次完整运行。ctx 的取消在阶段边界检查，进行中的外部调用不受影响。
// 总是恰好发出一个终止事件。
func (o *Orchestrator) Run(ctx context.Context, req types.GenerationRequest, emit Emitter) RunResult {
	req = req.Normalize()

	ctx, span := o.tracer.Start(ctx, "board.run", trace.WithAttributes(
		attribute.String("board.request_id", req.RequestID),
		attribute.String("board.type", string(req.BoardType)),
		attribute.Int("board.goals", len(req.Goals)),
		attribute.Int("board.max_attempts", o.policy.MaxAttempts),
	))
	defer span.End()

	r := &run{
		o:       o,
		req:     req,
		emit:    emit,
		logger:  o.logger.With(zap.String("request_id", req.RequestID)),
		started: o.clock(),
	}
	result := r.execute(ctx)

	span.SetAttributes(
		attribute.Int("board.attempts_used", len(result.Attempts)),
		attribute.Bool("board.accepted", result.Accepted),
	)
	if result.Err != nil {
		span.SetStatus(codes.Error, result.Err.Message)
	}
	return result
}

func (r *run) execute(ctx context.Context) RunResult {
	o := r.o
	r.transition(StateStarting, 0)

	if err := r.req.Validate(); err != nil {
		return r.fail(OutcomeInvalid, err.Message, err)
	}

	total := o.policy.TotalSteps()
	r.emit(NewProgress("Starting vision board generation", 0, total))

	// 外部调用不随调用方断开而中断，只受各自超时约束
	callCtx := context.WithoutCancel(ctx)

	var feedback *string
	for n := 1; n <= o.policy.MaxAttempts; n++ {
		if ctx.Err() != nil {
			return r.cancelled()
		}
		r.emit(NewAttempt(n, o.policy.MaxAttempts, fmt.Sprintf("Attempt %d of %d", n, o.policy.MaxAttempts)))

		// COMPOSING
		r.transition(StateComposing, n)
		r.emit(NewProgress("Composing prompt", phaseStep(n, 1), total))
		prompt := r.compose(callCtx, n, feedback)
		attempt := types.Attempt{AttemptNumber: n, Prompt: prompt}

		if ctx.Err() != nil {
			r.attempts = append(r.attempts, attempt)
			return r.cancelled()
		}

		// SYNTHESIZING
		r.transition(StateSynthesizing, n)
		r.emit(NewProgress("Generating image", phaseStep(n, 2), total))
		synth := r.synthesize(callCtx, n, prompt)

		if !synth.OK {
			r.transition(StateSkipEval, n)
			r.attempts = append(r.attempts, attempt)
			o.observer.ObserveAttempt(false, 0)
			r.emit(EvaluationEvent{
				Type:          EventEvaluation,
				AttemptNumber: n,
				Score:         0,
				MaxScore:      types.MaxScore,
				Feedback:      synth.Error,
			})
			r.logger.Info("synthesis failed", zap.Int("attempt", n), zap.String("reason", synth.Error))
			r.decideAfterFailure(n)
			continue
		}
		attempt.ImageProduced = true

		if ctx.Err() != nil {
			r.attempts = append(r.attempts, attempt)
			return r.cancelled()
		}

		// EVALUATING
		r.transition(StateEvaluating, n)
		r.emit(NewProgress("Evaluating image quality", phaseStep(n, 3), total))
		ev := r.evaluate(callCtx, n, synth.Image, prompt)

		score := ev.Score
		attempt.Score = &score
		attempt.Feedback = ev.Feedback
		attempt.Improvements = ev.Improvements
		r.attempts = append(r.attempts, attempt)
		o.observer.ObserveAttempt(true, score)

		passed := o.policy.Passed(score)
		r.emit(EvaluationEvent{
			Type:            EventEvaluation,
			AttemptNumber:   n,
			Score:           score,
			MaxScore:        types.MaxScore,
			Feedback:        ev.Feedback,
			Improvements:    ev.Improvements,
			PassedThreshold: passed,
		})

		// DECIDING
		r.transition(StateDeciding, n)
		if r.best == nil || score > r.best.attempt.EffectiveScore() {
			r.best = &best{attempt: attempt, image: synth.Image, mimeType: synth.MimeType}
		}
		if passed {
			r.transition(StateAccept, n)
			break
		}
		if n < o.policy.MaxAttempts {
			carry := CarryForwardFeedback(ev)
			feedback = &carry
			r.transition(StateContinue, n)
		} else {
			r.transition(StateExhausted, n)
		}
	}

	return r.finalize(ctx)
}

// decideAfterFailure 合成失败后进入下一次尝试或耗尽；携带的反馈保持不变
func (r *run) decideAfterFailure(n int) {
	r.transition(StateDeciding, n)
	if n < r.o.policy.MaxAttempts {
		r.transition(StateContinue, n)
		return
	}
	r.transition(StateExhausted, n)
}

func (r *run) finalize(ctx context.Context) RunResult {
	o := r.o
	r.transition(StateFinalizing, len(r.attempts))

	if r.best == nil {
		msg := fmt.Sprintf("Failed to generate an image after %d attempts", len(r.attempts))
		return r.fail(OutcomeExhausted, msg, types.NewError(types.ErrGenerationExhausted, msg))
	}
	if ctx.Err() != nil {
		return r.cancelled()
	}

	r.emit(NewProgress("Saving vision board", o.policy.TotalSteps(), o.policy.TotalSteps()))

	finalScore := r.best.attempt.EffectiveScore()
	locator, err := r.save(ctx, finalScore)
	if err != nil {
		msg := fmt.Sprintf("Failed to save vision board: %v", err)
		r.logger.Error("artifact save failed", zap.Error(err))
		return r.fail(OutcomePersistFailed, msg,
			types.NewError(types.ErrPersistenceFailed, "failed to save vision board").WithCause(err))
	}

	outcome := OutcomeAccepted
	message := fmt.Sprintf("Vision board created with a score of %d/%d", finalScore, types.MaxScore)
	if !o.policy.Passed(finalScore) {
		outcome = OutcomeBestEffort
		message = fmt.Sprintf("Vision board created with the best score of %d/%d after %d attempts",
			finalScore, types.MaxScore, len(r.attempts))
	}

	r.emit(SuccessEvent{
		Type:            EventSuccess,
		ArtifactLocator: locator,
		FinalScore:      finalScore,
		AttemptsUsed:    len(r.attempts),
		Message:         message,
	})
	r.transition(StateSucceeded, len(r.attempts))
	o.observer.ObserveRun(outcome, len(r.attempts), o.clock().Sub(r.started))
	r.logger.Info("run succeeded",
		zap.String("locator", locator),
		zap.Int("final_score", finalScore),
		zap.Int("attempts", len(r.attempts)))

	bestAttempt := r.best.attempt
	return RunResult{
		Accepted:    true,
		BestAttempt: &bestAttempt,
		Image:       r.best.image,
		MimeType:    r.best.mimeType,
		Attempts:    r.attempts,
		Locator:     locator,
	}
}

func (r *run) save(ctx context.Context, finalScore int) (locator string, err error) {
	o := r.o
	ctx, span := o.tracer.Start(ctx, "board.save")
	defer span.End()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.saveTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			locator, err = "", fmt.Errorf("artifact sink panicked: %v", rec)
		}
		if err == nil && locator == "" {
			err = errors.New("artifact sink returned an empty locator")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return o.sink.Save(saveCtx, r.best.image, ArtifactContext{
		RequestID:    r.req.RequestID,
		BoardType:    r.req.BoardType,
		Title:        r.req.Title,
		Goals:        r.req.Goals,
		FinalScore:   finalScore,
		AttemptsUsed: len(r.attempts),
		Prompt:       r.best.attempt.Prompt,
		CreatedAt:    o.clock().UTC(),
		OwnerID:      r.req.OwnerID,
		MimeType:     r.best.mimeType,
	})
}

func (r *run) compose(ctx context.Context, n int, feedback *string) string {
	ctx, span := r.o.tracer.Start(ctx, "board.compose", trace.WithAttributes(attribute.Int("board.attempt", n)))
	defer span.End()
	return r.o.composer.Compose(ctx, r.req, feedback)
}

func (r *run) synthesize(ctx context.Context, n int, prompt string) SynthesisResult {
	ctx, span := r.o.tracer.Start(ctx, "board.synthesize", trace.WithAttributes(attribute.Int("board.attempt", n)))
	defer span.End()
	res := r.o.synthesizer.Synthesize(ctx, prompt, r.req.LayoutStyle)
	if !res.OK {
		span.SetStatus(codes.Error, res.Error)
	}
	return res
}

func (r *run) evaluate(ctx context.Context, n int, img []byte, prompt string) types.EvaluationResult {
	ctx, span := r.o.tracer.Start(ctx, "board.evaluate", trace.WithAttributes(attribute.Int("board.attempt", n)))
	defer span.End()
	ev := r.o.evaluator.Evaluate(ctx, img, prompt, r.req.Goals)
	span.SetAttributes(attribute.Int("board.score", ev.Score))
	return ev
}

func (r *run) cancelled() RunResult {
	r.logger.Info("run cancelled", zap.Int("attempts", len(r.attempts)))
	return r.fail(OutcomeCancelled, RunCancelledMessage, types.NewError(types.ErrRunCancelled, RunCancelledMessage))
}

func (r *run) fail(outcome, message string, err *types.Error) RunResult {
	r.emit(NewError(message, len(r.attempts)))
	r.transition(StateFailed, len(r.attempts))
	r.o.observer.ObserveRun(outcome, len(r.attempts), r.o.clock().Sub(r.started))
	if outcome != OutcomeCancelled {
		r.logger.Warn("run failed", zap.String("outcome", outcome), zap.String("message", message))
	}

	res := RunResult{Attempts: r.attempts, Err: err}
	if r.best != nil {
		bestAttempt := r.best.attempt
		res.BestAttempt = &bestAttempt
		res.Image = r.best.image
		res.MimeType = r.best.mimeType
	}
	return res
}

func (r *run) transition(state State, attempt int) {
	r.o.observer.ObserveState(state)
	r.logger.Debug("state transition", zap.String("state", string(state)), zap.Int("attempt", attempt))
}

// phaseStep 第 n 次尝试中第 phase 个阶段（1..3）的步号
func phaseStep(n, phase int) int {
	return 3*(n-1) + phase
}

// CarryForwardFeedback 把本次评估组合为下一次提示词的改进反馈
func CarryForwardFeedback(ev types.EvaluationResult) string {
	return fmt.Sprintf("Previous score: %d/%d\nFeedback: %s\nImprovements: %s",
		ev.Score, types.MaxScore, ev.Feedback, ev.Improvements)
}
