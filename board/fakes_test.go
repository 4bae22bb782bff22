package board

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/visionboard/types"
	"go.uber.org/zap"
)

type fakeText struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	panicV  any
	calls   int
	systems []string
	users   []string
}

func (f *fakeText) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	f.mu.Unlock()
	if f.panicV != nil {
		panic(f.panicV)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

// imageStep 一次图像生成的脚本化结果
type imageStep struct {
	data []byte
	err  error
}

type fakeImage struct {
	mu      sync.Mutex
	steps   []imageStep
	calls   int
	aspects []string
	prompts []string
	delay   time.Duration
}

func (f *fakeImage) GenerateImage(ctx context.Context, prompt, aspect string) (GeneratedImage, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.aspects = append(f.aspects, aspect)
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return GeneratedImage{}, ctx.Err()
		}
	}

	step := imageStep{data: []byte("image")}
	if len(f.steps) > 0 {
		if idx >= len(f.steps) {
			idx = len(f.steps) - 1
		}
		step = f.steps[idx]
	}
	if step.err != nil {
		return GeneratedImage{}, step.err
	}
	return GeneratedImage{Data: step.data, MimeType: "image/png"}, nil
}

type fakeEvaluator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	rubrics   []string
}

func (f *fakeEvaluator) EvaluateImage(ctx context.Context, img []byte, rubric string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	f.rubrics = append(f.rubrics, rubric)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

type fakeSink struct {
	mu       sync.Mutex
	locator  string
	err      error
	calls    int
	images   [][]byte
	contexts []ArtifactContext
}

func (f *fakeSink) Save(ctx context.Context, img []byte, ac ArtifactContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.images = append(f.images, img)
	f.contexts = append(f.contexts, ac)
	if f.err != nil {
		return "", f.err
	}
	if f.locator == "" {
		return "mem://" + ac.RequestID, nil
	}
	return f.locator, nil
}

var errUpstream = errors.New("upstream exploded")

func scoreText(score string) string {
	return "SCORE: " + score + "\nFEEDBACK: looks fine\nIMPROVEMENTS: more contrast"
}

type harness struct {
	text  *fakeText
	image *fakeImage
	eval  *fakeEvaluator
	sink  *fakeSink
	orch  *Orchestrator
}

func newHarness(image *fakeImage, eval *fakeEvaluator, policy Policy) *harness {
	h := &harness{
		text:  &fakeText{text: "a composed prompt"},
		image: image,
		eval:  eval,
		sink:  &fakeSink{},
	}
	logger := zap.NewNop()
	orch, err := NewOrchestrator(OrchestratorConfig{
		Composer:    NewPromptComposer(ComposerConfig{Generator: h.text}, logger),
		Synthesizer: NewImageSynthesizer(SynthesizerConfig{Generator: h.image}, logger),
		Evaluator:   NewQualityEvaluator(EvaluatorConfig{Evaluator: h.eval}, logger),
		Sink:        h.sink,
		Policy:      policy,
	}, logger)
	if err != nil {
		panic(err)
	}
	h.orch = orch
	return h
}

func sampleRequest() types.GenerationRequest {
	return types.GenerationRequest{
		RequestID: "req-1",
		BoardType: types.BoardTypeGoal,
		Title:     "2026",
		Goals:     []string{"Run a marathon", "Learn Go"},
	}
}

func countType(events []Event, t EventType) int {
	n := 0
	for _, ev := range events {
		if ev.EventType() == t {
			n++
		}
	}
	return n
}

func evaluations(events []Event) []EvaluationEvent {
	var out []EvaluationEvent
	for _, ev := range events {
		if e, ok := ev.(EvaluationEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

// RecordingSink 在内存中记录事件
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
	closed int
}

func (r *RecordingSink) Send(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed > 0 {
		return ErrStreamClosed
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *RecordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

// Events 返回已记录事件的副本
func (r *RecordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// CloseCount 返回 Close 被调用的次数
func (r *RecordingSink) CloseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
