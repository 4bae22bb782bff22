package board

// EventType 流事件类型
type EventType string

const (
	EventProgress   EventType = "progress"
	EventAttempt    EventType = "attempt"
	EventEvaluation EventType = "evaluation"
	EventSuccess    EventType = "success"
	EventError      EventType = "error"
)

// Event 流事件。success / error 为终止事件，每次运行恰好一个。
type Event interface {
	EventType() EventType
	Terminal() bool
}

// Emitter 接收编排器产生的事件
type Emitter func(Event)

// ProgressEvent 阶段进度
type ProgressEvent struct {
	Type       EventType `json:"type"`
	Message    string    `json:"message"`
	Step       int       `json:"step"`
	TotalSteps int       `json:"totalSteps"`
}

// AttemptEvent 宣告第 n 次尝试开始
type AttemptEvent struct {
	Type          EventType `json:"type"`
	AttemptNumber int       `json:"attemptNumber"`
	MaxAttempts   int       `json:"maxAttempts"`
	Message       string    `json:"message"`
}

// EvaluationEvent 单次尝试的评估结果。合成失败时 Score 为 0，Feedback 为失败原因。
type EvaluationEvent struct {
	Type            EventType `json:"type"`
	AttemptNumber   int       `json:"attemptNumber"`
	Score           int       `json:"score"`
	MaxScore        int       `json:"maxScore"`
	Feedback        string    `json:"feedback"`
	Improvements    string    `json:"improvements"`
	PassedThreshold bool      `json:"passedThreshold"`
}

// SuccessEvent 终止事件：产物已持久化
type SuccessEvent struct {
	Type            EventType `json:"type"`
	ArtifactLocator string    `json:"artifactLocator"`
	FinalScore      int       `json:"finalScore"`
	AttemptsUsed    int       `json:"attemptsUsed"`
	Message         string    `json:"message"`
}

// ErrorEvent 终止事件：运行失败
type ErrorEvent struct {
	Type         EventType `json:"type"`
	Message      string    `json:"message"`
	AttemptsUsed int       `json:"attemptsUsed"`
}

func (ProgressEvent) EventType() EventType   { return EventProgress }
func (AttemptEvent) EventType() EventType    { return EventAttempt }
func (EvaluationEvent) EventType() EventType { return EventEvaluation }
func (SuccessEvent) EventType() EventType    { return EventSuccess }
func (ErrorEvent) EventType() EventType      { return EventError }

func (ProgressEvent) Terminal() bool   { return false }
func (AttemptEvent) Terminal() bool    { return false }
func (EvaluationEvent) Terminal() bool { return false }
func (SuccessEvent) Terminal() bool    { return true }
func (ErrorEvent) Terminal() bool      { return true }

// NewProgress 构造进度事件
func NewProgress(message string, step, total int) ProgressEvent {
	return ProgressEvent{Type: EventProgress, Message: message, Step: step, TotalSteps: total}
}

// NewAttempt 构造尝试事件
func NewAttempt(n, max int, message string) AttemptEvent {
	return AttemptEvent{Type: EventAttempt, AttemptNumber: n, MaxAttempts: max, Message: message}
}

// NewError 构造错误终止事件
func NewError(message string, attemptsUsed int) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message, AttemptsUsed: attemptsUsed}
}
