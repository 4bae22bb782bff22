package board

import (
	"context"
	"errors"
	"time"
)

// 运行结果标签
const (
	OutcomeAccepted      = "accepted"
	OutcomeBestEffort    = "best_effort"
	OutcomeExhausted     = "exhausted"
	OutcomePersistFailed = "persistence_failed"
	OutcomeCancelled     = "cancelled"
	OutcomeInvalid       = "invalid"
)

// 能力调用结果标签
const (
	CallOK           = "ok"
	CallError        = "error"
	CallTimeout      = "timeout"
	CallEmpty        = "empty"
	CallUnconfigured = "unconfigured"
)

// Observer 接收流水线的运行指标，由 metrics.Collector 实现
type Observer interface {
	ObserveState(state State)
	ObserveAttempt(imageProduced bool, score int)
	ObserveRun(outcome string, attempts int, duration time.Duration)
	ObserveCapabilityCall(capability, outcome string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveState(State)                                  {}
func (nopObserver) ObserveAttempt(bool, int)                            {}
func (nopObserver) ObserveRun(string, int, time.Duration)               {}
func (nopObserver) ObserveCapabilityCall(string, string, time.Duration) {}

// NopObserver 丢弃所有观测
func NopObserver() Observer { return nopObserver{} }

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

// callOutcome 把一次能力调用归类为 ok / timeout / error / empty
func callOutcome(callCtx context.Context, err error, empty bool) string {
	switch {
	case err == nil && !empty:
		return CallOK
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return CallTimeout
	case err != nil:
		return CallError
	}
	return CallEmpty
}
