package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EventSink 事件传输端（NDJSON、SSE、WebSocket、运行日志）
type EventSink interface {
	Send(ev Event) error
	Close() error
}

// ErrStreamClosed 向已关闭的 Streamer 发送事件
var ErrStreamClosed = errors.New("stream closed")

// Streamer 把事件逐条即时转发给 EventSink。
// 保证至多一个终止事件；终止事件之后的事件被丢弃；Close 幂等。
type Streamer struct {
	sink   EventSink
	logger *zap.Logger

	mu       sync.Mutex
	terminal bool
	closed   bool
	sendErr  error
	onBroken func(error)
	closeErr error
}

// NewStreamer 创建 Streamer
func NewStreamer(sink EventSink, logger *zap.Logger) *Streamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{sink: sink, logger: logger.With(zap.String("component", "progress_streamer"))}
}

// Emit 转发事件。实现 Emitter 签名，可直接作为编排器的回调。
func (s *Streamer) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Debug("event after close dropped", zap.String("type", string(ev.EventType())))
		return
	}
	if s.terminal {
		s.logger.Warn("event after terminal event dropped", zap.String("type", string(ev.EventType())))
		return
	}
	if ev.Terminal() {
		s.terminal = true
	}
	if s.sendErr != nil {
		return
	}
	if err := s.sink.Send(ev); err != nil {
		// 接收端断开：记录一次，后续事件不再写入，运行在下一个阶段边界取消
		s.sendErr = err
		s.logger.Info("event sink broken", zap.Error(err))
		if s.onBroken != nil {
			s.onBroken(err)
		}
	}
}

// Terminated 是否已发出终止事件
func (s *Streamer) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Err 返回第一次发送失败的错误
func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendErr
}

// Close 关闭底层 sink，重复调用返回首次结果
func (s *Streamer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.closeErr = s.sink.Close()
	return s.closeErr
}

// Stream 运行 fn 并保证清理：fn panic 或未发出终止事件就返回时，
// 先补发 error 事件再关闭。sink 写入失败会取消传给 fn 的 ctx。
func (s *Streamer) Stream(ctx context.Context, fn func(ctx context.Context, emit Emitter)) (err error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.onBroken = func(error) { cancel() }
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("run panicked", zap.Any("panic", r), zap.Stack("stack"))
			s.Emit(NewError(fmt.Sprintf("unexpected error: %v", r), 0))
			err = fmt.Errorf("run panicked: %v", r)
		} else if !s.Terminated() {
			s.Emit(NewError("run ended without a result", 0))
		}
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	fn(runCtx, s.Emit)
	return nil
}

// =============================================================================
// 🔀 组合 sink
// =============================================================================

// TeeSink 主 sink 决定成败，旁路 sink（如运行日志）失败只记录日志
type TeeSink struct {
	primary   EventSink
	secondary []EventSink
	logger    *zap.Logger
}

// NewTeeSink 创建 TeeSink
func NewTeeSink(primary EventSink, logger *zap.Logger, secondary ...EventSink) *TeeSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeeSink{primary: primary, secondary: secondary, logger: logger}
}

func (t *TeeSink) Send(ev Event) error {
	for _, s := range t.secondary {
		if err := s.Send(ev); err != nil {
			t.logger.Warn("secondary sink send failed", zap.Error(err))
		}
	}
	return t.primary.Send(ev)
}

func (t *TeeSink) Close() error {
	for _, s := range t.secondary {
		if err := s.Close(); err != nil {
			t.logger.Warn("secondary sink close failed", zap.Error(err))
		}
	}
	return t.primary.Close()
}
