package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/visionboard/board"
	"github.com/coder/websocket"
)

// =============================================================================
// 📡 事件传输：board.EventSink 的 HTTP 实现
// =============================================================================

// flushWriter 写入后立即刷新，经过中间件包装的 ResponseWriter 通过 Unwrap 找到 Flusher
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newFlushWriter(w http.ResponseWriter) flushWriter {
	return flushWriter{w: w, rc: http.NewResponseController(w)}
}

func (f flushWriter) write(b []byte) error {
	if _, err := f.w.Write(b); err != nil {
		return err
	}
	if err := f.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// NDJSONSink 每个事件一行 JSON
type NDJSONSink struct {
	mu sync.Mutex
	fw flushWriter
}

// NewNDJSONSink 创建 NDJSON sink，调用方负责写响应头
func NewNDJSONSink(w http.ResponseWriter) *NDJSONSink {
	return &NDJSONSink{fw: newFlushWriter(w)}
}

func (s *NDJSONSink) Send(ev board.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fw.write(append(data, '\n'))
}

// Close 响应在 handler 返回时结束
func (s *NDJSONSink) Close() error { return nil }

// SSESink event: <type>\ndata: <json>\n\n
type SSESink struct {
	mu sync.Mutex
	fw flushWriter
}

// NewSSESink 创建 SSE sink
func NewSSESink(w http.ResponseWriter) *SSESink {
	return &SSESink{fw: newFlushWriter(w)}
}

func (s *SSESink) Send(ev board.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	frame := make([]byte, 0, len(data)+32)
	frame = append(frame, "event: "...)
	frame = append(frame, string(ev.EventType())...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fw.write(frame)
}

func (s *SSESink) Close() error { return nil }

// WebSocketSink 每个事件一条文本消息，Close 时正常关闭连接
type WebSocketSink struct {
	conn         *websocket.Conn
	ctx          context.Context
	writeTimeout time.Duration
	once         sync.Once
	closeErr     error
}

// NewWebSocketSink 创建 WebSocket sink
func NewWebSocketSink(ctx context.Context, conn *websocket.Conn, writeTimeout time.Duration) *WebSocketSink {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &WebSocketSink{conn: conn, ctx: ctx, writeTimeout: writeTimeout}
}

func (s *WebSocketSink) Send(ev board.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *WebSocketSink) Close() error {
	s.once.Do(func() {
		s.closeErr = s.conn.Close(websocket.StatusNormalClosure, "run finished")
	})
	return s.closeErr
}
