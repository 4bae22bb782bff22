package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/visionboard/api"
	"github.com/BaSui01/visionboard/board"
	"github.com/BaSui01/visionboard/internal/artifact"
	"github.com/BaSui01/visionboard/internal/runlog"
	"github.com/BaSui01/visionboard/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// 🖼️ 愿景板 Handler
// =============================================================================

// Runner 执行一次生成运行
type Runner interface {
	Run(ctx context.Context, req types.GenerationRequest, emit board.Emitter) board.RunResult
}

// CapabilityReporter 能力查询
type CapabilityReporter interface {
	Report(ctx context.Context, probe bool) board.CapabilityReport
}

// RunJournal 运行日志（可选）
type RunJournal interface {
	Sink(ctx context.Context, runID string) board.EventSink
	Replay(ctx context.Context, runID string) ([]runlog.Entry, error)
}

// ArtifactRecords 产物记录查询（可选）
type ArtifactRecords interface {
	Get(ctx context.Context, id string) (*artifact.Record, error)
	List(ctx context.Context, filter artifact.ListFilter) ([]artifact.Record, error)
}

// BoardHandlerConfig BoardHandler 依赖。Journal 与 Records 为 nil 时对应接口返回 503。
type BoardHandlerConfig struct {
	Runner       Runner
	Capabilities CapabilityReporter
	Journal      RunJournal
	Records      ArtifactRecords
	MaxBodyBytes int64
	// WebSocket 允许的跨域 Origin 模式，为空时只允许同源
	WSOriginPatterns []string
	WSWriteTimeout   time.Duration
}

// BoardHandler 愿景板 HTTP 处理器
type BoardHandler struct {
	cfg    BoardHandlerConfig
	logger *zap.Logger
}

// NewBoardHandler 创建 BoardHandler
func NewBoardHandler(cfg BoardHandlerConfig, logger *zap.Logger) (*BoardHandler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Capabilities == nil {
		return nil, errors.New("capability reporter is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardHandler{cfg: cfg, logger: logger.With(zap.String("component", "board_handler"))}, nil
}

// Register 注册路由
func (h *BoardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+api.RouteGenerate, h.HandleGenerate)
	mux.HandleFunc("GET "+api.RouteGenerateWS, h.HandleGenerateWS)
	mux.HandleFunc("GET "+api.RouteCapabilities, h.HandleCapabilities)
	mux.HandleFunc("GET "+api.RouteRunEvents, h.HandleRunEvents)
	mux.HandleFunc("GET "+api.RouteArtifacts, h.HandleListArtifacts)
	mux.HandleFunc("GET "+api.RouteArtifact, h.HandleGetArtifact)
}

// =============================================================================
// 📡 生成流
// =============================================================================

// HandleGenerate POST /api/v1/boards/generate
// 默认 NDJSON；Accept: text/event-stream 时使用 SSE 帧。
func (h *BoardHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req types.GenerationRequest
	if apiErr := DecodeJSONBody(w, r, &req, h.cfg.MaxBodyBytes, h.logger); apiErr != nil {
		return
	}
	req = prepareRequest(r.Context(), req)

	var sink board.EventSink
	if wantsSSE(r) {
		w.Header().Set("Content-Type", api.ContentTypeSSE)
		w.Header().Set("Connection", "keep-alive")
		sink = NewSSESink(w)
	} else {
		w.Header().Set("Content-Type", api.ContentTypeNDJSON)
		sink = NewNDJSONSink(w)
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(api.HeaderRunID, req.RequestID)
	w.WriteHeader(http.StatusOK)

	h.stream(r.Context(), req, sink)
}

// HandleGenerateWS GET /api/v1/boards/generate/ws
// 客户端首条消息为请求 JSON，服务端逐条推送事件后正常关闭。
func (h *BoardHandler) HandleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.WSOriginPatterns,
	})
	if err != nil {
		// Accept 已写出握手错误响应
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(h.cfg.MaxBodyBytes)

	readCtx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	_, data, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		h.logger.Debug("websocket read request failed", zap.Error(err))
		_ = conn.Close(websocket.StatusPolicyViolation, "expected a generation request")
		return
	}

	// 之后不再读取客户端消息；对端关闭时 ctx 被取消，运行在下一个阶段边界停止
	ctx := conn.CloseRead(r.Context())
	sink := NewWebSocketSink(ctx, conn, h.cfg.WSWriteTimeout)

	var req types.GenerationRequest
	if err := decodeStrict(data, &req); err != nil {
		streamer := board.NewStreamer(sink, h.logger)
		streamer.Emit(board.NewError("invalid JSON body", 0))
		_ = streamer.Close()
		return
	}
	req = prepareRequest(r.Context(), req)

	h.stream(ctx, req, sink)
}

// stream 运行一次生成并把事件写入 sink，运行日志作为旁路
func (h *BoardHandler) stream(ctx context.Context, req types.GenerationRequest, sink board.EventSink) {
	if h.cfg.Journal != nil {
		sink = board.NewTeeSink(sink, h.logger, h.cfg.Journal.Sink(ctx, req.RequestID))
	}

	ctx = types.WithRunID(ctx, req.RequestID)
	logger := h.logger.With(zap.String("request_id", req.RequestID))

	var result board.RunResult
	streamer := board.NewStreamer(sink, logger)
	err := streamer.Stream(ctx, func(ctx context.Context, emit board.Emitter) {
		result = h.cfg.Runner.Run(ctx, req, emit)
	})
	if err != nil {
		logger.Warn("stream finished with error", zap.Error(err))
	}
	if serr := streamer.Err(); serr != nil {
		logger.Info("client went away during run", zap.Error(serr))
	}

	fields := []zap.Field{
		zap.Bool("accepted", result.Accepted),
		zap.Int("attempts", len(result.Attempts)),
	}
	if result.Err != nil {
		fields = append(fields, zap.String("error_code", string(result.Err.Code)))
	}
	logger.Info("generation run finished", fields...)
}

// prepareRequest 补全 requestId 与 ownerId
func prepareRequest(ctx context.Context, req types.GenerationRequest) types.GenerationRequest {
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}
	if req.OwnerID == "" {
		if owner, ok := types.OwnerID(ctx); ok {
			req.OwnerID = owner
		}
	}
	return req
}

func wantsSSE(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(mediaType, api.ContentTypeSSE) {
			return true
		}
	}
	return false
}

func decodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// =============================================================================
// 🔍 查询接口
// =============================================================================

// HandleCapabilities GET /api/v1/boards/capabilities?probe=true
func (h *BoardHandler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	probe := false
	if v := r.URL.Query().Get("probe"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "probe must be a boolean", h.logger)
			return
		}
		probe = b
	}
	WriteSuccess(w, h.cfg.Capabilities.Report(r.Context(), probe))
}

// HandleRunEvents GET /api/v1/boards/runs/{id}/events
func (h *BoardHandler) HandleRunEvents(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Journal == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "run journal is not configured", h.logger)
		return
	}
	runID := r.PathValue("id")

	entries, err := h.cfg.Journal.Replay(r.Context(), runID)
	if err != nil {
		if errors.Is(err, runlog.ErrRunNotFound) {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "run not found", h.logger)
			return
		}
		WriteError(w, types.WrapError(err, types.ErrInternalError, "replay run"), h.logger)
		return
	}

	resp := api.RunEventsResponse{RunID: runID, Events: make([]api.RunEvent, 0, len(entries))}
	for _, e := range entries {
		resp.Events = append(resp.Events, api.RunEvent{StreamID: e.StreamID, Type: string(e.Type), Event: e.Event})
		if e.Type == board.EventSuccess || e.Type == board.EventError {
			resp.Finished = true
		}
	}
	WriteSuccess(w, resp)
}

// HandleListArtifacts GET /api/v1/boards/artifacts?owner_id=&limit=
// 认证上下文中有 owner 时只能查看自己的产物。
func (h *BoardHandler) HandleListArtifacts(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Records == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "artifact records are not configured", h.logger)
		return
	}

	q := r.URL.Query()
	filter := artifact.ListFilter{OwnerID: q.Get("owner_id")}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a non-negative integer", h.logger)
			return
		}
		filter.Limit = limit
	}
	if owner, ok := types.OwnerID(r.Context()); ok {
		if filter.OwnerID != "" && filter.OwnerID != owner {
			WriteErrorMessage(w, http.StatusForbidden, types.ErrForbidden, "cannot list artifacts of another owner", h.logger)
			return
		}
		filter.OwnerID = owner
	}

	records, err := h.cfg.Records.List(r.Context(), filter)
	if err != nil {
		WriteError(w, types.WrapError(err, types.ErrInternalError, "list artifacts"), h.logger)
		return
	}
	WriteSuccess(w, api.ArtifactListResponse{Artifacts: records, Count: len(records)})
}

// HandleGetArtifact GET /api/v1/boards/artifacts/{id}
func (h *BoardHandler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Records == nil {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "artifact records are not configured", h.logger)
		return
	}

	rec, err := h.cfg.Records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, artifact.ErrRecordNotFound) {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "artifact not found", h.logger)
			return
		}
		WriteError(w, types.WrapError(err, types.ErrInternalError, "get artifact"), h.logger)
		return
	}
	// 他人的产物按不存在处理
	if owner, ok := types.OwnerID(r.Context()); ok && rec.OwnerID != owner {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "artifact not found", h.logger)
		return
	}
	WriteSuccess(w, rec)
}
