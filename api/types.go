package api

import (
	"encoding/json"

	"github.com/BaSui01/visionboard/internal/artifact"
)

// =============================================================================
// 🛣️ 路由
// =============================================================================

const (
	RouteGenerate     = "/api/v1/boards/generate"
	RouteGenerateWS   = "/api/v1/boards/generate/ws"
	RouteCapabilities = "/api/v1/boards/capabilities"
	RouteRunEvents    = "/api/v1/boards/runs/{id}/events"
	RouteArtifacts    = "/api/v1/boards/artifacts"
	RouteArtifact     = "/api/v1/boards/artifacts/{id}"

	RouteHealth  = "/health"
	RouteHealthz = "/healthz"
	RouteReady   = "/ready"
	RouteVersion = "/version"
	RouteMetrics = "/metrics"
)

// =============================================================================
// 📡 流式传输
// =============================================================================

// 流式响应的 Content-Type
const (
	ContentTypeNDJSON = "application/x-ndjson"
	ContentTypeSSE    = "text/event-stream"
)

// HeaderRunID 响应头中回传本次运行的 requestId（X-Request-ID 留给 HTTP 请求本身）
const HeaderRunID = "X-Run-ID"

// =============================================================================
// 📦 查询响应
// =============================================================================

// RunEvent 回放的一条运行事件
type RunEvent struct {
	StreamID string          `json:"streamId"`
	Type     string          `json:"type"`
	Event    json.RawMessage `json:"event"`
}

// RunEventsResponse 运行日志回放响应
type RunEventsResponse struct {
	RunID    string     `json:"runId"`
	Events   []RunEvent `json:"events"`
	Finished bool       `json:"finished"`
}

// ArtifactListResponse 产物列表响应
type ArtifactListResponse struct {
	Artifacts []artifact.Record `json:"artifacts"`
	Count     int               `json:"count"`
}
