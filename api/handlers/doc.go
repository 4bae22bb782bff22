// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package handlers 提供 VisionBoard HTTP API 的请求处理器。

# 核心类型

  - BoardHandler     生成流（NDJSON / SSE / WebSocket）、能力查询、运行回放、产物查询
  - HealthHandler    /health、/healthz、/ready、/version
  - Response         统一 JSON 响应结构（success + data + error + timestamp）
  - NDJSONSink / SSESink / WebSocketSink  board.EventSink 的三种传输实现

生成接口在开始流式输出之前只拒绝无法解析的请求体（400 + Response 信封）；
字段校验失败走事件流，以单个 error 事件结束，三种传输的行为一致。
*/
package handlers
