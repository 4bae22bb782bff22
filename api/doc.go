// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package api 定义 VisionBoard HTTP API 的路由常量与传输层 DTO。
//
// # API 概览
//
//   - POST /api/v1/boards/generate        生成愿景板，流式返回事件（NDJSON 或 SSE）
//   - GET  /api/v1/boards/generate/ws     WebSocket 变体，首条消息为请求 JSON
//   - GET  /api/v1/boards/capabilities    能力与策略查询，?probe=true 实时探活
//   - GET  /api/v1/boards/runs/{id}/events 运行日志回放
//   - GET  /api/v1/boards/artifacts       产物记录列表
//   - GET  /api/v1/boards/artifacts/{id}  单条产物记录
//   - GET  /health /healthz /ready /version
//
// # 认证
//
// 配置 API Key 时请求需携带 X-API-Key 头；配置 JWT 时携带
// Authorization: Bearer <token>，token 中的 user_id 作为默认 ownerId。
package api
