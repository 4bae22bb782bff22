// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 VisionBoard 服务端程序入口。

# 概述

cmd/visionboard 装配配置、日志、指标、追踪、产物存储、运行日志与
生成编排器，对外提供 HTTP/WebSocket 流式生成接口，以及健康检查、
版本查询和本地单次生成等子命令。

# 子命令

  - serve     启动 API 服务与独立的 Metrics 服务
  - generate  读取请求 JSON，在本地跑一次生成，事件以 NDJSON 写到标准输出
  - health    请求运行中服务的 /health
  - version   打印构建信息

# 中间件链

Recovery → RequestID → SecurityHeaders → RequestLogger → Metrics →
OTelTracing → CORS → RateLimiter → APIKeyAuth → JWTAuth。
所有包装 ResponseWriter 的中间件都透传 http.Flusher，流式响应逐事件落到客户端。

构建信息 Version、BuildTime、GitCommit 通过 ldflags 注入。
*/
package main
