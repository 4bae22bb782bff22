// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 VisionBoard 配置全局 TracerProvider 和 MeterProvider。
// 编排器的 run/phase span 与 HTTP 中间件的 span 都经由全局 provider 导出；
// 遥测禁用时保持 noop，不连接任何外部服务。
package telemetry
