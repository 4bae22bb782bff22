// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 runlog 把每次生成运行的流事件追加到 Redis Stream，供断线后回放。

每个运行一个 stream（visionboard:run:<runID>:events），条目字段为
type 与 data（事件 JSON）。终止事件或 sink 关闭后设置过期时间。
Journal.Sink 返回的 board.EventSink 通常作为 board.TeeSink 的旁路，
写入失败不影响客户端流。
*/
package runlog
