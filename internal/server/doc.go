// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 VisionBoard 的 HTTP 监听生命周期。

Manager 封装 net/http.Server：Start 非阻塞启动，Shutdown 在超时内
排空连接，WaitForShutdown 监听 SIGINT/SIGTERM 或服务异常后触发关闭。
API 端口与 metrics 端口各使用一个 Manager。

生成接口是长连接流式响应，WriteTimeout 需要覆盖一次完整生成；
Shutdown 时进行中的流会在超时内结束，超时后连接被强制关闭。
*/
package server
