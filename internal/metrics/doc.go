// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、生成流水线、
外部能力调用与数据库连接池四个维度。

# 概述

Collector 使用 promauto 自动注册到默认 Registry，所有指标按 namespace
隔离。Collector 实现 board.Observer，可直接注入编排器与各组件。

# 主要指标

  - HTTP：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 运行：按 outcome 分组的运行总数与耗时、每次运行的尝试数、进行中运行数。
  - 尝试：是否产出图像、评估得分分布、状态机转换计数。
  - 能力调用：按 capability/outcome 分组的调用总数与耗时。
  - 数据库：活跃/空闲连接数 Gauge。
*/
package metrics
