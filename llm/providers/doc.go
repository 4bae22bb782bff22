// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
# 概述

包 providers 提供跨模型服务商的通用适配与辅助能力，是具体 Provider
实现的公共基础层：请求/响应转换、错误映射与多模态内容编码。

# 核心类型

  - OpenAICompat* 系列 — OpenAI 兼容 API 的通用请求/响应结构体
  - OpenAICompatContentPart — 多模态消息内容片段（text / image_url）

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 从错误响应体中提取可读消息
  - ConvertMessagesToOpenAI — 统一消息格式转换，图像附件编码为 data URL
  - ToLLMChatResponse — OpenAI 兼容响应到 llm.ChatResponse 的转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
