// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 image 提供统一的图像生成服务抽象，屏蔽不同服务商在 API 协议、
参数格式和响应结构上的差异。

# 概述

愿景板流水线每次尝试只发起一次文生图调用，携带由布局推导出的
宽高比提示（16:9 / 9:16 / 1:1）。各服务商把该提示翻译为自己的参数：
OpenAI 映射为 size，Flux 直接使用 aspect_ratio，Gemini 使用 imageConfig。

# 核心接口

  - Provider：Generate 与 Name。
  - GenerateRequest / GenerateResponse：生成请求与响应模型。
  - ImageData：b64 或 URL 形式的图像结果，通过 Fetcher 统一解码为字节。

# 主要能力

  - 多 Provider 适配：OpenAIProvider（DALL-E / gpt-image）、FluxProvider
    （异步提交 + 轮询）、GeminiProvider（原生多模态 inlineData）。
  - 统一错误：上游失败映射为 llm.Error（MapHTTPError）。
  - 配置体系：每个 Provider 提供独立的 Config 结构与 Default 函数。
*/
package image
