// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的模型接入层：文本生成与视觉评估共用的 Provider 抽象、
请求/响应模型以及统一的上游错误语义。

# 概述

愿景板流水线依赖两类对话模型能力：

- 文本生成：根据请求生成图像提示词（PromptComposer 主路径）。
- 视觉评估：把生成的图像连同评分细则发给多模态模型（QualityEvaluator）。

两者都通过 [Provider] 抽象接入，具体服务商由 providers 子包实现；
图像生成能力位于 image 子包。

# 核心接口

  - [Provider]：提供 Completion / HealthCheck / Name
  - [Message]：支持 [ImageContent] 附件，用于多模态评估请求
  - [Error]：上游错误，携带 HTTP 状态与 Retryable 标记
*/
package llm
