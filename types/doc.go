// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package types 提供 VisionBoard 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 board、llm、api 等上层
模块提供统一的类型契约：生成请求、单次尝试记录、评估结果以及结构化错误。

# 核心类型

  - GenerationRequest — 一次生成运行的不可变输入（goals 至少一项）
  - BoardType / LayoutStyle / Aesthetic — 枚举值及其合法取值列表
  - Attempt           — 单次 compose → synthesize → evaluate 迭代的记录
  - EvaluationResult  — 评估器输出（score 永远存在）
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - Context 传播：WithTraceID / WithOwnerID / WithRunID
  - 请求归一化：GenerationRequest.Normalize 应用布局与风格默认值
  - 请求校验：GenerationRequest.Validate 返回 *Error
*/
package types
