// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package config 提供 VisionBoard 的配置管理。
//
// 配置优先级：默认值 → YAML 文件 → 环境变量（VISIONBOARD_ 前缀）。
// 环境变量名由各级 env tag 以下划线拼接而成，例如
// VISIONBOARD_BOARD_MAX_ATTEMPTS、VISIONBOARD_IMAGE_GENERATION_API_KEY。
package config
