// Package openaicompat 提供 OpenAI Chat Completions 兼容协议的通用 Provider。
//
// 文本生成（提示词编排）与视觉评估共用本实现：两者只在模型与消息内容上不同，
// 视觉评估的图像通过 llm.Message.Images 以 image_url data URL 的形式发送。
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "openai",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.openai.com",
//	    DefaultModel: "gpt-4o-mini",
//	}, logger)
package openaicompat
