// 包 image 提供统一的图像生成提供者接口.
package image

import (
	"context"
	"time"
)

// 常用宽高比
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
	AspectSquare    = "1:1"
)

// GenerateRequest 图像生成请求
type GenerateRequest struct {
	Prompt       string            `json:"prompt"`
	Model        string            `json:"model,omitempty"`
	AspectRatio  string            `json:"aspect_ratio,omitempty"`  // 16:9, 9:16, 1:1
	Quality      string            `json:"quality,omitempty"`       // standard, hd
	Style        string            `json:"style,omitempty"`         // vivid, natural
	OutputFormat string            `json:"output_format,omitempty"` // png, jpeg
	Seed         int64             `json:"seed,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// GenerateResponse 图像生成响应
type GenerateResponse struct {
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Images    []ImageData `json:"images"`
	CreatedAt time.Time   `json:"created_at"`
}

// ImageData 生成的图像，B64JSON 与 URL 至少一项非空
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Provider 图像生成提供者接口
type Provider interface {
	// Generate 从文本提示生成图像
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name 返回提供者名称
	Name() string
}
