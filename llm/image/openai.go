package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/visionboard/internal/tlsutil"
	"github.com/BaSui01/visionboard/llm/providers"
)

// OpenAIProvider 使用 OpenAI images API 生成图像
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIProvider 创建 OpenAI 图像提供者
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	def := DefaultOpenAIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	return &OpenAIProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
	}
}

func (p *OpenAIProvider) Name() string { return "openai-image" }

type dalleRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type dalleResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

// sizeForAspect 宽高比 → DALL-E 尺寸
func sizeForAspect(aspect string) string {
	switch aspect {
	case AspectLandscape:
		return "1792x1024"
	case AspectPortrait:
		return "1024x1792"
	default:
		return "1024x1024"
	}
}

// Generate 从文本提示生成图像
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := dalleRequest{
		Model:  model,
		Prompt: req.Prompt,
		N:      1,
		Size:   sizeForAspect(req.AspectRatio),
		Style:  req.Style,
	}
	body.Quality = req.Quality
	if body.Quality == "" {
		body.Quality = p.cfg.Quality
	}
	// gpt-image 系列总是返回 b64，不接受 response_format
	if !strings.HasPrefix(model, "gpt-image") {
		body.ResponseFormat = "b64_json"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/images/generations",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.BearerTokenHeaders(httpReq, p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), p.Name())
	}

	var dResp dalleResponse
	if err := json.NewDecoder(resp.Body).Decode(&dResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", p.Name(), err)
	}

	images := make([]ImageData, len(dResp.Data))
	for i, d := range dResp.Data {
		images[i] = ImageData{
			URL:           d.URL,
			B64JSON:       d.B64JSON,
			MimeType:      "image/png",
			RevisedPrompt: d.RevisedPrompt,
		}
	}

	return &GenerateResponse{
		Provider:  p.Name(),
		Model:     model,
		Images:    images,
		CreatedAt: time.Unix(dResp.Created, 0),
	}, nil
}
