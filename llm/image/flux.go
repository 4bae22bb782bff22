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
	"github.com/BaSui01/visionboard/llm"
	"github.com/BaSui01/visionboard/llm/providers"
)

// FluxProvider implements image generation using Black Forest Labs Flux.
// API Docs: https://docs.bfl.ai/quick_start/generating_images
type FluxProvider struct {
	cfg    FluxConfig
	client *http.Client
}

// NewFluxProvider creates a new Flux image provider.
func NewFluxProvider(cfg FluxConfig) *FluxProvider {
	def := DefaultFluxConfig()
	if cfg.BaseURL == "" {
		// Regional: api.eu.bfl.ai (EU), api.us.bfl.ai (US)
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = def.MaxPolls
	}

	return &FluxProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
	}
}

func (p *FluxProvider) Name() string { return "flux" }

type fluxRequest struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio,omitempty"` // e.g., "1:1", "16:9", "9:16"
	Seed            int64  `json:"seed,omitempty"`
	SafetyTolerance int    `json:"safety_tolerance,omitempty"`
	OutputFormat    string `json:"output_format,omitempty"`
}

type fluxResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	PollingURL string `json:"polling_url,omitempty"` // Must use this URL for polling
	Result     struct {
		Sample string `json:"sample"` // Signed URL (valid 10 min)
	} `json:"result,omitempty"`
}

// Generate creates an image using Flux.
// Endpoint: POST /v1/{model} (e.g., /v1/flux-2-pro)
// Auth: x-key header
func (p *FluxProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	body := fluxRequest{
		Prompt:       req.Prompt,
		AspectRatio:  req.AspectRatio,
		Seed:         req.Seed,
		OutputFormat: req.OutputFormat,
	}
	if body.AspectRatio == "" {
		body.AspectRatio = AspectSquare
	}
	if body.OutputFormat == "" {
		body.OutputFormat = "jpeg"
	}

	// Submit generation request
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/%s", strings.TrimRight(p.cfg.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, providers.TransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), p.Name())
	}

	var fResp fluxResponse
	if err := json.NewDecoder(resp.Body).Decode(&fResp); err != nil {
		return nil, fmt.Errorf("failed to decode flux response: %w", err)
	}

	if fResp.Status != "Ready" {
		pollingURL := fResp.PollingURL
		if pollingURL == "" {
			// Fallback for legacy endpoints
			pollingURL = fmt.Sprintf("%s/v1/get_result?id=%s", strings.TrimRight(p.cfg.BaseURL, "/"), fResp.ID)
		}
		result, err := p.pollResult(ctx, pollingURL)
		if err != nil {
			return nil, err
		}
		fResp = *result
	}

	mime := "image/jpeg"
	if body.OutputFormat == "png" {
		mime = "image/png"
	}

	return &GenerateResponse{
		Provider:  p.Name(),
		Model:     model,
		Images:    []ImageData{{URL: fResp.Result.Sample, MimeType: mime}},
		CreatedAt: time.Now(),
	}, nil
}

func (p *FluxProvider) setHeaders(r *http.Request) {
	r.Header.Set("x-key", p.cfg.APIKey)
	r.Header.Set("accept", "application/json")
}

// pollResult polls for async generation result using the polling URL.
// Note: Signed URLs in result.sample are only valid for 10 minutes.
func (p *FluxProvider) pollResult(ctx context.Context, pollingURL string) (*fluxResponse, error) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for i := 0; i < p.cfg.MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollingURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create poll request: %w", err)
		}
		p.setHeaders(httpReq)

		resp, err := p.client.Do(httpReq)
		if err != nil {
			continue
		}

		var fResp fluxResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&fResp)
		providers.SafeCloseBody(resp.Body)
		if decodeErr != nil {
			continue
		}

		switch fResp.Status {
		case "Ready":
			if fResp.Result.Sample == "" {
				return nil, &llm.Error{Code: llm.ErrEmptyResponse, Message: "flux returned no sample", Provider: p.Name()}
			}
			return &fResp, nil
		case "Error", "Failed":
			return nil, &llm.Error{Code: llm.ErrUpstreamError, Message: "flux generation failed", Provider: p.Name()}
		case "Content Moderated", "Request Moderated":
			return nil, &llm.Error{Code: llm.ErrContentFiltered, Message: "flux: " + strings.ToLower(fResp.Status), Provider: p.Name()}
		}
		// Continue polling for Pending, Processing, etc.
	}

	return nil, &llm.Error{Code: llm.ErrUpstreamTimeout, Message: "flux generation timeout", Retryable: true, Provider: p.Name()}
}
