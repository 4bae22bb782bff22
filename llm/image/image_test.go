package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/visionboard/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestSizeForAspect(t *testing.T) {
	assert.Equal(t, "1792x1024", sizeForAspect(AspectLandscape))
	assert.Equal(t, "1024x1792", sizeForAspect(AspectPortrait))
	assert.Equal(t, "1024x1024", sizeForAspect(AspectSquare))
	assert.Equal(t, "1024x1024", sizeForAspect(""))
}

func TestOpenAIProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body dalleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1024x1792", body.Size)
		assert.Equal(t, "b64_json", body.ResponseFormat)
		assert.Equal(t, 1, body.N)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"created": 1700000000,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(pngBytes)}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "a board", AspectRatio: AspectPortrait})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, "openai-image", resp.Provider)
	assert.Equal(t, "dall-e-3", resp.Model)
	assert.NotEmpty(t, resp.Images[0].B64JSON)
}

func TestOpenAIProvider_GenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"rejected by safety system"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL})
	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrContentFiltered, llmErr.Code)
}

func TestFluxProvider_GenerateWithPolling(t *testing.T) {
	var polls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "flux-key", r.Header.Get("x-key"))
		switch r.URL.Path {
		case "/v1/flux-2-pro":
			var body fluxRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, AspectLandscape, body.AspectRatio)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":          "task-1",
				"status":      "Pending",
				"polling_url": server.URL + "/v1/get_result?id=task-1",
			})
		case "/v1/get_result":
			status := "Pending"
			if polls.Add(1) >= 2 {
				status = "Ready"
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "task-1",
				"status": status,
				"result": map[string]string{"sample": server.URL + "/sample.jpg"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewFluxProvider(FluxConfig{APIKey: "flux-key", BaseURL: server.URL, PollInterval: 5 * time.Millisecond})
	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x", AspectRatio: AspectLandscape})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, server.URL+"/sample.jpg", resp.Images[0].URL)
	assert.Equal(t, "image/jpeg", resp.Images[0].MimeType)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestFluxProvider_GenerationFailed(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/get_result" {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "Error"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "t", "status": "Pending", "polling_url": server.URL + "/v1/get_result"})
	}))
	defer server.Close()

	p := NewFluxProvider(FluxConfig{BaseURL: server.URL, PollInterval: time.Millisecond})
	_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
}

func TestGeminiProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var body geminiImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.GenerationConfig.ImageConfig)
		assert.Equal(t, AspectSquare, body.GenerationConfig.ImageConfig.AspectRatio)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{
					map[string]any{"text": "here you go"},
					map[string]any{"inlineData": map[string]string{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(pngBytes),
					}},
				}},
			}},
		})
	}))
	defer server.Close()

	p := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: server.URL})
	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "x", AspectRatio: AspectSquare})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, "image/png", resp.Images[0].MimeType)
}

func TestFetcher_Bytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	f := NewFetcher(time.Second, 0)

	data, mime, err := f.Bytes(context.Background(), ImageData{B64JSON: base64.StdEncoding.EncodeToString(pngBytes)})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mime)

	data, _, err = f.Bytes(context.Background(), ImageData{B64JSON: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	data, mime, err = f.Bytes(context.Background(), ImageData{URL: server.URL + "/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
	assert.Equal(t, "image/jpeg", mime)

	_, _, err = f.Bytes(context.Background(), ImageData{})
	assert.Error(t, err)
}

func TestFetcher_RejectsOversizedDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer server.Close()

	_, _, err := NewFetcher(time.Second, 16).Bytes(context.Background(), ImageData{URL: server.URL})
	assert.Error(t, err)
}
