package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/visionboard/internal/tlsutil"
	"github.com/BaSui01/visionboard/llm"
	"github.com/BaSui01/visionboard/llm/providers"
)

// DefaultMaxImageBytes 单张图像最大下载体积
const DefaultMaxImageBytes = 20 << 20

// Fetcher 把 ImageData 解码为原始字节。
// b64 直接解码；URL（如 Flux 的签名链接）通过 HTTP 下载。
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher 创建 Fetcher。maxBytes <= 0 时使用 DefaultMaxImageBytes。
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Fetcher{client: tlsutil.SecureHTTPClient(timeout), maxBytes: maxBytes}
}

// Bytes 返回图像字节与 MIME 类型
func (f *Fetcher) Bytes(ctx context.Context, img ImageData) ([]byte, string, error) {
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(stripDataURLPrefix(img.B64JSON))
		if err != nil {
			return nil, "", fmt.Errorf("decode b64 image: %w", err)
		}
		return data, detectMime(img.MimeType, data), nil
	}
	if img.URL == "" {
		return nil, "", &llm.Error{Code: llm.ErrEmptyResponse, Message: "image has neither data nor url"}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, "", providers.TransportError(err, "image-download")
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, "", providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), "image-download")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}
	mime := img.MimeType
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
		mime = ct
	}
	return data, detectMime(mime, data), nil
}

func stripDataURLPrefix(s string) string {
	if strings.HasPrefix(s, "data:") {
		if idx := strings.Index(s, ","); idx >= 0 {
			return s[idx+1:]
		}
	}
	return s
}

func detectMime(hint string, data []byte) string {
	if hint != "" {
		return hint
	}
	return http.DetectContentType(data)
}
