package artifact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore 图像字节存储后端
type BlobStore interface {
	// Put 写入对象并返回定位符
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
	// Ping 检查后端可写
	Ping(ctx context.Context) error
	// Kind 后端名称，用于能力报告
	Kind() string
}

// ObjectKey 生成对象键：boards/<yyyy>/<mm>/<requestID>-<短 uuid>.<ext>
func ObjectKey(requestID, mimeType string, now time.Time) string {
	id := sanitizeKeyPart(requestID)
	if id == "" {
		id = "board"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("boards/%04d/%02d/%s-%s.%s", now.Year(), int(now.Month()), id, suffix, extensionFor(mimeType))
}

// extensionFor mime 类型 → 文件扩展名
func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/png", "":
		return "png"
	default:
		return "bin"
	}
}

// sanitizeKeyPart 只保留字母、数字、- 与 _，限制长度
func sanitizeKeyPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 64 {
			break
		}
	}
	return b.String()
}
