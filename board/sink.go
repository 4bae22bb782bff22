package board

import (
	"context"
	"time"

	"github.com/BaSui01/visionboard/types"
)

// ArtifactContext 随产物一起持久化的元数据
type ArtifactContext struct {
	RequestID    string          `json:"requestId"`
	BoardType    types.BoardType `json:"boardType"`
	Title        string          `json:"title,omitempty"`
	Goals        []string        `json:"goals"`
	FinalScore   int             `json:"finalScore"`
	AttemptsUsed int             `json:"attemptsUsed"`
	Prompt       string          `json:"prompt"`
	CreatedAt    time.Time       `json:"createdAt"`
	OwnerID      string          `json:"ownerId,omitempty"`
	MimeType     string          `json:"mimeType,omitempty"`
}

// ArtifactSink 持久化被接受的图像，返回可寻址的 locator。
// 编排器每次运行最多调用一次，且不重试。
type ArtifactSink interface {
	Save(ctx context.Context, image []byte, ac ArtifactContext) (string, error)
}

// ArtifactSinkFunc 函数适配器
type ArtifactSinkFunc func(ctx context.Context, image []byte, ac ArtifactContext) (string, error)

// Save implements ArtifactSink.
func (f ArtifactSinkFunc) Save(ctx context.Context, image []byte, ac ArtifactContext) (string, error) {
	return f(ctx, image, ac)
}
