package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/visionboard/board"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink board.ArtifactSink 的生产实现：先写图像，再写元数据记录
type Sink struct {
	blobs   BlobStore
	records *RecordStore
	clock   func() time.Time
	logger  *zap.Logger
}

var _ board.ArtifactSink = (*Sink)(nil)

// NewSink 创建 Sink。records 为 nil 时只写图像。
func NewSink(blobs BlobStore, records *RecordStore, logger *zap.Logger) (*Sink, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		blobs:   blobs,
		records: records,
		clock:   time.Now,
		logger:  logger.With(zap.String("component", "artifact_sink")),
	}, nil
}

// Kind 底层存储名称
func (s *Sink) Kind() string { return s.blobs.Kind() }

// Save 实现 board.ArtifactSink。记录写入失败同样视为持久化失败。
func (s *Sink) Save(ctx context.Context, image []byte, ac board.ArtifactContext) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}
	createdAt := ac.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock().UTC()
	}

	key := ObjectKey(ac.RequestID, ac.MimeType, createdAt)
	locator, err := s.blobs.Put(ctx, key, image, ac.MimeType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	if s.records != nil {
		rec := &Record{
			ID:           uuid.NewString(),
			RequestID:    ac.RequestID,
			OwnerID:      ac.OwnerID,
			BoardType:    string(ac.BoardType),
			Title:        ac.Title,
			Goals:        ac.Goals,
			FinalScore:   ac.FinalScore,
			AttemptsUsed: ac.AttemptsUsed,
			Prompt:       ac.Prompt,
			MimeType:     ac.MimeType,
			Locator:      locator,
			SizeBytes:    int64(len(image)),
			CreatedAt:    createdAt,
		}
		if err := s.records.Create(ctx, rec); err != nil {
			s.logger.Error("image stored but record failed",
				zap.String("locator", locator), zap.Error(err))
			return "", fmt.Errorf("record artifact: %w", err)
		}
	}

	s.logger.Info("artifact saved",
		zap.String("request_id", ac.RequestID),
		zap.String("locator", locator),
		zap.Int("final_score", ac.FinalScore))
	return locator, nil
}
