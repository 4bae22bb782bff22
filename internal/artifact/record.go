package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = errors.New("artifact record not found")

// 列表查询的默认与最大条数
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Record 产物元数据
type Record struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	RequestID    string    `gorm:"size:128;index" json:"requestId"`
	OwnerID      string    `gorm:"size:128;index" json:"ownerId,omitempty"`
	BoardType    string    `gorm:"size:32" json:"boardType"`
	Title        string    `gorm:"size:512" json:"title,omitempty"`
	Goals        []string  `gorm:"serializer:json" json:"goals"`
	FinalScore   int       `json:"finalScore"`
	AttemptsUsed int       `json:"attemptsUsed"`
	Prompt       string    `gorm:"type:text" json:"prompt"`
	MimeType     string    `gorm:"size:64" json:"mimeType"`
	Locator      string    `gorm:"size:1024" json:"locator"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

// TableName GORM 表名
func (Record) TableName() string { return "board_artifacts" }

// ListFilter 列表过滤条件
type ListFilter struct {
	OwnerID string
	Limit   int
}

// RecordStore 产物元数据的 GORM 存储
type RecordStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecordStore 创建记录存储
func NewRecordStore(db *gorm.DB, logger *zap.Logger) (*RecordStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{db: db, logger: logger.With(zap.String("component", "artifact_records"))}, nil
}

// Migrate 创建或更新表结构
func (s *RecordStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("migrate artifact records: %w", err)
	}
	return nil
}

// Create 写入一条记录
func (s *RecordStore) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create artifact record: %w", err)
	}
	return nil
}

// Get 按 id 读取记录
func (s *RecordStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact record: %w", err)
	}
	return &rec, nil
}

// List 按创建时间倒序列出记录
func (s *RecordStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	q := s.db.WithContext(ctx).Model(&Record{})
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}

	var out []Record
	if err := q.Order("created_at DESC").Order("id").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list artifact records: %w", err)
	}
	return out, nil
}
