package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/visionboard/board"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 📜 运行日志
// =============================================================================

// ErrRunNotFound 运行日志不存在或已过期
var ErrRunNotFound = errors.New("run journal not found")

// Config Redis 连接与保留策略
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	TTL          time.Duration // 运行结束后保留时长
	MaxLen       int64         // 单个运行的最大条目数，按 MAXLEN ~ 近似裁剪
	KeyPrefix    string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		TTL:          24 * time.Hour,
		MaxLen:       1000,
		KeyPrefix:    "visionboard",
	}
}

// Entry 回放出的一条事件
type Entry struct {
	StreamID string          `json:"streamId"`
	Type     board.EventType `json:"type"`
	Event    json.RawMessage `json:"event"`
}

// Journal 基于 Redis Stream 的运行日志
type Journal struct {
	client *redis.Client
	config Config
	logger *zap.Logger
}

// Connect 创建 Redis 客户端并探活
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewJournal 创建运行日志
func NewJournal(client *redis.Client, cfg Config, logger *zap.Logger) (*Journal, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = defaults.MaxLen
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}
	return &Journal{
		client: client,
		config: cfg,
		logger: logger.With(zap.String("component", "run_journal")),
	}, nil
}

// Ping 检查 Redis 连接
func (j *Journal) Ping(ctx context.Context) error {
	return j.client.Ping(ctx).Err()
}

// Close 关闭 Redis 客户端
func (j *Journal) Close() error {
	return j.client.Close()
}

// Key 运行对应的 stream key
func (j *Journal) Key(runID string) string {
	return fmt.Sprintf("%s:run:%s:events", j.config.KeyPrefix, runID)
}

// Append 追加一条事件
func (j *Journal) Append(ctx context.Context, runID string, ev board.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := j.Key(runID)

	pipe := j.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		MaxLen: j.config.MaxLen,
		Approx: true,
		Values: map[string]any{"type": string(ev.EventType()), "data": string(data)},
	})
	if ev.Terminal() {
		pipe.Expire(ctx, key, j.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append run event: %w", err)
	}
	return nil
}

// Expire 为运行日志设置保留期
func (j *Journal) Expire(ctx context.Context, runID string) error {
	return j.client.Expire(ctx, j.Key(runID), j.config.TTL).Err()
}

// Replay 按写入顺序读取运行的全部事件
func (j *Journal) Replay(ctx context.Context, runID string) ([]Entry, error) {
	msgs, err := j.client.XRange(ctx, j.Key(runID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("read run journal: %w", err)
	}
	if len(msgs) == 0 {
		return nil, ErrRunNotFound
	}

	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		typ, _ := m.Values["type"].(string)
		data, _ := m.Values["data"].(string)
		out = append(out, Entry{StreamID: m.ID, Type: board.EventType(typ), Event: json.RawMessage(data)})
	}
	return out, nil
}

// =============================================================================
// 🔌 board.EventSink 适配
// =============================================================================

// Sink 返回写入指定运行日志的 board.EventSink
func (j *Journal) Sink(ctx context.Context, runID string) board.EventSink {
	return &journalSink{
		journal: j,
		runID:   runID,
		ctx:     context.WithoutCancel(ctx),
	}
}

type journalSink struct {
	journal *Journal
	runID   string
	ctx     context.Context
}

func (s *journalSink) Send(ev board.Event) error {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	return s.journal.Append(ctx, s.runID, ev)
}

func (s *journalSink) Close() error {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := s.journal.Expire(ctx, s.runID); err != nil {
		s.journal.logger.Warn("failed to set journal ttl", zap.String("run_id", s.runID), zap.Error(err))
		return err
	}
	return nil
}
