package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FilesystemStore 把对象写到本地目录
type FilesystemStore struct {
	root   string
	logger *zap.Logger
}

// NewFilesystemStore 创建文件系统存储，root 不存在时自动创建
func NewFilesystemStore(root string, logger *zap.Logger) (*FilesystemStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FilesystemStore{
		root:   abs,
		logger: logger.With(zap.String("component", "fs_blob_store")),
	}, nil
}

// Root 存储根目录
func (s *FilesystemStore) Root() string { return s.root }

func (s *FilesystemStore) Kind() string { return "filesystem" }

// Put 先写临时文件再 rename，读者不会看到半个文件
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("commit object: %w", err)
	}

	s.logger.Debug("object stored", zap.String("path", path), zap.Int("bytes", len(data)))
	return "file://" + filepath.ToSlash(path), nil
}

// Ping 在根目录创建并删除一个探测文件
func (s *FilesystemStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.root, ".ping-*")
	if err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// resolve 把 key 限制在根目录之内
func (s *FilesystemStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	path := filepath.Join(s.root, clean)
	if path == s.root || !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path, nil
}
