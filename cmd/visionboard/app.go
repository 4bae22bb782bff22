package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/visionboard/api/handlers"
	"github.com/BaSui01/visionboard/board"
	"github.com/BaSui01/visionboard/config"
	"github.com/BaSui01/visionboard/internal/artifact"
	"github.com/BaSui01/visionboard/internal/database"
	"github.com/BaSui01/visionboard/internal/metrics"
	"github.com/BaSui01/visionboard/internal/runlog"
	"github.com/BaSui01/visionboard/llm/image"
	"github.com/BaSui01/visionboard/llm/providers/openaicompat"
	"github.com/BaSui01/visionboard/types"
)

// =============================================================================
// 🧩 应用装配
// =============================================================================

// application serve 与 generate 共用的运行时依赖
type application struct {
	orchestrator *board.Orchestrator
	runner       handlers.Runner
	capabilities board.Capabilities
	sink         *artifact.Sink
	records      *artifact.RecordStore
	pool         *database.PoolManager
	journal      *runlog.Journal
	checks       []handlers.HealthCheck

	logger *zap.Logger
}

// buildApplication 按配置创建能力适配器、存储与编排器。
// 记录库与运行日志为可选项，未配置时对应字段为 nil。
func buildApplication(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*application, error) {
	app := &application{logger: logger}

	text := newTextGenerator(cfg.TextGeneration, logger)
	evaluator := newImageEvaluator(cfg.Evaluation, logger)
	img, err := newImageGenerator(cfg.ImageGeneration, logger)
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("init artifact storage: %w", err)
	}
	app.checks = append(app.checks, handlers.NewFuncHealthCheck("storage", blobs.Ping))

	if cfg.Database.Driver != "" {
		if err := app.openRecords(ctx, cfg.Database, collector); err != nil {
			app.Close()
			return nil, err
		}
	}

	if cfg.Redis.Addr != "" {
		if err := app.openJournal(ctx, cfg.Redis); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.sink, err = artifact.NewSink(blobs, app.records, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	policy := board.Policy{MaxAttempts: cfg.Board.MaxAttempts, AcceptThreshold: cfg.Board.AcceptThreshold}
	app.orchestrator, err = board.NewOrchestrator(board.OrchestratorConfig{
		Composer: board.NewPromptComposer(board.ComposerConfig{
			Generator: text,
			Timeout:   cfg.Board.ComposeTimeout,
			Observer:  collector,
		}, logger),
		Synthesizer: board.NewImageSynthesizer(board.SynthesizerConfig{
			Generator: img,
			Timeout:   cfg.Board.SynthesizeTimeout,
			Observer:  collector,
		}, logger),
		Evaluator: board.NewQualityEvaluator(board.EvaluatorConfig{
			Evaluator: evaluator,
			Timeout:   cfg.Board.EvaluateTimeout,
			Observer:  collector,
		}, logger),
		Sink:        app.sink,
		Policy:      policy,
		SaveTimeout: cfg.Board.SaveTimeout,
		Observer:    collector,
	}, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	app.runner = &trackedRunner{inner: app.orchestrator, collector: collector}

	app.capabilities = board.Capabilities{
		Text:         text,
		Image:        img,
		Evaluator:    evaluator,
		Policy:       app.orchestrator.Policy(),
		Storage:      app.sink.Kind(),
		ProbeTimeout: cfg.Board.ProbeTimeout,
	}

	logger.Info("board pipeline ready",
		zap.Bool("text_generation", text != nil),
		zap.Bool("image_generation", img != nil),
		zap.Bool("evaluation", evaluator != nil),
		zap.String("storage", app.sink.Kind()),
		zap.Bool("records", app.records != nil),
		zap.Bool("journal", app.journal != nil),
	)
	return app, nil
}

func (a *application) openRecords(ctx context.Context, cfg config.DatabaseConfig, collector *metrics.Collector) error {
	driver := strings.ToLower(cfg.Driver)
	db, err := database.Open(driver, cfg.DSN(), a.logger)
	if err != nil {
		return err
	}

	poolCfg := database.DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.StatsReporter = func(open, idle int) {
		collector.RecordDBConnections(driver, open, idle)
	}

	a.pool, err = database.NewPoolManager(db, poolCfg, a.logger)
	if err != nil {
		return fmt.Errorf("init database pool: %w", err)
	}
	a.records, err = artifact.NewRecordStore(a.pool.DB(), a.logger)
	if err != nil {
		return err
	}
	if err := a.records.Migrate(ctx); err != nil {
		return err
	}
	a.checks = append(a.checks, handlers.NewFuncHealthCheck("database", a.pool.Ping))
	return nil
}

func (a *application) openJournal(ctx context.Context, cfg config.RedisConfig) error {
	rcfg := runlog.Config{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		TTL:          cfg.JournalTTL,
		MaxLen:       cfg.JournalMaxLen,
	}
	client, err := runlog.Connect(ctx, rcfg)
	if err != nil {
		return err
	}
	a.journal, err = runlog.NewJournal(client, rcfg, a.logger)
	if err != nil {
		client.Close()
		return err
	}
	a.checks = append(a.checks, handlers.NewFuncHealthCheck("redis", a.journal.Ping))
	return nil
}

// handlerConfig 可选依赖以 nil 接口传入，避免 typed-nil
func (a *application) handlerConfig(cfg *config.Config) handlers.BoardHandlerConfig {
	hc := handlers.BoardHandlerConfig{
		Runner:           a.runner,
		Capabilities:     a.capabilities,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		WSOriginPatterns: cfg.Server.CORSAllowedOrigins,
	}
	if a.journal != nil {
		hc.Journal = a.journal
	}
	if a.records != nil {
		hc.Records = a.records
	}
	return hc
}

// Close 释放数据库与 Redis 连接
func (a *application) Close() error {
	var errs []error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// 🔌 能力适配器
// =============================================================================

func newTextGenerator(cfg config.ModelConfig, logger *zap.Logger) board.TextGenerator {
	if !cfg.Configured() {
		return nil
	}
	provider := openaicompat.New(openaicompat.Config{
		ProviderName: cfg.Provider,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
	}, logger)
	return board.NewLLMTextGenerator(provider, cfg.Model, cfg.MaxTokens, float32(cfg.Temperature))
}

func newImageEvaluator(cfg config.ModelConfig, logger *zap.Logger) board.ImageEvaluator {
	if !cfg.Configured() {
		return nil
	}
	provider := openaicompat.New(openaicompat.Config{
		ProviderName: cfg.Provider,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.Model,
		Timeout:      cfg.Timeout,
	}, logger)
	return board.NewLLMImageEvaluator(provider, cfg.Model, cfg.MaxTokens)
}

func newImageGenerator(cfg config.ImageConfig, logger *zap.Logger) (board.ImageGenerator, error) {
	if !cfg.Configured() {
		return nil, nil
	}

	// 默认值针对 openai，切换到其他服务商时交给服务商自己的默认值
	defaults := config.DefaultImageGenerationConfig()
	name := strings.ToLower(cfg.Provider)
	baseURL, model := cfg.BaseURL, cfg.Model
	if name != "openai" {
		baseURL = overrideOnly(baseURL, defaults.BaseURL)
		model = overrideOnly(model, defaults.Model)
	}

	var provider image.Provider
	switch name {
	case "openai":
		provider = image.NewOpenAIProvider(image.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   model,
			Quality: cfg.Quality,
			Timeout: cfg.Timeout,
		})
	case "flux":
		provider = image.NewFluxProvider(image.FluxConfig{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   model,
			Timeout: cfg.Timeout,
		})
	case "gemini":
		provider = image.NewGeminiProvider(image.GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.Provider)
	}

	fetcher := image.NewFetcher(cfg.Timeout, cfg.MaxImageBytes)
	return board.NewProviderImageGenerator(provider, fetcher, logger), nil
}

// overrideOnly 值等于 openai 默认值时视为未设置
func overrideOnly(value, openaiDefault string) string {
	if value == openaiDefault {
		return ""
	}
	return value
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (artifact.BlobStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "filesystem":
		store, err := artifact.NewFilesystemStore(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		store, err := artifact.NewMinioStore(artifact.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
			Prefix:    cfg.MinIO.Prefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// =============================================================================
// 📈 运行计数
// =============================================================================

// trackedRunner 在运行期间维护进行中运行数
type trackedRunner struct {
	inner     handlers.Runner
	collector *metrics.Collector
}

func (r *trackedRunner) Run(ctx context.Context, req types.GenerationRequest, emit board.Emitter) board.RunResult {
	done := r.collector.RunStarted()
	defer done()
	return r.inner.Run(ctx, req, emit)
}
