// =============================================================================
// VisionBoard 主入口
// =============================================================================
// 使用方法:
//
//	visionboard serve                                  # 启动服务
//	visionboard serve --config config.yaml             # 指定配置文件
//	visionboard generate --request board.json          # 本地跑一次生成，NDJSON 输出到 stdout
//	visionboard health --addr http://localhost:8080    # 健康检查
//	visionboard version                                # 显示版本信息
// =============================================================================

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/visionboard/board"
	"github.com/BaSui01/visionboard/config"
	"github.com/BaSui01/visionboard/internal/metrics"
	"github.com/BaSui01/visionboard/internal/telemetry"
	"github.com/BaSui01/visionboard/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const metricsNamespace = "visionboard"

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "generate":
		os.Exit(runGenerate(os.Args[2:], os.Stdout))
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting VisionBoard",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx := context.Background()
	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	collector := metrics.NewCollector(metricsNamespace, logger)
	app, err := buildApplication(ctx, cfg, collector, logger)
	if err != nil {
		logger.Fatal("Failed to initialize board pipeline", zap.Error(err))
	}

	srv := NewServer(cfg, app, collector, otelProviders, logger)
	if err := srv.Start(); err != nil {
		srv.Shutdown()
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown()
	logger.Info("VisionBoard stopped")
}

// =============================================================================
// 🖼️ generate 命令
// =============================================================================

// runGenerate 读取请求文件，本地执行一次生成，返回进程退出码
func runGenerate(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	requestPath := fs.String("request", "", "Path to generation request JSON ('-' for stdin)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *requestPath == "" {
		fmt.Fprintln(os.Stderr, "generate: --request is required")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	req, err := readRequest(*requestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		return 1
	}

	// NDJSON 占用 stdout，日志只写 stderr
	logCfg := cfg.Log
	logCfg.OutputPaths = []string{"stderr"}
	logger := initLogger(logCfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, cfg, metrics.NewCollector(metricsNamespace, logger), logger)
	if err != nil {
		logger.Error("failed to initialize board pipeline", zap.Error(err))
		return 1
	}
	defer app.Close()

	result := generateOnce(ctx, app, req, out, logger)
	if !result.Accepted {
		return 1
	}
	return 0
}

// generateOnce 与 HTTP 流式接口相同的运行方式：Streamer 保证恰好一个终止事件
func generateOnce(ctx context.Context, app *application, req types.GenerationRequest, out io.Writer, logger *zap.Logger) board.RunResult {
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}

	var sink board.EventSink = newLineSink(out)
	if app.journal != nil {
		sink = board.NewTeeSink(sink, logger, app.journal.Sink(ctx, req.RequestID))
	}

	var result board.RunResult
	streamer := board.NewStreamer(sink, logger)
	if err := streamer.Stream(types.WithRunID(ctx, req.RequestID), func(ctx context.Context, emit board.Emitter) {
		result = app.runner.Run(ctx, req, emit)
	}); err != nil {
		logger.Warn("run finished with error", zap.Error(err))
	}
	return result
}

func readRequest(path string) (types.GenerationRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return types.GenerationRequest{}, fmt.Errorf("read request: %w", err)
	}

	var req types.GenerationRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return types.GenerationRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// lineSink 每个事件一行 JSON
type lineSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineSink(w io.Writer) *lineSink {
	return &lineSink{enc: json.NewEncoder(w)}
}

func (s *lineSink) Send(ev board.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(ev)
}

func (s *lineSink) Close() error { return nil }

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(*addr, "/") + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("VisionBoard %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`VisionBoard - vision board generation service

Usage:
  visionboard <command> [options]

Commands:
  serve      Start the API and metrics servers
  generate   Run one generation locally and print NDJSON events
  version    Show version information
  health     Check server health
  help       Show this help message

Options for 'serve':
  --config <path>    Path to configuration file (YAML)

Options for 'generate':
  --config <path>    Path to configuration file (YAML)
  --request <path>   Generation request JSON, '-' reads stdin

Examples:
  visionboard serve --config /etc/visionboard/config.yaml
  VISIONBOARD_IMAGE_GENERATION_API_KEY=sk-... visionboard generate --request board.json
  visionboard health --addr http://localhost:8080
  visionboard version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
